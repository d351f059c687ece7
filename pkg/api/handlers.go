package api

import (
	"net/http"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"

	"github.com/diagomike/RecompBackend/pkg/orchestrator"
	"github.com/diagomike/RecompBackend/pkg/storage"
	"github.com/diagomike/RecompBackend/pkg/types"
)

// handleAssetUpload ingests a multipart file upload. The upload is
// spooled to a temp file, copied into storage, and registered as an
// AVAILABLE FILE asset.
func (s *Server) handleAssetUpload(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing file field"})
		return
	}

	label := c.PostForm("label")
	if label == "" {
		label = fileHeader.Filename
	}
	mediaType := fileHeader.Header.Get("Content-Type")
	if mediaType == "" {
		mediaType = "application/octet-stream"
	}

	tmp, err := os.CreateTemp("", "upload_*_"+filepath.Base(fileHeader.Filename))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "cannot spool upload"})
		return
	}
	tmpPath := tmp.Name()
	tmp.Close()
	defer os.Remove(tmpPath)

	if err := c.SaveUploadedFile(fileHeader, tmpPath); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "cannot spool upload"})
		return
	}

	assetID, err := s.assets.Ingest(tmpPath, label, mediaType)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	a, err := s.assets.Get(assetID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, a)
}

type assetValueRequest struct {
	Label     string `json:"label" binding:"required"`
	Value     any    `json:"value" binding:"required"`
	MediaType string `json:"media_type"`
}

// handleAssetValue registers an inline VALUE asset
func (s *Server) handleAssetValue(c *gin.Context) {
	var req assetValueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	assetID, err := s.assets.CreateValue(req.Label, req.Value, req.MediaType)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	a, err := s.assets.Get(assetID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, a)
}

func (s *Server) handleAssetList(c *gin.Context) {
	status := types.AssetStatus(c.Query("status"))
	tag := c.Query("tag")

	assets, err := s.assets.List(status, tag)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if assets == nil {
		assets = []*types.Asset{}
	}
	c.JSON(http.StatusOK, gin.H{"assets": assets, "count": len(assets)})
}

func (s *Server) handleAssetGet(c *gin.Context) {
	a, err := s.assets.Get(c.Param("id"))
	if err != nil {
		if storage.IsNotFound(err) {
			c.JSON(http.StatusNotFound, gin.H{"error": "asset not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, a)
}

// handleAssetDownload serves the backing file of an AVAILABLE FILE
// asset. Everything else is a 404, including a record whose file went
// missing on disk.
func (s *Server) handleAssetDownload(c *gin.Context) {
	a, err := s.assets.Get(c.Param("id"))
	if err != nil {
		if storage.IsNotFound(err) {
			c.JSON(http.StatusNotFound, gin.H{"error": "asset not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if a.Status != types.AssetStatusAvailable || a.Kind != types.AssetKindFile || a.StoragePath == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": "asset has no downloadable file"})
		return
	}
	if _, err := os.Stat(a.StoragePath); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "asset file missing from storage"})
		return
	}

	c.Header("Content-Type", a.MediaType)
	c.FileAttachment(a.StoragePath, filepath.Base(a.StoragePath))
}

type taskSubmitRequest struct {
	ModuleID string            `json:"module_id" binding:"required"`
	InputMap map[string]string `json:"input_map"`
	Config   map[string]any    `json:"config"`
}

// handleTaskSubmit validates and records a task. Contract violations,
// including an unknown module, come back as 422.
func (s *Server) handleTaskSubmit(c *gin.Context) {
	var req taskSubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := s.tasks.Submit(req.ModuleID, req.InputMap, req.Config)
	if err != nil {
		if orchestrator.IsValidationError(err) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (s *Server) handleTaskList(c *gin.Context) {
	tasks, err := s.store.ListTasks()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if tasks == nil {
		tasks = []*types.Task{}
	}
	c.JSON(http.StatusOK, gin.H{"tasks": tasks, "count": len(tasks)})
}

func (s *Server) handleTaskGet(c *gin.Context) {
	task, err := s.store.GetTask(c.Param("id"))
	if err != nil {
		if storage.IsNotFound(err) {
			c.JSON(http.StatusNotFound, gin.H{"error": "task not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, task)
}

func (s *Server) handleTaskLogs(c *gin.Context) {
	task, err := s.store.GetTask(c.Param("id"))
	if err != nil {
		if storage.IsNotFound(err) {
			c.JSON(http.StatusNotFound, gin.H{"error": "task not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	logs := task.Logs
	if logs == nil {
		logs = []string{}
	}
	c.JSON(http.StatusOK, gin.H{
		"status":    task.Status,
		"error_log": task.ErrorLog,
		"logs":      logs,
	})
}

// moduleView is the public projection of a module record
type moduleView struct {
	ID          string                 `json:"id"`
	Status      types.ModuleStatus     `json:"status"`
	Version     string                 `json:"version,omitempty"`
	Path        string                 `json:"path"`
	VersionHash string                 `json:"version_hash"`
	Inputs      []types.ContractInput  `json:"inputs"`
	Outputs     []types.ContractOutput `json:"outputs"`
}

func newModuleView(m *types.Module) moduleView {
	v := moduleView{
		ID:          m.ID,
		Status:      m.Status,
		Path:        m.Path,
		VersionHash: m.VersionHash,
		Inputs:      []types.ContractInput{},
		Outputs:     []types.ContractOutput{},
	}
	if m.Config != nil {
		v.Version = m.Config.Version
		v.Inputs = m.Config.Inputs
		v.Outputs = m.Config.Outputs
	}
	return v
}

func (s *Server) handleModuleList(c *gin.Context) {
	modules, err := s.store.ListModules()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	views := make([]moduleView, 0, len(modules))
	for _, m := range modules {
		views = append(views, newModuleView(m))
	}
	c.JSON(http.StatusOK, gin.H{"modules": views, "count": len(views)})
}

func (s *Server) handleModuleGet(c *gin.Context) {
	m, err := s.store.GetModule(c.Param("id"))
	if err != nil {
		if storage.IsNotFound(err) {
			c.JSON(http.StatusNotFound, gin.H{"error": "module not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, newModuleView(m))
}

// handleModuleScan triggers a synchronous discovery cycle
func (s *Server) handleModuleScan(c *gin.Context) {
	if err := s.scanner.DiscoverAndRegister(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	modules, err := s.store.ListModules()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "scan complete", "modules": len(modules)})
}
