package asset

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/diagomike/RecompBackend/pkg/log"
	"github.com/diagomike/RecompBackend/pkg/storage"
	"github.com/diagomike/RecompBackend/pkg/types"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Manager owns the asset lifecycle and the on-disk storage layout.
// Ingested files live under uploads/YYYY-MM-DD/, task outputs under
// generated/<task_id>/.
type Manager struct {
	store        storage.Store
	storageRoot  string
	uploadsDir   string
	generatedDir string
	logger       zerolog.Logger
}

// NewManager creates an asset manager rooted at storageRoot
func NewManager(store storage.Store, storageRoot string) (*Manager, error) {
	root, err := filepath.Abs(storageRoot)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve storage root: %w", err)
	}

	m := &Manager{
		store:        store,
		storageRoot:  root,
		uploadsDir:   filepath.Join(root, "uploads"),
		generatedDir: filepath.Join(root, "generated"),
		logger:       log.WithComponent("asset-manager"),
	}

	for _, dir := range []string{m.uploadsDir, m.generatedDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create storage directory %s: %w", dir, err)
		}
	}
	return m, nil
}

// Ingest copies an existing file into storage and registers it as an
// AVAILABLE FILE asset. Fails if the source does not exist; no record is
// created on failure.
func (m *Manager) Ingest(sourcePath, label, mediaType string) (string, error) {
	if _, err := os.Stat(sourcePath); err != nil {
		return "", fmt.Errorf("source file %s does not exist: %w", sourcePath, err)
	}

	dateDir := filepath.Join(m.uploadsDir, time.Now().Format("2006-01-02"))
	if err := os.MkdirAll(dateDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create uploads directory: %w", err)
	}

	assetID := uuid.New().String()
	destPath := filepath.Join(dateDir, assetID+"_"+filepath.Base(sourcePath))

	if err := copyFile(sourcePath, destPath); err != nil {
		return "", fmt.Errorf("failed to copy into storage: %w", err)
	}

	asset := &types.Asset{
		ID:          assetID,
		Label:       label,
		Kind:        types.AssetKindFile,
		Status:      types.AssetStatusAvailable,
		MediaType:   mediaType,
		StoragePath: destPath,
		Tags:        []string{"upload"},
	}
	if err := m.store.CreateAsset(asset); err != nil {
		os.Remove(destPath)
		return "", err
	}

	m.logger.Info().Str("asset_id", assetID).Str("label", label).Msg("asset ingested")
	return assetID, nil
}

// CreatePending creates a PENDING FILE asset promised by a specific task
func (m *Manager) CreatePending(taskID, label, mediaType string) (string, error) {
	asset := &types.Asset{
		ID:            uuid.New().String(),
		Label:         label,
		Kind:          types.AssetKindFile,
		Status:        types.AssetStatusPending,
		MediaType:     mediaType,
		CreatedByTask: taskID,
		Tags:          []string{"task-output"},
	}
	if err := m.store.CreateAsset(asset); err != nil {
		return "", err
	}
	return asset.ID, nil
}

// CreateValue creates an AVAILABLE VALUE asset with inline content
func (m *Manager) CreateValue(label string, value any, mediaType string) (string, error) {
	content, err := json.Marshal(value)
	if err != nil {
		return "", fmt.Errorf("value is not JSON-serialisable: %w", err)
	}
	if mediaType == "" {
		mediaType = "application/json"
	}

	asset := &types.Asset{
		ID:           uuid.New().String(),
		Label:        label,
		Kind:         types.AssetKindValue,
		Status:       types.AssetStatusAvailable,
		MediaType:    mediaType,
		ValueContent: content,
	}
	if err := m.store.CreateAsset(asset); err != nil {
		return "", err
	}
	return asset.ID, nil
}

// FulfillFile moves a produced file into generated/<task_id>/ and marks
// the promise AVAILABLE. The caller must not retain a handle to the
// source path afterwards.
func (m *Manager) FulfillFile(assetID, producedPath string) error {
	asset, err := m.pendingAsset(assetID)
	if err != nil {
		return err
	}

	taskID := asset.CreatedByTask
	if taskID == "" {
		taskID = "unknown"
	}
	destDir := filepath.Join(m.generatedDir, taskID)
	if err := os.MkdirAll(destDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	destPath := filepath.Join(destDir, filepath.Base(producedPath))
	if err := moveFile(producedPath, destPath); err != nil {
		return fmt.Errorf("failed to move output into storage: %w", err)
	}

	asset.Status = types.AssetStatusAvailable
	asset.StoragePath = destPath
	return m.store.UpdateAsset(asset)
}

// FulfillValue sets inline content on a promise and marks it AVAILABLE
func (m *Manager) FulfillValue(assetID string, value any) error {
	asset, err := m.pendingAsset(assetID)
	if err != nil {
		return err
	}

	content, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("value is not JSON-serialisable: %w", err)
	}

	asset.Status = types.AssetStatusAvailable
	asset.Kind = types.AssetKindValue
	asset.ValueContent = content
	return m.store.UpdateAsset(asset)
}

// Fail transitions a PENDING asset to FAILED with the given reason
func (m *Manager) Fail(assetID, reason string) error {
	asset, err := m.pendingAsset(assetID)
	if err != nil {
		return err
	}

	asset.Status = types.AssetStatusFailed
	asset.Error = reason
	if err := m.store.UpdateAsset(asset); err != nil {
		return err
	}
	m.logger.Warn().Str("asset_id", assetID).Str("reason", reason).Msg("asset failed")
	return nil
}

// ResolveToPath resolves an AVAILABLE asset to a physical file path.
// VALUE assets are materialised as a fresh temporary file under tempDir
// whose suffix reflects the media type.
func (m *Manager) ResolveToPath(assetID, tempDir string) (string, error) {
	asset, err := m.store.GetAsset(assetID)
	if err != nil {
		return "", err
	}
	if asset.Status != types.AssetStatusAvailable {
		return "", fmt.Errorf("asset %s is not AVAILABLE (status %s)", assetID, asset.Status)
	}

	switch asset.Kind {
	case types.AssetKindFile:
		return asset.StoragePath, nil

	case types.AssetKindValue:
		suffix := ".txt"
		if asset.MediaType == "application/json" {
			suffix = ".json"
		}
		f, err := os.CreateTemp(tempDir, "asset_"+assetID+"_*"+suffix)
		if err != nil {
			return "", fmt.Errorf("failed to create temp file: %w", err)
		}
		defer f.Close()

		content := asset.ValueContent
		// Bare JSON strings are written without quotes so modules read
		// the raw text
		var s string
		if json.Unmarshal(content, &s) == nil {
			content = []byte(s)
		}
		if _, err := f.Write(content); err != nil {
			os.Remove(f.Name())
			return "", fmt.Errorf("failed to write value content: %w", err)
		}
		return f.Name(), nil
	}

	return "", fmt.Errorf("asset %s has unknown kind %s", assetID, asset.Kind)
}

// Get returns one asset record
func (m *Manager) Get(assetID string) (*types.Asset, error) {
	return m.store.GetAsset(assetID)
}

// List returns asset records, optionally filtered by status and tag
func (m *Manager) List(status types.AssetStatus, tag string) ([]*types.Asset, error) {
	assets, err := m.store.ListAssets()
	if err != nil {
		return nil, err
	}

	var filtered []*types.Asset
	for _, asset := range assets {
		if status != "" && asset.Status != status {
			continue
		}
		if tag != "" && !hasTag(asset, tag) {
			continue
		}
		filtered = append(filtered, asset)
	}
	return filtered, nil
}

// pendingAsset loads an asset and rejects mutation of terminal records
func (m *Manager) pendingAsset(assetID string) (*types.Asset, error) {
	asset, err := m.store.GetAsset(assetID)
	if err != nil {
		return nil, err
	}
	if asset.Terminal() {
		return nil, fmt.Errorf("asset %s is terminal (status %s) and cannot be mutated", assetID, asset.Status)
	}
	return asset, nil
}

func hasTag(asset *types.Asset, tag string) bool {
	for _, t := range asset.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Sync()
}

// moveFile renames when possible and falls back to copy+remove across
// filesystems
func moveFile(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	if err := copyFile(src, dst); err != nil {
		return err
	}
	return os.Remove(src)
}
