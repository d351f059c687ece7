package registry

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diagomike/RecompBackend/pkg/types"
)

const validModuleJSON = `{
	"name": "resize_image",
	"version": "1.0.0",
	"entry_point": "main.py",
	"inputs": [
		{"key": "source", "contract_type": "ASSET", "constraints": {"media_types": ["image/png"]}},
		{"key": "width", "contract_type": "VALUE"}
	],
	"outputs": [
		{"key": "resized", "contract_type": "ASSET", "media_type": "image/png"}
	]
}`

func writeModule(t *testing.T, root, name, moduleJSON string) string {
	t.Helper()
	dir := filepath.Join(root, name)
	require.NoError(t, os.MkdirAll(dir, 0755))
	if moduleJSON != "" {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "module.json"), []byte(moduleJSON), 0644))
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "main.py"), []byte("print('ok')\n"), 0644))
	return dir
}

func TestScanDirectory(t *testing.T) {
	root := t.TempDir()
	writeModule(t, root, "resize_image", validModuleJSON)
	writeModule(t, root, "__pycache__", "")
	writeModule(t, root, ".hidden", "")
	require.NoError(t, os.WriteFile(filepath.Join(root, "stray.txt"), []byte("x"), 0644))

	found := NewScanner().ScanDirectory(root)
	require.Len(t, found, 1)
	assert.Equal(t, filepath.Join(root, "resize_image"), found["resize_image"])
}

func TestScanDirectoryMissingRoot(t *testing.T) {
	found := NewScanner().ScanDirectory(filepath.Join(t.TempDir(), "does-not-exist"))
	assert.Empty(t, found)
}

func TestValidateModule(t *testing.T) {
	root := t.TempDir()
	scanner := NewScanner()

	dir := writeModule(t, root, "ok", validModuleJSON)
	cfg := scanner.ValidateModule(dir)
	require.NotNil(t, cfg)
	assert.Equal(t, "resize_image", cfg.Name)
	assert.Equal(t, "main.py", cfg.EntryPoint)
	require.Len(t, cfg.Inputs, 2)
	assert.Equal(t, types.ContractTypeAsset, cfg.Inputs[0].ContractType)
	assert.Equal(t, []string{"image/png"}, cfg.Inputs[0].Constraints.MediaTypes)
}

func TestValidateModuleRejections(t *testing.T) {
	root := t.TempDir()
	scanner := NewScanner()

	tests := []struct {
		name       string
		moduleJSON string
		setup      func(t *testing.T, dir string)
	}{
		{
			name:       "missing module.json",
			moduleJSON: "",
		},
		{
			name:       "missing main.py",
			moduleJSON: validModuleJSON,
			setup: func(t *testing.T, dir string) {
				require.NoError(t, os.Remove(filepath.Join(dir, "main.py")))
			},
		},
		{
			name:       "malformed json",
			moduleJSON: `{"name": "x",`,
		},
		{
			name:       "missing required key",
			moduleJSON: `{"name": "x", "version": "1", "inputs": [], "outputs": []}`,
		},
		{
			name: "input without key",
			moduleJSON: `{"name": "x", "version": "1", "entry_point": "main.py",
				"inputs": [{"contract_type": "ASSET"}], "outputs": []}`,
		},
		{
			name: "input with bad contract type",
			moduleJSON: `{"name": "x", "version": "1", "entry_point": "main.py",
				"inputs": [{"key": "a", "contract_type": "BLOB"}], "outputs": []}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := writeModule(t, root, "mod_"+tt.name, tt.moduleJSON)
			if tt.setup != nil {
				tt.setup(t, dir)
			}
			assert.Nil(t, scanner.ValidateModule(dir))
		})
	}
}

func TestCalculateHash(t *testing.T) {
	root := t.TempDir()
	scanner := NewScanner()

	dir := writeModule(t, root, "mod", validModuleJSON)
	h1 := scanner.CalculateHash(dir)
	require.NotEmpty(t, h1)

	// Stable across calls
	assert.Equal(t, h1, scanner.CalculateHash(dir))

	// Changing a hashed file changes the hash
	require.NoError(t, os.WriteFile(filepath.Join(dir, "main.py"), []byte("print('changed')\n"), 0644))
	h2 := scanner.CalculateHash(dir)
	assert.NotEqual(t, h1, h2)

	// Adding requirements.txt changes the hash
	require.NoError(t, os.WriteFile(filepath.Join(dir, "requirements.txt"), []byte("requests\n"), 0644))
	assert.NotEqual(t, h2, scanner.CalculateHash(dir))

	// Unhashed files do not
	h3 := scanner.CalculateHash(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.md"), []byte("x"), 0644))
	assert.Equal(t, h3, scanner.CalculateHash(dir))
}
