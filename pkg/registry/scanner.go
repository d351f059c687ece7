package registry

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/diagomike/RecompBackend/pkg/types"
)

// Files that participate in the module content hash, in fixed order
var hashedFiles = []string{"module.json", "main.py", "requirements.txt"}

// Scanner walks the modules root and validates module structure
type Scanner struct{}

// NewScanner creates a new scanner
func NewScanner() *Scanner {
	return &Scanner{}
}

// ScanDirectory returns {module_dir_name: absolute_path} for candidate
// module directories. Hidden directories and __-prefixed directories
// (e.g. __pycache__) are ignored.
func (s *Scanner) ScanDirectory(modulesRoot string) map[string]string {
	modules := make(map[string]string)

	entries, err := os.ReadDir(modulesRoot)
	if err != nil {
		return modules
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, ".") || strings.HasPrefix(name, "__") {
			continue
		}
		modules[name] = filepath.Join(modulesRoot, name)
	}
	return modules
}

// ValidateModule checks that module.json and main.py exist and that the
// manifest carries the required keys. Returns the parsed config if
// valid, else nil; there is no partial acceptance.
func (s *Scanner) ValidateModule(modulePath string) *types.ModuleConfig {
	jsonPath := filepath.Join(modulePath, "module.json")
	mainPath := filepath.Join(modulePath, "main.py")

	if _, err := os.Stat(jsonPath); err != nil {
		return nil
	}
	if _, err := os.Stat(mainPath); err != nil {
		return nil
	}

	data, err := os.ReadFile(jsonPath)
	if err != nil {
		return nil
	}

	// Required keys must be present, not merely zero-valued
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil
	}
	for _, key := range []string{"name", "version", "entry_point", "inputs", "outputs"} {
		if _, ok := raw[key]; !ok {
			return nil
		}
	}

	var cfg types.ModuleConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil
	}

	for _, inp := range cfg.Inputs {
		if inp.Key == "" {
			return nil
		}
		if inp.ContractType != types.ContractTypeAsset && inp.ContractType != types.ContractTypeValue {
			return nil
		}
	}

	return &cfg
}

// CalculateHash computes a stable content hash over the manifest, entry
// script, and dependency declaration. Missing files contribute nothing.
func (s *Scanner) CalculateHash(modulePath string) string {
	hasher := md5.New()
	for _, filename := range hashedFiles {
		data, err := os.ReadFile(filepath.Join(modulePath, filename))
		if err != nil {
			continue
		}
		hasher.Write(data)
	}
	return hex.EncodeToString(hasher.Sum(nil))
}
