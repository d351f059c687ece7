package registry

import (
	"bufio"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
)

// EnvProvisioner provisions and locates a module's isolated interpreter
type EnvProvisioner interface {
	VenvPath(modulePath string) string
	InterpreterPath(modulePath string) string
	CreateVenv(modulePath string) (bool, string)
	InstallRequirements(modulePath string, logFn func(string)) bool
}

// EnvManager manages virtual environments for modules. Failures are
// reported through the return values and the log callback; no errors
// cross the component boundary.
type EnvManager struct {
	// Python is the base interpreter used to seed new environments
	Python string
}

// NewEnvManager creates an environment manager using the given base
// interpreter (e.g. "python3")
func NewEnvManager(python string) *EnvManager {
	if python == "" {
		python = "python3"
	}
	return &EnvManager{Python: python}
}

// VenvPath returns the environment directory for a module
func (e *EnvManager) VenvPath(modulePath string) string {
	return filepath.Join(modulePath, "venv")
}

// InterpreterPath returns the isolated interpreter for a module
func (e *EnvManager) InterpreterPath(modulePath string) string {
	venv := e.VenvPath(modulePath)
	if runtime.GOOS == "windows" {
		return filepath.Join(venv, "Scripts", "python.exe")
	}
	return filepath.Join(venv, "bin", "python")
}

// CreateVenv creates a virtual environment in the module directory
func (e *EnvManager) CreateVenv(modulePath string) (bool, string) {
	venvPath := e.VenvPath(modulePath)

	cmd := exec.Command(e.Python, "-m", "venv", venvPath)
	if out, err := cmd.CombinedOutput(); err != nil {
		return false, fmt.Sprintf("Failed to create venv: %v: %s", err, out)
	}
	return true, fmt.Sprintf("Created venv at %s", venvPath)
}

// InstallRequirements installs requirements.txt from the module path
// into the venv. Every installer output line is forwarded to logFn.
// A module without a requirements file installs trivially.
func (e *EnvManager) InstallRequirements(modulePath string, logFn func(string)) bool {
	reqFile := filepath.Join(modulePath, "requirements.txt")
	if _, err := os.Stat(reqFile); err != nil {
		if logFn != nil {
			logFn("No requirements.txt found. Skipping pip install.")
		}
		return true
	}

	cmd := exec.Command(e.InterpreterPath(modulePath), "-m", "pip", "install", "-r", "requirements.txt")
	cmd.Dir = modulePath

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		if logFn != nil {
			logFn(fmt.Sprintf("Pip install crashed: %v", err))
		}
		return false
	}
	cmd.Stderr = cmd.Stdout

	if err := cmd.Start(); err != nil {
		if logFn != nil {
			logFn(fmt.Sprintf("Pip install crashed: %v", err))
		}
		return false
	}

	scanner := bufio.NewScanner(stdout)
	for scanner.Scan() {
		if logFn != nil {
			logFn(scanner.Text())
		}
	}

	return cmd.Wait() == nil
}
