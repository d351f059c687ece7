package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/diagomike/RecompBackend/pkg/types"
)

// ProcessRunner executes a module as a subprocess
type ProcessRunner interface {
	Run(ctx context.Context, interpreter, script, manifestPath string, timeout time.Duration) *types.RunResult
}

// DefaultTimeout bounds a module invocation when the caller does not
// override it
const DefaultTimeout = 300 * time.Second

// Runner invokes a module in its isolated environment via a manifest
// file. This is the sole coupling between the orchestrator and any
// module: a CLI that consumes a manifest and emits one JSON object on
// its standard output.
type Runner struct{}

// NewRunner creates a new module runner
func NewRunner() *Runner {
	return &Runner{}
}

// Run executes `<interpreter> <script> --manifest <manifestPath>` and
// captures its merged stdout/stderr. The result is the last output line
// that parses as a JSON object; lines that do not parse are ignored.
func (r *Runner) Run(ctx context.Context, interpreter, script, manifestPath string, timeout time.Duration) *types.RunResult {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, interpreter, script, "--manifest", manifestPath)

	// Merge stderr into stdout so module logs arrive in one stream
	var buf bytes.Buffer
	cmd.Stdout = &buf
	cmd.Stderr = &buf

	// Forked children inherit the output pipe and would otherwise keep
	// Wait blocked long past the deadline
	cmd.WaitDelay = 2 * time.Second

	err := cmd.Run()

	res := &types.RunResult{Logs: splitLines(buf.String())}

	switch {
	case runCtx.Err() == context.DeadlineExceeded:
		res.Error = "Process timed out"
		res.Logs = append(res.Logs, res.Error)
	case err == nil:
		res.Success = true
	default:
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.Error = fmt.Sprintf("Process exited with code %d", exitErr.ExitCode())
		} else {
			res.Error = fmt.Sprintf("Execution failed: %v", err)
			res.Logs = append(res.Logs, res.Error)
		}
	}

	res.Result = extractResult(res.Logs)
	return res
}

// extractResult scans logs in reverse order; the first line that parses
// as a JSON object wins
func extractResult(logs []string) map[string]any {
	for i := len(logs) - 1; i >= 0; i-- {
		var obj map[string]any
		if err := json.Unmarshal([]byte(logs[i]), &obj); err == nil && obj != nil {
			return obj
		}
	}
	return nil
}

// splitLines keeps every output line verbatim, including blank ones;
// only the trailing newline is trimmed.
func splitLines(out string) []string {
	if out == "" {
		return nil
	}
	lines := strings.Split(out, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, "\r")
	}
	return lines
}
