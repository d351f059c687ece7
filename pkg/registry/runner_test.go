package registry

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeScript writes a shell script usable as a module stand-in. The
// runner only requires `<interpreter> <script> --manifest <path>`, so
// /bin/sh serves as the interpreter.
func writeScript(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "script.sh")
	require.NoError(t, os.WriteFile(path, []byte(body), 0755))
	return path
}

func skipOnWindows(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("requires /bin/sh")
	}
}

func TestRunnerSuccess(t *testing.T) {
	skipOnWindows(t)
	script := writeScript(t, `#!/bin/sh
echo "working on $2"
echo "progress line" >&2
echo '{"status": "success", "outputs": {"result": 42}}'
`)

	res := NewRunner().Run(context.Background(), "/bin/sh", script, "/tmp/manifest.json", 10*time.Second)

	assert.True(t, res.Success)
	assert.Empty(t, res.Error)
	require.NotNil(t, res.Result)
	assert.Equal(t, "success", res.Result["status"])

	// stderr is merged into the log stream; $2 is the manifest path
	assert.Contains(t, res.Logs, "progress line")
	assert.Contains(t, res.Logs, "working on /tmp/manifest.json")
}

func TestRunnerLastJSONLineWins(t *testing.T) {
	skipOnWindows(t)
	script := writeScript(t, `#!/bin/sh
echo '{"status": "first"}'
echo "plain log line"
echo '{"status": "last"}'
`)

	res := NewRunner().Run(context.Background(), "/bin/sh", script, "m.json", 10*time.Second)
	require.NotNil(t, res.Result)
	assert.Equal(t, "last", res.Result["status"])
}

func TestRunnerNoJSONOutput(t *testing.T) {
	skipOnWindows(t)
	script := writeScript(t, `#!/bin/sh
echo "just logs"
`)

	res := NewRunner().Run(context.Background(), "/bin/sh", script, "m.json", 10*time.Second)
	assert.True(t, res.Success)
	assert.Nil(t, res.Result)
}

func TestRunnerExitCode(t *testing.T) {
	skipOnWindows(t)
	script := writeScript(t, `#!/bin/sh
echo "about to die"
exit 3
`)

	res := NewRunner().Run(context.Background(), "/bin/sh", script, "m.json", 10*time.Second)
	assert.False(t, res.Success)
	assert.Equal(t, "Process exited with code 3", res.Error)
	assert.Contains(t, res.Logs, "about to die")
}

func TestRunnerTimeout(t *testing.T) {
	skipOnWindows(t)
	script := writeScript(t, `#!/bin/sh
sleep 30
`)

	start := time.Now()
	res := NewRunner().Run(context.Background(), "/bin/sh", script, "m.json", 500*time.Millisecond)

	assert.False(t, res.Success)
	assert.Equal(t, "Process timed out", res.Error)
	assert.Contains(t, res.Logs, "Process timed out")
	assert.Less(t, time.Since(start), 10*time.Second)
}

func TestRunnerTimeoutWithForkedChild(t *testing.T) {
	skipOnWindows(t)
	// The background child inherits the output pipe and outlives the
	// kill; Run must still return near the deadline, not when the
	// grandchild exits.
	script := writeScript(t, `#!/bin/sh
sleep 30 &
sleep 30
`)

	start := time.Now()
	res := NewRunner().Run(context.Background(), "/bin/sh", script, "m.json", 500*time.Millisecond)

	assert.False(t, res.Success)
	assert.Equal(t, "Process timed out", res.Error)
	assert.Less(t, time.Since(start), 10*time.Second)
}

func TestRunnerMissingInterpreter(t *testing.T) {
	res := NewRunner().Run(context.Background(), "/no/such/interpreter", "x.py", "m.json", time.Second)
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "Execution failed")
}

func TestSplitLines(t *testing.T) {
	// Blank interior lines are part of the module's output and survive;
	// only the trailing newline goes
	lines := splitLines("a\r\n\n  \nb\nc\n")
	assert.Equal(t, []string{"a", "", "  ", "b", "c"}, lines)

	assert.Nil(t, splitLines(""))
	assert.Equal(t, []string{"no trailing newline"}, splitLines("no trailing newline"))
}
