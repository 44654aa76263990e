// SPDX-License-Identifier: MPL-2.0

package cacheserver

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"turbocache/internal/gha"

	"github.com/charmbracelet/log"
)

// testCleaner wires a Cleaner with in-memory collaborators and a temp log
// directory.
func testCleaner(t *testing.T, state map[string]string) (*Cleaner, *MemSignaler, *bytes.Buffer) {
	t.Helper()

	signaler := &MemSignaler{}
	var out bytes.Buffer

	c := &Cleaner{
		State:    &gha.MemStateStore{Values: state},
		Report:   gha.NewCommands(&out),
		Signaler: signaler,
		LogDir:   t.TempDir(),
		Logger:   log.New(io.Discard),
	}
	return c, signaler, &out
}

func writeLog(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write log file: %v", err)
	}
	return path
}

func TestCleanupNoPidSkipsTermination(t *testing.T) {
	t.Parallel()

	c, signaler, out := testCleaner(t, nil)

	if err := c.Run(); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if signaler.PID != 0 {
		t.Errorf("Terminate was called with pid %d, want no call", signaler.PID)
	}
	if !strings.Contains(out.String(), "was not started") {
		t.Errorf("output should report that no server was started, got %q", out.String())
	}
	if c.CleanupState() != CleanupNoPid {
		t.Errorf("state = %s, want %s", c.CleanupState(), CleanupNoPid)
	}
}

func TestCleanupTerminatesRecordedPid(t *testing.T) {
	t.Parallel()

	c, signaler, out := testCleaner(t, map[string]string{"serverPid": "12345"})

	if err := c.Run(); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if signaler.PID != 12345 {
		t.Errorf("Terminate pid = %d, want 12345", signaler.PID)
	}
	if !strings.Contains(out.String(), "Stopped server process 12345") {
		t.Errorf("output missing stop confirmation, got %q", out.String())
	}
	if c.CleanupState() != CleanupDone {
		t.Errorf("state = %s, want %s", c.CleanupState(), CleanupDone)
	}
}

func TestCleanupSignalFailureIsInformational(t *testing.T) {
	t.Parallel()

	c, signaler, out := testCleaner(t, map[string]string{"serverPid": "12345"})
	signaler.Err = errors.New("Process not found")
	logPath := writeLog(t, c.LogDir, LogFileName, "still read me\n")

	if err := c.Run(); err != nil {
		t.Fatalf("Run should not fail on signal errors: %v", err)
	}

	if !strings.Contains(out.String(), "Failed to stop server process 12345: Process not found") {
		t.Errorf("output missing signal failure message, got %q", out.String())
	}
	// Log reading must still proceed.
	if !strings.Contains(out.String(), "::group::"+logPath) {
		t.Errorf("log dump should still run after a signal failure, got %q", out.String())
	}
	if c.CleanupState() != CleanupDone {
		t.Errorf("state = %s, want %s", c.CleanupState(), CleanupDone)
	}
}

func TestCleanupNonNumericPid(t *testing.T) {
	t.Parallel()

	c, signaler, out := testCleaner(t, map[string]string{"serverPid": "garbage"})

	if err := c.Run(); err != nil {
		t.Fatalf("Run should not fail on a bad pid: %v", err)
	}
	if signaler.PID != 0 {
		t.Errorf("Terminate should not be called for a bad pid, got %d", signaler.PID)
	}
	if !strings.Contains(out.String(), "Failed to stop server process garbage") {
		t.Errorf("output missing failure message, got %q", out.String())
	}
}

func TestCleanupNeverSignalsNonPositivePid(t *testing.T) {
	t.Parallel()

	for _, pid := range []string{"0", "-1"} {
		c, signaler, out := testCleaner(t, map[string]string{"serverPid": pid})

		if err := c.Run(); err != nil {
			t.Fatalf("Run should not fail on pid %q: %v", pid, err)
		}
		if signaler.PID != 0 {
			t.Errorf("Terminate should not be called for pid %q, got %d", pid, signaler.PID)
		}
		if !strings.Contains(out.String(), "Failed to stop server process "+pid) {
			t.Errorf("output missing failure message for pid %q, got %q", pid, out.String())
		}
	}
}

func TestCleanupIndentsLogContentExactly(t *testing.T) {
	t.Parallel()

	c, _, out := testCleaner(t, map[string]string{"serverPid": "12345"})
	logPath := writeLog(t, c.LogDir, LogFileName, "Line 1\nLine 2\nLine 3")

	if err := c.Run(); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	want := "::group::" + logPath + "\n  Line 1\n  Line 2\n  Line 3\n::endgroup::\n"
	if !strings.Contains(out.String(), want) {
		t.Errorf("output = %q, want it to contain %q", out.String(), want)
	}
}

func TestCleanupPreservesEmbeddedBlankLines(t *testing.T) {
	t.Parallel()

	c, _, out := testCleaner(t, map[string]string{"serverPid": "12345"})
	writeLog(t, c.LogDir, ErrorLogFileName, "boom\n\ntrace\n")

	if err := c.Run(); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if !strings.Contains(out.String(), "  boom\n  \n  trace\n") {
		t.Errorf("embedded blank lines should be preserved, got %q", out.String())
	}
}

func TestCleanupSkipsWhitespaceOnlyLog(t *testing.T) {
	t.Parallel()

	c, _, out := testCleaner(t, map[string]string{"serverPid": "12345"})
	writeLog(t, c.LogDir, LogFileName, "   \n\t\n")

	if err := c.Run(); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if strings.Contains(out.String(), "::group::") {
		t.Errorf("no group should be opened for a whitespace-only log, got %q", out.String())
	}
}

func TestCleanupMissingLogIsDebugOnly(t *testing.T) {
	t.Parallel()

	c, _, out := testCleaner(t, map[string]string{"serverPid": "12345"})
	// Neither log file exists.

	if err := c.Run(); err != nil {
		t.Fatalf("Run should not fail on missing logs: %v", err)
	}

	output := out.String()
	if !strings.Contains(output, "::debug::Could not read log file") {
		t.Errorf("missing logs should be reported at debug level, got %q", output)
	}
	if !strings.Contains(output, LogFileName) || !strings.Contains(output, ErrorLogFileName) {
		t.Errorf("debug messages should name both files, got %q", output)
	}
}

func TestCleanupDumpsBothLogsWithoutInterleaving(t *testing.T) {
	t.Parallel()

	c, _, out := testCleaner(t, map[string]string{"serverPid": "12345"})
	mainPath := writeLog(t, c.LogDir, LogFileName, "out 1\nout 2\n")
	errPath := writeLog(t, c.LogDir, ErrorLogFileName, "err 1\nerr 2\n")

	if err := c.Run(); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	output := out.String()
	wantMain := "::group::" + mainPath + "\n  out 1\n  out 2\n::endgroup::\n"
	wantErr := "::group::" + errPath + "\n  err 1\n  err 2\n::endgroup::\n"
	if !strings.Contains(output, wantMain) {
		t.Errorf("main log group garbled or missing:\n%s", output)
	}
	if !strings.Contains(output, wantErr) {
		t.Errorf("error log group garbled or missing:\n%s", output)
	}
}

func TestCleanupStateReadFailure(t *testing.T) {
	t.Parallel()

	c, _, _ := testCleaner(t, nil)
	c.State = &gha.MemStateStore{GetErr: errors.New("state store unavailable")}

	if err := c.Run(); err == nil {
		t.Fatal("Run should fail when the handoff state cannot be read")
	}
}

func TestIndentLines(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"three lines", "Line 1\nLine 2\nLine 3", "  Line 1\n  Line 2\n  Line 3"},
		{"trailing newline dropped", "Line\n", "  Line"},
		{"embedded blank preserved", "a\n\nb", "  a\n  \n  b"},
		{"single line", "only", "  only"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := indentLines(tt.in); got != tt.want {
				t.Errorf("indentLines(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestCleanupStateString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		state CleanupState
		want  string
	}{
		{CleanupIdle, "idle"},
		{CleanupReadingState, "reading-state"},
		{CleanupNoPid, "no-pid"},
		{CleanupSignaling, "signaling"},
		{CleanupReadingLogs, "reading-logs"},
		{CleanupDone, "done"},
		{CleanupState(99), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("CleanupState(%d).String() = %q, want %q", tt.state, got, tt.want)
		}
	}
}
