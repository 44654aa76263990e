// SPDX-License-Identifier: MPL-2.0

package cacheserver

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"syscall"

	"turbocache/internal/gha"

	"github.com/charmbracelet/log"
)

// CleanupState tracks the cleanup phase's progress.
type CleanupState int32

const (
	// CleanupIdle is the initial state.
	CleanupIdle CleanupState = iota
	// CleanupReadingState covers the handoff-state read.
	CleanupReadingState
	// CleanupNoPid is the terminal state when no server was started.
	CleanupNoPid
	// CleanupSignaling covers signal delivery.
	CleanupSignaling
	// CleanupReadingLogs covers the log dump. It runs even when
	// signaling failed.
	CleanupReadingLogs
	// CleanupDone is the terminal state.
	CleanupDone
)

// String returns a human-readable representation of the cleanup state.
func (s CleanupState) String() string {
	switch s {
	case CleanupIdle:
		return "idle"
	case CleanupReadingState:
		return "reading-state"
	case CleanupNoPid:
		return "no-pid"
	case CleanupSignaling:
		return "signaling"
	case CleanupReadingLogs:
		return "reading-logs"
	case CleanupDone:
		return "done"
	default:
		return "unknown"
	}
}

type (
	// ProcessSignaler delivers a termination signal to a PID. Delivery
	// failure is always non-fatal for the cleanup phase.
	ProcessSignaler interface {
		Terminate(pid int) error
	}

	// OSSignaler is the production ProcessSignaler (SIGTERM).
	OSSignaler struct{}

	// MemSignaler is a test ProcessSignaler recording the signaled PID.
	MemSignaler struct {
		// Err is returned from Terminate when non-nil.
		Err error
		// PID records the last Terminate call; 0 means never called.
		PID int
	}
)

// Terminate sends SIGTERM to pid.
func (OSSignaler) Terminate(pid int) error {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return err
	}
	return proc.Signal(syscall.SIGTERM)
}

// Terminate records pid and returns the configured error.
func (m *MemSignaler) Terminate(pid int) error {
	m.PID = pid
	return m.Err
}

// Cleaner tears the cache server down after the build: it signals the
// process recorded in the handoff state and surfaces the captured logs.
// Every step is best-effort; only a failure to read the handoff state
// itself fails the phase.
type Cleaner struct {
	// State is the job-scoped handoff store written by the launch phase.
	State gha.StateStore
	// Report emits CI-visible output.
	Report *gha.Commands
	// Signaler delivers the termination signal.
	Signaler ProcessSignaler
	// LogDir is where the launch phase pointed the child's stdio.
	LogDir string
	// Logger receives ambient diagnostics.
	Logger *log.Logger

	state CleanupState

	// displayMu serializes the two log groups so their lines never
	// interleave; the relative order of the groups stays unspecified.
	displayMu sync.Mutex
}

// NewCleaner creates a Cleaner with production collaborators.
func NewCleaner() *Cleaner {
	return &Cleaner{
		State:    gha.RunnerStateStore{},
		Report:   gha.NewCommands(os.Stdout),
		Signaler: OSSignaler{},
		LogDir:   DefaultLogDir,
		Logger:   log.NewWithOptions(os.Stderr, log.Options{Prefix: "cleanup"}),
	}
}

// CleanupState returns the phase's current state.
func (c *Cleaner) CleanupState() CleanupState {
	return c.state
}

// Run performs the cleanup phase. A non-nil error means the handoff state
// could not be read; everything else is reported and swallowed.
func (c *Cleaner) Run() error {
	c.setState(CleanupReadingState)

	pid, err := c.State.Get("serverPid")
	if err != nil {
		return fmt.Errorf("failed to read handoff state: %w", err)
	}

	if pid == "" {
		c.setState(CleanupNoPid)
		c.Report.Info("Turborepo Remote Cache Server was not started, nothing to stop")
		return nil
	}

	c.setState(CleanupSignaling)
	c.terminate(pid)

	c.setState(CleanupReadingLogs)
	c.dumpLogs()

	c.setState(CleanupDone)
	return nil
}

// terminate delivers SIGTERM to the recorded PID. Failures (process gone,
// bad PID, permissions) are informational only.
func (c *Cleaner) terminate(pid string) {
	pidNum, err := strconv.Atoi(pid)
	if err == nil && pidNum < 1 {
		// Never signal pid 0 or a process group by accident.
		err = fmt.Errorf("invalid pid %d", pidNum)
	}
	if err == nil {
		err = c.Signaler.Terminate(pidNum)
	}
	if err != nil {
		c.Report.Infof("Failed to stop server process %s: %v", pid, err)
		return
	}
	c.Report.Infof("Stopped server process %s", pid)
}

// dumpLogs reads the two log files concurrently and displays each
// non-empty one inside its own collapsible group.
func (c *Cleaner) dumpLogs() {
	var wg sync.WaitGroup
	for _, name := range []string{LogFileName, ErrorLogFileName} {
		wg.Add(1)
		go func(path string) {
			defer wg.Done()
			c.dumpLogFile(path)
		}(filepath.Join(c.LogDir, name))
	}
	wg.Wait()
}

// dumpLogFile displays one log file. Read failures are debug-level; files
// with only whitespace produce no output at all.
func (c *Cleaner) dumpLogFile(path string) {
	data, err := os.ReadFile(path)

	c.displayMu.Lock()
	defer c.displayMu.Unlock()

	if err != nil {
		c.Report.Debug(fmt.Sprintf("Could not read log file %s: %v", path, err))
		return
	}
	if strings.TrimSpace(string(data)) == "" {
		return
	}

	c.Report.Group(path)
	c.Report.Info(indentLines(string(data)))
	c.Report.EndGroup()
}

// indentLines prefixes every line with two spaces, preserving line order
// and content (embedded blank lines included). A single trailing newline
// is dropped so the display does not end with an empty indented line.
func indentLines(s string) string {
	s = strings.TrimSuffix(s, "\n")
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = "  " + line
	}
	return strings.Join(lines, "\n")
}

func (c *Cleaner) setState(next CleanupState) {
	c.Logger.Debug("Cleanup state transition", "from", c.state, "to", next)
	c.state = next
}
