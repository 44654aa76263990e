// SPDX-License-Identifier: MPL-2.0

package cacheserver

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
)

// Well-known log locations shared by both phases. The launch phase points
// the child's stdio at the two files; the cleanup phase reads them back.
const (
	// DefaultLogDir is the directory holding the server's log files,
	// relative to the job workspace.
	DefaultLogDir = "logs"
	// LogFileName captures the server's stdout.
	LogFileName = "turborepo-remote-cache.log"
	// ErrorLogFileName captures the server's stderr.
	ErrorLogFileName = "turborepo-remote-cache-error.log"
)

type (
	// Spawner starts the cache-server process and reports its PID. The
	// process must outlive the caller: no handle is retained, shutdown
	// happens out of band via PID and signal.
	Spawner interface {
		Start(argv, env []string, logDir string) (pid int, err error)
	}

	// DetachedSpawner is the production Spawner. The child runs in its own
	// session with stdout and stderr redirected to the well-known log
	// files, and is released immediately after starting.
	DetachedSpawner struct{}

	// MemSpawner is a test Spawner that records the start request.
	MemSpawner struct {
		// PID is returned from Start.
		PID int
		// Err is returned from Start when non-nil.
		Err error

		// Argv, Env and LogDir record the last Start call.
		Argv   []string
		Env    []string
		LogDir string
	}
)

// Start launches argv detached with env as its full environment.
func (DetachedSpawner) Start(argv, env []string, logDir string) (int, error) {
	if len(argv) == 0 {
		return 0, fmt.Errorf("empty server command")
	}

	stdout, err := os.OpenFile(filepath.Join(logDir, LogFileName), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return 0, fmt.Errorf("failed to open server log file: %w", err)
	}
	defer stdout.Close()

	stderr, err := os.OpenFile(filepath.Join(logDir, ErrorLogFileName), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return 0, fmt.Errorf("failed to open server error log file: %w", err)
	}
	defer stderr.Close()

	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Env = env
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	cmd.SysProcAttr = detachedSysProcAttr()

	if err := cmd.Start(); err != nil {
		return 0, fmt.Errorf("failed to start server process: %w", err)
	}

	pid := cmd.Process.Pid

	// Fire and forget: drop the handle so the child is not tied to this
	// process's lifetime. Reaping is left to the init process.
	if err := cmd.Process.Release(); err != nil {
		return pid, fmt.Errorf("failed to release server process: %w", err)
	}

	return pid, nil
}

// Start records the request and returns the configured PID or error.
func (m *MemSpawner) Start(argv, env []string, logDir string) (int, error) {
	m.Argv = argv
	m.Env = env
	m.LogDir = logDir
	if m.Err != nil {
		return 0, m.Err
	}
	return m.PID, nil
}
