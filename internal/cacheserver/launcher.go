// SPDX-License-Identifier: MPL-2.0

package cacheserver

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"turbocache/internal/config"
	"turbocache/internal/gha"

	"github.com/charmbracelet/log"
)

// LaunchState tracks the launch phase's progress. Any state before
// LaunchReady may transition directly to LaunchFailed on error.
type LaunchState int32

const (
	// LaunchIdle is the initial state.
	LaunchIdle LaunchState = iota
	// LaunchAllocating covers port and token allocation.
	LaunchAllocating
	// LaunchSpawning covers environment composition and process start.
	LaunchSpawning
	// LaunchAwaitingReadiness covers the readiness poll.
	LaunchAwaitingReadiness
	// LaunchReady is the terminal success state.
	LaunchReady
	// LaunchTimedOut is the terminal state when the port never opened.
	LaunchTimedOut
	// LaunchFailed is the terminal state for any other error.
	LaunchFailed
)

// String returns a human-readable representation of the launch state.
func (s LaunchState) String() string {
	switch s {
	case LaunchIdle:
		return "idle"
	case LaunchAllocating:
		return "allocating"
	case LaunchSpawning:
		return "spawning"
	case LaunchAwaitingReadiness:
		return "awaiting-readiness"
	case LaunchReady:
		return "ready"
	case LaunchTimedOut:
		return "timed-out"
	case LaunchFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Launcher brings the external cache server to a ready state and publishes
// its connection info. All collaborators are injected; NewLauncher wires
// the production set.
type Launcher struct {
	// Inputs is the resolved action configuration.
	Inputs *config.Inputs
	// State persists the PID/port handoff for the cleanup phase.
	State gha.StateStore
	// Env publishes TURBO_API, TURBO_TOKEN and TURBO_TEAM to the build.
	Env gha.EnvPublisher
	// Report emits CI-visible output.
	Report *gha.Commands
	// Spawner starts the detached child process.
	Spawner Spawner
	// Dial is used by the readiness poll. Nil means a real TCP dial.
	Dial DialFunc
	// Environ supplies the ambient environment. Nil means os.Environ.
	Environ func() []string
	// LogDir is where the child's stdout/stderr files live.
	LogDir string
	// ReadinessTimeout bounds the readiness poll.
	ReadinessTimeout time.Duration
	// Logger receives ambient diagnostics.
	Logger *log.Logger

	state LaunchState
}

// NewLauncher creates a Launcher with production collaborators.
func NewLauncher(in *config.Inputs) *Launcher {
	return &Launcher{
		Inputs:           in,
		State:            gha.RunnerStateStore{},
		Env:              gha.RunnerEnvPublisher{},
		Report:           gha.NewCommands(os.Stdout),
		Spawner:          DetachedSpawner{},
		LogDir:           DefaultLogDir,
		ReadinessTimeout: DefaultReadinessTimeout,
		Logger:           log.NewWithOptions(os.Stderr, log.Options{Prefix: "launch"}),
	}
}

// LaunchState returns the phase's current state.
func (l *Launcher) LaunchState() LaunchState {
	return l.state
}

// Launch performs the launch phase. The returned error is the single
// failure signal for the phase; the caller converts it into the CI failure
// channel with the standard message prefix.
func (l *Launcher) Launch(ctx context.Context) error {
	if err := os.MkdirAll(l.LogDir, 0o755); err != nil {
		l.setState(LaunchFailed)
		return fmt.Errorf("failed to create log directory %s: %w", l.LogDir, err)
	}

	l.setState(LaunchAllocating)

	port, err := l.resolvePort()
	if err != nil {
		l.setState(LaunchFailed)
		return err
	}

	token, err := NewToken()
	if err != nil {
		l.setState(LaunchFailed)
		return err
	}

	apiURL := l.Inputs.Host + ":" + strconv.Itoa(port)

	for name, value := range map[string]string{
		"TURBO_API":   apiURL,
		"TURBO_TOKEN": token,
		"TURBO_TEAM":  l.Inputs.TeamID,
	} {
		if err := l.Env.Export(name, value); err != nil {
			l.setState(LaunchFailed)
			return fmt.Errorf("failed to publish %s: %w", name, err)
		}
	}

	l.setState(LaunchSpawning)

	serverEnv := ServerEnvironment{
		Port:            port,
		Token:           token,
		StorageProvider: l.Inputs.StorageProvider,
		StoragePath:     l.Inputs.StoragePath,
	}
	if err := serverEnv.Validate(); err != nil {
		l.setState(LaunchFailed)
		return err
	}

	environ := os.Environ
	if l.Environ != nil {
		environ = l.Environ
	}

	pid, err := l.Spawner.Start(l.Inputs.ServerArgv(), serverEnv.Merge(environ()), l.LogDir)
	if err != nil {
		l.setState(LaunchFailed)
		return err
	}
	l.Logger.Debug("Spawned cache server", "pid", pid, "port", port)

	l.setState(LaunchAwaitingReadiness)

	if err := waitForPort(ctx, l.Dial, port, l.ReadinessTimeout); err != nil {
		l.setState(LaunchTimedOut)
		return err
	}

	l.setState(LaunchReady)

	l.report(pid, port, apiURL)

	pidStr := ""
	if pid > 0 {
		pidStr = strconv.Itoa(pid)
	}
	if err := l.State.Save("serverPid", pidStr); err != nil {
		return fmt.Errorf("failed to persist serverPid: %w", err)
	}
	if err := l.State.Save("serverPort", strconv.Itoa(port)); err != nil {
		return fmt.Errorf("failed to persist serverPort: %w", err)
	}

	return nil
}

// resolvePort honors a pinned port input, falling back to OS allocation.
func (l *Launcher) resolvePort() (int, error) {
	pinned, err := l.Inputs.PortNumber()
	if err != nil {
		return 0, err
	}
	if pinned != 0 {
		l.Logger.Debug("Using pinned port", "port", pinned)
		return pinned, nil
	}
	return FreePort()
}

// report emits the CI-visible summary of the running server.
func (l *Launcher) report(pid, port int, apiURL string) {
	l.Report.Info("Turborepo Remote Cache Server is ready")
	l.Report.Infof("  pid:  %d", pid)
	l.Report.Infof("  port: %d", port)
	l.Report.Infof("  api:  %s", apiURL)
	l.Report.Infof("  team: %s", l.Inputs.TeamID)
	if l.Inputs.StorageProvider != "" {
		l.Report.Infof("  storage provider: %s", l.Inputs.StorageProvider)
	}
	if l.Inputs.StoragePath != "" {
		l.Report.Infof("  storage path: %s", l.Inputs.StoragePath)
	}
}

func (l *Launcher) setState(next LaunchState) {
	l.Logger.Debug("Launch state transition", "from", l.state, "to", next)
	l.state = next
}
