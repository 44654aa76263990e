// SPDX-License-Identifier: MPL-2.0

package gha

import (
	"fmt"
	"os"
)

type (
	// EnvPublisher exposes variables to the following steps of the job.
	EnvPublisher interface {
		// Export makes name=value visible to subsequent steps.
		Export(name, value string) error
	}

	// RunnerEnvPublisher is the production EnvPublisher. It appends to the
	// GITHUB_ENV command file and mirrors the variable into the current
	// process so later code in the same phase observes it too.
	RunnerEnvPublisher struct{}

	// MemEnvPublisher is an in-memory EnvPublisher for tests.
	MemEnvPublisher struct {
		Exported map[string]string
		// ExportErr is returned from Export when non-nil.
		ExportErr error
	}
)

// Export publishes name=value to GITHUB_ENV and the current process.
func (RunnerEnvPublisher) Export(name, value string) error {
	path := os.Getenv("GITHUB_ENV")
	if path == "" {
		return fmt.Errorf("GITHUB_ENV is not set")
	}
	if err := appendCommandFile(path, name, value); err != nil {
		return err
	}
	return os.Setenv(name, value)
}

// Export records the pair in the Exported map.
func (m *MemEnvPublisher) Export(name, value string) error {
	if m.ExportErr != nil {
		return m.ExportErr
	}
	if m.Exported == nil {
		m.Exported = make(map[string]string)
	}
	m.Exported[name] = value
	return nil
}
