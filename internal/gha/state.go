// SPDX-License-Identifier: MPL-2.0

package gha

import (
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
)

type (
	// StateStore persists key-value pairs across the steps of one job.
	// Keys written by the main step are visible to the post step; the
	// store itself is owned by the runner and scoped to the job.
	StateStore interface {
		// Get returns the saved value for key, or "" when unset.
		Get(key string) (string, error)
		// Save persists value under key for later steps.
		Save(key, value string) error
	}

	// RunnerStateStore is the production StateStore. Saves append to the
	// file named by $GITHUB_STATE; reads resolve STATE_<key> from the
	// environment, which is how the runner echoes saved state back into
	// the post step.
	RunnerStateStore struct{}

	// MemStateStore is an in-memory StateStore for tests.
	MemStateStore struct {
		Values map[string]string
		// SaveErr is returned from Save when non-nil.
		SaveErr error
		// GetErr is returned from Get when non-nil.
		GetErr error
	}
)

// Get resolves key from the STATE_ environment namespace.
func (RunnerStateStore) Get(key string) (string, error) {
	return os.Getenv("STATE_" + key), nil
}

// Save appends key=value to the GITHUB_STATE command file.
func (RunnerStateStore) Save(key, value string) error {
	path := os.Getenv("GITHUB_STATE")
	if path == "" {
		return fmt.Errorf("GITHUB_STATE is not set")
	}
	return appendCommandFile(path, key, value)
}

// Get returns the stored value, or "" when absent.
func (m *MemStateStore) Get(key string) (string, error) {
	if m.GetErr != nil {
		return "", m.GetErr
	}
	return m.Values[key], nil
}

// Save records the pair in the Values map.
func (m *MemStateStore) Save(key, value string) error {
	if m.SaveErr != nil {
		return m.SaveErr
	}
	if m.Values == nil {
		m.Values = make(map[string]string)
	}
	m.Values[key] = value
	return nil
}

// appendCommandFile appends one key-value entry to a runner command file
// (GITHUB_STATE or GITHUB_ENV). Multiline values use the heredoc form the
// runner requires; single-line values use the compact key=value form.
func appendCommandFile(path, key, value string) error {
	if key == "" {
		return fmt.Errorf("command file key must not be empty")
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open command file %s: %w", path, err)
	}
	defer f.Close()

	var entry string
	if strings.ContainsAny(value, "\r\n") {
		delim, err := heredocDelimiter(value)
		if err != nil {
			return err
		}
		entry = fmt.Sprintf("%s<<%s\n%s\n%s\n", key, delim, value, delim)
	} else {
		entry = fmt.Sprintf("%s=%s\n", key, value)
	}

	if _, err := f.WriteString(entry); err != nil {
		return fmt.Errorf("failed to write command file %s: %w", path, err)
	}
	return nil
}

// heredocDelimiter returns a delimiter guaranteed not to occur in value.
func heredocDelimiter(value string) (string, error) {
	delim := "ghadelimiter_" + uuid.NewString()
	if strings.Contains(value, delim) {
		return "", fmt.Errorf("value contains the generated delimiter %q", delim)
	}
	return delim, nil
}
