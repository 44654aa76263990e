// SPDX-License-Identifier: MPL-2.0

package gha

import (
	"fmt"
	"io"
	"os"
	"strings"
)

// Commands emits GitHub Actions workflow commands to a writer.
// The zero value is not usable; construct with NewCommands.
type Commands struct {
	out io.Writer
}

// NewCommands creates a Commands writer. A nil out defaults to os.Stdout.
func NewCommands(out io.Writer) *Commands {
	if out == nil {
		out = os.Stdout
	}
	return &Commands{out: out}
}

// Info writes a plain informational line.
func (c *Commands) Info(msg string) {
	fmt.Fprintln(c.out, msg)
}

// Infof writes a formatted informational line.
func (c *Commands) Infof(format string, args ...any) {
	fmt.Fprintf(c.out, format+"\n", args...)
}

// Debug writes a ::debug:: command. The runner only displays these when
// step debug logging is enabled.
func (c *Commands) Debug(msg string) {
	fmt.Fprintf(c.out, "::debug::%s\n", escapeData(msg))
}

// Error writes an ::error:: command, which the runner surfaces as an
// error annotation on the job.
func (c *Commands) Error(msg string) {
	fmt.Fprintf(c.out, "::error::%s\n", escapeData(msg))
}

// Group opens a collapsible log group titled with title.
func (c *Commands) Group(title string) {
	fmt.Fprintf(c.out, "::group::%s\n", escapeData(title))
}

// EndGroup closes the most recently opened log group.
func (c *Commands) EndGroup() {
	fmt.Fprintln(c.out, "::endgroup::")
}

// escapeData escapes a workflow command payload per the runner's rules.
// Percent must be escaped first so the other replacements survive.
func escapeData(s string) string {
	s = strings.ReplaceAll(s, "%", "%25")
	s = strings.ReplaceAll(s, "\r", "%0D")
	s = strings.ReplaceAll(s, "\n", "%0A")
	return s
}
