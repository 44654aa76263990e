// SPDX-License-Identifier: MPL-2.0

package cacheserver

import (
	_ "embed"
	"fmt"
	"maps"
	"slices"
	"strconv"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

//go:embed env_schema.cue
var envSchema string

// ServerEnvironment is the validated set of variables handed to the
// cache-server child process.
type ServerEnvironment struct {
	// Port the server should listen on.
	Port int
	// Token is the opaque auth secret shared with the build tool.
	Token string
	// StorageProvider selects the server's storage backend (optional,
	// passed through uninterpreted).
	StorageProvider string
	// StoragePath is the backend-specific location (optional, passed
	// through uninterpreted).
	StoragePath string
}

// Vars returns the environment variables this ServerEnvironment
// contributes. Optional fields are omitted when empty.
func (e ServerEnvironment) Vars() map[string]string {
	vars := map[string]string{
		"PORT":        strconv.Itoa(e.Port),
		"TURBO_TOKEN": e.Token,
	}
	if e.StorageProvider != "" {
		vars["STORAGE_PROVIDER"] = e.StorageProvider
	}
	if e.StoragePath != "" {
		vars["STORAGE_PATH"] = e.StoragePath
	}
	return vars
}

// Validate checks the variables against the embedded CUE schema. Given how
// ServerEnvironment is constructed a failure here is a programming fault,
// so callers treat it as a generic launch failure.
func (e ServerEnvironment) Validate() error {
	ctx := cuecontext.New()

	schemaValue := ctx.CompileString(envSchema)
	if schemaValue.Err() != nil {
		return fmt.Errorf("internal error: failed to compile server env schema: %w", schemaValue.Err())
	}
	schema := schemaValue.LookupPath(cue.ParsePath("#ServerEnv"))

	unified := schema.Unify(ctx.Encode(e.Vars()))
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("invalid server environment: %w", err)
	}
	return nil
}

// Merge overlays this ServerEnvironment on a copy of environ. Entries are
// appended, which gives them precedence for os/exec (the last occurrence
// of a key wins). The input slice is never modified.
func (e ServerEnvironment) Merge(environ []string) []string {
	out := slices.Clone(environ)
	vars := e.Vars()
	for _, key := range slices.Sorted(maps.Keys(vars)) {
		out = append(out, key+"="+vars[key])
	}
	return out
}
