// SPDX-License-Identifier: MPL-2.0

package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Defaults for optional inputs.
const (
	// DefaultTeamID is the team slug published as TURBO_TEAM.
	DefaultTeamID = "ci"
	// DefaultHost is the scheme+host prefix of the published TURBO_API URL.
	DefaultHost = "http://127.0.0.1"
	// DefaultServerCommand invokes the cache-server package's default entry point.
	DefaultServerCommand = "npx turborepo-remote-cache"
)

// inputEnvNames maps input keys to the environment variables the runner
// sets for them (INPUT_ + uppercased input name, dashes preserved).
var inputEnvNames = map[string]string{
	"storage-provider": "INPUT_STORAGE-PROVIDER",
	"storage-path":     "INPUT_STORAGE-PATH",
	"team-id":          "INPUT_TEAM-ID",
	"host":             "INPUT_HOST",
	"port":             "INPUT_PORT",
	"server-command":   "INPUT_SERVER-COMMAND",
}

// Inputs holds the resolved configuration for the launch phase.
type Inputs struct {
	// StorageProvider is forwarded opaquely as STORAGE_PROVIDER.
	StorageProvider string `mapstructure:"storage-provider"`
	// StoragePath is forwarded opaquely as STORAGE_PATH.
	StoragePath string `mapstructure:"storage-path"`
	// TeamID is published as TURBO_TEAM.
	TeamID string `mapstructure:"team-id"`
	// Host prefixes the published TURBO_API URL.
	Host string `mapstructure:"host"`
	// Port pins the server port when set; empty means auto-allocate.
	Port string `mapstructure:"port"`
	// ServerCommand is the argv (whitespace-separated) used to start the
	// external cache server.
	ServerCommand string `mapstructure:"server-command"`
}

// Load resolves inputs from flags and the environment. flags may be nil
// when running outside a CLI context (tests, direct invocation).
func Load(flags *pflag.FlagSet) (*Inputs, error) {
	v := viper.New()

	v.SetDefault("team-id", DefaultTeamID)
	v.SetDefault("host", DefaultHost)
	v.SetDefault("server-command", DefaultServerCommand)

	for key, env := range inputEnvNames {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("failed to bind input %s: %w", key, err)
		}
	}

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("failed to bind flags: %w", err)
		}
	}

	var in Inputs
	if err := v.Unmarshal(&in); err != nil {
		return nil, fmt.Errorf("failed to parse inputs: %w", err)
	}

	if _, err := in.PortNumber(); err != nil {
		return nil, err
	}

	return &in, nil
}

// PortNumber parses the pinned port input. It returns 0 when the input is
// empty, meaning the caller should auto-allocate.
func (in *Inputs) PortNumber() (int, error) {
	if in.Port == "" {
		return 0, nil
	}
	port, err := strconv.Atoi(in.Port)
	if err != nil || port < 1 || port > 65535 {
		return 0, fmt.Errorf("invalid port input %q: must be an integer between 1 and 65535", in.Port)
	}
	return port, nil
}

// ServerArgv returns the cache-server command split into argv form.
func (in *Inputs) ServerArgv() []string {
	return strings.Fields(in.ServerCommand)
}
