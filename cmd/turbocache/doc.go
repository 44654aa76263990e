// SPDX-License-Identifier: MPL-2.0

// Package cmd contains the CLI commands for turbocache.
//
// The binary is invoked twice per CI job: `turbocache start` runs before
// the build and brings the remote cache server up, `turbocache stop` runs
// as the post step and tears it down.
package cmd
