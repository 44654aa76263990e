// SPDX-License-Identifier: MPL-2.0

// Package cacheserver manages the lifecycle of the external Turborepo
// remote cache server across the two phases of a CI job.
//
// The launch phase allocates a port and an auth token, publishes the
// connection variables for the build tool, spawns the server as a detached
// child process, and waits for its port to accept connections. The cleanup
// phase, invoked independently after the build, signals the process to
// terminate and surfaces its captured logs.
//
// The two phases never call each other; they communicate only through the
// job-scoped state store (gha.StateStore) under the serverPid and
// serverPort keys.
package cacheserver
