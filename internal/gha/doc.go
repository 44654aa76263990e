// SPDX-License-Identifier: MPL-2.0

// Package gha implements the GitHub Actions runner contract used by both
// phases of the helper: workflow commands on stdout, cross-step state via
// the GITHUB_STATE file, and environment publication via GITHUB_ENV.
//
// The runner-facing pieces are kept behind small interfaces (StateStore,
// EnvPublisher) so the phase logic can be driven by in-memory fakes in
// tests without touching the real files or process environment.
package gha
