// SPDX-License-Identifier: MPL-2.0

// Package config resolves the helper's inputs using Viper.
//
// Inputs follow the GitHub Actions convention: an action input named
// "storage-provider" arrives as the INPUT_STORAGE-PROVIDER environment
// variable. Every input is also bindable to a CLI flag of the same name so
// the tool remains usable outside the runner. Precedence is
// flag > environment > default.
package config
