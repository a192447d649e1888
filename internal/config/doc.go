// SPDX-License-Identifier: MPL-2.0

// Package config loads the bv tool settings using Viper with CUE as the file format.
//
// Settings live in config.cue under the platform config directory
// ($XDG_CONFIG_HOME/bv, ~/Library/Application Support/bv, %APPDATA%\bv), or
// in the file named by --bv-config. Files are validated against the embedded
// #Config schema before being merged over the defaults. Project-level data
// lives in the project descriptor, not here.
package config
