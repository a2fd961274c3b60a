// SPDX-License-Identifier: MPL-2.0

// Package config computes the effective options of every directory scan.
//
// Settings come from built-in defaults, an optional .licensescan.{yaml,json,toml}
// file (in the working directory, or config.{yaml,json,toml} in the per-user
// config directory), LICENSESCAN_* environment variables and CLI flags, in
// increasing precedence, combined with Viper. A run configuration document,
// validated against runconfig_schema.cue, then names the directories to scan
// and overrides options globally and per directory.
package config
