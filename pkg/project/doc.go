// SPDX-License-Identifier: MPL-2.0

// Package project defines the bvproject.yaml descriptor: its in-memory model,
// loading and structural validation, atomic saving, and the strict SemVer
// grammar used for project versions.
//
// The descriptor file is the single source of truth. Callers load it fresh
// for every operation and never cache a Config across commands.
package project
