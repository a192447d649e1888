// SPDX-License-Identifier: MPL-2.0

// Package archive builds and verifies .bvpackage files.
//
// A package is a ZIP container holding the project sources, a generated
// entry-points.json index, an optional environment.lock, and a manifest.json
// that records the project identity and a blake3 digest of every other
// member. Members are written in sorted order with a fixed timestamp, so the
// same inputs always produce byte-identical archives.
package archive
