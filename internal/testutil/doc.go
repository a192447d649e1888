// SPDX-License-Identifier: MPL-2.0

// Package testutil provides test helpers that fail the test on error, so
// fixtures stay one line each: directory and file setup (MustMkdirAll,
// MustWriteFile, MustReadFile), working-directory changes (MustChdir) and
// existence assertions.
//
// Subpackage envtest provides a fake toolchain executor for code that
// manages project environments.
package testutil
