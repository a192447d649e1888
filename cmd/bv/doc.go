// SPDX-License-Identifier: MPL-2.0

// Package cmd contains all CLI commands for bv.
//
// Every command handler receives the App composition root and delegates to
// a workflow.Service built from the loaded tool settings. Handlers print
// results to the App's stdout and return errors; the root error handler
// prints each failure as a single ERROR line and maps it to exit status 1.
package cmd
