// SPDX-License-Identifier: MPL-2.0

// Package workflow composes the project registry, archive builder,
// environment manager and entrypoint invoker into the bv workflows:
// Init, Validate, Build, Publish and Run, plus entrypoint and environment
// maintenance.
//
// Each workflow is a short linear sequence. Inspect-only steps aggregate
// their problems; mutating steps fail fast. Init and Publish register a
// compensating action for every mutation on a txn.Scope, so a failure
// midway leaves the project as it was.
package workflow
