// SPDX-License-Identifier: MPL-2.0

// Package issue holds the catalog of user-facing problems bv explains with
// rendered Markdown, and the ActionableError type that carries an operation,
// a resource and fix suggestions alongside the cause.
package issue
