// SPDX-License-Identifier: MPL-2.0

// Package entrypoint manages the named entrypoints declared in a project
// descriptor and the "module-path:function-name" command syntax they use.
package entrypoint
