// SPDX-License-Identifier: MPL-2.0

// Package platform provides cross-platform compatibility utilities: OS name
// constants and checks for names that must work as file names everywhere,
// such as project names that become archive and store path segments.
package platform
