// SPDX-License-Identifier: MPL-2.0

package platform

// GOOS values bv branches on.
const (
	// Windows needs a .exe toolchain driver and APPDATA for settings.
	Windows = "windows"
	// Darwin keeps settings under Library/Application Support.
	Darwin = "darwin"
)
