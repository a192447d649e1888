// SPDX-License-Identifier: MPL-2.0

// Command bv is the project lifecycle manager for automation units.
package main

import "github.com/botvelocity/bv/cmd/bv"

func main() {
	cmd.Execute()
}
