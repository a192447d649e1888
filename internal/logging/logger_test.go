// SPDX-License-Identifier: MPL-2.0

package logging

import (
	"bytes"
	"strings"
	"testing"
)

func TestNew_LevelFollowsVerbose(t *testing.T) {
	t.Parallel()

	var quiet bytes.Buffer
	New(&quiet, Options{}).Debug("hidden")
	if quiet.Len() != 0 {
		t.Errorf("non-verbose logger wrote debug output: %q", quiet.String())
	}

	var loud bytes.Buffer
	New(&loud, Options{Verbose: true, Prefix: "bv"}).Debug("shown", "step", "build")
	out := loud.String()
	if !strings.Contains(out, "shown") || !strings.Contains(out, "step=build") {
		t.Errorf("verbose logger output = %q", out)
	}
}

func TestDiscard(t *testing.T) {
	t.Parallel()

	// Must not panic and must accept every level.
	l := Discard()
	l.Warn("x")
	l.Error("y")
}
