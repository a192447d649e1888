// SPDX-License-Identifier: MPL-2.0

package platform

import "testing"

func TestIsWindowsReservedName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    string
		expected bool
	}{
		{"CON lowercase", "con", true},
		{"CON mixed case", "Con", true},
		{"NUL", "nul", true},
		{"COM9", "com9", true},
		{"LPT1", "lpt1", true},
		{"reserved with extension", "con.txt", true},
		{"contains reserved", "confile", false},
		{"COM10", "com10", false},
		{"empty string", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := IsWindowsReservedName(tt.input); got != tt.expected {
				t.Errorf("IsWindowsReservedName(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestIsPortableFileName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input string
		want  bool
	}{
		{"invoice-bot", true},
		{"Invoice Bot 2", true},
		{"bot.v2", true},
		{"", false},
		{".", false},
		{"..", false},
		{"a/b", false},
		{`a\b`, false},
		{"a:b", false},
		{"what?", false},
		{"tab\there", false},
		{"trailing.", false},
		{"trailing ", false},
		{"aux", false},
		{"PRN.json", false},
	}

	for _, tt := range tests {
		if got := IsPortableFileName(tt.input); got != tt.want {
			t.Errorf("IsPortableFileName(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}
