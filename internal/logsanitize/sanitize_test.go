package logsanitize

import "testing"

func TestSanitize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"tok1", "tok1"},
		{"tok\n1", "tok_1"},
		{"a\tb", "a\tb"},
		{"a\x7fb", "a_b"},
		{"a\u0085b", "a_b"},
		{"Überweisung", "Überweisung"},
	}

	for _, tt := range tests {
		if got := Sanitize(tt.in); got != tt.want {
			t.Errorf("Sanitize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestMask(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"short", "****"},
		{"0123456789AB", "0123****"},
		{"F6E1C3A2-0000-4000-8000-000000000000", "F6E1****"},
	}

	for _, tt := range tests {
		if got := Mask(tt.in); got != tt.want {
			t.Errorf("Mask(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
