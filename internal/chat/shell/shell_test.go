package shell

import (
	"os/exec"
	"runtime"
	"strings"
	"testing"
)

func TestQuote(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty", "", "''"},
		{"simple", "hello", "'hello'"},
		{"spaces", "hello world", "'hello world'"},
		{"single quote", "it's", `'it'\''s'`},
		{"only quote", "'", `''\'''`},
		{"double quotes", `say "hi"`, `'say "hi"'`},
		{"dollar", "$HOME", "'$HOME'"},
		{"backtick", "`id`", "'`id`'"},
		{"semicolon", "a; rm -rf /", "'a; rm -rf /'"},
		{"newline", "line1\nline2", "'line1\nline2'"},
		{"leading quote", "'start", `''\''start'`},
		{"multiple quotes", "a'b'c", `'a'\''b'\''c'`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Quote(tt.input); got != tt.want {
				t.Errorf("Quote(%q) = %s, want %s", tt.input, got, tt.want)
			}
		})
	}
}

func TestQuoteAll(t *testing.T) {
	got := QuoteAll([]string{"exec", "--json", "it's a prompt"})
	want := `'exec' '--json' 'it'\''s a prompt'`
	if got != want {
		t.Errorf("QuoteAll = %s, want %s", got, want)
	}
}

// TestQuoteRoundTrip feeds quoted strings through a real shell and checks
// they come back byte for byte.
func TestQuoteRoundTrip(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}

	inputs := []string{
		"",
		"plain",
		"with spaces",
		"it's got 'quotes'",
		"$VAR and `cmd` and \\backslash",
		"newline\nin the middle",
		"; echo injected",
	}

	for _, in := range inputs {
		out, err := exec.Command("sh", "-c", "printf %s "+Quote(in)).Output()
		if err != nil {
			t.Fatalf("sh failed for %q: %v", in, err)
		}
		if string(out) != in {
			t.Errorf("round trip of %q produced %q", in, string(out))
		}
	}

	// QuoteAll should preserve argument boundaries.
	out, err := exec.Command("sh", "-c", `for a in `+QuoteAll([]string{"a b", "", "c'd"})+`; do printf '%s\n' "$a"; done`).Output()
	if err != nil {
		t.Fatalf("sh failed: %v", err)
	}
	lines := strings.Split(strings.TrimSuffix(string(out), "\n"), "\n")
	want := []string{"a b", "", "c'd"}
	if len(lines) != len(want) {
		t.Fatalf("expected %d args, got %d (%q)", len(want), len(lines), lines)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("arg %d = %q, want %q", i, lines[i], want[i])
		}
	}
}
