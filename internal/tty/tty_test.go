package tty

import (
	"bytes"
	"os"
	"strings"
	"testing"
)

func TestIsInteractiveWithPipe(t *testing.T) {
	oldStdin := os.Stdin
	defer func() { os.Stdin = oldStdin }()

	r, w, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	defer w.Close()

	os.Stdin = r

	if IsInteractive() {
		t.Error("IsInteractive should return false when stdin is a pipe")
	}
}

func TestConfirm(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"y\n", true},
		{"Y\n", true},
		{"yes\n", true},
		{"n\n", false},
		{"no\n", false},
		{"\n", false},
		{"", false}, // EOF without answer means no
		{"whatever\n", false},
	}

	for _, tt := range tests {
		out := &bytes.Buffer{}
		got, err := Confirm(strings.NewReader(tt.input), out, "proceed?")
		if err != nil {
			t.Fatalf("Confirm(%q) failed: %v", tt.input, err)
		}
		if got != tt.want {
			t.Errorf("Confirm(%q) = %v, want %v", tt.input, got, tt.want)
		}
		if !strings.Contains(out.String(), "proceed? [y/N]:") {
			t.Errorf("prompt not written, got %q", out.String())
		}
	}
}

func TestReadSecretRequiresTerminal(t *testing.T) {
	oldStdin := os.Stdin
	defer func() { os.Stdin = oldStdin }()

	r, w, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	defer w.Close()

	os.Stdin = r

	if _, err := ReadSecret("token: "); err == nil {
		t.Error("expected error when stdin is not a terminal")
	}
}
