// Package tty provides terminal detection and small interactive prompts.
package tty

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/term"
)

// IsInteractive returns true if the current environment is interactive.
// It checks if stdin is a terminal (TTY).
func IsInteractive() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// Confirm asks a yes/no question on the given streams and returns the
// answer. An empty answer means no.
func Confirm(in io.Reader, out io.Writer, question string) (bool, error) {
	fmt.Fprintf(out, "%s [y/N]: ", question)

	reader := bufio.NewReader(in)
	line, err := reader.ReadString('\n')
	if err != nil && err != io.EOF {
		return false, eris.Wrap(err, "failed to read confirmation")
	}

	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes", nil
}

// ReadSecret prompts for a secret on the terminal without echoing it.
// It fails when stdin is not a terminal; secrets are never read from pipes.
func ReadSecret(prompt string) (string, error) {
	if !IsInteractive() {
		return "", eris.New("cannot prompt for a secret: stdin is not a terminal")
	}

	fmt.Fprint(os.Stderr, prompt)
	secret, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", eris.Wrap(err, "failed to read secret")
	}

	return strings.TrimSpace(string(secret)), nil
}
