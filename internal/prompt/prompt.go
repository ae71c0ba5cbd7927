// Package prompt provides interactive terminal prompts for isaload.
package prompt

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"syscall"

	"golang.org/x/term"
)

// IsInteractive reports whether stdin is attached to a terminal.
// Prompts are only offered in interactive sessions; non-interactive runs
// take every default.
func IsInteractive() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// Password prompts for a password with echo suppressed. It returns the raw
// bytes so the caller can zero them once the credential has been consumed.
func Password(label string) ([]byte, error) {
	fmt.Print(label)
	bytePassword, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println() // Print newline after suppressed input
	if err != nil {
		return nil, fmt.Errorf("failed to read password: %w", err)
	}
	return bytePassword, nil
}

// Wipe zeroes a secret buffer in place.
func Wipe(secret []byte) {
	for i := range secret {
		secret[i] = 0
	}
}

// Confirm asks a yes/no question on the terminal and returns true only for
// an explicit yes. When stdin is not a terminal the answer is always no.
func Confirm(label string) bool {
	if !IsInteractive() {
		return false
	}
	return confirm(label, os.Stdin, os.Stdout)
}

// confirm reads one line from in and interprets it as a yes/no answer.
// Anything other than "y"/"yes" (case-insensitive), including read errors
// and EOF, answers no.
func confirm(label string, in io.Reader, out io.Writer) bool {
	fmt.Fprintf(out, "%s [y/N]: ", label)

	reader := bufio.NewReader(in)
	line, err := reader.ReadString('\n')
	if err != nil && line == "" {
		return false
	}

	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}
