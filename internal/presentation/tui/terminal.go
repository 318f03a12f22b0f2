package tui

import (
	"os"

	"golang.org/x/term"
)

// IsTerminal reports whether f is attached to a terminal, which enables styled output.
func IsTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
