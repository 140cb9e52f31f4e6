package tui

import (
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"golang.org/x/term"
)

const defaultWidth = 80

// Renderer turns a markdown answer into terminal output.
type Renderer func(markdown string) (string, error)

// NewRenderer returns a glamour renderer wrapped to the width of f,
// or a pass-through when f is not a terminal.
func NewRenderer(f *os.File) Renderer {
	fd := int(f.Fd())
	if !term.IsTerminal(fd) {
		return Plain
	}
	width := defaultWidth
	if w, _, err := term.GetSize(fd); err == nil && w > 0 {
		width = w
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(), // Automatically detect light/dark background
		glamour.WithWordWrap(max(width-4, 20)),
	)
	if err != nil {
		return Plain
	}
	return r.Render
}

// Plain renders markdown unchanged.
func Plain(markdown string) (string, error) {
	return strings.TrimRight(markdown, "\n") + "\n", nil
}
