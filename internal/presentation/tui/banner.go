package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// PrintBanner writes the Joule banner and version to w.
func PrintBanner(w io.Writer, version string) {
	p := termenv.ColorProfile()
	lines := []struct {
		text  string
		color string
	}{
		{"       _             _      ", "#fde047"},
		{"      | | ___  _   _| | ___ ", "#facc15"},
		{"   _  | |/ _ \\| | | | |/ _ \\", "#f59e0b"},
		{"  | |_| | (_) | |_| | |  __/", "#f97316"},
		{"   \\___/ \\___/ \\__,_|_|\\___|", "#ef4444"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, termenv.String(l.text).Foreground(p.Color(l.color)))
	}
	fmt.Fprintln(w, termenv.String("  v"+version).Faint())
	fmt.Fprintln(w)
}
