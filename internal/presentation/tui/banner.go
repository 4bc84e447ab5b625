package tui

import (
	"fmt"
	"io"
	"os"

	"github.com/muesli/termenv"
	"golang.org/x/term"
)

var bannerLines = []struct {
	text  string
	color string
}{
	{`  _ __   __ _  ___ ___ _ __ `, "#34d399"},
	{` | '_ \ / _' |/ __/ _ \ '__|`, "#2dd4bf"},
	{` | |_) | (_| | (_|  __/ |   `, "#22d3ee"},
	{` | .__/ \__,_|\___\___|_|   `, "#38bdf8"},
	{` |_|                        `, "#60a5fa"},
}

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// PrintBanner writes the gradient banner to w.
func PrintBanner(w io.Writer) {
	p := termenv.ColorProfile()
	fmt.Fprintln(w)
	for _, l := range bannerLines {
		fmt.Fprintln(w, termenv.String(l.text).Foreground(p.Color(l.color)))
	}
	fmt.Fprintln(w)
}

// MaybePrintBanner prints the banner only on interactive terminals.
func MaybePrintBanner(f *os.File) {
	if IsTerminal(f) {
		PrintBanner(f)
	}
}
