package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// PrintBanner writes the plugd banner to w, colored when the terminal supports it.
func PrintBanner(w io.Writer, station string) {
	out := termenv.NewOutput(w)
	title := out.String(" plugd ").Bold().Foreground(out.Color("#818cf8"))
	sub := out.String("operator prompts for station " + station).Foreground(out.Color("#c084fc"))

	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s %s\n", title, sub)
	fmt.Fprintln(w)
}
