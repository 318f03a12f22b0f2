package tui

import (
	"fmt"
	"strings"

	"github.com/aretw0/promptplug/pkg/ui"
	"github.com/charmbracelet/glamour"
)

// NewRenderer returns a function that renders markdown using glamour.
// When styled is false the markdown is returned unchanged (pipes, CI logs).
func NewRenderer(styled bool) func(string) (string, error) {
	if !styled {
		return func(markdown string) (string, error) { return markdown, nil }
	}

	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(), // Automatically detect light/dark background
		glamour.WithWordWrap(80),
	)
	if err != nil {
		return func(markdown string) (string, error) { return markdown, nil }
	}

	return func(markdown string) (string, error) {
		return r.Render(markdown)
	}
}

// Markdown describes a static prompt tree as markdown for terminal display.
// Inputs are listed with the key a response must use.
func Markdown(se ui.StaticElement) string {
	var b strings.Builder
	writeMarkdown(&b, se)
	return strings.TrimSpace(b.String()) + "\n"
}

func writeMarkdown(b *strings.Builder, se ui.StaticElement) {
	switch v := se.(type) {
	case ui.Text:
		b.WriteString(v.S)
		b.WriteString("\n\n")
	case ui.Image:
		fmt.Fprintf(b, "_[image, %d bytes]_\n\n", len(v.Data))
	case ui.TextInput:
		fmt.Fprintf(b, "**%s**", inputLabel(v.ID))
		if v.Placeholder != "" {
			fmt.Fprintf(b, ": _%s_", v.Placeholder)
		}
		b.WriteString("\n\n")
	case ui.Select:
		fmt.Fprintf(b, "**%s**, one of:\n\n", inputLabel(v.ID))
		for i, c := range v.Choices {
			fmt.Fprintf(b, "%d. %s\n", i+1, c)
		}
		b.WriteString("\n")
	case ui.StaticFlex:
		children := v.Children
		if v.Direction == ui.BottomUp || v.Direction == ui.RightLeft {
			children = make([]ui.StaticElement, len(v.Children))
			for i, c := range v.Children {
				children[len(v.Children)-1-i] = c
			}
		}
		for _, c := range children {
			writeMarkdown(b, c)
		}
	}
}

func inputLabel(id string) string {
	if id == ui.DefaultInputID {
		return "Answer"
	}
	return "Input `" + id + "`"
}
