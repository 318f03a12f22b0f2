package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/promptplug/pkg/ui"
)

// Overlay marks inputs of the tree, e.g. those already answered.
type Overlay struct {
	AnsweredInputs []string
}

// GenerateMermaid produces a Mermaid flowchart of a static element tree.
// Shapes:
// - Flex: [Rectangle] labeled with its direction
// - Text: ("Rounded")
// - Image: [[Subroutine]]
// - TextInput and Select: [/Parallelogram/] labeled with the input key
func GenerateMermaid(se ui.StaticElement, overlay *Overlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	g := &mermaidWriter{sb: &sb, inputs: make(map[string]string)}
	g.node(se)

	if overlay != nil && len(overlay.AnsweredInputs) > 0 {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Force black text (color:#000) for contrast on light and dark themes.
		sb.WriteString("    classDef answered fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		for _, id := range overlay.AnsweredInputs {
			if nodeID, ok := g.inputs[id]; ok {
				fmt.Fprintf(&sb, "    class %s answered;\n", nodeID)
			}
		}
	}

	return sb.String()
}

type mermaidWriter struct {
	sb     *strings.Builder
	next   int
	inputs map[string]string // input key -> node id
}

func (g *mermaidWriter) node(se ui.StaticElement) string {
	id := fmt.Sprintf("n%d", g.next)
	g.next++

	switch v := se.(type) {
	case ui.Text:
		fmt.Fprintf(g.sb, "    %s(\"%s\")\n", id, escapeLabel(v.S))
	case ui.Image:
		fmt.Fprintf(g.sb, "    %s[[\"image %d bytes\"]]\n", id, len(v.Data))
	case ui.TextInput:
		g.inputs[v.ID] = id
		fmt.Fprintf(g.sb, "    %s[/\"input %s\"/]\n", id, inputName(v.ID))
	case ui.Select:
		g.inputs[v.ID] = id
		fmt.Fprintf(g.sb, "    %s[/\"select %s <br/> %s\"/]\n", id, inputName(v.ID), escapeLabel(strings.Join(v.Choices, " | ")))
	case ui.StaticFlex:
		fmt.Fprintf(g.sb, "    %s[\"flex %s\"]\n", id, v.Direction)
		for i, c := range v.Children {
			child := g.node(c)
			fmt.Fprintf(g.sb, "    %s -- \"%d\" --> %s\n", id, i+1, child)
		}
	}
	return id
}

func inputName(id string) string {
	if id == ui.DefaultInputID {
		return "(default)"
	}
	return escapeLabel(id)
}

// escapeLabel keeps a label inside its double quotes.
func escapeLabel(s string) string {
	s = strings.ReplaceAll(s, "\"", "'")
	return strings.ReplaceAll(s, "\n", " <br/> ")
}
