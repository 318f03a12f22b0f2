package main

import (
	"fmt"
	"os"

	"github.com/aretw0/promptplug/internal/presentation/graph"
	"github.com/aretw0/promptplug/internal/presentation/tui"
	"github.com/aretw0/promptplug/pkg/ui"
	"github.com/spf13/cobra"
)

var renderCmd = &cobra.Command{
	Use:   "render <element-file>",
	Short: "Preview an element file as the console responder shows it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := loadElement(args[0])
		if err != nil {
			return err
		}

		if wire, _ := cmd.Flags().GetBool("wire"); wire {
			return printJSON(cmd, ui.Serialize(root))
		}
		if mermaid, _ := cmd.Flags().GetBool("mermaid"); mermaid {
			fmt.Fprint(cmd.OutOrStdout(), graph.GenerateMermaid(root, nil))
			return nil
		}

		render := tui.NewRenderer(tui.IsTerminal(os.Stdout))
		out, err := render(tui.Markdown(root))
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), out)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(renderCmd)
	renderCmd.Flags().Bool("wire", false, "Print the serialized snapshot form instead")
	renderCmd.Flags().Bool("mermaid", false, "Print the element tree as a Mermaid flowchart")
}
