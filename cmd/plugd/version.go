package main

import (
	"fmt"
	"strings"

	"github.com/aretw0/promptplug"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of plugd",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "plugd version %s\n", strings.TrimSpace(promptplug.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
