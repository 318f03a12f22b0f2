package main

import (
	"log"
	"os"

	"github.com/aretw0/promptplug/internal/console"
	"github.com/aretw0/promptplug/pkg/adapters/mcp"
	"github.com/spf13/cobra"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Bridge a station to an MCP client over stdio",
	Long: `Starts an MCP server on Standard Input/Output whose get_prompt and
respond_prompt tools act on the station at --url. This lets an AI agent act as
the operator of a remote station.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, logger, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		url, _ := cmd.Flags().GetString("url")

		// Ensure logs don't corrupt JSON-RPC on Stdout
		log.SetOutput(os.Stderr)
		logger.Info("Starting MCP bridge (stdio)", "station_url", url)

		srv := mcp.NewServer(console.NewClient(url, nil), logger)
		return srv.ServeStdio()
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
	mcpCmd.Flags().String("url", "http://localhost:8080", "Base URL of the station")
}
