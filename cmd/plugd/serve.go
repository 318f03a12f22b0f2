package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/aretw0/promptplug/internal/cli"
	"github.com/aretw0/promptplug/internal/presentation/tui"
	"github.com/aretw0/promptplug/pkg/adapters/mcp"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the prompt API of a station",
	Long: `Starts the coordinator and exposes it over HTTP. Test scripts create
prompts with POST /prompt and long-poll GET /prompt/{id}/answer; responders
read GET /prompt and answer with POST /prompt/{id}/response.

With a redis address the station is claimed exclusively and accepted
responses are journaled in redis.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if addr, _ := cmd.Flags().GetString("listen"); addr != "" {
			cfg.Listen = addr
		}
		if addr, _ := cmd.Flags().GetString("redis"); addr != "" {
			cfg.Redis.Addr = addr
		}
		mcpAddr, _ := cmd.Flags().GetString("mcp-listen")

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		st, err := cli.NewStation(cfg, logger)
		if err != nil {
			return err
		}
		defer func() {
			if err := st.Close(context.Background()); err != nil {
				logger.Warn("Station close failed", "error", err)
			}
		}()

		if err := st.Claim(ctx); err != nil {
			return err
		}

		ln, err := net.Listen("tcp", cfg.Listen)
		if err != nil {
			return fmt.Errorf("listen on %s: %w", cfg.Listen, err)
		}

		if tui.IsTerminal(os.Stderr) {
			tui.PrintBanner(os.Stderr, cfg.Station)
		}

		mcpErrors := make(chan error, 1)
		if mcpAddr != "" {
			srv := mcp.NewServer(st.Plug, logger)
			go func() {
				mcpErrors <- srv.ServeSSE(ctx, mcpAddr, "http://"+mcpAddr)
			}()
		}

		err = cli.Serve(ctx, ln, st.Handler, logger, st.Drain)
		stop()
		if mcpAddr != "" {
			err = errors.Join(err, <-mcpErrors)
		}
		return err
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("listen", "l", "", "Address of the prompt API (overrides config)")
	serveCmd.Flags().String("redis", "", "Redis address for the journal and station lock (overrides config)")
	serveCmd.Flags().String("mcp-listen", "", "Also serve MCP tools over SSE on this address")
}
