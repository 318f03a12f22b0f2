package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/aretw0/promptplug/internal/cli"
	"github.com/aretw0/promptplug/internal/console"
	"github.com/aretw0/promptplug/internal/presentation/tui"
	"github.com/spf13/cobra"
)

var askCmd = &cobra.Command{
	Use:   "ask <element-file>",
	Short: "Ask the operator one question and print the answer",
	Long: `Serves the prompt API, shows the element tree from the given file and
blocks until a responder answers. The decoded answer is printed to stdout as
JSON, so shell scripts can capture it.

With --local the question is answered in this terminal.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		root, err := loadElement(args[0])
		if err != nil {
			return err
		}
		if addr, _ := cmd.Flags().GetString("listen"); addr != "" {
			cfg.Listen = addr
		}
		timeout := cfg.AnswerTimeout.Std()
		if cmd.Flags().Changed("timeout") {
			timeout, _ = cmd.Flags().GetDuration("timeout")
		}
		local, _ := cmd.Flags().GetBool("local")

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		st, err := cli.NewStation(cfg, logger)
		if err != nil {
			return err
		}
		defer st.Close(context.Background())

		ln, err := net.Listen("tcp", cfg.Listen)
		if err != nil {
			return fmt.Errorf("listen on %s: %w", cfg.Listen, err)
		}
		serveCtx, stopServe := context.WithCancel(ctx)
		served := make(chan error, 1)
		go func() { served <- cli.Serve(serveCtx, ln, st.Handler, logger, st.Drain) }()
		defer func() {
			stopServe()
			<-served
		}()

		if local {
			r := console.NewResponder("http://"+ln.Addr().String(),
				console.WithIO(cmd.InOrStdin(), cmd.ErrOrStderr()),
				console.WithRenderer(tui.NewRenderer(tui.IsTerminal(os.Stderr))),
				console.WithLogger(logger),
			)
			go func() {
				if err := r.Run(serveCtx, true); err != nil && serveCtx.Err() == nil {
					logger.Error("Local responder stopped", "error", err)
				}
			}()
		} else {
			fmt.Fprintf(cmd.ErrOrStderr(), "Waiting for an answer on http://%s/prompt\n", ln.Addr())
		}

		value, err := st.Plug.Ask(ctx, root, timeout)
		if err != nil {
			return err
		}

		out, err := json.Marshal(value)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(out))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(askCmd)
	askCmd.Flags().StringP("listen", "l", "", "Address of the prompt API (overrides config)")
	askCmd.Flags().Duration("timeout", 0, "Give up after this long; 0 waits forever (overrides config)")
	askCmd.Flags().Bool("local", false, "Answer the prompt in this terminal")
}
