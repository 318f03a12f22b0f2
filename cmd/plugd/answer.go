package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/aretw0/promptplug/internal/console"
	"github.com/aretw0/promptplug/internal/presentation/tui"
	"github.com/spf13/cobra"
)

var answerCmd = &cobra.Command{
	Use:   "answer",
	Short: "Answer a station's prompts from this terminal",
	Long: `Polls the station at --url, renders each new prompt and reads one line
per input. Select inputs accept the choice text or its number.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, logger, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		url, _ := cmd.Flags().GetString("url")
		once, _ := cmd.Flags().GetBool("once")
		interval, _ := cmd.Flags().GetDuration("interval")

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		r := console.NewResponder(url,
			console.WithIO(cmd.InOrStdin(), cmd.OutOrStdout()),
			console.WithRenderer(tui.NewRenderer(tui.IsTerminal(os.Stdout))),
			console.WithPollInterval(interval),
			console.WithLogger(logger),
		)
		err = r.Run(ctx, once)
		if ctx.Err() != nil {
			return nil
		}
		return err
	},
}

func init() {
	rootCmd.AddCommand(answerCmd)
	answerCmd.Flags().String("url", "http://localhost:8080", "Base URL of the station")
	answerCmd.Flags().Bool("once", false, "Exit after the first accepted answer")
	answerCmd.Flags().Duration("interval", console.DefaultPollInterval, "Polling interval")
}
