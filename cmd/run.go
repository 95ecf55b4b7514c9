package cmd

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func newRunCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Execute one full pipeline run",
		Long: `Gate every pending seed story through the crawl quality pipeline,
recompute domain reliability, thread accepted articles, and write a run report.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			report, err := a.newRunner(nil).Run(ctx)
			if err != nil {
				return err
			}

			a.log.Info("Run report",
				"id", report.ID,
				"seeds_processed", report.SeedsProcessed,
				"seeds_accepted", report.SeedsAccepted,
				"seeds_exhausted", report.SeedsExhausted,
				"domains_blocked", report.DomainsBlocked)
			return nil
		},
	}
}
