package cmd

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/jonesrussell/newsthreader/internal/metrics"
)

func newSchedulerCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "scheduler",
		Short: "Run the pipeline on a cron schedule",
		Long: `Run the full pipeline on the configured cron schedule until
interrupted. Overlapping runs are skipped.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			m := metrics.New()
			runner := a.newRunner(m)
			log := a.log.WithComponent("scheduler")

			c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
			_, err = c.AddFunc(a.cfg.Scheduler.Crontab, func() {
				log.Info("Scheduled run starting")
				if _, runErr := runner.Run(ctx); runErr != nil {
					log.Error("Scheduled run failed", "error", runErr.Error())
				}
			})
			if err != nil {
				return fmt.Errorf("invalid crontab %q: %w", a.cfg.Scheduler.Crontab, err)
			}

			log.Info("Scheduler started", "crontab", a.cfg.Scheduler.Crontab)
			c.Start()
			<-ctx.Done()

			log.Info("Scheduler stopping")
			<-c.Stop().Done()
			return nil
		},
	}
}
