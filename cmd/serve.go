package cmd

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jonesrussell/newsthreader/internal/api"
	"github.com/jonesrussell/newsthreader/internal/metrics"
)

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the operator HTTP API",
		Long: `Serve health, metrics, domain reliability, thread rankings, and run
reports over HTTP.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			m := metrics.New()
			handler := api.NewHandler(
				a.stats,
				a.threads,
				a.articles,
				a.reports,
				a.cfg.Threading.HeatDecayRate,
				a.log.WithComponent("api"),
			)
			router := api.NewRouter(handler, m, a.log.WithComponent("http"), a.cfg.Server.Debug)
			server := api.NewServer(
				a.cfg.Server.Address,
				router,
				a.cfg.Server.ReadTimeout,
				a.cfg.Server.WriteTimeout,
				a.log.WithComponent("api"),
			)

			return server.Run(ctx)
		},
	}
}
