package cmd

import (
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/jonesrussell/newsthreader/internal/domain"
)

func newDomainsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "domains",
		Short: "Inspect and manage domain reliability",
	}
	cmd.AddCommand(newDomainsListCommand())
	cmd.AddCommand(newDomainsAllowCommand())
	return cmd
}

func newDomainsListCommand() *cobra.Command {
	var blockedOnly bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tracked domains with their reliability scores",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			var stats []*domain.DomainStat
			if blockedOnly {
				stats, err = a.stats.ListByStatus(cmd.Context(), domain.DomainStatusBlocked)
			} else {
				stats, err = a.stats.ListAll(cmd.Context())
			}
			if err != nil {
				return err
			}

			t := table.NewWriter()
			t.SetOutputMirror(os.Stdout)
			t.SetStyle(table.StyleLight)
			t.AppendHeader(table.Row{"Domain", "Status", "Wilson", "Success", "Blockable", "Other", "Allowlisted"})
			for _, s := range stats {
				t.AppendRow(table.Row{
					s.Domain, s.Status, s.WilsonScore,
					s.SuccessCount, s.BlockableCount, s.NonBlockableCount, s.Allowlisted,
				})
			}
			t.Render()
			return nil
		},
	}
	cmd.Flags().BoolVar(&blockedOnly, "blocked", false, "show only blocked domains")
	return cmd
}

func newDomainsAllowCommand() *cobra.Command {
	var remove bool

	cmd := &cobra.Command{
		Use:   "allow <domain>",
		Short: "Add or remove a domain from the allowlist",
		Long: `Allowlisted domains are never blocked, whatever their reliability
score. Use --remove to clear the flag; the next run re-applies the normal
blocking rule.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			dom := args[0]
			if err := a.stats.SetAllowlisted(cmd.Context(), dom, !remove); err != nil {
				return err
			}

			if remove {
				a.log.Info("Domain removed from allowlist", "domain", dom)
			} else {
				a.log.Info("Domain allowlisted", "domain", dom)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&remove, "remove", false, "remove the domain from the allowlist")
	return cmd
}
