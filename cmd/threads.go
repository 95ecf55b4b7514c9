package cmd

import (
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/jonesrussell/newsthreader/internal/threading"
)

func newThreadsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "threads",
		Short: "Inspect story threads",
	}
	cmd.AddCommand(newThreadsListCommand())
	return cmd
}

func newThreadsListCommand() *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List story threads ranked by heat",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			threads, err := a.threads.ListAll(cmd.Context())
			if err != nil {
				return err
			}

			now := time.Now()
			type row struct {
				id, title, active string
				members           int
				heat              float64
				lastSeen          time.Time
			}
			rows := make([]row, 0, len(threads))
			for _, t := range threads {
				if !all && !t.Active {
					continue
				}
				members, listErr := a.articles.ListByThread(cmd.Context(), t.ID)
				if listErr != nil {
					return listErr
				}
				rows = append(rows, row{
					id:       t.ID,
					title:    t.Title,
					active:   fmt.Sprintf("%t", t.Active),
					members:  t.MemberCount,
					heat:     threading.HeatScore(members, a.cfg.Threading.HeatDecayRate, now),
					lastSeen: t.LastSeenAt,
				})
			}
			sort.Slice(rows, func(i, j int) bool { return rows[i].heat > rows[j].heat })

			t := table.NewWriter()
			t.SetOutputMirror(os.Stdout)
			t.SetStyle(table.StyleLight)
			t.AppendHeader(table.Row{"ID", "Title", "Members", "Heat", "Active", "Last Seen"})
			for _, r := range rows {
				t.AppendRow(table.Row{
					r.id, r.title, r.members, fmt.Sprintf("%.3f", r.heat),
					r.active, r.lastSeen.Format(time.RFC3339),
				})
			}
			t.Render()
			return nil
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "include archived threads")
	return cmd
}
