package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/stock-deck/stockdeck/internal/domain/guard"
)

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Show headline counters and stock movements",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRoute(guard.RouteDashboard, func(ctx context.Context, a *app) error {
			stats, err := a.client.Dashboard(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("products: %d\nstock:    %d\nusers:    %d\n",
				stats.Products, stats.Stock, stats.Users)

			movements, err := a.client.Movements(ctx)
			if err != nil {
				return err
			}
			if len(movements) == 0 {
				return nil
			}

			fmt.Println()
			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "DATE\tENTRIES\tEXITS")
			for _, m := range movements {
				fmt.Fprintf(w, "%s\t%d\t%d\n", m.Date, m.Entries, m.Exits)
			}
			return w.Flush()
		})
	},
}

func init() {
	rootCmd.AddCommand(dashboardCmd)
}
