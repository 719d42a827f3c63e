package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/stock-deck/stockdeck/internal/api"
	"github.com/stock-deck/stockdeck/internal/domain/guard"
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Browse and export the audit log",
	Long: `Browse the audit log of product and user changes. Admins and
operators only.

Examples:
  stockdeck audit list --entity product --action update
  stockdeck audit list --from 2026-01-01 --to 2026-01-31
  stockdeck audit export --out audit.csv`,
}

var auditQuery struct {
	entity   string
	user     string
	action   string
	from     string
	to       string
	page     int
	pageSize int
}

var auditExportOut string

var auditListCmd = &cobra.Command{
	Use:   "list",
	Short: "List audit records",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRoute(guard.RouteAudit, func(ctx context.Context, a *app) error {
			page, err := a.client.Audits(ctx, api.AuditQuery{
				Entity:    auditQuery.entity,
				UserEmail: auditQuery.user,
				Action:    api.AuditAction(auditQuery.action),
				From:      auditQuery.from,
				To:        auditQuery.to,
				Page:      auditQuery.page,
				PageSize:  auditQuery.pageSize,
			})
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "WHEN\tUSER\tACTION\tENTITY\tENTITY ID")
			for _, rec := range page.Items {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
					rec.CreatedAt.Format("2006-01-02 15:04:05"),
					rec.UserEmail, rec.Action, rec.Entity, rec.EntityID)
			}
			if err := w.Flush(); err != nil {
				return err
			}
			fmt.Printf("page %d/%d, %d records total\n", page.Page, page.Pages, page.Total)
			return nil
		})
	},
}

var auditExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the audit log as CSV",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRoute(guard.RouteAudit, func(ctx context.Context, a *app) error {
			out := os.Stdout
			if auditExportOut != "" {
				f, err := os.Create(auditExportOut)
				if err != nil {
					return fmt.Errorf("create export file: %w", err)
				}
				defer f.Close()
				out = f
			}
			if err := a.client.ExportAudits(ctx, out); err != nil {
				return err
			}
			if auditExportOut != "" {
				fmt.Printf("exported audit log to %s\n", auditExportOut)
			}
			return nil
		})
	},
}

func init() {
	auditListCmd.Flags().StringVar(&auditQuery.entity, "entity", "", "entity filter (product, user)")
	auditListCmd.Flags().StringVar(&auditQuery.user, "user", "", "user email filter")
	auditListCmd.Flags().StringVar(&auditQuery.action, "action", "", "action filter (create, update, delete)")
	auditListCmd.Flags().StringVar(&auditQuery.from, "from", "", "start date, inclusive (YYYY-MM-DD)")
	auditListCmd.Flags().StringVar(&auditQuery.to, "to", "", "end date, inclusive (YYYY-MM-DD)")
	auditListCmd.Flags().IntVar(&auditQuery.page, "page", 1, "page number")
	auditListCmd.Flags().IntVar(&auditQuery.pageSize, "page-size", 20, "page size")

	auditExportCmd.Flags().StringVar(&auditExportOut, "out", "", "output file (default: stdout)")

	auditCmd.AddCommand(auditListCmd, auditExportCmd)
	rootCmd.AddCommand(auditCmd)
}
