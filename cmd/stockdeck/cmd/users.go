package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/stock-deck/stockdeck/internal/api"
	"github.com/stock-deck/stockdeck/internal/domain/guard"
	"github.com/stock-deck/stockdeck/internal/domain/session"
	"github.com/stock-deck/stockdeck/internal/domain/validation"
)

var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "List and create backend users",
	Long: `List and create backend user accounts. Admin only.

Examples:
  stockdeck users list
  stockdeck users create --email ops@example.com --role operator`,
}

var userForm struct {
	email    string
	password string
	role     string
}

var usersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List users",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRoute(guard.RouteUsers, func(ctx context.Context, a *app) error {
			users, err := a.client.Users(ctx)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tEMAIL\tROLE")
			for _, u := range users {
				fmt.Fprintf(w, "%s\t%s\t%s\n", u.ID, u.Email, u.Role)
			}
			return w.Flush()
		})
	},
}

var usersCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a user",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRoute(guard.RouteUsers, func(ctx context.Context, a *app) error {
			password := userForm.password
			if password == "" {
				var err error
				password, err = promptPassword()
				if err != nil {
					return err
				}
			}

			v, err := validation.New()
			if err != nil {
				return err
			}
			if err := v.Validate(validation.UserForm{
				Email:    userForm.email,
				Password: password,
				Role:     userForm.role,
			}); err != nil {
				return err
			}

			user, err := a.client.CreateUser(ctx, api.UserInput{
				Email:    userForm.email,
				Password: password,
				Role:     session.Role(userForm.role),
			})
			if err != nil {
				return err
			}
			fmt.Printf("created user %s (%s)\n", user.Email, user.Role)
			return nil
		})
	},
}

func init() {
	usersCreateCmd.Flags().StringVar(&userForm.email, "email", "", "email address")
	usersCreateCmd.Flags().StringVar(&userForm.password, "password", "", "password (prompted when omitted)")
	usersCreateCmd.Flags().StringVar(&userForm.role, "role", "viewer", "role (admin, operator, viewer)")

	usersCmd.AddCommand(usersListCmd, usersCreateCmd)
	rootCmd.AddCommand(usersCmd)
}
