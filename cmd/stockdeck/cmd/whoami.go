package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
)

var whoamiRemote bool

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed-in user",
	Long: `Show the user of the persisted session.

With --remote, the profile is fetched from the backend instead of read
from the local session, which also verifies the session is still valid.`,
	RunE: runWhoami,
}

func init() {
	whoamiCmd.Flags().BoolVar(&whoamiRemote, "remote", false, "fetch the profile from the backend")
	rootCmd.AddCommand(whoamiCmd)
}

func runWhoami(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	a, err := buildApp(ctx)
	if err != nil {
		return err
	}

	if whoamiRemote {
		user, err := a.client.Me(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("%s (%s)\n", user.Email, user.Role)
		return nil
	}

	sess := a.store.Get()
	if !sess.Authenticated() || sess.User == nil {
		return fmt.Errorf("not signed in, run: stockdeck login")
	}
	fmt.Printf("%s (%s)\n", sess.User.Email, sess.User.Role)
	return nil
}
