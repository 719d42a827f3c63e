package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Clear the persisted session",
	Long:  `Clear the in-memory and persisted session. Purely local; no backend call is made.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp(context.Background())
		if err != nil {
			return err
		}
		a.client.Logout()
		fmt.Println("signed out")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(logoutCmd)
}
