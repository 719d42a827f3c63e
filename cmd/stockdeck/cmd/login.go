package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/stock-deck/stockdeck/internal/domain/validation"
)

var loginPassword string

var loginCmd = &cobra.Command{
	Use:   "login <email>",
	Short: "Sign in and persist the session",
	Long: `Sign in against the backend and persist the session on disk.

The password is prompted for interactively. Pass --password only in
scripts where prompting is impossible; it leaks into shell history.

Examples:
  stockdeck login admin@example.com
  stockdeck login admin@example.com --password "$STOCKDECK_PASSWORD"`,
	Args: cobra.ExactArgs(1),
	RunE: runLogin,
}

func init() {
	loginCmd.Flags().StringVar(&loginPassword, "password", "", "password (prompted when omitted)")
	rootCmd.AddCommand(loginCmd)
}

func runLogin(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	email := args[0]
	password := loginPassword
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
	if err := v.Validate(validation.LoginForm{Email: email, Password: password}); err != nil {
		return err
	}

	a, err := buildApp(ctx)
	if err != nil {
		return err
	}

	user, err := a.client.Login(ctx, email, password)
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}

	fmt.Printf("signed in as %s (%s)\n", user.Email, user.Role)
	return nil
}

// promptPassword reads a password without echo when stdin is a
// terminal, and falls back to a plain line read otherwise (pipes).
func promptPassword() (string, error) {
	fmt.Fprint(os.Stderr, "password: ")
	if term.IsTerminal(int(os.Stdin.Fd())) {
		raw, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return string(raw), nil
	}

	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
