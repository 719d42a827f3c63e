// Package cmd provides the CLI commands for StockDeck.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/stock-deck/stockdeck/internal/adapter/outbound/state"
	"github.com/stock-deck/stockdeck/internal/api"
	"github.com/stock-deck/stockdeck/internal/config"
	"github.com/stock-deck/stockdeck/internal/domain/guard"
	"github.com/stock-deck/stockdeck/internal/domain/session"
)

var cfgFile string
var sessionFilePath string
var devMode bool

var rootCmd = &cobra.Command{
	Use:   "stockdeck",
	Short: "StockDeck - Inventory admin client",
	Long: `StockDeck is an admin client for the inventory backend.

It signs in against the backend, keeps the session on disk between runs,
and exposes the dashboard, product catalog, user administration, and the
audit log, both as one-shot commands and as a full-screen terminal UI.

Quick start:
  1. Sign in:        stockdeck login you@example.com
  2. Open the UI:    stockdeck ui
  3. Or go direct:   stockdeck products list

Configuration:
  Config is loaded from stockdeck.yaml in the current directory,
  $HOME/.stockdeck/, or /etc/stockdeck/.

  Environment variables can override config values with the STOCKDECK_ prefix.
  Example: STOCKDECK_API_BASE_URL=https://inventory.example.com

Commands:
  login       Sign in and persist the session
  logout      Clear the persisted session
  whoami      Show the signed-in user
  dashboard   Show headline counters and stock movements
  products    List and manage products (CSV import/export included)
  users       List and create backend users (admin)
  audit       Browse and export the audit log (admin, operator)
  ui          Open the full-screen terminal UI
  config      Manage the configuration file
  version     Print version information`,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./stockdeck.yaml)")
	rootCmd.PersistentFlags().StringVar(&sessionFilePath, "session-file", "", "session file (default: ~/.stockdeck/session.json)")
	rootCmd.PersistentFlags().BoolVar(&devMode, "dev", false, "enable development mode (verbose logging)")
}

func initConfig() {
	config.InitViper(cfgFile)
}

// app bundles the wired components every command needs.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
	store  *session.Store
	client *api.Client
	guard  *guard.Guard
}

// buildApp loads config, wires the session store, request pipeline, and
// route guard, and hydrates the persisted session. Commands get a ready
// client with the session already loaded.
func buildApp(ctx context.Context) (*app, error) {
	// Load without validation so CLI flags can override first.
	cfg, err := config.LoadConfigRaw()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if devMode {
		cfg.DevMode = true
	}
	cfg.SetDevDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))
	if configFile := config.ConfigFileUsed(); configFile != "" {
		logger.Debug("loaded config", "file", configFile)
	}

	// Session file: CLI flag > config > default.
	sessionPath := sessionFilePath
	if sessionPath == "" {
		sessionPath = cfg.Session.Path
	}

	store := session.NewStore(state.NewFileSessionStore(sessionPath, logger), logger)
	store.Hydrate(ctx)

	client := api.NewClient(store,
		api.WithBaseURL(cfg.API.BaseURL),
		api.WithTimeout(cfg.Timeout()),
		api.WithLogger(logger),
		api.WithOnSessionInvalidated(func() {
			fmt.Fprintln(os.Stderr, "session expired, sign in again with: stockdeck login")
		}),
	)

	return &app{
		cfg:    cfg,
		logger: logger,
		store:  store,
		client: client,
		guard:  guard.NewGuard(store, logger),
	}, nil
}

// requireRoute evaluates the route guard before a command talks to the
// backend, so a viewer gets a clear refusal instead of a backend 403.
func (a *app) requireRoute(name string) error {
	decision, err := a.guard.Evaluate(name)
	if err != nil {
		return err
	}
	switch decision.State {
	case guard.StateAllowed:
		return nil
	case guard.StateUnauthenticated:
		return fmt.Errorf("not signed in, run: stockdeck login")
	case guard.StateDenied:
		user := a.store.Get().User
		return fmt.Errorf("role %q may not access %s", user.Role, decision.Route.Name)
	default:
		return fmt.Errorf("session state unknown for %s", name)
	}
}
