package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/stock-deck/stockdeck/internal/adapter/outbound/state"
	"github.com/stock-deck/stockdeck/internal/api"
	"github.com/stock-deck/stockdeck/internal/config"
	"github.com/stock-deck/stockdeck/internal/domain/guard"
	"github.com/stock-deck/stockdeck/internal/domain/session"
	tuiapp "github.com/stock-deck/stockdeck/internal/tui/app"
)

var uiMetricsAddr string

var uiCmd = &cobra.Command{
	Use:   "ui",
	Short: "Open the full-screen terminal UI",
	Long: `Open the full-screen terminal UI.

The UI hydrates the persisted session in the background; if it is still
valid you land on the dashboard, otherwise on the sign-in form. When the
backend invalidates the session mid-use, the UI returns to sign-in.

With --metrics-addr (or metrics_addr in the config), request and token
refresh metrics are served on /metrics in Prometheus format.`,
	RunE: runUI,
}

func init() {
	uiCmd.Flags().StringVar(&uiMetricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	rootCmd.AddCommand(uiCmd)
}

func runUI(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfigRaw()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if devMode {
		cfg.DevMode = true
	}
	if uiMetricsAddr != "" {
		cfg.MetricsAddr = uiMetricsAddr
	}
	cfg.SetDevDefaults()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	// Log to a file in dev mode, or discard: stderr belongs to the TUI.
	logger, closeLog, err := uiLogger(cfg)
	if err != nil {
		return err
	}
	defer closeLog()

	sessionPath := sessionFilePath
	if sessionPath == "" {
		sessionPath = cfg.Session.Path
	}
	store := session.NewStore(state.NewFileSessionStore(sessionPath, logger), logger)

	// Buffered so the pipeline never blocks on a slow UI.
	invalidations := make(chan struct{}, 1)

	opts := []api.Option{
		api.WithBaseURL(cfg.API.BaseURL),
		api.WithTimeout(cfg.Timeout()),
		api.WithLogger(logger),
		api.WithOnSessionInvalidated(func() {
			select {
			case invalidations <- struct{}{}:
			default:
			}
		}),
	}

	if cfg.MetricsAddr != "" {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector())
		opts = append(opts, api.WithMetrics(api.NewMetrics(reg)))
		go serveMetrics(cfg.MetricsAddr, reg, logger)
	}

	client := api.NewClient(store, opts...)

	model, err := tuiapp.New(store, client, guard.NewGuard(store, logger),
		logger, cfg.API.BaseURL, invalidations)
	if err != nil {
		return err
	}

	program := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("ui error: %w", err)
	}
	return nil
}

// uiLogger returns a logger that stays off the terminal the TUI owns.
func uiLogger(cfg *config.Config) (*slog.Logger, func(), error) {
	if !cfg.DevMode {
		return slog.New(slog.NewTextHandler(io.Discard, nil)), func() {}, nil
	}

	f, err := os.OpenFile("stockdeck-ui.log", os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open ui log file: %w", err)
	}
	logger := slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))
	return logger, func() { f.Close() }, nil
}

func serveMetrics(addr string, reg *prometheus.Registry, logger *slog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	logger.Info("serving metrics", "addr", addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Warn("metrics listener stopped", "error", err)
	}
}
