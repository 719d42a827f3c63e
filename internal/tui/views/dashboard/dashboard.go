// Package dashboard renders the headline counters and the stock
// movement series.
package dashboard

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/stock-deck/stockdeck/internal/api"
	"github.com/stock-deck/stockdeck/internal/tui/theme"
)

type loadedMsg struct {
	stats     *api.DashboardStats
	movements []api.Movement
}

type failMsg struct{ err error }

// Model is the dashboard view.
type Model struct {
	client *api.Client

	stats     *api.DashboardStats
	movements []api.Movement
	errText   string
	loading   bool
}

// New creates the dashboard view.
func New(client *api.Client) Model {
	return Model{client: client}
}

// Load fetches the counters and movements.
func (m *Model) Load() tea.Cmd {
	m.loading = true
	m.errText = ""
	client := m.client
	return func() tea.Msg {
		ctx := context.Background()
		stats, err := client.Dashboard(ctx)
		if err != nil {
			return failMsg{err: err}
		}
		movements, err := client.Movements(ctx)
		if err != nil {
			return failMsg{err: err}
		}
		return loadedMsg{stats: stats, movements: movements}
	}
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case loadedMsg:
		m.loading = false
		m.stats = msg.stats
		m.movements = msg.movements
		return m, nil
	case failMsg:
		m.loading = false
		m.errText = msg.err.Error()
		return m, nil
	case tea.KeyMsg:
		if msg.String() == "r" {
			return m, m.Load()
		}
	}
	return m, nil
}

// View renders the dashboard.
func (m Model) View() string {
	if m.loading {
		return theme.StyleDimmed.Render("  loading dashboard...")
	}
	if m.errText != "" {
		return theme.StyleError.Render("  " + m.errText)
	}
	if m.stats == nil {
		return theme.StyleDimmed.Render("  no data (r to reload)")
	}

	lines := []string{
		theme.StyleHeader.Render("Dashboard"),
		"",
		fmt.Sprintf("  products  %d", m.stats.Products),
		fmt.Sprintf("  stock     %d", m.stats.Stock),
		fmt.Sprintf("  users     %d", m.stats.Users),
	}

	if len(m.movements) > 0 {
		lines = append(lines, "", theme.StyleHeader.Render("Stock movements"))
		max := 1
		for _, mv := range m.movements {
			if mv.Entries > max {
				max = mv.Entries
			}
			if mv.Exits > max {
				max = mv.Exits
			}
		}
		for _, mv := range m.movements {
			in := lipgloss.NewStyle().Foreground(theme.ColorHealthy).
				Render(bar(mv.Entries, max))
			out := lipgloss.NewStyle().Foreground(theme.ColorDanger).
				Render(bar(mv.Exits, max))
			lines = append(lines, fmt.Sprintf("  %s  +%-4d %s", mv.Date, mv.Entries, in))
			lines = append(lines, fmt.Sprintf("              -%-4d %s", mv.Exits, out))
		}
	}

	lines = append(lines, "", theme.StyleDimmed.Render("  r:reload"))
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

// bar renders a proportional bar capped at 30 cells.
func bar(value, max int) string {
	const cells = 30
	n := value * cells / max
	if value > 0 && n == 0 {
		n = 1
	}
	return strings.Repeat("█", n)
}
