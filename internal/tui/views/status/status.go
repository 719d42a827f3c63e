// Package status renders the top status bar: signed-in user, backend,
// and transient notices.
package status

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/stock-deck/stockdeck/internal/domain/session"
	"github.com/stock-deck/stockdeck/internal/tui/theme"
)

// Model holds the status bar state.
type Model struct {
	BaseURL  string
	User     *session.User
	Hydrated bool
	Notice   string
	Width    int
}

// New creates a status bar model.
func New(baseURL string) Model {
	return Model{BaseURL: baseURL}
}

// SetUser updates the displayed identity.
func (m *Model) SetUser(user *session.User) {
	m.User = user
}

// SetNotice replaces the transient notice text.
func (m *Model) SetNotice(notice string) {
	m.Notice = notice
}

// View renders the status bar.
func (m Model) View() string {
	var who string
	switch {
	case !m.Hydrated:
		who = theme.StyleDimmed.Render("loading session...")
	case m.User == nil:
		who = theme.StyleDimmed.Render("not signed in")
	default:
		role := lipgloss.NewStyle().
			Foreground(theme.RoleColor(string(m.User.Role))).
			Render(string(m.User.Role))
		who = fmt.Sprintf("%s (%s)", m.User.Email, role)
	}

	line := fmt.Sprintf(" stockdeck  %s  %s", theme.StyleDimmed.Render(m.BaseURL), who)
	if m.Notice != "" {
		line += "  " + theme.StyleError.Render(m.Notice)
	}
	return theme.StyleHeader.Render(line)
}
