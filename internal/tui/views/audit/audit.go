// Package audit renders the audit log view for admins and operators.
package audit

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/stock-deck/stockdeck/internal/api"
	"github.com/stock-deck/stockdeck/internal/tui/theme"
)

// actionFilters cycled by the "f" key. Empty means no filter.
var actionFilters = []api.AuditAction{"", api.AuditCreate, api.AuditUpdate, api.AuditDelete}

type loadedMsg struct{ page *api.Page[api.AuditRecord] }
type failMsg struct{ err error }

// Model is the audit log view.
type Model struct {
	client *api.Client

	table  table.Model
	page   *api.Page[api.AuditRecord]
	query  api.AuditQuery
	filter int

	errText string
	loading bool
	detail  bool
}

// New creates the audit view.
func New(client *api.Client) Model {
	columns := []table.Column{
		{Title: "WHEN", Width: 19},
		{Title: "USER", Width: 24},
		{Title: "ACTION", Width: 8},
		{Title: "ENTITY", Width: 10},
		{Title: "ENTITY ID", Width: 12},
	}
	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(14),
	)
	return Model{
		client: client,
		table:  t,
		query:  api.AuditQuery{Page: 1, PageSize: 20},
	}
}

// Load fetches the current page.
func (m *Model) Load() tea.Cmd {
	m.loading = true
	m.errText = ""
	client := m.client
	query := m.query
	return func() tea.Msg {
		page, err := client.Audits(context.Background(), query)
		if err != nil {
			return failMsg{err: err}
		}
		return loadedMsg{page: page}
	}
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case loadedMsg:
		m.loading = false
		m.page = msg.page
		rows := make([]table.Row, len(msg.page.Items))
		for i, rec := range msg.page.Items {
			rows[i] = table.Row{
				rec.CreatedAt.Format("2006-01-02 15:04:05"),
				rec.UserEmail,
				string(rec.Action),
				rec.Entity,
				rec.EntityID,
			}
		}
		m.table.SetRows(rows)
		if cursor := m.table.Cursor(); cursor >= len(rows) {
			m.table.SetCursor(0)
		}
		return m, nil

	case failMsg:
		m.loading = false
		m.errText = msg.err.Error()
		return m, nil

	case tea.KeyMsg:
		if m.detail {
			if msg.String() == "esc" || msg.String() == "enter" {
				m.detail = false
			}
			return m, nil
		}
		switch msg.String() {
		case "n":
			if m.page != nil && m.query.Page < m.page.Pages {
				m.query.Page++
				return m, m.Load()
			}
			return m, nil
		case "p":
			if m.query.Page > 1 {
				m.query.Page--
				return m, m.Load()
			}
			return m, nil
		case "f":
			m.filter = (m.filter + 1) % len(actionFilters)
			m.query.Action = actionFilters[m.filter]
			m.query.Page = 1
			return m, m.Load()
		case "r":
			return m, m.Load()
		case "enter":
			if m.selected() != nil {
				m.detail = true
			}
			return m, nil
		}
		var cmd tea.Cmd
		m.table, cmd = m.table.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) selected() *api.AuditRecord {
	if m.page == nil || len(m.page.Items) == 0 {
		return nil
	}
	cursor := m.table.Cursor()
	if cursor < 0 || cursor >= len(m.page.Items) {
		return nil
	}
	return &m.page.Items[cursor]
}

// View renders the view.
func (m Model) View() string {
	if m.detail {
		return m.viewDetail()
	}

	lines := []string{theme.StyleHeader.Render("Audit log")}
	if m.query.Action != "" {
		action := lipgloss.NewStyle().
			Foreground(theme.ActionColor(string(m.query.Action))).
			Render(string(m.query.Action))
		lines = append(lines, "  action filter: "+action)
	}

	switch {
	case m.loading:
		lines = append(lines, theme.StyleDimmed.Render("  loading..."))
	case m.errText != "":
		lines = append(lines, theme.StyleError.Render("  "+m.errText))
	case m.page == nil || len(m.page.Items) == 0:
		lines = append(lines, theme.StyleDimmed.Render("  no audit records"))
	default:
		lines = append(lines, m.table.View())
		lines = append(lines, theme.StyleDimmed.Render(
			fmt.Sprintf("  page %d/%d, %d total", m.page.Page, m.page.Pages, m.page.Total)))
	}

	lines = append(lines, "", theme.StyleDimmed.Render(
		"  j/k:move  enter:detail  f:action filter  n/p:page  r:reload"))
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func (m Model) viewDetail() string {
	rec := m.selected()
	if rec == nil {
		return theme.StyleDimmed.Render("  record gone")
	}

	lines := []string{
		theme.StyleHeader.Render("Audit record"),
		"",
		fmt.Sprintf("  when    %s", rec.CreatedAt.Format("2006-01-02 15:04:05 MST")),
		fmt.Sprintf("  user    %s", rec.UserEmail),
		fmt.Sprintf("  action  %s", rec.Action),
		fmt.Sprintf("  entity  %s %s", rec.Entity, rec.EntityID),
	}
	if len(rec.Before) > 0 {
		lines = append(lines, "", theme.StyleDimmed.Render("  before"), "  "+string(rec.Before))
	}
	if len(rec.After) > 0 {
		lines = append(lines, "", theme.StyleDimmed.Render("  after"), "  "+string(rec.After))
	}
	lines = append(lines, "", theme.StyleDimmed.Render("  esc:back"))
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}
