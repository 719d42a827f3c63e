// Package users renders the user administration view. Admin only, the
// route guard keeps everyone else out before this view is entered.
package users

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/stock-deck/stockdeck/internal/api"
	"github.com/stock-deck/stockdeck/internal/domain/session"
	"github.com/stock-deck/stockdeck/internal/domain/validation"
	"github.com/stock-deck/stockdeck/internal/tui/theme"
)

type mode int

const (
	modeList mode = iota
	modeForm
)

const (
	formEmail = iota
	formPassword
	formFieldCount
)

var roles = []session.Role{session.RoleViewer, session.RoleOperator, session.RoleAdmin}

type loadedMsg struct{ users []api.UserAccount }
type createdMsg struct{ user *api.UserAccount }
type failMsg struct{ err error }

// Model is the users view.
type Model struct {
	client    *api.Client
	validator *validation.Validator

	table table.Model

	form      [formFieldCount]textinput.Model
	formFocus int
	formRole  int
	formErrs  map[string]string

	users   []api.UserAccount
	mode    mode
	errText string
	notice  string
	loading bool
}

// New creates the users view.
func New(client *api.Client, validator *validation.Validator) Model {
	columns := []table.Column{
		{Title: "EMAIL", Width: 32},
		{Title: "ROLE", Width: 10},
	}
	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(12),
	)

	var form [formFieldCount]textinput.Model
	email := textinput.New()
	email.Placeholder = "email"
	form[formEmail] = email

	password := textinput.New()
	password.Placeholder = "password"
	password.EchoMode = textinput.EchoPassword
	password.EchoCharacter = '*'
	form[formPassword] = password

	return Model{
		client:    client,
		validator: validator,
		table:     t,
		form:      form,
	}
}

// Capturing reports whether the view is consuming raw text input (the
// create form). The shell suspends global bindings then.
func (m Model) Capturing() bool {
	return m.mode == modeForm
}

// Load fetches the user list.
func (m *Model) Load() tea.Cmd {
	m.loading = true
	m.errText = ""
	client := m.client
	return func() tea.Msg {
		users, err := client.Users(context.Background())
		if err != nil {
			return failMsg{err: err}
		}
		return loadedMsg{users: users}
	}
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case loadedMsg:
		m.loading = false
		m.users = msg.users
		rows := make([]table.Row, len(msg.users))
		for i, u := range msg.users {
			rows[i] = table.Row{u.Email, string(u.Role)}
		}
		m.table.SetRows(rows)
		return m, nil

	case createdMsg:
		m.mode = modeList
		m.notice = fmt.Sprintf("created %s (%s)", msg.user.Email, msg.user.Role)
		return m, m.Load()

	case failMsg:
		m.loading = false
		m.errText = msg.err.Error()
		return m, nil

	case tea.KeyMsg:
		if m.mode == modeForm {
			return m.updateForm(msg)
		}
		return m.updateList(msg)
	}
	return m, nil
}

func (m Model) updateList(msg tea.KeyMsg) (Model, tea.Cmd) {
	m.notice = ""
	switch msg.String() {
	case "c":
		m.mode = modeForm
		m.formErrs = nil
		m.formRole = 0
		for i := range m.form {
			m.form[i].SetValue("")
			m.form[i].Blur()
		}
		m.formFocus = formEmail
		m.form[formEmail].Focus()
		return m, nil
	case "r":
		return m, m.Load()
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m Model) updateForm(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.mode = modeList
		return m, nil
	case "tab", "down":
		m.setFormFocus((m.formFocus + 1) % formFieldCount)
		return m, nil
	case "shift+tab", "up":
		m.setFormFocus((m.formFocus - 1 + formFieldCount) % formFieldCount)
		return m, nil
	case "left":
		m.formRole = (m.formRole - 1 + len(roles)) % len(roles)
		return m, nil
	case "right":
		m.formRole = (m.formRole + 1) % len(roles)
		return m, nil
	case "enter":
		return m.submitForm()
	}
	var cmd tea.Cmd
	m.form[m.formFocus], cmd = m.form[m.formFocus].Update(msg)
	return m, cmd
}

func (m *Model) setFormFocus(i int) {
	m.formFocus = i
	for j := range m.form {
		if j == i {
			m.form[j].Focus()
		} else {
			m.form[j].Blur()
		}
	}
}

func (m Model) submitForm() (Model, tea.Cmd) {
	role := roles[m.formRole]
	form := validation.UserForm{
		Email:    m.form[formEmail].Value(),
		Password: m.form[formPassword].Value(),
		Role:     string(role),
	}

	m.formErrs = nil
	if err := m.validator.Validate(form); err != nil {
		var formErrors validation.FormErrors
		if errors.As(err, &formErrors) {
			m.formErrs = formErrors.ByField()
		} else {
			m.errText = err.Error()
		}
		return m, nil
	}

	client := m.client
	return m, func() tea.Msg {
		user, err := client.CreateUser(context.Background(), api.UserInput{
			Email:    form.Email,
			Password: form.Password,
			Role:     role,
		})
		if err != nil {
			return failMsg{err: err}
		}
		return createdMsg{user: user}
	}
}

// View renders the view for the current mode.
func (m Model) View() string {
	if m.mode == modeForm {
		return m.viewForm()
	}

	lines := []string{theme.StyleHeader.Render("Users")}
	switch {
	case m.loading:
		lines = append(lines, theme.StyleDimmed.Render("  loading..."))
	case m.errText != "":
		lines = append(lines, theme.StyleError.Render("  "+m.errText))
	case len(m.users) == 0:
		lines = append(lines, theme.StyleDimmed.Render("  no users"))
	default:
		lines = append(lines, m.table.View())
	}

	if m.notice != "" {
		lines = append(lines, "  "+m.notice)
	}
	lines = append(lines, "", theme.StyleDimmed.Render("  j/k:move  c:create  r:reload"))
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func (m Model) viewForm() string {
	lines := []string{theme.StyleHeader.Render("New user"), ""}

	for i, field := range []string{"email", "password"} {
		lines = append(lines, "  "+m.form[i].View())
		if msg, ok := m.formErrs[field]; ok {
			lines = append(lines, "  "+theme.StyleError.Render(msg))
		}
	}

	role := lipgloss.NewStyle().
		Foreground(theme.RoleColor(string(roles[m.formRole]))).
		Render(string(roles[m.formRole]))
	lines = append(lines, fmt.Sprintf("  role: < %s >", role))
	if msg, ok := m.formErrs["role"]; ok {
		lines = append(lines, "  "+theme.StyleError.Render(msg))
	}

	if m.errText != "" {
		lines = append(lines, "", "  "+theme.StyleError.Render(m.errText))
	}
	lines = append(lines, "", theme.StyleDimmed.Render("  enter:save  tab:next field  left/right:role  esc:cancel"))
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}
