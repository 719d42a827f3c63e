// Package login renders the sign-in form.
package login

import (
	"context"
	"errors"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/stock-deck/stockdeck/internal/api"
	"github.com/stock-deck/stockdeck/internal/domain/session"
	"github.com/stock-deck/stockdeck/internal/domain/validation"
	"github.com/stock-deck/stockdeck/internal/tui/theme"
)

const (
	fieldEmail = iota
	fieldPassword
	fieldCount
)

// SuccessMsg is emitted after a successful sign-in. The application
// shell navigates away from the login view when it arrives.
type SuccessMsg struct {
	User *session.User
}

type failMsg struct{ err error }

// Model is the login form.
type Model struct {
	client    *api.Client
	validator *validation.Validator

	inputs    [fieldCount]textinput.Model
	focus     int
	fieldErrs map[string]string
	errText   string
	busy      bool
}

// New creates the login form.
func New(client *api.Client, validator *validation.Validator) Model {
	email := textinput.New()
	email.Placeholder = "email"
	email.Focus()

	password := textinput.New()
	password.Placeholder = "password"
	password.EchoMode = textinput.EchoPassword
	password.EchoCharacter = '*'

	return Model{
		client:    client,
		validator: validator,
		inputs:    [fieldCount]textinput.Model{email, password},
	}
}

// Reset clears the form. Called when the session is invalidated and the
// shell returns to this view.
func (m *Model) Reset() {
	for i := range m.inputs {
		m.inputs[i].SetValue("")
	}
	m.fieldErrs = nil
	m.errText = ""
	m.busy = false
	m.setFocus(fieldEmail)
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.busy {
			return m, nil
		}
		switch msg.String() {
		case "tab", "down":
			m.setFocus((m.focus + 1) % fieldCount)
			return m, nil
		case "shift+tab", "up":
			m.setFocus((m.focus - 1 + fieldCount) % fieldCount)
			return m, nil
		case "enter":
			return m.submit()
		}

	case failMsg:
		m.busy = false
		m.errText = msg.err.Error()
		m.setFocus(fieldPassword)
		return m, nil
	}

	var cmd tea.Cmd
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	return m, cmd
}

func (m *Model) setFocus(i int) {
	m.focus = i
	for j := range m.inputs {
		if j == i {
			m.inputs[j].Focus()
		} else {
			m.inputs[j].Blur()
		}
	}
}

func (m Model) submit() (Model, tea.Cmd) {
	form := validation.LoginForm{
		Email:    m.inputs[fieldEmail].Value(),
		Password: m.inputs[fieldPassword].Value(),
	}

	m.fieldErrs = nil
	m.errText = ""
	if err := m.validator.Validate(form); err != nil {
		var formErrors validation.FormErrors
		if errors.As(err, &formErrors) {
			m.fieldErrs = formErrors.ByField()
		} else {
			m.errText = err.Error()
		}
		return m, nil
	}

	m.busy = true
	client := m.client
	return m, func() tea.Msg {
		user, err := client.Login(context.Background(), form.Email, form.Password)
		if err != nil {
			return failMsg{err: err}
		}
		return SuccessMsg{User: user}
	}
}

// View renders the form.
func (m Model) View() string {
	lines := []string{
		theme.StyleHeader.Render("Sign in"),
		"",
		"  " + m.inputs[fieldEmail].View(),
	}
	if msg, ok := m.fieldErrs["email"]; ok {
		lines = append(lines, "  "+theme.StyleError.Render(msg))
	}
	lines = append(lines, "  "+m.inputs[fieldPassword].View())
	if msg, ok := m.fieldErrs["password"]; ok {
		lines = append(lines, "  "+theme.StyleError.Render(msg))
	}

	switch {
	case m.busy:
		lines = append(lines, "", theme.StyleDimmed.Render("  signing in..."))
	case m.errText != "":
		lines = append(lines, "", "  "+theme.StyleError.Render(m.errText))
	default:
		lines = append(lines, "", theme.StyleDimmed.Render("  enter:sign in  tab:next field"))
	}

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}
