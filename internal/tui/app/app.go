// Package app is the root Bubble Tea model: it owns the session store,
// the request pipeline, and the route guard, and switches between views
// according to the guard's decisions.
package app

import (
	"context"
	"log/slog"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/stock-deck/stockdeck/internal/api"
	"github.com/stock-deck/stockdeck/internal/domain/guard"
	"github.com/stock-deck/stockdeck/internal/domain/session"
	"github.com/stock-deck/stockdeck/internal/domain/validation"
	"github.com/stock-deck/stockdeck/internal/tui/theme"
	"github.com/stock-deck/stockdeck/internal/tui/views/audit"
	"github.com/stock-deck/stockdeck/internal/tui/views/dashboard"
	"github.com/stock-deck/stockdeck/internal/tui/views/login"
	"github.com/stock-deck/stockdeck/internal/tui/views/products"
	"github.com/stock-deck/stockdeck/internal/tui/views/status"
	"github.com/stock-deck/stockdeck/internal/tui/views/users"
)

// hydratedMsg is emitted once the persisted session is loaded.
type hydratedMsg struct{}

// invalidatedMsg is emitted when the request pipeline invalidates the
// session (failed refresh). The shell returns to the login view.
type invalidatedMsg struct{}

// Model is the root Bubble Tea model.
type Model struct {
	store  *session.Store
	client *api.Client
	guard  *guard.Guard
	logger *slog.Logger

	keys   KeyMap
	width  int
	height int

	active string // current route name

	// Sub-views.
	statusBar status.Model
	login     login.Model
	dashboard dashboard.Model
	products  products.Model
	users     users.Model
	audit     audit.Model

	invalidations <-chan struct{}
}

// New creates the root model. The invalidations channel receives one
// value per session invalidation; wire the api.Client's
// WithOnSessionInvalidated callback to it.
func New(store *session.Store, client *api.Client, g *guard.Guard,
	logger *slog.Logger, baseURL string, invalidations <-chan struct{}) (Model, error) {

	validator, err := validation.New()
	if err != nil {
		return Model{}, err
	}

	return Model{
		store:         store,
		client:        client,
		guard:         g,
		logger:        logger,
		keys:          DefaultKeyMap(),
		active:        guard.RouteLogin,
		statusBar:     status.New(baseURL),
		login:         login.New(client, validator),
		dashboard:     dashboard.New(client),
		products:      products.New(client, validator),
		users:         users.New(client, validator),
		audit:         audit.New(client),
		invalidations: invalidations,
	}, nil
}

// Init hydrates the session and starts listening for invalidations.
func (m Model) Init() tea.Cmd {
	store := m.store
	return tea.Batch(
		func() tea.Msg {
			store.Hydrate(context.Background())
			return hydratedMsg{}
		},
		m.waitForInvalidation(),
	)
}

func (m Model) waitForInvalidation() tea.Cmd {
	ch := m.invalidations
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		if _, ok := <-ch; !ok {
			return nil
		}
		return invalidatedMsg{}
	}
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.statusBar.Width = msg.Width
		return m, nil

	case hydratedMsg:
		m.statusBar.Hydrated = true
		sess := m.store.Get()
		if sess.Authenticated() {
			m.statusBar.SetUser(sess.User)
			return m.navigate(guard.RouteDashboard)
		}
		m.active = guard.RouteLogin
		return m, nil

	case invalidatedMsg:
		m.logger.Info("session invalidated, returning to login")
		m.statusBar.SetUser(nil)
		m.statusBar.SetNotice("session expired, sign in again")
		m.login.Reset()
		m.active = guard.RouteLogin
		return m, m.waitForInvalidation()

	case login.SuccessMsg:
		m.statusBar.SetUser(msg.User)
		m.statusBar.SetNotice("")
		return m.navigate(guard.RouteDashboard)

	case tea.KeyMsg:
		if key.Matches(msg, m.keys.ForceQuit) {
			return m, tea.Quit
		}
		if !m.capturing() {
			if model, cmd, handled := m.handleGlobalKey(msg); handled {
				return model, cmd
			}
		}
	}

	return m.updateActive(msg)
}

// capturing reports whether the active view is consuming raw text
// input, in which case global single-letter bindings stay inactive.
func (m Model) capturing() bool {
	switch m.active {
	case guard.RouteLogin:
		return true
	case guard.RouteProducts:
		return m.products.Capturing()
	case guard.RouteUsers:
		return m.users.Capturing()
	default:
		return false
	}
}

func (m Model) handleGlobalKey(msg tea.KeyMsg) (tea.Model, tea.Cmd, bool) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		model, cmd := tea.Model(m), tea.Quit
		return model, cmd, true

	case key.Matches(msg, m.keys.Dashboard):
		model, cmd := m.navigate(guard.RouteDashboard)
		return model, cmd, true

	case key.Matches(msg, m.keys.Products):
		model, cmd := m.navigate(guard.RouteProducts)
		return model, cmd, true

	case key.Matches(msg, m.keys.Users):
		model, cmd := m.navigate(guard.RouteUsers)
		return model, cmd, true

	case key.Matches(msg, m.keys.Audit):
		model, cmd := m.navigate(guard.RouteAudit)
		return model, cmd, true

	case key.Matches(msg, m.keys.Logout):
		m.client.Logout()
		m.statusBar.SetUser(nil)
		m.statusBar.SetNotice("")
		m.login.Reset()
		m.active = guard.RouteLogin
		return m, nil, true
	}
	return m, nil, false
}

// navigate runs the target route through the guard. A refused
// navigation replaces the target: unauthenticated goes to login, a
// denied role stays where it is with a notice.
func (m Model) navigate(route string) (tea.Model, tea.Cmd) {
	decision, err := m.guard.Evaluate(route)
	if err != nil {
		m.statusBar.SetNotice(err.Error())
		return m, nil
	}

	switch decision.State {
	case guard.StateUnknown:
		// Hydration still pending; hydratedMsg will land shortly.
		return m, nil

	case guard.StateUnauthenticated:
		m.login.Reset()
		m.active = decision.RedirectTo
		return m, nil

	case guard.StateDenied:
		user := m.store.Get().User
		m.logger.Debug("navigation denied", "route", route, "role", user.Role)
		m.statusBar.SetNotice("your role may not access " + route)
		return m, nil
	}

	m.statusBar.SetNotice("")
	m.active = route
	switch route {
	case guard.RouteDashboard:
		return m, m.dashboard.Load()
	case guard.RouteProducts:
		return m, m.products.Load()
	case guard.RouteUsers:
		return m, m.users.Load()
	case guard.RouteAudit:
		return m, m.audit.Load()
	}
	return m, nil
}

func (m Model) updateActive(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.active {
	case guard.RouteLogin:
		m.login, cmd = m.login.Update(msg)
	case guard.RouteDashboard:
		m.dashboard, cmd = m.dashboard.Update(msg)
	case guard.RouteProducts:
		m.products, cmd = m.products.Update(msg)
	case guard.RouteUsers:
		m.users, cmd = m.users.Update(msg)
	case guard.RouteAudit:
		m.audit, cmd = m.audit.Update(msg)
	}
	return m, cmd
}

// View renders the full TUI.
func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Initializing..."
	}

	var body string
	if !m.statusBar.Hydrated {
		body = theme.StyleDimmed.Render("  loading session...")
	} else {
		switch m.active {
		case guard.RouteLogin:
			body = m.login.View()
		case guard.RouteDashboard:
			body = m.dashboard.View()
		case guard.RouteProducts:
			body = m.products.View()
		case guard.RouteUsers:
			body = m.users.View()
		case guard.RouteAudit:
			body = m.audit.View()
		}
	}

	sections := []string{
		m.statusBar.View(),
		"",
		body,
	}
	if m.active != guard.RouteLogin {
		sections = append(sections, "",
			theme.StyleDimmed.Render("  1:dashboard  2:products  3:users  4:audit  L:logout  q:quit"))
	}
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}
