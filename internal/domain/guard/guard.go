// Package guard decides whether the current session may enter a view.
//
// Every navigation target is declared as a Route with a permitted-role
// set. The Guard evaluates a route against the injected session store
// and returns a Decision the caller acts on: render, redirect to login,
// or refuse in place. The guard never navigates by itself.
package guard

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/stock-deck/stockdeck/internal/domain/session"
)

// State is the outcome of evaluating a route against the session.
type State int

const (
	// StateUnknown means the session has not been hydrated yet and no
	// access decision can be made. Callers hold rendering until the
	// store reports hydration.
	StateUnknown State = iota
	// StateUnauthenticated means the route needs a signed-in user and
	// there is none. The Decision carries a redirect target.
	StateUnauthenticated
	// StateDenied means the user is signed in but their role is not in
	// the route's permitted set. No redirect; refusal happens in place.
	StateDenied
	// StateAllowed means the route may be entered.
	StateAllowed
)

func (s State) String() string {
	switch s {
	case StateUnknown:
		return "unknown"
	case StateUnauthenticated:
		return "unauthenticated"
	case StateDenied:
		return "denied"
	case StateAllowed:
		return "allowed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Route is one navigation target.
type Route struct {
	Name   string
	Path   string
	Public bool
	// Roles is the permitted-role set. Empty means any authenticated
	// role. Ignored when Public is true.
	Roles []session.Role
}

// Route names.
const (
	RouteLogin     = "login"
	RouteDashboard = "dashboard"
	RouteProducts  = "products"
	RouteUsers     = "users"
	RouteAudit     = "audit"
)

// DefaultRoutes is the application's route table.
func DefaultRoutes() []Route {
	return []Route{
		{Name: RouteLogin, Path: "/login", Public: true},
		{Name: RouteDashboard, Path: "/"},
		{Name: RouteProducts, Path: "/products"},
		{Name: RouteUsers, Path: "/users", Roles: []session.Role{session.RoleAdmin}},
		{Name: RouteAudit, Path: "/audit", Roles: []session.Role{session.RoleAdmin, session.RoleOperator}},
	}
}

// ErrUnknownRoute is returned when a route name is not in the table.
var ErrUnknownRoute = errors.New("unknown route")

// Decision is the result of evaluating one route.
type Decision struct {
	State State
	Route Route
	// RedirectTo names the route to go to instead. Set only for
	// StateUnauthenticated. The caller should replace, not push, the
	// pending target so the refused view does not linger in history.
	RedirectTo string
}

// Guard evaluates routes against a session store.
type Guard struct {
	store  *session.Store
	routes map[string]Route
	logger *slog.Logger
}

// NewGuard creates a guard over the given store and route table. A nil
// or empty table means DefaultRoutes.
func NewGuard(store *session.Store, logger *slog.Logger, routes ...Route) *Guard {
	if len(routes) == 0 {
		routes = DefaultRoutes()
	}
	byName := make(map[string]Route, len(routes))
	for _, r := range routes {
		byName[r.Name] = r
	}
	return &Guard{store: store, routes: byName, logger: logger}
}

// Route returns the route table entry for name.
func (g *Guard) Route(name string) (Route, error) {
	r, ok := g.routes[name]
	if !ok {
		return Route{}, fmt.Errorf("%w: %q", ErrUnknownRoute, name)
	}
	return r, nil
}

// Evaluate decides whether the current session may enter the named
// route.
func (g *Guard) Evaluate(name string) (Decision, error) {
	route, err := g.Route(name)
	if err != nil {
		return Decision{}, err
	}

	if !g.store.Hydrated() {
		return Decision{State: StateUnknown, Route: route}, nil
	}
	if route.Public {
		// A signed-in user may still visit public routes; the login
		// view simply offers to sign in as someone else.
		return Decision{State: StateAllowed, Route: route}, nil
	}

	sess := g.store.Get()
	if !sess.Authenticated() || sess.User == nil {
		return Decision{
			State:      StateUnauthenticated,
			Route:      route,
			RedirectTo: RouteLogin,
		}, nil
	}
	if !sess.User.Role.In(route.Roles) {
		g.logger.Debug("route denied",
			"route", route.Name, "role", sess.User.Role)
		return Decision{State: StateDenied, Route: route}, nil
	}
	return Decision{State: StateAllowed, Route: route}, nil
}
