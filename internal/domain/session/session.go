// Package session holds the client's authentication state: the current
// access/refresh token pair and the signed-in user, with durable
// best-effort persistence across restarts.
package session

// Role is a permission level assigned to a user.
type Role string

const (
	// RoleAdmin has full access, including user management.
	RoleAdmin Role = "admin"
	// RoleOperator can manage products and read the audit log.
	RoleOperator Role = "operator"
	// RoleViewer has read-only access to dashboard and products.
	RoleViewer Role = "viewer"
)

// IsValid returns true if the role is a known valid role.
func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleOperator, RoleViewer:
		return true
	default:
		return false
	}
}

// In reports whether the role is a member of the given set.
// An empty set permits every role.
func (r Role) In(roles []Role) bool {
	if len(roles) == 0 {
		return true
	}
	for _, allowed := range roles {
		if r == allowed {
			return true
		}
	}
	return false
}

// User identifies the signed-in account.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  Role   `json:"role"`
}

// Session is the credential/user pair for the current sign-in.
// An empty AccessToken means unauthenticated. The User is present only
// when AccessToken is present; Store.Set enforces this.
type Session struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	User         *User  `json:"user,omitempty"`
}

// Authenticated reports whether the session carries an access token.
func (s Session) Authenticated() bool {
	return s.AccessToken != ""
}

// normalized returns a copy with the user/token invariant applied:
// without an access token there is no user and no refresh token.
func (s Session) normalized() Session {
	if s.AccessToken == "" {
		return Session{}
	}
	return s
}
