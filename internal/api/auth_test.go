package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/stock-deck/stockdeck/internal/domain/session"
)

// testToken mints a signed access token with the claims the backend
// uses. The signature key is irrelevant; the client never verifies it.
func testToken(t *testing.T, sub, email, role string) string {
	t.Helper()
	claims := tokenClaims{
		Email: email,
		Role:  role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-key"))
	if err != nil {
		t.Fatalf("failed to sign test token: %v", err)
	}
	return token
}

func TestLoginPopulatesSession(t *testing.T) {
	accessToken := testToken(t, "u42", "op@example.com", "operator")

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/auth/login" || r.Method != http.MethodPost {
			t.Errorf("unexpected call: %s %s", r.Method, r.URL.Path)
		}
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		if body["email"] != "op@example.com" || body["password"] != "secret1" {
			t.Errorf("unexpected credentials: %v", body)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(loginResponse{AccessToken: accessToken, RefreshToken: "refresh-1"})
	}))
	defer server.Close()

	store := newTestStore(session.Session{})
	client := NewClient(store, WithBaseURL(server.URL), WithLogger(testLogger()))

	user, err := client.Login(context.Background(), "op@example.com", "secret1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user.ID != "u42" || user.Email != "op@example.com" || user.Role != session.RoleOperator {
		t.Errorf("decoded user mismatch: %+v", user)
	}

	sess := store.Get()
	if sess.AccessToken != accessToken {
		t.Error("access token not stored")
	}
	if sess.RefreshToken != "refresh-1" {
		t.Errorf("refresh token = %q, want refresh-1", sess.RefreshToken)
	}
	if sess.User == nil || sess.User.ID != "u42" {
		t.Errorf("user not stored: %+v", sess.User)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"invalid credentials"}`, http.StatusUnauthorized)
	}))
	defer server.Close()

	store := newTestStore(session.Session{})
	client := NewClient(store, WithBaseURL(server.URL), WithLogger(testLogger()))

	_, err := client.Login(context.Background(), "op@example.com", "wrong")
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, ErrUnauthorized) {
		t.Errorf("expected the 401 in the error chain, got %v", err)
	}
	if store.Get().Authenticated() {
		t.Error("failed login must not populate the session")
	}
}

func TestLoginRejectsTokenWithUnknownRole(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(loginResponse{AccessToken: testToken(t, "u1", "x@x.com", "superuser")})
	}))
	defer server.Close()

	store := newTestStore(session.Session{})
	client := NewClient(store, WithBaseURL(server.URL), WithLogger(testLogger()))

	if _, err := client.Login(context.Background(), "x@x.com", "secret1"); err == nil {
		t.Fatal("expected error for unknown role")
	}
	if store.Get().Authenticated() {
		t.Error("session must stay empty on a rejected token")
	}
}

func TestLogoutClearsSession(t *testing.T) {
	store := newTestStore(session.Session{AccessToken: "A", RefreshToken: "R"})
	client := NewClient(store, WithLogger(testLogger()))

	client.Logout()
	if store.Get().Authenticated() {
		t.Error("expected empty session after logout")
	}
}

func TestMe(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/auth/me" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(UserAccount{ID: "u1", Email: "a@x.com", Role: session.RoleAdmin})
	}))
	defer server.Close()

	store := newTestStore(session.Session{AccessToken: "A"})
	client := NewClient(store, WithBaseURL(server.URL), WithLogger(testLogger()))

	user, err := client.Me(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user.Email != "a@x.com" || user.Role != session.RoleAdmin {
		t.Errorf("unexpected user: %+v", user)
	}
}

func TestDecodeUser(t *testing.T) {
	t.Run("valid token", func(t *testing.T) {
		user, err := decodeUser(testToken(t, "u9", "v@x.com", "viewer"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if user.ID != "u9" || user.Email != "v@x.com" || user.Role != session.RoleViewer {
			t.Errorf("unexpected user: %+v", user)
		}
	})

	t.Run("not a JWT", func(t *testing.T) {
		if _, err := decodeUser("not-a-token"); err == nil {
			t.Error("expected error for malformed token")
		}
	})

	t.Run("missing subject", func(t *testing.T) {
		if _, err := decodeUser(testToken(t, "", "v@x.com", "viewer")); err == nil {
			t.Error("expected error for missing subject")
		}
	})
}
