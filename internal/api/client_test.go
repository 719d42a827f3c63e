package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/stock-deck/stockdeck/internal/domain/session"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		// The shared http.Transport keeps idle connections alive briefly.
		goleak.IgnoreTopFunction("net/http.(*persistConn).readLoop"),
		goleak.IgnoreTopFunction("net/http.(*persistConn).writeLoop"),
		goleak.IgnoreTopFunction("internal/poll.runtime_pollWait"),
	)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// newTestStore returns a store pre-populated with the given session and
// already hydrated.
func newTestStore(sess session.Session) *session.Store {
	store := session.NewStore(nil, testLogger())
	store.Hydrate(context.Background())
	if sess.Authenticated() {
		store.Set(sess)
	}
	return store
}

func TestRequestCarriesBearerToken(t *testing.T) {
	var gotAuth, gotRequestID string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotRequestID = r.Header.Get("X-Request-ID")
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(Page[Product]{Page: 1, PageSize: 10})
	}))
	defer server.Close()

	store := newTestStore(session.Session{AccessToken: "tok-a", RefreshToken: "tok-r"})
	client := NewClient(store, WithBaseURL(server.URL), WithLogger(testLogger()))

	if _, err := client.Products(context.Background(), ProductQuery{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotAuth != "Bearer tok-a" {
		t.Errorf("expected bearer tok-a, got %q", gotAuth)
	}
	if gotRequestID == "" {
		t.Error("expected X-Request-ID header")
	}
}

func TestUnauthenticatedRequestHasNoAuthHeader(t *testing.T) {
	var sawAuth bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, sawAuth = r.Header["Authorization"]
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(loginResponse{AccessToken: testToken(t, "u1", "a@x.com", "admin")})
	}))
	defer server.Close()

	store := newTestStore(session.Session{})
	client := NewClient(store, WithBaseURL(server.URL), WithLogger(testLogger()))

	if _, err := client.Login(context.Background(), "a@x.com", "secret1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sawAuth {
		t.Error("unauthenticated request should not carry an Authorization header")
	}
}

// TestRefreshAndRetryOn401 is the canonical recovery scenario: session
// {A, R}, /products answers 401 for A; the refresh call with R mints B;
// the retried /products call must carry B and the store must end with
// {B, R}.
func TestRefreshAndRetryOn401(t *testing.T) {
	var refreshCalls, productCalls int32
	var retriedAuth string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/products":
			atomic.AddInt32(&productCalls, 1)
			if r.Header.Get("Authorization") == "Bearer A" {
				http.Error(w, `{"message":"token expired"}`, http.StatusUnauthorized)
				return
			}
			retriedAuth = r.Header.Get("Authorization")
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(Page[Product]{Page: 1, Items: []Product{{ID: "p1", Name: "Widget"}}})

		case "/auth/refresh":
			atomic.AddInt32(&refreshCalls, 1)
			var body map[string]string
			json.NewDecoder(r.Body).Decode(&body)
			if body["refreshToken"] != "R" {
				t.Errorf("refresh called with token %q, want R", body["refreshToken"])
			}
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(refreshResponse{AccessToken: "B"})

		default:
			t.Errorf("unexpected path %s", r.URL.Path)
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	store := newTestStore(session.Session{AccessToken: "A", RefreshToken: "R", User: &session.User{ID: "u1", Role: session.RoleAdmin}})
	client := NewClient(store, WithBaseURL(server.URL), WithLogger(testLogger()))

	page, err := client.Products(context.Background(), ProductQuery{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(page.Items) != 1 || page.Items[0].ID != "p1" {
		t.Errorf("unexpected page: %+v", page)
	}

	if n := atomic.LoadInt32(&refreshCalls); n != 1 {
		t.Errorf("expected exactly 1 refresh call, got %d", n)
	}
	if n := atomic.LoadInt32(&productCalls); n != 2 {
		t.Errorf("expected original + retry = 2 product calls, got %d", n)
	}
	if retriedAuth != "Bearer B" {
		t.Errorf("retried request carried %q, want Bearer B", retriedAuth)
	}

	sess := store.Get()
	if sess.AccessToken != "B" {
		t.Errorf("store access token = %q, want B", sess.AccessToken)
	}
	if sess.RefreshToken != "R" {
		t.Errorf("store refresh token = %q, want R (carried over)", sess.RefreshToken)
	}
	if sess.User == nil || sess.User.ID != "u1" {
		t.Errorf("user lost across refresh: %+v", sess.User)
	}
}

func TestNoRefreshTokenClearsSessionWithoutRefreshCall(t *testing.T) {
	var refreshCalls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/auth/refresh" {
			atomic.AddInt32(&refreshCalls, 1)
		}
		http.Error(w, `{"message":"unauthorized"}`, http.StatusUnauthorized)
	}))
	defer server.Close()

	var invalidated int32
	store := newTestStore(session.Session{AccessToken: "A"})
	client := NewClient(store,
		WithBaseURL(server.URL),
		WithLogger(testLogger()),
		WithOnSessionInvalidated(func() { atomic.AddInt32(&invalidated, 1) }),
	)

	_, err := client.Products(context.Background(), ProductQuery{})
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, ErrSessionInvalidated) {
		t.Errorf("expected ErrSessionInvalidated, got %v", err)
	}
	// The original authorization failure stays reachable in the chain.
	if !errors.Is(err, ErrUnauthorized) {
		t.Errorf("expected original 401 in the error chain, got %v", err)
	}

	if n := atomic.LoadInt32(&refreshCalls); n != 0 {
		t.Errorf("expected no refresh call without a refresh token, got %d", n)
	}
	if store.Get().Authenticated() {
		t.Error("expected session cleared")
	}
	if atomic.LoadInt32(&invalidated) != 1 {
		t.Error("expected invalidation callback to fire once")
	}
}

func TestRefreshFailureClearsSessionAndStopsRetrying(t *testing.T) {
	var productCalls, refreshCalls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/products":
			atomic.AddInt32(&productCalls, 1)
			http.Error(w, `{"message":"token expired"}`, http.StatusUnauthorized)
		case "/auth/refresh":
			atomic.AddInt32(&refreshCalls, 1)
			http.Error(w, `{"message":"refresh token revoked"}`, http.StatusUnauthorized)
		}
	}))
	defer server.Close()

	var invalidated int32
	store := newTestStore(session.Session{AccessToken: "A", RefreshToken: "R"})
	client := NewClient(store,
		WithBaseURL(server.URL),
		WithLogger(testLogger()),
		WithOnSessionInvalidated(func() { atomic.AddInt32(&invalidated, 1) }),
	)

	_, err := client.Products(context.Background(), ProductQuery{})
	if !errors.Is(err, ErrSessionInvalidated) {
		t.Fatalf("expected ErrSessionInvalidated, got %v", err)
	}

	if n := atomic.LoadInt32(&refreshCalls); n != 1 {
		t.Errorf("expected exactly 1 refresh attempt, got %d", n)
	}
	if n := atomic.LoadInt32(&productCalls); n != 1 {
		t.Errorf("expected no retry after failed refresh, got %d product calls", n)
	}
	if store.Get().Authenticated() {
		t.Error("expected session cleared after failed refresh")
	}
	if atomic.LoadInt32(&invalidated) != 1 {
		t.Error("expected invalidation callback to fire once")
	}
}

// A 401 on the retried request is final: recovery happens at most once
// per original call.
func TestRetried401IsNotRecoveredAgain(t *testing.T) {
	var productCalls, refreshCalls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/products":
			atomic.AddInt32(&productCalls, 1)
			http.Error(w, `{"message":"still unauthorized"}`, http.StatusUnauthorized)
		case "/auth/refresh":
			atomic.AddInt32(&refreshCalls, 1)
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(refreshResponse{AccessToken: "B"})
		}
	}))
	defer server.Close()

	store := newTestStore(session.Session{AccessToken: "A", RefreshToken: "R"})
	client := NewClient(store, WithBaseURL(server.URL), WithLogger(testLogger()))

	_, err := client.Products(context.Background(), ProductQuery{})
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected the retried 401 to propagate, got %v", err)
	}
	if errors.Is(err, ErrSessionInvalidated) {
		t.Error("retried 401 must not be treated as invalidation")
	}

	if n := atomic.LoadInt32(&refreshCalls); n != 1 {
		t.Errorf("expected exactly 1 refresh, got %d", n)
	}
	if n := atomic.LoadInt32(&productCalls); n != 2 {
		t.Errorf("expected exactly 2 product calls, got %d", n)
	}
}

func TestNetworkErrorBypassesRefresh(t *testing.T) {
	// Point at a server that is already closed.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	var invalidated int32
	store := newTestStore(session.Session{AccessToken: "A", RefreshToken: "R"})
	client := NewClient(store,
		WithBaseURL(server.URL),
		WithLogger(testLogger()),
		WithOnSessionInvalidated(func() { atomic.AddInt32(&invalidated, 1) }),
	)

	_, err := client.Products(context.Background(), ProductQuery{})
	if err == nil {
		t.Fatal("expected transport error")
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		t.Errorf("transport failure must not be an APIError, got %v", apiErr)
	}

	sess := store.Get()
	if sess.AccessToken != "A" || sess.RefreshToken != "R" {
		t.Errorf("transport failure must not touch the session, got %+v", sess)
	}
	if atomic.LoadInt32(&invalidated) != 0 {
		t.Error("transport failure must not invalidate the session")
	}
}

// Concurrent 401s coalesce into a single refresh call; losers of the
// race reuse the winner's token.
func TestConcurrentRefreshesCoalesce(t *testing.T) {
	var refreshCalls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/products":
			if r.Header.Get("Authorization") != "Bearer B" {
				http.Error(w, `{"message":"token expired"}`, http.StatusUnauthorized)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(Page[Product]{Page: 1})
		case "/auth/refresh":
			atomic.AddInt32(&refreshCalls, 1)
			time.Sleep(20 * time.Millisecond) // widen the race window
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(refreshResponse{AccessToken: "B"})
		}
	}))
	defer server.Close()

	store := newTestStore(session.Session{AccessToken: "A", RefreshToken: "R"})
	client := NewClient(store, WithBaseURL(server.URL), WithLogger(testLogger()))

	const workers = 5
	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = client.Products(context.Background(), ProductQuery{})
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Errorf("worker %d failed: %v", i, err)
		}
	}
	if n := atomic.LoadInt32(&refreshCalls); n != 1 {
		t.Errorf("expected a single coalesced refresh, got %d", n)
	}
	if got := store.Get().AccessToken; got != "B" {
		t.Errorf("store access token = %q, want B", got)
	}
}

func TestOtherStatusesPassThrough(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"duplicate product name"}`, http.StatusConflict)
	}))
	defer server.Close()

	store := newTestStore(session.Session{AccessToken: "A", RefreshToken: "R"})
	client := NewClient(store, WithBaseURL(server.URL), WithLogger(testLogger()))

	_, err := client.CreateProduct(context.Background(), ProductInput{Name: "Widget"})
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Status != http.StatusConflict {
		t.Errorf("status = %d, want 409", apiErr.Status)
	}
	if apiErr.Message != "duplicate product name" {
		t.Errorf("message = %q", apiErr.Message)
	}

	// Business errors never touch the session.
	if !store.Get().Authenticated() {
		t.Error("session must survive a business error")
	}
}
