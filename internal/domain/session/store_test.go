package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// mockPersister is a simple in-memory persister for testing.
type mockPersister struct {
	mu      sync.Mutex
	stored  *Session
	saveErr error
	loadErr error
	saves   int
	clears  int
}

func (m *mockPersister) Load() (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	if m.stored == nil {
		return nil, nil
	}
	copy := *m.stored
	return &copy, nil
}

func (m *mockPersister) Save(s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
	if m.saveErr != nil {
		return m.saveErr
	}
	copy := *s
	m.stored = &copy
	return nil
}

func (m *mockPersister) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clears++
	if m.saveErr != nil {
		return m.saveErr
	}
	m.stored = nil
	return nil
}

func TestStoreGetReflectsLastWrite(t *testing.T) {
	store := NewStore(&mockPersister{}, nil)

	first := Session{AccessToken: "A", RefreshToken: "R", User: &User{ID: "1", Email: "a@x.com", Role: RoleAdmin}}
	second := Session{AccessToken: "B", RefreshToken: "R", User: &User{ID: "1", Email: "a@x.com", Role: RoleAdmin}}

	store.Set(first)
	if got := store.Get(); got.AccessToken != "A" {
		t.Fatalf("expected token A, got %q", got.AccessToken)
	}

	store.Set(second)
	if got := store.Get(); got.AccessToken != "B" {
		t.Fatalf("expected token B, got %q", got.AccessToken)
	}

	store.Clear()
	got := store.Get()
	if got.Authenticated() || got.RefreshToken != "" || got.User != nil {
		t.Fatalf("expected empty session after clear, got %+v", got)
	}
}

func TestStoreSetNormalizesTokenlessSession(t *testing.T) {
	store := NewStore(&mockPersister{}, nil)

	// No access token: user and refresh token must be dropped.
	store.Set(Session{RefreshToken: "R", User: &User{ID: "1"}})

	got := store.Get()
	if got.User != nil {
		t.Errorf("expected no user without access token, got %+v", got.User)
	}
	if got.RefreshToken != "" {
		t.Errorf("expected no refresh token without access token, got %q", got.RefreshToken)
	}
}

func TestStoreWritesThroughToPersister(t *testing.T) {
	p := &mockPersister{}
	store := NewStore(p, nil)

	store.Set(Session{AccessToken: "A"})
	if p.saves != 1 {
		t.Fatalf("expected 1 save, got %d", p.saves)
	}
	if p.stored == nil || p.stored.AccessToken != "A" {
		t.Fatalf("persisted session mismatch: %+v", p.stored)
	}

	store.Clear()
	if p.clears != 1 {
		t.Fatalf("expected 1 clear, got %d", p.clears)
	}
	if p.stored != nil {
		t.Fatalf("expected persisted session removed, got %+v", p.stored)
	}
}

func TestStorePersistenceFailureIsNonFatal(t *testing.T) {
	p := &mockPersister{saveErr: errors.New("disk full")}
	store := NewStore(p, nil)

	store.Set(Session{AccessToken: "A"})

	// In-memory update must survive the failed write.
	if got := store.Get(); got.AccessToken != "A" {
		t.Fatalf("expected in-memory token A despite persist failure, got %q", got.AccessToken)
	}

	store.Clear()
	if store.Get().Authenticated() {
		t.Fatal("expected cleared in-memory session despite persist failure")
	}
}

func TestStoreHydration(t *testing.T) {
	p := &mockPersister{stored: &Session{AccessToken: "A", RefreshToken: "R"}}
	store := NewStore(p, nil)

	if store.Hydrated() {
		t.Fatal("store should not report hydrated before Hydrate")
	}
	select {
	case <-store.HydrationDone():
		t.Fatal("hydration channel closed before Hydrate")
	default:
	}

	go store.Hydrate(context.Background())

	select {
	case <-store.HydrationDone():
	case <-time.After(time.Second):
		t.Fatal("hydration did not complete")
	}

	if !store.Hydrated() {
		t.Fatal("store should report hydrated")
	}
	if got := store.Get(); got.AccessToken != "A" || got.RefreshToken != "R" {
		t.Fatalf("expected hydrated session, got %+v", got)
	}
}

func TestStoreHydrationLoadFailureStillCompletes(t *testing.T) {
	p := &mockPersister{loadErr: errors.New("corrupt file")}
	store := NewStore(p, nil)

	store.Hydrate(context.Background())

	if !store.Hydrated() {
		t.Fatal("hydration must complete even when load fails")
	}
	if store.Get().Authenticated() {
		t.Fatal("expected empty session after failed load")
	}
}

func TestStoreHydrationDoesNotClobberLogin(t *testing.T) {
	p := &mockPersister{stored: &Session{AccessToken: "stale"}}
	store := NewStore(p, nil)

	// Login lands before the disk read finishes.
	store.Set(Session{AccessToken: "fresh"})
	store.Hydrate(context.Background())

	if got := store.Get(); got.AccessToken != "fresh" {
		t.Fatalf("hydration overwrote a live login: got %q", got.AccessToken)
	}
}

func TestRoleIn(t *testing.T) {
	tests := []struct {
		name string
		role Role
		set  []Role
		want bool
	}{
		{name: "member", role: RoleAdmin, set: []Role{RoleAdmin, RoleOperator}, want: true},
		{name: "not member", role: RoleViewer, set: []Role{RoleAdmin}, want: false},
		{name: "empty set permits all", role: RoleViewer, set: nil, want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.role.In(tt.set); got != tt.want {
				t.Errorf("Role(%q).In(%v) = %v, want %v", tt.role, tt.set, got, tt.want)
			}
		})
	}
}

func TestRoleIsValid(t *testing.T) {
	for _, r := range []Role{RoleAdmin, RoleOperator, RoleViewer} {
		if !r.IsValid() {
			t.Errorf("expected %q to be valid", r)
		}
	}
	if Role("superuser").IsValid() {
		t.Error("unknown role reported valid")
	}
}
