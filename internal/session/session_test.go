package session

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"garage-backend/internal/apperr"
	"garage-backend/internal/models"
)

type fakeProfiles struct {
	profile *models.Profile
	err     error
	block   chan struct{}
	calls   atomic.Int32
}

func (f *fakeProfiles) Get(ctx context.Context, id string) (*models.Profile, error) {
	f.calls.Add(1)
	if f.block != nil {
		<-f.block
	}
	return f.profile, f.err
}

func TestResolveActiveProfile(t *testing.T) {
	c := NewController(&fakeProfiles{profile: &models.Profile{ID: "u1", Role: models.RoleAdmin, IsActive: true}}, time.Second)
	s := c.Resolve(context.Background(), "u1")
	if s.State != Active || s.Role != models.RoleAdmin || !s.IsActive || s.FellBack {
		t.Fatalf("unexpected session %+v", s)
	}
}

func TestResolveInactiveProfile(t *testing.T) {
	c := NewController(&fakeProfiles{profile: &models.Profile{ID: "u1", Role: models.RoleAdmin, IsActive: false}}, time.Second)
	s := c.Resolve(context.Background(), "u1")
	if s.State != Inactive || s.IsActive {
		t.Fatalf("expected inactive session, got %+v", s)
	}
	nav := NavigationFor(s)
	if len(nav.Pages) != 0 || len(nav.Actions) != 1 || nav.Actions[0] != "logout" {
		t.Fatalf("inactive admin must only see logout, got %+v", nav)
	}
}

func TestResolveTimeoutFailsOpen(t *testing.T) {
	block := make(chan struct{})
	defer close(block)
	fallbacks := 0
	c := NewController(&fakeProfiles{
		profile: &models.Profile{Role: models.RoleAdmin, IsActive: false},
		block:   block,
	}, 30*time.Millisecond)
	c.OnFallback(func() { fallbacks++ })

	start := time.Now()
	s := c.Resolve(context.Background(), "u1")
	if time.Since(start) > time.Second {
		t.Fatalf("resolve did not honour the timeout")
	}
	if s.State != Active || s.Role != models.RoleStaff || !s.IsActive || !s.FellBack {
		t.Fatalf("expected staff/active fallback, got %+v", s)
	}
	if fallbacks != 1 {
		t.Fatalf("expected one fallback, got %d", fallbacks)
	}
}

func TestResolveErrorFailsOpen(t *testing.T) {
	c := NewController(&fakeProfiles{err: errors.New("connection reset")}, time.Second)
	s := c.Resolve(context.Background(), "u1")
	if s.State != Active || s.Role != models.RoleStaff || !s.FellBack {
		t.Fatalf("expected fallback, got %+v", s)
	}
}

func TestResolveMissingProfileUsesDefaults(t *testing.T) {
	c := NewController(&fakeProfiles{err: apperr.ErrNotFound}, time.Second)
	s := c.Resolve(context.Background(), "u1")
	if s.State != Active || s.Role != models.RoleStaff || s.FellBack {
		t.Fatalf("expected plain defaults, got %+v", s)
	}
}

func TestMachineTransitions(t *testing.T) {
	m := NewMachine()
	if err := m.Settle(models.RoleStaff, true, false); err == nil {
		t.Fatalf("settling without a session must fail")
	}
	if err := m.Begin("u1"); err != nil {
		t.Fatalf("begin: %v", err)
	}
	if err := m.Begin("u1"); err == nil {
		t.Fatalf("loading -> loading must fail")
	}
	if err := m.Settle(models.RoleManager, true, false); err != nil {
		t.Fatalf("settle: %v", err)
	}
	if got := m.Logout(); got != Reset() {
		t.Fatalf("logout must reset, got %+v", got)
	}
	if !CanTransition(Inactive, Unauthenticated) || CanTransition(Unauthenticated, Active) {
		t.Fatalf("transition table mismatch")
	}
}

func TestResolveFollowsTransitionTable(t *testing.T) {
	cases := []struct {
		name     string
		profiles *fakeProfiles
		want     State
	}{
		{"active", &fakeProfiles{profile: &models.Profile{Role: models.RoleStaff, IsActive: true}}, Active},
		{"inactive", &fakeProfiles{profile: &models.Profile{Role: models.RoleStaff}}, Inactive},
		{"error", &fakeProfiles{err: errors.New("down")}, Active},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if !CanTransition(Reset().State, Loading) || !CanTransition(Loading, tc.want) {
				t.Fatalf("resolve path %s is not in the transition table", tc.want)
			}
			s := NewController(tc.profiles, time.Second).Resolve(context.Background(), "u7")
			if s.State != tc.want || s.UserID != "u7" {
				t.Fatalf("got %+v, want state %s for u7", s, tc.want)
			}
		})
	}
}

func TestHandleAuthEvent(t *testing.T) {
	profiles := &fakeProfiles{profile: &models.Profile{Role: models.RoleManager, IsActive: true}}
	c := NewController(profiles, time.Second)
	m := NewMachine()
	ctx := context.Background()

	s, err := c.HandleAuthEvent(ctx, m, AuthEvent{Type: EventSignedIn, UserID: "u1"})
	if err != nil || s.State != Active || s.Role != models.RoleManager {
		t.Fatalf("sign in: %+v %v", s, err)
	}

	profiles.profile = &models.Profile{Role: models.RoleManager, IsActive: false}
	s, err = c.HandleAuthEvent(ctx, m, AuthEvent{Type: EventTokenRefreshed, UserID: "u1"})
	if err != nil || s.State != Inactive {
		t.Fatalf("refresh should re-fetch and deactivate: %+v %v", s, err)
	}
	if profiles.calls.Load() != 2 {
		t.Fatalf("expected two profile fetches, got %d", profiles.calls.Load())
	}

	s, _ = c.HandleAuthEvent(ctx, m, AuthEvent{Type: EventSignedOut, UserID: "u1"})
	if s.State != Unauthenticated || s.Role != models.RoleStaff || !s.IsActive {
		t.Fatalf("sign out must reset to staff/active, got %+v", s)
	}
}

func TestNavigationByRole(t *testing.T) {
	cases := []struct {
		role      string
		services  Access
		employees Access
	}{
		{models.RoleStaff, AccessView, AccessNone},
		{models.RoleManager, AccessManage, AccessNone},
		{models.RoleAdmin, AccessManage, AccessManage},
	}
	for _, tc := range cases {
		nav := NavigationFor(Session{State: Active, Role: tc.role, IsActive: true})
		got := map[string]Access{}
		for _, p := range nav.Pages {
			got[p.Page] = p.Access
		}
		if got[PageClients] != AccessManage || got[PageCalendar] != AccessManage {
			t.Fatalf("%s: clients and calendar are open to every role", tc.role)
		}
		if got[PageServices] != tc.services || got[PageEmployees] != tc.employees {
			t.Fatalf("%s: unexpected access %+v", tc.role, got)
		}
	}
}
