package realtime

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gorilla/websocket"

	"garage-backend/internal/cache"
	"garage-backend/internal/models"
	"garage-backend/internal/session"
)

type queryIdentifier struct{}

func (queryIdentifier) UserIDFromRequest(r *http.Request) (string, error) {
	if tok := r.URL.Query().Get("access_token"); tok != "" {
		return tok, nil
	}
	return "", errors.New("missing token")
}

type stubProfiles struct {
	active atomic.Bool
}

func (s *stubProfiles) Get(ctx context.Context, id string) (*models.Profile, error) {
	return &models.Profile{ID: id, Role: models.RoleManager, IsActive: s.active.Load()}, nil
}

func newTestServer(t *testing.T) (*httptest.Server, *Publisher, *stubProfiles, *atomic.Int32) {
	t.Helper()
	bus := NewLocalBus()
	profiles := &stubProfiles{}
	profiles.active.Store(true)
	fetches := &atomic.Int32{}
	fetchers := map[string]Fetcher{
		TableClients: func(ctx context.Context) (interface{}, error) {
			n := fetches.Add(1)
			return []map[string]interface{}{{"id": "c1", "fetch": n}}, nil
		},
		TableProfiles: func(ctx context.Context) (interface{}, error) {
			return []map[string]interface{}{}, nil
		},
	}
	h := NewHandler(bus, queryIdentifier{}, session.NewController(profiles, time.Second), fetchers)
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return srv, NewPublisher(bus), profiles, fetches
}

func dial(t *testing.T, srv *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?" + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg Message
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read: %v", err)
	}
	return msg
}

func TestTableFeedWithSnapshot(t *testing.T) {
	srv, pub, _, fetches := newTestServer(t)
	conn := dial(t, srv, "table=clients&snapshot=1&access_token=u1")

	first := readMessage(t, conn)
	if first.Type != "snapshot" || first.Table != TableClients || !strings.Contains(string(first.Rows), `"c1"`) {
		t.Fatalf("expected initial snapshot, got %+v", first)
	}

	pub.Changed(context.Background(), TableClients, Insert, "c2")

	change := readMessage(t, conn)
	if change.Type != "change" || change.Change == nil || change.Change.ID != "c2" || change.Change.Type != Insert {
		t.Fatalf("expected change notification, got %+v", change)
	}
	refetch := readMessage(t, conn)
	if refetch.Type != "snapshot" {
		t.Fatalf("expected full refetch after change, got %+v", refetch)
	}
	if fetches.Load() != 2 {
		t.Fatalf("expected two full fetches, got %d", fetches.Load())
	}
}

func TestSnapshotAfterChangeRefetchesWhileFetchInFlight(t *testing.T) {
	mr := miniredis.RunT(t)
	if err := cache.Init(mr.Addr(), "", 0); err != nil {
		t.Fatalf("cache init: %v", err)
	}
	defer cache.Close()

	started := make(chan struct{})
	release := make(chan struct{})
	calls := &atomic.Int32{}
	fetchers := map[string]Fetcher{
		TableClients: func(ctx context.Context) (interface{}, error) {
			if calls.Add(1) == 1 {
				close(started)
				<-release
				return []string{"old"}, nil
			}
			return []string{"new"}, nil
		},
	}
	profiles := &stubProfiles{}
	profiles.active.Store(true)
	bus := NewLocalBus()
	srv := httptest.NewServer(NewHandler(bus, queryIdentifier{}, session.NewController(profiles, time.Second), fetchers))
	t.Cleanup(srv.Close)
	pub := NewPublisher(bus)

	conn := dial(t, srv, "table=clients&snapshot=1&access_token=u1")

	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatal("initial snapshot fetch never started")
	}
	pub.Changed(context.Background(), TableClients, Insert, "c2")
	close(release)

	initial := readMessage(t, conn)
	if initial.Type != "snapshot" || string(initial.Rows) != `["old"]` {
		t.Fatalf("expected initial snapshot, got %+v", initial)
	}
	change := readMessage(t, conn)
	if change.Type != "change" {
		t.Fatalf("expected change notification, got %+v", change)
	}
	refetch := readMessage(t, conn)
	if refetch.Type != "snapshot" || string(refetch.Rows) != `["new"]` {
		t.Fatalf("snapshot after the change must be re-read, got %s", refetch.Rows)
	}
	if calls.Load() != 2 {
		t.Fatalf("expected two fetches, got %d", calls.Load())
	}
}

func TestFeedRejectsUnknownTableAndMissingToken(t *testing.T) {
	srv, _, _, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/?table=clients")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", resp.StatusCode)
	}

	resp, err = http.Get(srv.URL + "/?table=invoices&access_token=u1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown table, got %d", resp.StatusCode)
	}
}

func TestFeedRejectsDeactivatedAndNonAdmin(t *testing.T) {
	srv, _, profiles, _ := newTestServer(t)

	// stub profiles are managers
	resp, err := http.Get(srv.URL + "/?table=profiles&access_token=u1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 for profiles feed, got %d", resp.StatusCode)
	}

	profiles.active.Store(false)
	resp, err = http.Get(srv.URL + "/?table=clients&access_token=u1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 for deactivated account, got %d", resp.StatusCode)
	}
}

func TestAuthStream(t *testing.T) {
	srv, pub, profiles, _ := newTestServer(t)
	conn := dial(t, srv, "table=auth&access_token=u1")

	initial := readMessage(t, conn)
	if initial.Type != "session" || initial.Session.State != session.Active || initial.Session.Role != models.RoleManager {
		t.Fatalf("unexpected initial session %+v", initial.Session)
	}

	profiles.active.Store(false)
	pub.AuthEvent(context.Background(), session.EventTokenRefreshed, "u1")
	refreshed := readMessage(t, conn)
	if refreshed.Session.State != session.Inactive {
		t.Fatalf("token refresh must re-fetch the profile, got %+v", refreshed.Session)
	}
	if refreshed.Navigation == nil || len(refreshed.Navigation.Actions) != 1 || refreshed.Navigation.Actions[0] != "logout" {
		t.Fatalf("inactive session only offers logout, got %+v", refreshed.Navigation)
	}

	pub.AuthEvent(context.Background(), session.EventSignedOut, "u1")
	out := readMessage(t, conn)
	if out.Session.State != session.Unauthenticated || out.Session.Role != models.RoleStaff || !out.Session.IsActive {
		t.Fatalf("sign out resets the session, got %+v", out.Session)
	}
}
