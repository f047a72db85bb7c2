package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"garage-backend/internal/apperr"
	"garage-backend/internal/auth"
	"garage-backend/internal/config"
	"garage-backend/internal/handlers"
	"garage-backend/internal/health"
	"garage-backend/internal/middleware"
	"garage-backend/internal/models"
	"garage-backend/internal/realtime"
	"garage-backend/internal/services"
	"garage-backend/internal/session"
)

// memStore is a tiny in-memory stand-in for every repository.
type memStore struct {
	mu       sync.Mutex
	seq      int
	clients  []*models.Client
	services []*models.Service
	events   []*models.Event
	profiles map[string]*models.Profile
	users    map[string]*models.User
	settings map[string]string
}

func newMemStore() *memStore {
	return &memStore{
		profiles: map[string]*models.Profile{},
		users:    map[string]*models.User{},
		settings: map[string]string{},
	}
}

func (m *memStore) id(prefix string) string {
	m.seq++
	return fmt.Sprintf("%s%d", prefix, m.seq)
}

type clientRepo struct{ *memStore }

func (r clientRepo) List(context.Context) ([]*models.Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*models.Client{}, r.clients...), nil
}

func (r clientRepo) Get(_ context.Context, id string) (*models.Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.clients {
		if c.ID == id {
			return c, nil
		}
	}
	return nil, apperr.ErrNotFound
}

func (r clientRepo) FindByPhone(_ context.Context, phone, excludeID string) ([]*models.Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Client
	for _, c := range r.clients {
		if c.Phone == phone && c.ID != excludeID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r clientRepo) Create(_ context.Context, c *models.Client) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c.ID = r.id("c")
	r.clients = append(r.clients, c)
	return nil
}

func (r clientRepo) Update(_ context.Context, c *models.Client) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, existing := range r.clients {
		if existing.ID == c.ID {
			r.clients[i] = c
			return nil
		}
	}
	return apperr.ErrNotFound
}

func (r clientRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, c := range r.clients {
		if c.ID == id {
			r.clients = append(r.clients[:i], r.clients[i+1:]...)
			return nil
		}
	}
	return apperr.ErrNotFound
}

type serviceRepo struct{ *memStore }

func (r serviceRepo) List(context.Context) ([]*models.Service, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*models.Service{}, r.services...), nil
}

func (r serviceRepo) ListActive(ctx context.Context) ([]*models.Service, error) {
	all, _ := r.List(ctx)
	var out []*models.Service
	for _, s := range all {
		if s.Active {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r serviceRepo) Get(_ context.Context, id string) (*models.Service, error) {
	return nil, apperr.ErrNotFound
}

func (r serviceRepo) Create(_ context.Context, s *models.Service) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s.ID = r.id("s")
	r.services = append(r.services, s)
	return nil
}

func (r serviceRepo) Update(context.Context, *models.Service) error { return nil }

func (r serviceRepo) Delete(context.Context, string) error { return nil }

type eventRepo struct{ *memStore }

func (r eventRepo) List(context.Context) ([]*models.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*models.Event{}, r.events...), nil
}

func (r eventRepo) Get(_ context.Context, id string) (*models.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.events {
		if e.ID == id {
			cp := *e
			return &cp, nil
		}
	}
	return nil, apperr.ErrNotFound
}

func (r eventRepo) CreateBooking(_ context.Context, newClient *models.Client, rows []*models.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if newClient != nil {
		newClient.ID = r.id("c")
		r.clients = append(r.clients, newClient)
	}
	for _, row := range rows {
		row.ID = r.id("e")
		cp := *row
		r.events = append(r.events, &cp)
	}
	return nil
}

func (r eventRepo) UpdateBooking(_ context.Context, newClient *models.Client, e *models.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, existing := range r.events {
		if existing.ID == e.ID {
			if newClient != nil {
				newClient.ID = r.id("c")
				r.clients = append(r.clients, newClient)
			}
			cp := *e
			cp.CreatedBy = existing.CreatedBy
			r.events[i] = &cp
			return nil
		}
	}
	return apperr.ErrNotFound
}

func (r eventRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, e := range r.events {
		if e.ID == id {
			r.events = append(r.events[:i], r.events[i+1:]...)
			return nil
		}
	}
	return apperr.ErrNotFound
}

type profileRepo struct{ *memStore }

func (r profileRepo) Get(_ context.Context, id string) (*models.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.profiles[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, apperr.ErrNotFound
}

func (r profileRepo) List(context.Context) ([]*models.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Profile
	for _, p := range r.profiles {
		out = append(out, p)
	}
	return out, nil
}

func (r profileRepo) Update(_ context.Context, id string, req *models.UpdateProfileRequest) (*models.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.profiles[id]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	if req.Role != nil {
		p.Role = *req.Role
	}
	if req.IsActive != nil {
		p.IsActive = *req.IsActive
	}
	if req.EmailNotification != nil {
		p.EmailNotification = *req.EmailNotification
	}
	return p, nil
}

func (r profileRepo) ListNotificationRecipients(context.Context) ([]*models.Profile, error) {
	return nil, nil
}

type userRepo struct{ *memStore }

func (r userRepo) CreateWithProfile(_ context.Context, u *models.User, p *models.Profile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if existing.Email == u.Email {
			return apperr.ErrDuplicateEmail
		}
	}
	u.ID = r.id("u")
	p.ID, p.Email = u.ID, u.Email
	r.users[u.ID] = u
	r.profiles[u.ID] = p
	return nil
}

func (r userRepo) GetByEmail(_ context.Context, email string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, apperr.ErrNotFound
}

func (r userRepo) Get(_ context.Context, id string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[id]; ok {
		return u, nil
	}
	return nil, apperr.ErrNotFound
}

func (r userRepo) SetTOTP(_ context.Context, id, secret string, enabled bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return apperr.ErrNotFound
	}
	u.TOTPSecret, u.TOTPEnabled = secret, enabled
	return nil
}

type settingRepo struct{ *memStore }

func (r settingRepo) Get(_ context.Context, key string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.settings[key]
	if !ok {
		return "", apperr.ErrNotFound
	}
	return v, nil
}

func (r settingRepo) SetIfAbsent(_ context.Context, key, value string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.settings[key]; ok {
		return false, nil
	}
	r.settings[key] = value
	return true, nil
}

type okPinger struct{}

func (okPinger) Ping(context.Context) error { return nil }

type testApp struct {
	srv   *httptest.Server
	store *memStore
	jwt   *auth.JWTManager
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	cfg := &config.Config{}
	cfg.JWT.Secret = "router-test"
	cfg.JWT.ExpirationHours = 1
	cfg.Business.NamePart1 = "Garaj"
	cfg.Business.NamePart2 = "Auto"

	store := newMemStore()
	jwtManager := auth.NewJWTManager(cfg)
	revoker := auth.NewMemoryRevoker()
	bus := realtime.NewLocalBus()
	pub := realtime.NewPublisher(bus)
	sessions := session.NewController(profileRepo{store}, time.Second)

	totpSvc := services.NewTOTPService(userRepo{store}, "Garage")
	authSvc := services.NewAuthService(userRepo{store}, profileRepo{store}, settingRepo{store}, jwtManager, revoker, nil, pub, totpSvc)
	if err := authSvc.SeedSignupCode(context.Background(), "CODE1"); err != nil {
		t.Fatal(err)
	}
	calendarSvc := services.NewCalendarService(eventRepo{store}, serviceRepo{store}, clientRepo{store})
	bookingSvc := services.NewBookingService(eventRepo{store}, clientRepo{store}, profileRepo{store}, pub, nil)

	authMW := middleware.NewAuthMiddleware(jwtManager, revoker, sessions)
	h := Handlers{
		Auth:     handlers.NewAuthHandler(authSvc),
		Session:  handlers.NewSessionHandler(sessions),
		TOTP:     handlers.NewTOTPHandler(totpSvc),
		Clients:  handlers.NewClientHandler(services.NewClientService(clientRepo{store}, pub)),
		Catalog:  handlers.NewCatalogHandler(services.NewCatalogService(serviceRepo{store}, pub)),
		Team:     handlers.NewTeamHandler(services.NewTeamService(profileRepo{store}, pub)),
		Calendar: handlers.NewCalendarHandler(calendarSvc, bookingSvc, "Garaj Auto"),
		AppInfo:  handlers.NewAppInfoHandler(cfg),
		Backup:   handlers.NewBackupHandler(nil),
		Health:   handlers.NewHealthHandler(health.NewHealthChecker(okPinger{}, nil)),
		Realtime: realtime.NewHandler(bus, authMW, sessions, map[string]realtime.Fetcher{}),
	}
	srv := httptest.NewServer(NewRouter(h, authMW))
	t.Cleanup(srv.Close)
	return &testApp{srv: srv, store: store, jwt: jwtManager}
}

// user creates an account directly in the store and returns its token.
func (a *testApp) user(t *testing.T, role string, active bool) string {
	t.Helper()
	a.store.mu.Lock()
	id := a.store.id("u")
	a.store.users[id] = &models.User{ID: id, Email: id + "@x.ro"}
	a.store.profiles[id] = &models.Profile{ID: id, Email: id + "@x.ro", Role: role, IsActive: active}
	a.store.mu.Unlock()
	token, err := a.jwt.GenerateToken(id, id+"@x.ro")
	if err != nil {
		t.Fatal(err)
	}
	return token
}

func (a *testApp) do(t *testing.T, method, path, token string, body interface{}) (*http.Response, map[string]interface{}) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req, _ := http.NewRequest(method, a.srv.URL+path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	var out map[string]interface{}
	if strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		json.NewDecoder(resp.Body).Decode(&out)
	}
	return resp, out
}

func TestSignupLoginFlow(t *testing.T) {
	app := newTestApp(t)

	resp, body := app.do(t, "POST", "/auth/check-signup-code", "", map[string]string{"code": "CODE1"})
	if resp.StatusCode != http.StatusOK || body["valid"] != true {
		t.Fatalf("check code: %d %v", resp.StatusCode, body)
	}

	resp, _ = app.do(t, "POST", "/auth/signup", "", models.SignupRequest{Email: "ana@x.ro", Password: "secret1", SignupCode: "bad"})
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("bad code status = %d", resp.StatusCode)
	}

	resp, body = app.do(t, "POST", "/auth/signup", "", models.SignupRequest{Email: "ana@x.ro", Password: "secret1", FullName: "Ana", SignupCode: "CODE1"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("signup status = %d %v", resp.StatusCode, body)
	}
	token, _ := body["token"].(string)

	// New accounts are pending: the session works, data routes do not.
	resp, body = app.do(t, "GET", "/api/session", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("session status = %d", resp.StatusCode)
	}
	sess := body["session"].(map[string]interface{})
	if sess["state"] != string(session.Inactive) {
		t.Errorf("state = %v", sess["state"])
	}
	resp, body = app.do(t, "GET", "/api/clients", token, nil)
	if resp.StatusCode != http.StatusForbidden || body["error"] != "account deactivated" {
		t.Errorf("inactive clients: %d %v", resp.StatusCode, body)
	}

	resp, body = app.do(t, "POST", "/auth/login", "", models.LoginRequest{Email: "ana@x.ro", Password: "secret1"})
	if resp.StatusCode != http.StatusOK || body["token"] == "" {
		t.Fatalf("login: %d %v", resp.StatusCode, body)
	}

	resp, _ = app.do(t, "POST", "/auth/logout", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("logout status = %d", resp.StatusCode)
	}
	resp, _ = app.do(t, "GET", "/api/session", token, nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("revoked token status = %d", resp.StatusCode)
	}
}

func TestClientsDuplicatePhone(t *testing.T) {
	app := newTestApp(t)
	token := app.user(t, models.RoleStaff, true)

	resp, _ := app.do(t, "POST", "/api/clients", token, models.ClientInput{Name: "Ion", Phone: "0711111111"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d", resp.StatusCode)
	}
	resp, body := app.do(t, "POST", "/api/clients", token, models.ClientInput{Name: "Alt", Phone: "0711111111"})
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("duplicate status = %d %v", resp.StatusCode, body)
	}
	resp, body = app.do(t, "POST", "/api/clients", token, models.ClientInput{Name: "Fara telefon"})
	if resp.StatusCode != http.StatusBadRequest || body["fields"] == nil {
		t.Errorf("missing phone: %d %v", resp.StatusCode, body)
	}
	if len(app.store.clients) != 1 {
		t.Errorf("clients = %d, want 1", len(app.store.clients))
	}
}

func TestCatalogAndTeamRoles(t *testing.T) {
	app := newTestApp(t)
	staff := app.user(t, models.RoleStaff, true)
	manager := app.user(t, models.RoleManager, true)
	admin := app.user(t, models.RoleAdmin, true)

	if resp, _ := app.do(t, "POST", "/api/services", staff, models.ServiceInput{Name: "Oil"}); resp.StatusCode != http.StatusForbidden {
		t.Errorf("staff create service = %d", resp.StatusCode)
	}
	if resp, _ := app.do(t, "POST", "/api/services", manager, models.ServiceInput{Name: "Oil"}); resp.StatusCode != http.StatusCreated {
		t.Errorf("manager create service = %d", resp.StatusCode)
	}
	if resp, _ := app.do(t, "GET", "/api/services", staff, nil); resp.StatusCode != http.StatusOK {
		t.Errorf("staff list services = %d", resp.StatusCode)
	}

	resp, body := app.do(t, "GET", "/api/profiles", manager, nil)
	if resp.StatusCode != http.StatusForbidden || body["error"] != services.ErrTeamAdminOnly.Error() {
		t.Errorf("manager team = %d %v", resp.StatusCode, body)
	}
	if resp, _ := app.do(t, "GET", "/api/profiles", admin, nil); resp.StatusCode != http.StatusOK {
		t.Errorf("admin team = %d", resp.StatusCode)
	}

	if resp, _ := app.do(t, "POST", "/api/admin/backup", manager, nil); resp.StatusCode != http.StatusForbidden {
		t.Errorf("manager backup = %d", resp.StatusCode)
	}
	if resp, _ := app.do(t, "POST", "/api/admin/backup", admin, nil); resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("unconfigured backup = %d", resp.StatusCode)
	}
}

func TestEventsAndCalendar(t *testing.T) {
	app := newTestApp(t)
	token := app.user(t, models.RoleStaff, true)

	resp, _ := app.do(t, "POST", "/api/events", token, models.EventInput{
		Date: "2024-03-02", StartTime: "09:00", Days: 3, CarInfo: "Golf",
		NewClient: &models.ClientInput{Name: "Maria", Phone: "0722222222"},
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create event status = %d", resp.StatusCode)
	}
	if len(app.store.events) != 3 || len(app.store.clients) != 1 {
		t.Fatalf("events=%d clients=%d", len(app.store.events), len(app.store.clients))
	}

	resp, _ = app.do(t, "POST", "/api/events", token, models.EventInput{
		Date: "2024-03-04", StartTime: "10:00",
		NewClient: &models.ClientInput{Name: "Alta", Phone: "0722222222"},
	})
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("duplicate inline client = %d", resp.StatusCode)
	}

	resp, _ = app.do(t, "GET", "/api/calendar?year=2024&month=3&day=2024-03-04", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("calendar status = %d", resp.StatusCode)
	}
	resp, _ = app.do(t, "GET", "/api/calendar?view=week", token, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("bad view status = %d", resp.StatusCode)
	}

	resp, _ = app.do(t, "GET", "/api/calendar/daysheet?day=2024-03-04", token, nil)
	if resp.StatusCode != http.StatusOK || resp.Header.Get("Content-Type") != "application/pdf" {
		t.Errorf("daysheet = %d %s", resp.StatusCode, resp.Header.Get("Content-Type"))
	}

	id := app.store.events[1].ID
	resp, _ = app.do(t, "DELETE", "/api/events/"+id, token, nil)
	if resp.StatusCode != http.StatusNoContent || len(app.store.events) != 2 {
		t.Errorf("delete = %d, remaining %d", resp.StatusCode, len(app.store.events))
	}
	resp, _ = app.do(t, "GET", "/api/events/"+id, token, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("deleted event = %d", resp.StatusCode)
	}
}

func TestPublicAndOps(t *testing.T) {
	app := newTestApp(t)

	resp, body := app.do(t, "GET", "/api/app-info", "", nil)
	if resp.StatusCode != http.StatusOK || body["name_part_1"] != "Garaj" {
		t.Errorf("app info = %d %v", resp.StatusCode, body)
	}
	for _, path := range []string{"/health", "/health/ready", "/metrics"} {
		if resp, _ := app.do(t, "GET", path, "", nil); resp.StatusCode != http.StatusOK {
			t.Errorf("%s = %d", path, resp.StatusCode)
		}
	}
	if resp, _ := app.do(t, "GET", "/api/clients", "", nil); resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("anonymous clients = %d", resp.StatusCode)
	}
}
