package services

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"garage-backend/internal/apperr"
	"garage-backend/internal/models"
)

type fakeClients struct {
	mu      sync.Mutex
	rows    []*models.Client
	writes  int
	nextID  int
	listErr error
}

func (f *fakeClients) List(context.Context) ([]*models.Client, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]*models.Client{}, f.rows...), nil
}

func (f *fakeClients) Get(_ context.Context, id string) (*models.Client, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.rows {
		if c.ID == id {
			return c, nil
		}
	}
	return nil, apperr.ErrNotFound
}

func (f *fakeClients) FindByPhone(_ context.Context, phone, excludeID string) ([]*models.Client, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Client
	for _, c := range f.rows {
		if c.Phone == phone && c.ID != excludeID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeClients) Create(_ context.Context, c *models.Client) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes++
	f.nextID++
	c.ID = fmt.Sprintf("c%d", f.nextID)
	f.rows = append(f.rows, c)
	return nil
}

func (f *fakeClients) Update(_ context.Context, c *models.Client) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes++
	for i, existing := range f.rows {
		if existing.ID == c.ID {
			f.rows[i] = c
			return nil
		}
	}
	return apperr.ErrNotFound
}

func (f *fakeClients) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes++
	for i, c := range f.rows {
		if c.ID == id {
			f.rows = append(f.rows[:i], f.rows[i+1:]...)
			return nil
		}
	}
	return apperr.ErrNotFound
}

type fakeServices struct {
	rows   []*models.Service
	writes int
}

func (f *fakeServices) List(context.Context) ([]*models.Service, error) { return f.rows, nil }

func (f *fakeServices) ListActive(context.Context) ([]*models.Service, error) {
	var out []*models.Service
	for _, s := range f.rows {
		if s.Active {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeServices) Get(_ context.Context, id string) (*models.Service, error) {
	for _, s := range f.rows {
		if s.ID == id {
			return s, nil
		}
	}
	return nil, apperr.ErrNotFound
}

func (f *fakeServices) Create(_ context.Context, s *models.Service) error {
	f.writes++
	s.ID = fmt.Sprintf("s%d", len(f.rows)+1)
	f.rows = append(f.rows, s)
	return nil
}

func (f *fakeServices) Update(context.Context, *models.Service) error {
	f.writes++
	return nil
}

func (f *fakeServices) Delete(context.Context, string) error {
	f.writes++
	return nil
}

type fakeEvents struct {
	mu        sync.Mutex
	rows      []*models.Event
	nextID    int
	updates   int
	updateErr error
}

func (f *fakeEvents) List(context.Context) ([]*models.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := append([]*models.Event{}, f.rows...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].EventDate != out[j].EventDate {
			return out[i].EventDate < out[j].EventDate
		}
		return out[i].StartTime < out[j].StartTime
	})
	return out, nil
}

func (f *fakeEvents) Get(_ context.Context, id string) (*models.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range f.rows {
		if e.ID == id {
			cp := *e
			return &cp, nil
		}
	}
	return nil, apperr.ErrNotFound
}

func (f *fakeEvents) CreateBooking(ctx context.Context, newClient *models.Client, rows []*models.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if newClient != nil {
		newClient.ID = "inline"
	}
	for _, r := range rows {
		f.nextID++
		r.ID = fmt.Sprintf("e%d", f.nextID)
		cp := *r
		f.rows = append(f.rows, &cp)
	}
	return nil
}

// UpdateBooking mirrors the repository: created_by is never written and
// a failure leaves neither the client nor the row changed.
func (f *fakeEvents) UpdateBooking(_ context.Context, newClient *models.Client, e *models.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return f.updateErr
	}
	for i, existing := range f.rows {
		if existing.ID == e.ID {
			f.updates++
			if newClient != nil {
				newClient.ID = "inline"
			}
			cp := *e
			cp.CreatedBy = existing.CreatedBy
			f.rows[i] = &cp
			return nil
		}
	}
	return apperr.ErrNotFound
}

func (f *fakeEvents) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, e := range f.rows {
		if e.ID == id {
			f.rows = append(f.rows[:i], f.rows[i+1:]...)
			return nil
		}
	}
	return apperr.ErrNotFound
}

type fakeProfiles struct {
	rows      []*models.Profile
	updateErr error
}

func (f *fakeProfiles) Get(_ context.Context, id string) (*models.Profile, error) {
	for _, p := range f.rows {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, apperr.ErrNotFound
}

func (f *fakeProfiles) List(context.Context) ([]*models.Profile, error) { return f.rows, nil }

func (f *fakeProfiles) Update(_ context.Context, id string, req *models.UpdateProfileRequest) (*models.Profile, error) {
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	for _, p := range f.rows {
		if p.ID == id {
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
	}
	return nil, apperr.ErrNotFound
}

func (f *fakeProfiles) ListNotificationRecipients(context.Context) ([]*models.Profile, error) {
	var out []*models.Profile
	for _, p := range f.rows {
		if p.IsActive && p.EmailNotification {
			out = append(out, p)
		}
	}
	return out, nil
}

type fakeUsers struct {
	byID     map[string]*models.User
	profiles *fakeProfiles
}

func newFakeUsers(profiles *fakeProfiles) *fakeUsers {
	return &fakeUsers{byID: map[string]*models.User{}, profiles: profiles}
}

func (f *fakeUsers) CreateWithProfile(_ context.Context, u *models.User, p *models.Profile) error {
	for _, existing := range f.byID {
		if existing.Email == u.Email {
			return apperr.ErrDuplicateEmail
		}
	}
	u.ID = fmt.Sprintf("u%d", len(f.byID)+1)
	p.ID = u.ID
	p.Email = u.Email
	f.byID[u.ID] = u
	if f.profiles != nil {
		f.profiles.rows = append(f.profiles.rows, p)
	}
	return nil
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (*models.User, error) {
	for _, u := range f.byID {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, apperr.ErrNotFound
}

func (f *fakeUsers) Get(_ context.Context, id string) (*models.User, error) {
	if u, ok := f.byID[id]; ok {
		return u, nil
	}
	return nil, apperr.ErrNotFound
}

func (f *fakeUsers) SetTOTP(_ context.Context, id, secret string, enabled bool) error {
	u, ok := f.byID[id]
	if !ok {
		return apperr.ErrNotFound
	}
	u.TOTPSecret = secret
	u.TOTPEnabled = enabled
	return nil
}

type fakeSettings struct {
	values map[string]string
}

func (f *fakeSettings) Get(_ context.Context, key string) (string, error) {
	v, ok := f.values[key]
	if !ok {
		return "", apperr.ErrNotFound
	}
	return v, nil
}

func (f *fakeSettings) SetIfAbsent(_ context.Context, key, value string) (bool, error) {
	if f.values == nil {
		f.values = map[string]string{}
	}
	if _, ok := f.values[key]; ok {
		return false, nil
	}
	f.values[key] = value
	return true, nil
}

type recordedChange struct {
	table, kind, id string
}

type recordingPublisher struct {
	mu      sync.Mutex
	changes []recordedChange
	auth    []string
}

func (p *recordingPublisher) Changed(_ context.Context, table, changeType, id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.changes = append(p.changes, recordedChange{table, changeType, id})
}

func (p *recordingPublisher) AuthEvent(_ context.Context, eventType, userID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.auth = append(p.auth, eventType+":"+userID)
}

type recordingNotifier struct {
	recipients int
	rows       int
}

func (n *recordingNotifier) AppointmentCreated(_ context.Context, recipients []*models.Profile, rows []*models.Event) {
	n.recipients += len(recipients)
	n.rows += len(rows)
}

type denyLimiter struct{}

func (denyLimiter) Allow(context.Context, string) bool { return false }
