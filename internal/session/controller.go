package session

import (
	"context"
	"errors"
	"log"
	"time"

	"garage-backend/internal/apperr"
	"garage-backend/internal/models"
)

// DefaultProfileTimeout bounds the profile fetch before failing open.
const DefaultProfileTimeout = 3 * time.Second

// ProfileFetcher loads a profile by user id.
type ProfileFetcher interface {
	Get(ctx context.Context, id string) (*models.Profile, error)
}

// Auth-state events, as emitted by the auth endpoints.
const (
	EventSignedIn       = "SIGNED_IN"
	EventTokenRefreshed = "TOKEN_REFRESHED"
	EventSignedOut      = "SIGNED_OUT"
)

// AuthEvent is one auth-state change for a user.
type AuthEvent struct {
	Type   string    `json:"type"`
	UserID string    `json:"user_id"`
	At     time.Time `json:"at"`
}

// Controller resolves sessions from profiles.
type Controller struct {
	profiles   ProfileFetcher
	timeout    time.Duration
	onFallback func()
}

func NewController(profiles ProfileFetcher, timeout time.Duration) *Controller {
	if timeout <= 0 {
		timeout = DefaultProfileTimeout
	}
	return &Controller{profiles: profiles, timeout: timeout}
}

// OnFallback registers a hook called each time the permissive defaults
// are applied.
func (c *Controller) OnFallback(fn func()) {
	c.onFallback = fn
}

type fetchResult struct {
	profile *models.Profile
	err     error
}

// Resolve fetches the profile for userID racing a timer. A timeout or a
// fetch error yields role staff and active true. The fetch keeps running
// after a timeout and its late result is dropped.
func (c *Controller) Resolve(ctx context.Context, userID string) Session {
	// A fresh machine always allows Unauthenticated -> Loading -> Active|Inactive.
	m := NewMachine()
	if err := m.Begin(userID); err != nil {
		log.Printf("[Session] %v", err)
	}

	role, active, fellBack := c.fetch(ctx, userID)
	if err := m.Settle(role, active, fellBack); err != nil {
		log.Printf("[Session] %v", err)
	}
	return m.Current()
}

// HandleAuthEvent advances m for an auth-state change. Sign-in and token
// refresh re-run the profile fetch; sign-out resets.
func (c *Controller) HandleAuthEvent(ctx context.Context, m *Machine, ev AuthEvent) (Session, error) {
	switch ev.Type {
	case EventSignedIn, EventTokenRefreshed:
		if m.Current().State == Loading {
			m.current.UserID = ev.UserID
		} else if err := m.Begin(ev.UserID); err != nil {
			return m.Current(), err
		}
		role, active, fellBack := c.fetch(ctx, ev.UserID)
		if err := m.Settle(role, active, fellBack); err != nil {
			return m.Current(), err
		}
		return m.Current(), nil
	case EventSignedOut:
		return m.Logout(), nil
	}
	return m.Current(), nil
}

func (c *Controller) fetch(ctx context.Context, userID string) (role string, active, fellBack bool) {
	results := make(chan fetchResult, 1)
	fetchCtx := context.WithoutCancel(ctx)
	go func() {
		p, err := c.profiles.Get(fetchCtx, userID)
		results <- fetchResult{profile: p, err: err}
	}()

	timer := time.NewTimer(c.timeout)
	defer timer.Stop()

	select {
	case res := <-results:
		if errors.Is(res.err, apperr.ErrNotFound) || (res.err == nil && res.profile == nil) {
			return models.RoleStaff, true, false
		}
		if res.err != nil {
			log.Printf("[Session] Profile fetch failed for %s, using defaults: %v", userID, res.err)
			return c.fallback()
		}
		role := res.profile.Role
		if !models.ValidRole(role) {
			role = models.RoleStaff
		}
		return role, res.profile.IsActive, false
	case <-timer.C:
		log.Printf("[Session] Profile fetch for %s exceeded %v, using defaults", userID, c.timeout)
		return c.fallback()
	case <-ctx.Done():
		return c.fallback()
	}
}

func (c *Controller) fallback() (string, bool, bool) {
	if c.onFallback != nil {
		c.onFallback()
	}
	return models.RoleStaff, true, true
}
