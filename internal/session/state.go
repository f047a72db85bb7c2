// Package session resolves who is signed in and what they may do.
//
// A session moves through a small state machine:
//
//	Unauthenticated -> Loading -> Active | Inactive
//	Active | Inactive | Loading -> Unauthenticated (logout)
//	Active | Inactive -> Loading (sign-in or token refresh re-fetch)
package session

import (
	"fmt"

	"garage-backend/internal/models"
)

type State string

const (
	Unauthenticated State = "unauthenticated"
	Loading         State = "loading"
	Active          State = "active"
	Inactive        State = "inactive"
)

var transitions = map[State][]State{
	Unauthenticated: {Loading},
	Loading:         {Active, Inactive, Unauthenticated},
	Active:          {Loading, Unauthenticated},
	Inactive:        {Loading, Unauthenticated},
}

// CanTransition reports whether from -> to is allowed.
func CanTransition(from, to State) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Session is the resolved view of the signed-in user.
type Session struct {
	State    State  `json:"state"`
	UserID   string `json:"user_id,omitempty"`
	Role     string `json:"role"`
	IsActive bool   `json:"is_active"`
	// FellBack is set when the profile could not be read in time and the
	// permissive defaults were applied.
	FellBack bool `json:"profile_fallback,omitempty"`
}

// Reset is the clean slate used before login and after logout.
func Reset() Session {
	return Session{State: Unauthenticated, Role: models.RoleStaff, IsActive: true}
}

// Machine tracks one session through its transitions.
type Machine struct {
	current Session
}

func NewMachine() *Machine {
	return &Machine{current: Reset()}
}

func (m *Machine) Current() Session {
	return m.current
}

func (m *Machine) move(to State) error {
	if !CanTransition(m.current.State, to) {
		return fmt.Errorf("session: illegal transition %s -> %s", m.current.State, to)
	}
	m.current.State = to
	return nil
}

// Begin records that a session exists for userID and a profile fetch is
// under way.
func (m *Machine) Begin(userID string) error {
	if err := m.move(Loading); err != nil {
		return err
	}
	m.current.UserID = userID
	return nil
}

// Settle applies a resolved profile outcome.
func (m *Machine) Settle(role string, active, fellBack bool) error {
	to := Active
	if !active {
		to = Inactive
	}
	if err := m.move(to); err != nil {
		return err
	}
	m.current.Role = role
	m.current.IsActive = active
	m.current.FellBack = fellBack
	return nil
}

// Logout returns the machine to the clean slate from any state.
func (m *Machine) Logout() Session {
	m.current = Reset()
	return m.current
}
