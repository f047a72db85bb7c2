package services

import (
	"context"
	"errors"
	"log"
	"strings"

	"garage-backend/internal/apperr"
	"garage-backend/internal/models"
	"garage-backend/internal/realtime"
	"garage-backend/internal/session"
)

// ErrTeamAdminOnly is returned to non-admins opening the team page.
var ErrTeamAdminOnly = errors.New("only administrators can manage the team")

// Team groups profiles awaiting activation apart from active ones.
type Team struct {
	Pending []*models.Profile `json:"pending"`
	Active  []*models.Profile `json:"active"`
}

// UpdateFailure carries the freshly re-fetched team alongside the error
// so the caller can drop its optimistic state.
type UpdateFailure struct {
	Err  error
	Team *Team
}

func (e *UpdateFailure) Error() string { return e.Err.Error() }

func (e *UpdateFailure) Unwrap() error { return e.Err }

// TeamService is the admin-only employees page.
type TeamService struct {
	store     ProfileStore
	publisher ChangePublisher
}

func NewTeamService(store ProfileStore, publisher ChangePublisher) *TeamService {
	if publisher == nil {
		publisher = nopPublisher{}
	}
	return &TeamService{store: store, publisher: publisher}
}

// List returns profiles newest first, filtered by name or email, split
// into pending and active groups.
func (s *TeamService) List(ctx context.Context, actor Actor, q string) (*Team, error) {
	if !session.CanManageTeam(actor.Role) {
		return nil, ErrTeamAdminOnly
	}
	return s.fetch(ctx, q)
}

// Update applies a partial role/active/notification change.
func (s *TeamService) Update(ctx context.Context, actor Actor, id string, req models.UpdateProfileRequest) (*models.Profile, error) {
	if !session.CanManageTeam(actor.Role) {
		return nil, ErrTeamAdminOnly
	}
	if req.Role != nil && !models.ValidRole(*req.Role) {
		return nil, apperr.Invalid("role", "must be staff, manager or admin")
	}

	p, err := s.store.Update(ctx, id, &req)
	if err != nil {
		log.Printf("[Team] update %s failed: %v", id, err)
		team, ferr := s.fetch(ctx, "")
		if ferr != nil {
			return nil, err
		}
		return nil, &UpdateFailure{Err: err, Team: team}
	}
	s.publisher.Changed(ctx, realtime.TableProfiles, realtime.Update, id)
	return p, nil
}

func (s *TeamService) fetch(ctx context.Context, q string) (*Team, error) {
	profiles, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}
	q = strings.ToLower(strings.TrimSpace(q))
	team := &Team{Pending: []*models.Profile{}, Active: []*models.Profile{}}
	for _, p := range profiles {
		if q != "" && !strings.Contains(strings.ToLower(p.FullName), q) && !strings.Contains(strings.ToLower(p.Email), q) {
			continue
		}
		if p.IsActive {
			team.Active = append(team.Active, p)
		} else {
			team.Pending = append(team.Pending, p)
		}
	}
	return team, nil
}
