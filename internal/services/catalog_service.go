package services

import (
	"context"
	"log"
	"regexp"
	"strings"

	"garage-backend/internal/apperr"
	"garage-backend/internal/models"
	"garage-backend/internal/realtime"
	"garage-backend/internal/session"
)

var hexColor = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

// CatalogService manages the service catalog. Everyone may read it;
// only admins and managers may change it.
type CatalogService struct {
	store     ServiceStore
	publisher ChangePublisher
}

func NewCatalogService(store ServiceStore, publisher ChangePublisher) *CatalogService {
	if publisher == nil {
		publisher = nopPublisher{}
	}
	return &CatalogService{store: store, publisher: publisher}
}

// List returns the catalog oldest first, or only active services ordered
// by name when activeOnly is set. q filters by name.
func (s *CatalogService) List(ctx context.Context, q string, activeOnly bool) ([]*models.Service, error) {
	var (
		list []*models.Service
		err  error
	)
	if activeOnly {
		list, err = s.store.ListActive(ctx)
	} else {
		list, err = s.store.List(ctx)
	}
	if err != nil {
		return nil, err
	}

	q = strings.ToLower(strings.TrimSpace(q))
	if q == "" {
		return list, nil
	}
	out := make([]*models.Service, 0, len(list))
	for _, svc := range list {
		if strings.Contains(strings.ToLower(svc.Name), q) {
			out = append(out, svc)
		}
	}
	return out, nil
}

func (s *CatalogService) Create(ctx context.Context, actor Actor, in models.ServiceInput) (*models.Service, error) {
	if !session.CanManageServices(actor.Role) {
		return nil, apperr.ErrForbidden
	}
	svc, err := buildService(in)
	if err != nil {
		return nil, err
	}
	if err := s.store.Create(ctx, svc); err != nil {
		log.Printf("[Catalog] create failed: %v", err)
		return nil, err
	}
	s.publisher.Changed(ctx, realtime.TableServices, realtime.Insert, svc.ID)
	return svc, nil
}

func (s *CatalogService) Update(ctx context.Context, actor Actor, id string, in models.ServiceInput) (*models.Service, error) {
	if !session.CanManageServices(actor.Role) {
		return nil, apperr.ErrForbidden
	}
	svc, err := buildService(in)
	if err != nil {
		return nil, err
	}
	svc.ID = id
	if err := s.store.Update(ctx, svc); err != nil {
		return nil, err
	}
	s.publisher.Changed(ctx, realtime.TableServices, realtime.Update, id)
	return svc, nil
}

func (s *CatalogService) Delete(ctx context.Context, actor Actor, id string) error {
	if !session.CanManageServices(actor.Role) {
		return apperr.ErrForbidden
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.publisher.Changed(ctx, realtime.TableServices, realtime.Delete, id)
	return nil
}

func buildService(in models.ServiceInput) (*models.Service, error) {
	v := &apperr.ValidationError{}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		v.Add("name", "name is required")
	}
	if in.Duration < 0 {
		v.Add("duration", "duration cannot be negative")
	}
	color := strings.TrimSpace(in.Color)
	if color == "" {
		color = models.DefaultServiceColor
	} else if !hexColor.MatchString(color) {
		v.Add("color", "expected #RRGGBB")
	}
	if err := v.OrNil(); err != nil {
		return nil, err
	}

	active := true
	if in.Active != nil {
		active = *in.Active
	}
	return &models.Service{Name: name, Duration: in.Duration, Color: color, Active: active}, nil
}
