package services

import (
	"context"
	"errors"
	"log"
	"strings"

	"garage-backend/internal/apperr"
	"garage-backend/internal/metrics"
	"garage-backend/internal/models"
	"garage-backend/internal/realtime"
)

type ClientService struct {
	store     ClientStore
	publisher ChangePublisher
}

func NewClientService(store ClientStore, publisher ChangePublisher) *ClientService {
	if publisher == nil {
		publisher = nopPublisher{}
	}
	return &ClientService{store: store, publisher: publisher}
}

// List returns the roster newest first, filtered by a case-insensitive
// substring over name and phone.
func (s *ClientService) List(ctx context.Context, q string) ([]*models.Client, error) {
	clients, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}
	return FilterClients(clients, q), nil
}

// FilterClients applies the roster search in memory.
func FilterClients(clients []*models.Client, q string) []*models.Client {
	q = strings.ToLower(strings.TrimSpace(q))
	if q == "" {
		return clients
	}
	out := make([]*models.Client, 0, len(clients))
	for _, c := range clients {
		if strings.Contains(strings.ToLower(c.Name), q) || strings.Contains(strings.ToLower(c.Phone), q) {
			out = append(out, c)
		}
	}
	return out
}

func (s *ClientService) Create(ctx context.Context, in models.ClientInput) (*models.Client, error) {
	c, err := s.prepare(ctx, in, "")
	if err != nil {
		return nil, err
	}
	if err := s.store.Create(ctx, c); err != nil {
		return nil, s.storeError("create", err)
	}
	s.publisher.Changed(ctx, realtime.TableClients, realtime.Insert, c.ID)
	return c, nil
}

func (s *ClientService) Update(ctx context.Context, id string, in models.ClientInput) (*models.Client, error) {
	c, err := s.prepare(ctx, in, id)
	if err != nil {
		return nil, err
	}
	c.ID = id
	if err := s.store.Update(ctx, c); err != nil {
		return nil, s.storeError("update", err)
	}
	s.publisher.Changed(ctx, realtime.TableClients, realtime.Update, id)
	return c, nil
}

func (s *ClientService) Delete(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return s.storeError("delete", err)
	}
	s.publisher.Changed(ctx, realtime.TableClients, realtime.Delete, id)
	return nil
}

// prepare validates the input and runs the duplicate-phone check before
// any write.
func (s *ClientService) prepare(ctx context.Context, in models.ClientInput, excludeID string) (*models.Client, error) {
	c := &models.Client{
		Name:   strings.TrimSpace(in.Name),
		Phone:  strings.TrimSpace(in.Phone),
		Remark: in.Remark,
	}
	if c.Phone == "" {
		return nil, apperr.Invalid("phone", "phone number is required")
	}
	if err := EnsureUniquePhone(ctx, s.store, c.Phone, excludeID); err != nil {
		return nil, err
	}
	return c, nil
}

// EnsureUniquePhone rejects a phone already used by another client. The
// unique index stays the final guard for concurrent saves.
func EnsureUniquePhone(ctx context.Context, store ClientStore, phone, excludeID string) error {
	existing, err := store.FindByPhone(ctx, phone, excludeID)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		metrics.DuplicatePhoneRejections.Inc()
		return apperr.ErrDuplicatePhone
	}
	return nil
}

func (s *ClientService) storeError(op string, err error) error {
	if errors.Is(err, apperr.ErrDuplicatePhone) {
		metrics.DuplicatePhoneRejections.Inc()
		return err
	}
	if !errors.Is(err, apperr.ErrNotFound) {
		log.Printf("[Clients] %s failed: %v", op, err)
	}
	return err
}
