package services

import (
	"context"

	"garage-backend/internal/models"
)

// Storage contracts the services depend on. The repositories package
// implements them against PostgreSQL.

type ClientStore interface {
	List(ctx context.Context) ([]*models.Client, error)
	Get(ctx context.Context, id string) (*models.Client, error)
	FindByPhone(ctx context.Context, phone, excludeID string) ([]*models.Client, error)
	Create(ctx context.Context, c *models.Client) error
	Update(ctx context.Context, c *models.Client) error
	Delete(ctx context.Context, id string) error
}

type ServiceStore interface {
	List(ctx context.Context) ([]*models.Service, error)
	ListActive(ctx context.Context) ([]*models.Service, error)
	Get(ctx context.Context, id string) (*models.Service, error)
	Create(ctx context.Context, s *models.Service) error
	Update(ctx context.Context, s *models.Service) error
	Delete(ctx context.Context, id string) error
}

type ProfileStore interface {
	Get(ctx context.Context, id string) (*models.Profile, error)
	List(ctx context.Context) ([]*models.Profile, error)
	Update(ctx context.Context, id string, req *models.UpdateProfileRequest) (*models.Profile, error)
	ListNotificationRecipients(ctx context.Context) ([]*models.Profile, error)
}

type EventStore interface {
	List(ctx context.Context) ([]*models.Event, error)
	Get(ctx context.Context, id string) (*models.Event, error)
	CreateBooking(ctx context.Context, newClient *models.Client, rows []*models.Event) error
	UpdateBooking(ctx context.Context, newClient *models.Client, e *models.Event) error
	Delete(ctx context.Context, id string) error
}

type UserStore interface {
	CreateWithProfile(ctx context.Context, u *models.User, p *models.Profile) error
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Get(ctx context.Context, id string) (*models.User, error)
	SetTOTP(ctx context.Context, id, secret string, enabled bool) error
}

type SettingStore interface {
	Get(ctx context.Context, key string) (string, error)
	SetIfAbsent(ctx context.Context, key, value string) (bool, error)
}

// ChangePublisher announces row changes to realtime subscribers.
type ChangePublisher interface {
	Changed(ctx context.Context, table, changeType, id string)
}

// AuthEventPublisher announces auth-state changes for a user.
type AuthEventPublisher interface {
	AuthEvent(ctx context.Context, eventType, userID string)
}

// AppointmentNotifier tells opted-in staff about new bookings.
type AppointmentNotifier interface {
	AppointmentCreated(ctx context.Context, recipients []*models.Profile, rows []*models.Event)
}

// Actor is the signed-in user performing an operation.
type Actor struct {
	UserID string
	Role   string
}

type nopPublisher struct{}

func (nopPublisher) Changed(context.Context, string, string, string) {}

func (nopPublisher) AuthEvent(context.Context, string, string) {}
