package services

import (
	"context"
	"errors"
	"log"
	"strings"

	"garage-backend/internal/apperr"
	"garage-backend/internal/calendar"
	"garage-backend/internal/metrics"
	"garage-backend/internal/models"
	"garage-backend/internal/realtime"
)

// BookingService writes appointments. A booking of N days is stored as N
// sibling rows with no group id; edits and deletes act on one row.
type BookingService struct {
	events    EventStore
	clients   ClientStore
	profiles  ProfileStore
	publisher ChangePublisher
	notifier  AppointmentNotifier
}

func NewBookingService(events EventStore, clients ClientStore, profiles ProfileStore, publisher ChangePublisher, notifier AppointmentNotifier) *BookingService {
	if publisher == nil {
		publisher = nopPublisher{}
	}
	return &BookingService{
		events:    events,
		clients:   clients,
		profiles:  profiles,
		publisher: publisher,
		notifier:  notifier,
	}
}

// List returns every row ordered by date then start time.
func (s *BookingService) List(ctx context.Context) ([]*models.Event, error) {
	return s.events.List(ctx)
}

func (s *BookingService) Get(ctx context.Context, id string) (*models.Event, error) {
	return s.events.Get(ctx, id)
}

// Create runs the create path of the booking form: the expanded rows and
// an optional inline client are written together.
func (s *BookingService) Create(ctx context.Context, actor Actor, in models.EventInput) ([]*models.Event, error) {
	form := calendar.OpenForm(nil, in.Date)
	if err := form.SetInput(in); err != nil {
		return nil, err
	}
	cmd, err := form.Submit()
	if err != nil {
		return nil, err
	}
	return s.save(ctx, actor, cmd)
}

// Update runs the edit path: the stored row is opened, switched to edit,
// given the new fields and submitted.
func (s *BookingService) Update(ctx context.Context, actor Actor, id string, in models.EventInput) (*models.Event, error) {
	existing, err := s.events.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	form := calendar.OpenForm(existing, "")
	if err := form.Edit(); err != nil {
		return nil, err
	}
	if err := form.SetInput(in); err != nil {
		return nil, err
	}
	cmd, err := form.Submit()
	if err != nil {
		return nil, err
	}
	rows, err := s.save(ctx, actor, cmd)
	if err != nil {
		return nil, err
	}
	return rows[0], nil
}

// Delete removes exactly one row; siblings of a multi-day booking stay.
func (s *BookingService) Delete(ctx context.Context, id string) error {
	if err := s.events.Delete(ctx, id); err != nil {
		if !errors.Is(err, apperr.ErrNotFound) {
			log.Printf("[Booking] delete %s failed: %v", id, err)
		}
		return err
	}
	s.publisher.Changed(ctx, realtime.TableEvents, realtime.Delete, id)
	return nil
}

func (s *BookingService) save(ctx context.Context, actor Actor, cmd calendar.SaveCommand) ([]*models.Event, error) {
	snapshot, newClient, err := s.resolveClient(ctx, cmd.Input)
	if err != nil {
		return nil, err
	}

	var creator *string
	if cmd.Kind == calendar.SaveCreate && actor.UserID != "" {
		id := actor.UserID
		creator = &id
	}
	rows, err := calendar.BuildRows(cmd.Input, snapshot, creator)
	if err != nil {
		return nil, err
	}

	if cmd.Kind == calendar.SaveUpdate {
		return s.updateFirst(ctx, cmd.EventID, newClient, rows)
	}

	if err := s.events.CreateBooking(ctx, newClient, rows); err != nil {
		if errors.Is(err, apperr.ErrDuplicatePhone) {
			metrics.DuplicatePhoneRejections.Inc()
			return nil, err
		}
		log.Printf("[Booking] create failed: %v", err)
		return nil, err
	}
	metrics.AppointmentRowsCreated.Add(float64(len(rows)))

	if newClient != nil {
		s.publisher.Changed(ctx, realtime.TableClients, realtime.Insert, newClient.ID)
	}
	for _, r := range rows {
		s.publisher.Changed(ctx, realtime.TableEvents, realtime.Insert, r.ID)
	}
	s.notify(ctx, rows)
	return rows, nil
}

// updateFirst writes only the first recomputed row onto the edited row,
// together with an optional inline client. Sibling rows of the original
// booking are left untouched and the creator reference is never rewritten.
func (s *BookingService) updateFirst(ctx context.Context, id string, newClient *models.Client, rows []*models.Event) ([]*models.Event, error) {
	first := rows[0]
	first.ID = id
	first.CreatedBy = nil
	if err := s.events.UpdateBooking(ctx, newClient, first); err != nil {
		switch {
		case errors.Is(err, apperr.ErrDuplicatePhone):
			metrics.DuplicatePhoneRejections.Inc()
		case !errors.Is(err, apperr.ErrNotFound):
			log.Printf("[Booking] update %s failed: %v", id, err)
		}
		return nil, err
	}
	if newClient != nil {
		s.publisher.Changed(ctx, realtime.TableClients, realtime.Insert, newClient.ID)
	}
	s.publisher.Changed(ctx, realtime.TableEvents, realtime.Update, id)

	stored, err := s.events.Get(ctx, id)
	if err != nil {
		return []*models.Event{first}, nil
	}
	return []*models.Event{stored}, nil
}

// resolveClient returns the snapshot to copy onto rows, and the client
// to create inline when the form asks for one.
func (s *BookingService) resolveClient(ctx context.Context, in models.EventInput) (calendar.ClientSnapshot, *models.Client, error) {
	switch {
	case in.NewClient != nil:
		name := strings.TrimSpace(in.NewClient.Name)
		phone := strings.TrimSpace(in.NewClient.Phone)
		v := &apperr.ValidationError{}
		if name == "" {
			v.Add("new_client.name", "name is required")
		}
		if phone == "" {
			v.Add("new_client.phone", "phone number is required")
		}
		if err := v.OrNil(); err != nil {
			return calendar.ClientSnapshot{}, nil, err
		}
		if err := EnsureUniquePhone(ctx, s.clients, phone, ""); err != nil {
			return calendar.ClientSnapshot{}, nil, err
		}
		c := &models.Client{Name: name, Phone: phone, Remark: in.NewClient.Remark}
		return snapshotOf(c), c, nil

	case in.ClientID != "":
		c, err := s.clients.Get(ctx, in.ClientID)
		if err != nil {
			if errors.Is(err, apperr.ErrNotFound) {
				return calendar.ClientSnapshot{}, nil, apperr.Invalid("client_id", "unknown client")
			}
			return calendar.ClientSnapshot{}, nil, err
		}
		return snapshotOf(c), nil, nil
	}

	return calendar.ClientSnapshot{Name: in.ClientName, Phone: in.ClientPhone, Remark: in.ClientRemark}, nil, nil
}

func snapshotOf(c *models.Client) calendar.ClientSnapshot {
	remark := c.Remark
	return calendar.ClientSnapshot{Name: c.Name, Phone: c.Phone, Remark: &remark}
}

func (s *BookingService) notify(ctx context.Context, rows []*models.Event) {
	if s.notifier == nil || s.profiles == nil {
		return
	}
	recipients, err := s.profiles.ListNotificationRecipients(ctx)
	if err != nil {
		log.Printf("[Booking] Failed to load notification recipients: %v", err)
		return
	}
	if len(recipients) == 0 {
		return
	}
	s.notifier.AppointmentCreated(ctx, recipients, rows)
}
