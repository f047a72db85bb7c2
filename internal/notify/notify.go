// Package notify tells staff who opted in to email notifications about
// new appointments by publishing one message per recipient.
package notify

import (
	"context"
	"log"
	"strings"
	"time"

	"garage-backend/internal/metrics"
	"garage-backend/internal/models"
)

// Message is the body of one notification.
type Message struct {
	RecipientID    string    `json:"recipient_id"`
	RecipientEmail string    `json:"recipient_email"`
	RecipientName  string    `json:"recipient_name"`
	EventIDs       []string  `json:"event_ids"`
	Dates          []string  `json:"dates"`
	StartTime      string    `json:"start_time"`
	Days           int       `json:"days"`
	CarInfo        string    `json:"car_info"`
	ClientName     string    `json:"client_name"`
	ClientPhone    string    `json:"client_phone"`
	Services       []string  `json:"services"`
	CreatedAt      time.Time `json:"created_at"`
}

// Subject is a short human readable summary.
func (m Message) Subject() string {
	var b strings.Builder
	b.WriteString("Programare noua")
	if len(m.Dates) > 0 {
		b.WriteString(" " + m.Dates[0] + " " + m.StartTime)
	}
	if m.ClientName != "" {
		b.WriteString(" - " + m.ClientName)
	}
	return b.String()
}

// BuildMessages creates one message per recipient describing the booking
// made of rows. Recipients without an email are skipped.
func BuildMessages(recipients []*models.Profile, rows []*models.Event, now time.Time) []Message {
	if len(rows) == 0 {
		return nil
	}
	first := rows[0]
	ids := make([]string, 0, len(rows))
	dates := make([]string, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.ID)
		dates = append(dates, r.EventDate)
	}

	out := make([]Message, 0, len(recipients))
	for _, p := range recipients {
		if strings.TrimSpace(p.Email) == "" {
			continue
		}
		out = append(out, Message{
			RecipientID:    p.ID,
			RecipientEmail: p.Email,
			RecipientName:  p.FullName,
			EventIDs:       ids,
			Dates:          dates,
			StartTime:      first.StartTime,
			Days:           first.Duration,
			CarInfo:        first.CarInfo,
			ClientName:     first.ClientName,
			ClientPhone:    first.ClientPhone,
			Services:       first.Services,
			CreatedAt:      now.UTC(),
		})
	}
	return out
}

// LogNotifier only logs; used when no broker is configured.
type LogNotifier struct{}

func (LogNotifier) AppointmentCreated(_ context.Context, recipients []*models.Profile, rows []*models.Event) {
	for _, m := range BuildMessages(recipients, rows, time.Now()) {
		log.Printf("[Notify] %s -> %s", m.Subject(), m.RecipientEmail)
		metrics.NotificationsPublished.WithLabelValues("logged").Inc()
	}
}
