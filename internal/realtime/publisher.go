package realtime

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"garage-backend/internal/cache"
	"garage-backend/internal/session"
)

// Tables with a change feed.
const (
	TableClients  = "clients"
	TableServices = "services"
	TableEvents   = "events"
	TableProfiles = "profiles"
)

// Change types.
const (
	Insert = "INSERT"
	Update = "UPDATE"
	Delete = "DELETE"
)

// Change is a row-level notification. It carries no row data: receivers
// refetch the whole collection.
type Change struct {
	Table string    `json:"table"`
	Type  string    `json:"type"`
	ID    string    `json:"id"`
	At    time.Time `json:"at"`
}

func tableTopic(table string) string { return "table:" + table }

func authTopic(userID string) string { return "auth:" + userID }

// Publisher emits changes and auth events on a Bus.
type Publisher struct {
	bus Bus
}

func NewPublisher(bus Bus) *Publisher {
	return &Publisher{bus: bus}
}

// Changed announces a row change. Failures are logged only.
func (p *Publisher) Changed(ctx context.Context, table, changeType, id string) {
	cache.InvalidateCollection(ctx, table)
	payload, err := json.Marshal(Change{Table: table, Type: changeType, ID: id, At: time.Now().UTC()})
	if err != nil {
		return
	}
	if err := p.bus.Publish(ctx, tableTopic(table), payload); err != nil {
		log.Printf("[Realtime] Failed to publish %s %s: %v", table, changeType, err)
	}
}

// AuthEvent announces a sign-in, token refresh or sign-out to the
// user's own auth stream.
func (p *Publisher) AuthEvent(ctx context.Context, eventType, userID string) {
	payload, err := json.Marshal(session.AuthEvent{Type: eventType, UserID: userID, At: time.Now().UTC()})
	if err != nil {
		return
	}
	if err := p.bus.Publish(ctx, authTopic(userID), payload); err != nil {
		log.Printf("[Realtime] Failed to publish auth event %s: %v", eventType, err)
	}
}
