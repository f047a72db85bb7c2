package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"garage-backend/internal/metrics"
	"garage-backend/internal/models"
)

// DefaultQueue receives appointment notifications.
const DefaultQueue = "appointment_notifications"

const publishTimeout = 5 * time.Second

type publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// AMQPNotifier publishes to a durable queue on the default exchange.
type AMQPNotifier struct {
	mu    sync.Mutex
	conn  *amqp.Connection
	ch    publisher
	queue string
	now   func() time.Time
}

// DialAMQP connects and declares the queue.
func DialAMQP(url, queue string) (*AMQPNotifier, error) {
	if url == "" {
		return nil, errors.New("amqp url required")
	}
	if queue == "" {
		queue = DefaultQueue
	}
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial amqp: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("declare queue %s: %w", queue, err)
	}
	log.Printf("[Notify] Publishing appointment notifications to queue %s", queue)
	return &AMQPNotifier{conn: conn, ch: ch, queue: queue, now: time.Now}, nil
}

// AppointmentCreated publishes one persistent message per recipient.
// Failures are logged only.
func (n *AMQPNotifier) AppointmentCreated(ctx context.Context, recipients []*models.Profile, rows []*models.Event) {
	for _, m := range BuildMessages(recipients, rows, n.now()) {
		if err := n.publish(ctx, m); err != nil {
			log.Printf("[Notify] Failed to publish to %s: %v", m.RecipientEmail, err)
			metrics.NotificationsPublished.WithLabelValues("failed").Inc()
			continue
		}
		metrics.NotificationsPublished.WithLabelValues("published").Inc()
	}
}

func (n *AMQPNotifier) publish(ctx context.Context, m Message) error {
	body, err := json.Marshal(m)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	n.mu.Lock()
	defer n.mu.Unlock()
	return n.ch.PublishWithContext(ctx, "", n.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    uuid.NewString(),
		Timestamp:    m.CreatedAt,
		Type:         "appointment.created",
		Body:         body,
	})
}

func (n *AMQPNotifier) Close() error {
	if n.conn == nil {
		return nil
	}
	return n.conn.Close()
}
