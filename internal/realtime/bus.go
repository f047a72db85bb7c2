// Package realtime fans row changes and auth-state events out to
// WebSocket subscribers.
package realtime

import (
	"context"
	"sync"
)

// Bus moves opaque payloads between publishers and subscribers of a topic.
type Bus interface {
	Publish(ctx context.Context, topic string, payload []byte) error
	// Subscribe returns a channel of payloads and a function that ends
	// the subscription and closes the channel.
	Subscribe(ctx context.Context, topic string) (<-chan []byte, func(), error)
}

const subscriberBuffer = 32

// LocalBus delivers within this process only. Used when Redis is not
// reachable.
type LocalBus struct {
	mu     sync.RWMutex
	topics map[string]map[chan []byte]struct{}
}

func NewLocalBus() *LocalBus {
	return &LocalBus{topics: make(map[string]map[chan []byte]struct{})}
}

// Publish never blocks: a subscriber whose buffer is full misses the
// payload. Every payload is only a refetch trigger so a later one
// covers it.
func (b *LocalBus) Publish(_ context.Context, topic string, payload []byte) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.topics[topic] {
		select {
		case ch <- payload:
		default:
		}
	}
	return nil
}

func (b *LocalBus) Subscribe(_ context.Context, topic string) (<-chan []byte, func(), error) {
	ch := make(chan []byte, subscriberBuffer)

	b.mu.Lock()
	if b.topics[topic] == nil {
		b.topics[topic] = make(map[chan []byte]struct{})
	}
	b.topics[topic][ch] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.topics[topic], ch)
			if len(b.topics[topic]) == 0 {
				delete(b.topics, topic)
			}
			b.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel, nil
}
