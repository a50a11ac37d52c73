package eventbus

import (
	"sync"

	"github.com/stylegate/stylegate/internal/store"
)

const defaultBufSize = 256

// EventBus implements fan-out pub/sub for evaluation records. Each
// subscriber gets a buffered channel. If a subscriber is slow,
// records are dropped for that subscriber (sinks that must not miss
// anything can query the store afterwards).
type EventBus struct {
	mu          sync.RWMutex
	subscribers map[string]chan *store.EvaluationRecord
	bufSize     int
}

func New(bufSize int) *EventBus {
	if bufSize <= 0 {
		bufSize = defaultBufSize
	}
	return &EventBus{
		subscribers: make(map[string]chan *store.EvaluationRecord),
		bufSize:     bufSize,
	}
}

// Subscribe creates a new subscription. Returns the channel and
// an unsubscribe function that must be called when done.
func (eb *EventBus) Subscribe(id string) (<-chan *store.EvaluationRecord, func()) {
	ch := make(chan *store.EvaluationRecord, eb.bufSize)

	eb.mu.Lock()
	eb.subscribers[id] = ch
	eb.mu.Unlock()

	unsub := func() {
		eb.mu.Lock()
		delete(eb.subscribers, id)
		close(ch)
		eb.mu.Unlock()
	}
	return ch, unsub
}

// Publish sends a record to all subscribers. Non-blocking: slow
// subscribers will miss records.
func (eb *EventBus) Publish(record *store.EvaluationRecord) {
	eb.mu.RLock()
	defer eb.mu.RUnlock()

	for _, ch := range eb.subscribers {
		select {
		case ch <- record:
		default:
		}
	}
}

// SubscriberCount returns the number of active subscribers.
func (eb *EventBus) SubscriberCount() int {
	eb.mu.RLock()
	defer eb.mu.RUnlock()
	return len(eb.subscribers)
}
