package realtime

import (
	"context"
	"log"
	"sync"
	"time"
)

const (
	TableSessions     = "sessions"
	TableParticipants = "participants"
	TableResponses    = "responses"

	// AllTables subscribes to every table of a session.
	AllTables = "*"
)

const (
	ChangeInsert = "INSERT"
	ChangeUpdate = "UPDATE"
	ChangeDelete = "DELETE"
)

// Change is a row-level notification. Delivery is at-least-once at best and
// unordered across rows, so consumers re-read state instead of trusting Record.
type Change struct {
	Table     string    `json:"table"`
	Type      string    `json:"type"`
	SessionID uint      `json:"session_id"`
	RecordID  uint      `json:"record_id"`
	Record    any       `json:"record,omitempty"`
	At        time.Time `json:"at"`
}

type Notifier interface {
	Subscribe(ctx context.Context, table string, sessionID uint) (*Subscription, error)
}

type Publisher interface {
	Publish(change Change)
}

type Subscription struct {
	C <-chan Change

	once sync.Once
	stop func()
}

// NewSubscription wraps a channel fed by some other transport. stop is called
// once on Close.
func NewSubscription(c <-chan Change, stop func()) *Subscription {
	return &Subscription{C: c, stop: stop}
}

func (s *Subscription) Close() {
	if s == nil {
		return
	}
	s.once.Do(func() {
		if s.stop != nil {
			s.stop()
		}
	})
}

const defaultBuffer = 32

type subscriber struct {
	table     string
	sessionID uint
	ch        chan Change
}

// Bus is the in-process change notifier. Publishing never blocks: a subscriber
// whose buffer is full misses the change and catches up on its next poll.
type Bus struct {
	mu     sync.RWMutex
	nextID uint64
	subs   map[uint64]*subscriber
	buffer int
}

func NewBus() *Bus {
	return &Bus{
		subs:   make(map[uint64]*subscriber),
		buffer: defaultBuffer,
	}
}

func (b *Bus) Subscribe(ctx context.Context, table string, sessionID uint) (*Subscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	b.mu.Lock()
	b.nextID++
	id := b.nextID
	sub := &subscriber{table: table, sessionID: sessionID, ch: make(chan Change, b.buffer)}
	b.subs[id] = sub
	b.mu.Unlock()

	remove := func() { b.remove(id) }
	stopAfter := context.AfterFunc(ctx, remove)
	return NewSubscription(sub.ch, func() {
		stopAfter()
		remove()
	}), nil
}

func (b *Bus) remove(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if sub, ok := b.subs[id]; ok {
		delete(b.subs, id)
		close(sub.ch)
	}
}

func (b *Bus) Publish(change Change) {
	if change.At.IsZero() {
		change.At = time.Now().UTC()
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, sub := range b.subs {
		if sub.sessionID != change.SessionID {
			continue
		}
		if sub.table != AllTables && sub.table != change.Table {
			continue
		}
		select {
		case sub.ch <- change:
		default:
			log.Printf("realtime: subscriber buffer full, dropped %s %s for session %d", change.Table, change.Type, change.SessionID)
		}
	}
}

// Subscribers reports how many subscriptions are open for a session.
func (b *Bus) Subscribers(sessionID uint) int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	n := 0
	for _, sub := range b.subs {
		if sub.sessionID == sessionID {
			n++
		}
	}
	return n
}
