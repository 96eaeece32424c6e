// Package notify keeps the user-facing notifications (toasts, banners) of an
// application as plain data. Producers push notifications; a presentation
// layer renders Active() and listens to events to know when to redraw.
package notify

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/zeebo/xxh3"
)

const (
	defaultSuccessTTL = 5 * time.Second
	defaultCapacity   = 20
)

// Level is the severity of a notification.
type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Notification is one message to show. A zero ExpiresAt means it stays
// until dismissed.
type Notification struct {
	ID        uuid.UUID
	Level     Level
	Title     string
	Message   string
	CreatedAt time.Time
	ExpiresAt time.Time

	// Count is how many identical notifications were merged into this one
	// by a deduplicating queue.
	Count int
}

// Fingerprint identifies notifications with the same level, title and message.
func (n Notification) Fingerprint() uint64 {
	h := xxh3.New()

	_, _ = h.WriteString(string(n.Level))
	_, _ = h.Write([]byte{0})
	_, _ = h.WriteString(n.Title)
	_, _ = h.Write([]byte{0})
	_, _ = h.WriteString(n.Message)

	return h.Sum64()
}

// Expired reports whether the notification should no longer be shown at now.
func (n Notification) Expired(now time.Time) bool {
	return !n.ExpiresAt.IsZero() && !now.Before(n.ExpiresAt)
}

// EventKind tells subscribers what happened to a notification.
type EventKind string

const (
	EventAdded     EventKind = "added"
	EventUpdated   EventKind = "updated"
	EventDismissed EventKind = "dismissed"
	EventExpired   EventKind = "expired"
	EventEvicted   EventKind = "evicted"
)

// Event is delivered to subscribers on every change.
type Event struct {
	Kind         EventKind
	Notification Notification
}

// Queue is a thread-safe, bounded list of notifications.
type Queue struct {
	mu      sync.Mutex
	items   []Notification
	subs    map[uint64]chan Event
	nextSub uint64

	now        func() time.Time
	ttl        map[Level]time.Duration
	capacity   int
	subsBuffer int
	dedup      bool
}

// Option configures a Queue.
type Option func(*Queue)

// WithTTL sets how long notifications of a level stay visible. 0 keeps them
// until dismissed.
func WithTTL(level Level, ttl time.Duration) Option {
	return func(q *Queue) {
		q.ttl[level] = max(ttl, 0)
	}
}

// WithCapacity bounds the number of stored notifications; the oldest is
// evicted when a push would exceed it.
func WithCapacity(n int) Option {
	return func(q *Queue) {
		if n > 0 {
			q.capacity = n
		}
	}
}

// WithDedup merges a pushed notification into an active one with the same
// fingerprint: the existing entry keeps its ID, moves to the end, has its
// expiry restarted and its Count incremented.
func WithDedup() Option {
	return func(q *Queue) {
		q.dedup = true
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(q *Queue) {
		if now != nil {
			q.now = now
		}
	}
}

// NewQueue creates a Queue. Success and info notifications expire after five
// seconds by default; warnings and errors stay until dismissed.
func NewQueue(opts ...Option) *Queue {
	q := &Queue{
		subs: make(map[uint64]chan Event),
		now:  time.Now,
		ttl: map[Level]time.Duration{
			LevelInfo:    defaultSuccessTTL,
			LevelSuccess: defaultSuccessTTL,
		},
		capacity:   defaultCapacity,
		subsBuffer: defaultCapacity,
	}

	for _, opt := range opts {
		opt(q)
	}

	return q
}

// Push stores n, filling in ID, CreatedAt and ExpiresAt when unset, and
// returns the stored value.
func (q *Queue) Push(n Notification) Notification {
	q.mu.Lock()
	defer q.mu.Unlock()

	now := q.now()

	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}

	if n.CreatedAt.IsZero() {
		n.CreatedAt = now
	}

	if ttl := q.ttl[n.Level]; n.ExpiresAt.IsZero() && ttl > 0 {
		n.ExpiresAt = n.CreatedAt.Add(ttl)
	}

	n.Count = max(n.Count, 1)

	if q.dedup {
		if merged, ok := q.merge(n, now); ok {
			return merged
		}
	}

	if len(q.items) >= q.capacity {
		evicted := q.items[0]
		q.items = q.items[1:]
		q.publish(Event{Kind: EventEvicted, Notification: evicted})
	}

	q.items = append(q.items, n)
	q.publish(Event{Kind: EventAdded, Notification: n})

	return n
}

// merge must be called with q.mu held.
func (q *Queue) merge(n Notification, now time.Time) (Notification, bool) {
	fp := n.Fingerprint()

	for i, existing := range q.items {
		if existing.Expired(now) || existing.Fingerprint() != fp {
			continue
		}

		existing.Count += n.Count
		existing.CreatedAt = n.CreatedAt
		existing.ExpiresAt = n.ExpiresAt

		q.items = append(q.items[:i], q.items[i+1:]...)
		q.items = append(q.items, existing)
		q.publish(Event{Kind: EventUpdated, Notification: existing})

		return existing, true
	}

	return Notification{}, false
}

// Success pushes a success notification.
func (q *Queue) Success(title, message string) Notification {
	return q.Push(Notification{Level: LevelSuccess, Title: title, Message: message})
}

// Error pushes an error notification.
func (q *Queue) Error(title, message string) Notification {
	return q.Push(Notification{Level: LevelError, Title: title, Message: message})
}

// Dismiss removes the notification with the given id. It returns false if
// there was none.
func (q *Queue) Dismiss(id uuid.UUID) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i, n := range q.items {
		if n.ID == id {
			q.items = append(q.items[:i], q.items[i+1:]...)
			q.publish(Event{Kind: EventDismissed, Notification: n})

			return true
		}
	}

	return false
}

// Active returns the notifications that have not expired, oldest first.
func (q *Queue) Active() []Notification {
	q.mu.Lock()
	defer q.mu.Unlock()

	now := q.now()
	out := make([]Notification, 0, len(q.items))

	for _, n := range q.items {
		if !n.Expired(now) {
			out = append(out, n)
		}
	}

	return out
}

// Len returns the number of stored notifications, expired ones included.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	return len(q.items)
}

// Prune drops expired notifications and returns how many were removed.
func (q *Queue) Prune() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	now := q.now()
	kept := q.items[:0]
	removed := 0

	for _, n := range q.items {
		if n.Expired(now) {
			removed++

			q.publish(Event{Kind: EventExpired, Notification: n})

			continue
		}

		kept = append(kept, n)
	}

	q.items = kept

	return removed
}

// Subscribe returns a channel of events and a function that unsubscribes and
// closes it. Delivery never blocks the queue: when a subscriber falls behind
// by more than its buffer, further events are dropped for it.
func (q *Queue) Subscribe() (<-chan Event, func()) {
	q.mu.Lock()
	defer q.mu.Unlock()

	id := q.nextSub
	q.nextSub++

	ch := make(chan Event, q.subsBuffer)
	q.subs[id] = ch

	var once sync.Once

	return ch, func() {
		once.Do(func() {
			q.mu.Lock()
			defer q.mu.Unlock()

			delete(q.subs, id)
			close(ch)
		})
	}
}

// publish must be called with q.mu held.
func (q *Queue) publish(ev Event) {
	for _, ch := range q.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}
