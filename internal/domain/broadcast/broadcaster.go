package broadcast

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/GriffinCanCode/applaunchd/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/applaunchd/internal/shared/id"
	"github.com/GriffinCanCode/applaunchd/internal/shared/types"
	"go.uber.org/zap"
)

// DefaultBufferSize is the per-subscriber outbox capacity
const DefaultBufferSize = 64

// ErrSlowSubscriber ends a subscription whose outbox overflowed
var ErrSlowSubscriber = errors.New("subscriber too slow, events dropped")

// Reasons a subscriber leaves the set
const (
	reasonCancelled = "cancelled"
	reasonSlow      = "slow"
	reasonSendError = "send_error"
)

// Session is a live streaming client
type Session interface {
	// Context is done when the client goes away
	Context() context.Context
	// Send delivers one event; it may block on the transport
	Send(ev types.Event) error
}

type subscriber struct {
	id      id.SubscriberID
	session Session
	outbox  chan types.Event
	evicted chan struct{} // closed once when Publish drops the subscriber
}

// Broadcaster fans lifecycle events out to every live subscriber
type Broadcaster struct {
	mu     sync.Mutex
	subs   map[id.SubscriberID]*subscriber
	closed bool

	done      chan struct{}
	closeOnce sync.Once

	bufferSize int
	logger     *zap.Logger
	metrics    *monitoring.Metrics
}

// NewBroadcaster creates an empty broadcaster
func NewBroadcaster(logger *zap.Logger) *Broadcaster {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Broadcaster{
		subs:       make(map[id.SubscriberID]*subscriber),
		done:       make(chan struct{}),
		bufferSize: DefaultBufferSize,
		logger:     logger,
	}
}

// WithBufferSize sets the outbox capacity for later subscribers
func (b *Broadcaster) WithBufferSize(n int) *Broadcaster {
	if n > 0 {
		b.bufferSize = n
	}
	return b
}

// WithMetrics adds metrics tracking to the broadcaster
func (b *Broadcaster) WithMetrics(metrics *monitoring.Metrics) *Broadcaster {
	b.metrics = metrics
	return b
}

// Subscribe streams events to session until the session ends, the
// broadcaster shuts down, or the subscriber falls too far behind.
// It returns nil on a normal close.
func (b *Broadcaster) Subscribe(session Session) error {
	sub := &subscriber{
		id:      id.NewSubscriberID(),
		session: session,
		outbox:  make(chan types.Event, b.bufferSize),
		evicted: make(chan struct{}),
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.subs[sub.id] = sub
	b.updateCount()
	b.mu.Unlock()

	b.logger.Debug("Subscriber added", zap.String("subscriber", string(sub.id)))

	ctx := session.Context()
	for {
		select {
		case <-ctx.Done():
			b.remove(sub, reasonCancelled)
			return nil

		case <-b.done:
			return nil

		case <-sub.evicted:
			return ErrSlowSubscriber

		case ev := <-sub.outbox:
			if err := session.Send(ev); err != nil {
				b.remove(sub, reasonSendError)
				return fmt.Errorf("send to subscriber %s: %w", sub.id, err)
			}
		}
	}
}

// Publish enqueues ev for every live subscriber without blocking.
// Cancelled sessions are dropped; a subscriber with a full outbox is
// evicted.
func (b *Broadcaster) Publish(ev types.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for sid, sub := range b.subs {
		if sub.session.Context().Err() != nil {
			delete(b.subs, sid)
			b.recordDrop(reasonCancelled)
			continue
		}

		select {
		case sub.outbox <- ev:
		default:
			delete(b.subs, sid)
			close(sub.evicted)
			b.recordDrop(reasonSlow)
			b.logger.Warn("Evicting slow subscriber",
				zap.String("subscriber", string(sid)),
				zap.Int("buffer", cap(sub.outbox)))
		}
	}
	b.updateCount()
}

// Shutdown wakes every subscriber and rejects later ones. Safe to call
// more than once.
func (b *Broadcaster) Shutdown() {
	b.closeOnce.Do(func() {
		b.mu.Lock()
		defer b.mu.Unlock()

		n := len(b.subs)
		b.closed = true
		close(b.done)
		b.subs = make(map[id.SubscriberID]*subscriber)
		b.updateCount()

		b.logger.Info("Broadcaster shut down", zap.Int("subscribers", n))
	})
}

// Count returns the number of live subscribers
func (b *Broadcaster) Count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

func (b *Broadcaster) remove(sub *subscriber, reason string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if cur, ok := b.subs[sub.id]; ok && cur == sub {
		delete(b.subs, sub.id)
		b.recordDrop(reason)
		b.updateCount()
	}
	b.logger.Debug("Subscriber removed",
		zap.String("subscriber", string(sub.id)),
		zap.String("reason", reason))
}

func (b *Broadcaster) recordDrop(reason string) {
	if b.metrics != nil {
		b.metrics.RecordSubscriberDropped(reason)
	}
}

func (b *Broadcaster) updateCount() {
	if b.metrics != nil {
		b.metrics.SetSubscribers(len(b.subs))
	}
}
