// Package eventbus implements the Stream Broker (C9): a single-process,
// in-memory pub/sub of event envelopes to live subscribers, modeled on the
// teacher's WebSocket Hub actor loop (internal/orchestrator/streaming/hub.go)
// — a register/unregister/broadcast channel triage running in one goroutine
// — but adapted to spec.md section 4.8's semantics: a bounded per-subscriber
// queue that drops the OLDEST queued event on overflow (the hub instead
// disconnects the client), and recipient_id/channel/include_broadcast
// filtering instead of per-task subscription.
package eventbus

import (
	"context"
	"sync"

	"github.com/RSuyash/repomesh/internal/clock"
	"github.com/RSuyash/repomesh/internal/logging"
	"github.com/RSuyash/repomesh/internal/model"
	"go.uber.org/zap"
)

const subscriberQueueCapacity = 200

// Subscriber is a live handle returned by Subscribe; callers read Events
// until Unsubscribe or the broker shuts down.
type Subscriber struct {
	ID               string
	recipientID      string
	channel          string
	includeBroadcast bool

	events chan *model.Event
	broker *Broker
}

// Events returns the channel to range/select over for delivered envelopes.
func (s *Subscriber) Events() <-chan *model.Event { return s.events }

func (s *Subscriber) matches(e *model.Event) bool {
	if s.channel != "" && e.Channel != s.channel {
		return false
	}
	if s.recipientID != "" {
		if e.RecipientID != nil && *e.RecipientID == s.recipientID {
			return true
		}
		if s.includeBroadcast && e.RecipientID == nil {
			return true
		}
		return false
	}
	return true
}

type registration struct {
	sub *Subscriber
}

type publication struct {
	event *model.Event
}

// Broker is the process-wide actor; Run must be started once and driven
// until ctx is cancelled.
type Broker struct {
	log *logging.Logger

	mu          sync.RWMutex
	subscribers map[string]*Subscriber

	register   chan registration
	unregister chan string
	publish    chan publication
}

func New(log *logging.Logger) *Broker {
	return &Broker{
		log:         log.WithComponent("stream_broker"),
		subscribers: make(map[string]*Subscriber),
		register:    make(chan registration),
		unregister:  make(chan string),
		publish:     make(chan publication, 256),
	}
}

// Run drives the broker's single goroutine until ctx is cancelled. On
// cancellation every subscriber's channel is closed so readers unblock.
func (b *Broker) Run(ctx context.Context) {
	b.log.Info("stream broker started")
	defer b.log.Info("stream broker stopped")

	for {
		select {
		case <-ctx.Done():
			b.mu.Lock()
			for id, sub := range b.subscribers {
				close(sub.events)
				delete(b.subscribers, id)
			}
			b.mu.Unlock()
			return

		case reg := <-b.register:
			b.mu.Lock()
			b.subscribers[reg.sub.ID] = reg.sub
			b.mu.Unlock()

		case id := <-b.unregister:
			b.mu.Lock()
			if sub, ok := b.subscribers[id]; ok {
				close(sub.events)
				delete(b.subscribers, id)
			}
			b.mu.Unlock()

		case pub := <-b.publish:
			// Snapshot subscribers under the lock, then send outside it —
			// sends must never happen while the lock is held (spec.md
			// section 5: "snapshots are taken before publish to avoid
			// lock-held sends").
			b.mu.RLock()
			targets := make([]*Subscriber, 0, len(b.subscribers))
			for _, sub := range b.subscribers {
				if sub.matches(pub.event) {
					targets = append(targets, sub)
				}
			}
			b.mu.RUnlock()

			for _, sub := range targets {
				enqueueDropOldest(sub.events, pub.event, b.log)
			}
		}
	}
}

// enqueueDropOldest implements spec.md section 4.8's overflow policy: a
// non-blocking enqueue; if the queue is full, drop the oldest queued item
// and enqueue; if it is still full (a racing consumer refilled it), drop the
// new event instead of blocking the broker's single goroutine.
func enqueueDropOldest(ch chan *model.Event, e *model.Event, log *logging.Logger) {
	select {
	case ch <- e:
		return
	default:
	}

	select {
	case <-ch:
	default:
	}

	select {
	case ch <- e:
	default:
		log.Warn("dropping event, subscriber queue still full after eviction", zap.String("event_type", e.Type))
	}
}

// Subscribe registers a new subscriber and returns its handle. recipientID,
// channel empty strings mean "no filter on that dimension".
func (b *Broker) Subscribe(recipientID, channel string, includeBroadcast bool) *Subscriber {
	sub := &Subscriber{
		ID:               clock.NewID(),
		recipientID:      recipientID,
		channel:          channel,
		includeBroadcast: includeBroadcast,
		events:           make(chan *model.Event, subscriberQueueCapacity),
		broker:           b,
	}
	b.register <- registration{sub: sub}
	return sub
}

func (b *Broker) Unsubscribe(id string) {
	b.unregister <- id
}

// Publish is called by Event Store log pathways (fire-and-forget into the
// broker's buffered publish channel).
func (b *Broker) Publish(e *model.Event) {
	select {
	case b.publish <- publication{event: e}:
	default:
		b.log.Warn("broker publish channel full, dropping event", zap.String("event_type", e.Type))
	}
}
