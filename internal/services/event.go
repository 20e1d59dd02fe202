// Event Store service (C3): append-only event log plus thread traversal.
// Grounded on the Python original's services/events.py, with the live
// broker publish step wired in the teacher's style of "persist first, then
// fan out to subscribers" (internal/orchestrator/streaming/hub.go's
// broadcast-after-save ordering).
package services

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/RSuyash/repomesh/internal/clock"
	"github.com/RSuyash/repomesh/internal/db"
	"github.com/RSuyash/repomesh/internal/eventbus"
	"github.com/RSuyash/repomesh/internal/model"
	"github.com/RSuyash/repomesh/internal/store"
)

type EventService struct {
	db     *db.DB
	events *store.EventStore
	clock  clock.Clock
	broker *eventbus.Broker
}

func NewEventService(database *db.DB, events *store.EventStore, c clock.Clock, broker *eventbus.Broker) *EventService {
	return &EventService{db: database, events: events, clock: c, broker: broker}
}

// LogInput mirrors log's keyword arguments (spec.md section 4.2).
type LogInput struct {
	Type            string
	Payload         map[string]any
	Severity        string
	TaskID          *string
	AgentID         *string
	RepoID          *string
	RecipientID     *string
	ParentMessageID *string
	Channel         string
}

func (s *EventService) Log(ctx context.Context, in LogInput) (*model.Event, error) {
	severity := in.Severity
	if severity == "" {
		severity = "info"
	}
	channel := in.Channel
	if channel == "" {
		channel = "default"
	}

	var result *model.Event
	err := s.db.WithTx(ctx, func(tx pgx.Tx) error {
		e := &model.Event{
			ID:              clock.NewID(),
			RepoID:          in.RepoID,
			AgentID:         in.AgentID,
			TaskID:          in.TaskID,
			RecipientID:     in.RecipientID,
			ParentMessageID: in.ParentMessageID,
			Channel:         channel,
			Type:            in.Type,
			Severity:        severity,
			Payload:         in.Payload,
			CreatedAt:       s.clock.Now(),
		}
		if err := s.events.Insert(ctx, tx, e); err != nil {
			return err
		}
		result = e
		return nil
	})
	if err != nil {
		return nil, err
	}
	if s.broker != nil {
		s.broker.Publish(result)
	}
	return result, nil
}

func (s *EventService) List(ctx context.Context, f store.ListFilters) ([]*model.Event, error) {
	var result []*model.Event
	err := s.db.WithTx(ctx, func(tx pgx.Tx) error {
		events, err := s.events.List(ctx, tx, f)
		if err != nil {
			return err
		}
		result = events
		return nil
	})
	return result, err
}

// Thread performs a breadth-first traversal of the reply forest rooted at
// messageID, returning up to limit events sorted by created_at ascending
// with the root included (spec.md section 4.2).
func (s *EventService) Thread(ctx context.Context, messageID string, limit int) ([]*model.Event, error) {
	var result []*model.Event
	err := s.db.WithTx(ctx, func(tx pgx.Tx) error {
		root, err := s.events.Get(ctx, tx, messageID)
		if err != nil {
			return err
		}
		if root == nil {
			result = nil
			return nil
		}

		collected := []*model.Event{root}
		queue := []*model.Event{root}
		for len(queue) > 0 && len(collected) < limit {
			current := queue[0]
			queue = queue[1:]

			children, err := s.events.ChildrenOf(ctx, tx, current.ID)
			if err != nil {
				return err
			}
			for _, child := range children {
				if len(collected) >= limit {
					break
				}
				collected = append(collected, child)
				queue = append(queue, child)
			}
		}

		sortEventsByCreatedAt(collected)
		if len(collected) > limit {
			collected = collected[:limit]
		}
		result = collected
		return nil
	})
	return result, err
}

func sortEventsByCreatedAt(events []*model.Event) {
	for i := 1; i < len(events); i++ {
		j := i
		for j > 0 && events[j-1].CreatedAt.After(events[j].CreatedAt) {
			events[j-1], events[j] = events[j], events[j-1]
			j--
		}
	}
}
