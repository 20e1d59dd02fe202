package store

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/RSuyash/repomesh/internal/model"
)

type EventStore struct{}

func NewEventStore() *EventStore { return &EventStore{} }

func (s *EventStore) Insert(ctx context.Context, tx pgx.Tx, e *model.Event) error {
	payload, err := marshalMap(e.Payload)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO events (id, repo_id, agent_id, task_id, recipient_id, parent_message_id,
			channel, type, severity, payload, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		e.ID, e.RepoID, e.AgentID, e.TaskID, e.RecipientID, e.ParentMessageID,
		e.Channel, e.Type, e.Severity, payload, e.CreatedAt)
	return err
}

// ListFilters mirrors EventStore.list's named filters (spec.md section 4.2).
type ListFilters struct {
	TaskID          string
	AgentID         string
	Type            string
	RecipientID     string
	ParentMessageID string
	Channel         string
	PayloadContains string
	IncludeBroadcast bool
	Since           *time.Time
	Before          *time.Time
	Direction       string // asc|desc
	Limit           int
}

func (s *EventStore) List(ctx context.Context, tx pgx.Tx, f ListFilters) ([]*model.Event, error) {
	query := eventSelectColumns + " FROM events WHERE 1=1"
	var args []any

	if f.TaskID != "" {
		args = append(args, f.TaskID)
		query += " AND task_id=$" + itoa(len(args))
	}
	if f.AgentID != "" {
		args = append(args, f.AgentID)
		query += " AND agent_id=$" + itoa(len(args))
	}
	if f.Type != "" {
		args = append(args, f.Type)
		query += " AND type=$" + itoa(len(args))
	}
	if f.ParentMessageID != "" {
		args = append(args, f.ParentMessageID)
		query += " AND parent_message_id=$" + itoa(len(args))
	}
	if f.Channel != "" {
		args = append(args, f.Channel)
		query += " AND channel=$" + itoa(len(args))
	}
	if f.RecipientID != "" {
		args = append(args, f.RecipientID)
		if f.IncludeBroadcast {
			query += " AND (recipient_id=$" + itoa(len(args)) + " OR recipient_id IS NULL)"
		} else {
			query += " AND recipient_id=$" + itoa(len(args))
		}
	}
	if f.Since != nil {
		args = append(args, *f.Since)
		query += " AND created_at > $" + itoa(len(args))
	}
	if f.Before != nil {
		args = append(args, *f.Before)
		query += " AND created_at < $" + itoa(len(args))
	}

	dir := "DESC"
	if strings.EqualFold(f.Direction, "asc") {
		dir = "ASC"
	}
	query += " ORDER BY created_at " + dir

	limit := f.Limit
	if limit <= 0 {
		limit = 100
	}
	args = append(args, limit)
	query += " LIMIT $" + itoa(len(args))

	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Event
	for rows.Next() {
		e, err := scanEventRows(rows)
		if err != nil {
			return nil, err
		}
		if f.PayloadContains != "" && !payloadContains(e.Payload, f.PayloadContains) {
			continue
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func payloadContains(payload map[string]any, substr string) bool {
	data, err := json.Marshal(payload)
	if err != nil {
		return false
	}
	return strings.Contains(string(data), substr)
}

// ChildrenOf returns events whose parent_message_id equals parentID,
// ascending by created_at — one BFS level for thread traversal.
func (s *EventStore) ChildrenOf(ctx context.Context, tx pgx.Tx, parentID string) ([]*model.Event, error) {
	rows, err := tx.Query(ctx, eventSelectColumns+`
		FROM events WHERE parent_message_id=$1 ORDER BY created_at ASC`, parentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Event
	for rows.Next() {
		e, err := scanEventRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *EventStore) Get(ctx context.Context, tx pgx.Tx, id string) (*model.Event, error) {
	row := tx.QueryRow(ctx, eventSelectColumns+" FROM events WHERE id=$1", id)
	return scanEvent(row)
}

// ExistsWithTypeForTask reports whether an event of the given type already
// exists for taskID — the Summarizer's idempotence check (spec.md 4.10).
func (s *EventStore) ExistsWithTypeForTask(ctx context.Context, tx pgx.Tx, taskID, eventType string) (bool, error) {
	var exists bool
	err := tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM events WHERE task_id=$1 AND type=$2)`, taskID, eventType).Scan(&exists)
	return exists, err
}

const eventSelectColumns = `SELECT id, repo_id, agent_id, task_id, recipient_id, parent_message_id,
	channel, type, severity, payload, created_at`

func scanEvent(row pgx.Row) (*model.Event, error)     { return scanEventInto(row) }
func scanEventRows(rows pgx.Rows) (*model.Event, error) { return scanEventInto(rows) }

func scanEventInto(row rowScanner) (*model.Event, error) {
	var e model.Event
	var payloadRaw []byte
	if err := row.Scan(&e.ID, &e.RepoID, &e.AgentID, &e.TaskID, &e.RecipientID, &e.ParentMessageID,
		&e.Channel, &e.Type, &e.Severity, &payloadRaw, &e.CreatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	payload, err := unmarshalMap(payloadRaw)
	if err != nil {
		return nil, err
	}
	e.Payload = payload
	return &e, nil
}
