// Context Bundle (C12): composes a task with its recent events and the
// assignee's active locks into a single coordination snapshot an agent can
// pull before starting work. Grounded on the teacher's read-model
// composition helpers (internal/task/view.go) adapted to spec.md 4.11's
// exact field set.
package services

import (
	"context"
	"sort"

	"github.com/jackc/pgx/v5"

	"github.com/RSuyash/repomesh/internal/apperr"
	"github.com/RSuyash/repomesh/internal/db"
	"github.com/RSuyash/repomesh/internal/model"
	"github.com/RSuyash/repomesh/internal/store"
)

type ContextService struct {
	db     *db.DB
	tasks  *store.TaskStore
	events *store.EventStore
	locks  *store.LockStore
}

func NewContextService(database *db.DB, tasks *store.TaskStore, events *store.EventStore, locks *store.LockStore) *ContextService {
	return &ContextService{db: database, tasks: tasks, events: events, locks: locks}
}

// Bundle is the composed snapshot returned by bundle().
type Bundle struct {
	Task         *model.Task           `json:"task"`
	ScopeFiles   []string              `json:"scope_files"`
	RecentEvents []*model.Event        `json:"recent_events"`
	LockStatus   []*model.ResourceLock `json:"lock_status"`
	Placeholders map[string]any        `json:"placeholders"`
}

const recentEventsLimit = 20

func (s *ContextService) Bundle(ctx context.Context, taskID, mode string, includeRecent bool) (*Bundle, error) {
	var result *Bundle
	err := s.db.WithTx(ctx, func(tx pgx.Tx) error {
		task, err := s.tasks.Get(ctx, tx, taskID)
		if err != nil {
			return err
		}
		if task == nil {
			return apperr.NotFound("task", taskID)
		}

		scopeFiles := store.ScopeFiles(task.Scope)
		sort.Strings(scopeFiles)

		var recent []*model.Event
		if includeRecent {
			recent, err = s.events.List(ctx, tx, store.ListFilters{
				TaskID:    taskID,
				Direction: "desc",
				Limit:     recentEventsLimit,
			})
			if err != nil {
				return err
			}
		}

		var lockStatus []*model.ResourceLock
		if task.AssigneeAgentID != nil {
			lockStatus, err = s.locks.ActiveFor(ctx, tx, *task.AssigneeAgentID, "")
			if err != nil {
				return err
			}
			sort.Slice(lockStatus, func(i, j int) bool { return lockStatus[i].ResourceKey < lockStatus[j].ResourceKey })
		}

		result = &Bundle{
			Task:         task,
			ScopeFiles:   scopeFiles,
			RecentEvents: recent,
			LockStatus:   lockStatus,
			Placeholders: map[string]any{"mode": mode},
		}
		return nil
	})
	return result, err
}
