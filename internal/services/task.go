// Task Service (C6): task CRUD, claim-with-lease, status transitions,
// stale-claim sweep. Grounded on the teacher's task repository/state-machine
// idiom (internal/task/repository.go, internal/task/service.go) and the
// claim algorithm from the Python original's services/tasks.py, which
// composes the Lock Service rather than duplicating its sweep logic.
package services

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/RSuyash/repomesh/internal/apperr"
	"github.com/RSuyash/repomesh/internal/clock"
	"github.com/RSuyash/repomesh/internal/db"
	"github.com/RSuyash/repomesh/internal/model"
	"github.com/RSuyash/repomesh/internal/store"
)

type TaskService struct {
	db     *db.DB
	tasks  *store.TaskStore
	claims *store.ClaimStore
	locks  *store.LockStore
	clock  clock.Clock
}

func NewTaskService(database *db.DB, tasks *store.TaskStore, claims *store.ClaimStore, locks *store.LockStore, c clock.Clock) *TaskService {
	return &TaskService{db: database, tasks: tasks, claims: claims, locks: locks, clock: c}
}

// CreateInput mirrors create's keyword arguments (spec.md section 4.6).
type CreateInput struct {
	Goal               string
	Description        string
	Scope              map[string]any
	Priority           int
	AcceptanceCriteria *string
	RepoID             *string
}

func (s *TaskService) Create(ctx context.Context, in CreateInput) (*model.Task, error) {
	priority := in.Priority
	if priority == 0 {
		priority = 3
	}
	var result *model.Task
	err := s.db.WithTx(ctx, func(tx pgx.Tx) error {
		now := s.clock.Now()
		t := &model.Task{
			ID:                 clock.NewID(),
			RepoID:             in.RepoID,
			Goal:               in.Goal,
			Description:        in.Description,
			Scope:              in.Scope,
			Priority:           priority,
			Status:             model.TaskStatusPending,
			AcceptanceCriteria: in.AcceptanceCriteria,
			Progress:           0,
			CreatedAt:          now,
			UpdatedAt:          now,
		}
		if err := s.tasks.Insert(ctx, tx, t); err != nil {
			return err
		}
		result = t
		return nil
	})
	return result, err
}

func (s *TaskService) Get(ctx context.Context, taskID string) (*model.Task, error) {
	var result *model.Task
	err := s.db.WithTx(ctx, func(tx pgx.Tx) error {
		t, err := s.tasks.Get(ctx, tx, taskID)
		if err != nil {
			return err
		}
		result = t
		return nil
	})
	return result, err
}

// List sweeps stale claims, then lists tasks matching the given filters.
func (s *TaskService) List(ctx context.Context, status, scopeComponent, assignee string) ([]*model.Task, error) {
	var result []*model.Task
	err := s.db.WithTx(ctx, func(tx pgx.Tx) error {
		if err := s.expireStaleClaimsTx(ctx, tx, ""); err != nil {
			return err
		}
		tasks, err := s.tasks.List(ctx, tx, status, scopeComponent, assignee)
		if err != nil {
			return err
		}
		result = tasks
		return nil
	})
	return result, err
}

// Claim implements spec.md section 4.6's six-step algorithm, composing the
// Lock Service's acquire semantics for the auto-acquire-lock step without a
// nested transaction (it runs inline against the same tx).
func (s *TaskService) Claim(ctx context.Context, taskID, agentID, resourceKey string, leaseTTLSeconds int) (*model.TaskClaim, error) {
	var result *model.TaskClaim
	err := s.db.WithTx(ctx, func(tx pgx.Tx) error {
		now := s.clock.Now()

		task, err := s.tasks.Get(ctx, tx, taskID)
		if err != nil {
			return err
		}
		if task == nil {
			return apperr.NotFound("task", taskID)
		}
		if task.Status == model.TaskStatusCompleted {
			return apperr.Conflict("task is already completed", nil)
		}

		if err := s.autoAcquireLock(ctx, tx, resourceKey, agentID, leaseTTLSeconds, now); err != nil {
			return err
		}

		if _, err := s.claims.ExpireStale(ctx, tx, taskID, now); err != nil {
			return err
		}

		existingClaim, err := s.claims.ActiveNonExpiredForTask(ctx, tx, taskID, now)
		if err != nil {
			return err
		}
		if existingClaim != nil && existingClaim.AgentID != agentID {
			return apperr.Conflict("task already has an active claim", map[string]any{"agent_id": existingClaim.AgentID})
		}

		claim := &model.TaskClaim{
			ID:              clock.NewID(),
			TaskID:          taskID,
			AgentID:         agentID,
			ResourceKey:     resourceKey,
			LeaseTTLSeconds: leaseTTLSeconds,
			State:           model.ClaimStateActive,
			ClaimedAt:       now,
			ExpiresAt:       now.Add(time.Duration(leaseTTLSeconds) * time.Second),
		}
		if err := s.claims.Insert(ctx, tx, claim); err != nil {
			return err
		}

		task.Status = model.TaskStatusClaimed
		task.AssigneeAgentID = &agentID
		task.UpdatedAt = now
		if err := s.tasks.Update(ctx, tx, task); err != nil {
			return err
		}

		result = claim
		return nil
	})
	return result, err
}

// autoAcquireLock inlines the Lock Service's acquire sweep+check+write
// sequence against the claim's transaction (spec.md 4.6 step 2: "delegates
// to Lock Service; surfaces CONFLICT if owned by another agent").
func (s *TaskService) autoAcquireLock(ctx context.Context, tx pgx.Tx, resourceKey, agentID string, ttlSeconds int, now time.Time) error {
	if resourceKey == "" {
		return nil
	}
	if err := s.locks.SweepExpired(ctx, tx, resourceKey, now); err != nil {
		return err
	}
	active, err := s.locks.ActiveForKey(ctx, tx, resourceKey, now)
	if err != nil {
		return err
	}
	for _, lock := range active {
		if lock.OwnerAgentID != agentID {
			return apperr.Conflict("resource_key is locked by another agent", map[string]any{
				"resource_key":   resourceKey,
				"owner_agent_id": lock.OwnerAgentID,
			})
		}
		lock.ExpiresAt = now.Add(time.Duration(ttlSeconds) * time.Second)
		return s.locks.Update(ctx, tx, lock)
	}
	lock := &model.ResourceLock{
		ID:           clock.NewID(),
		ResourceKey:  resourceKey,
		OwnerAgentID: agentID,
		State:        model.LockStateActive,
		CreatedAt:    now,
		ExpiresAt:    now.Add(time.Duration(ttlSeconds) * time.Second),
	}
	return s.locks.Insert(ctx, tx, lock)
}

// UpdateInput mirrors update's keyword arguments (spec.md section 4.6).
type UpdateInput struct {
	Status        *string
	Progress      *int
	Summary       *string
	BlockedReason *string
}

func (s *TaskService) Update(ctx context.Context, taskID string, in UpdateInput) (*model.Task, error) {
	var result *model.Task
	err := s.db.WithTx(ctx, func(tx pgx.Tx) error {
		task, err := s.tasks.Get(ctx, tx, taskID)
		if err != nil {
			return err
		}
		if task == nil {
			return apperr.NotFound("task", taskID)
		}
		if in.Status != nil {
			if !model.ValidTaskStatuses[*in.Status] {
				return apperr.Validation("invalid task status", map[string]any{"status": *in.Status})
			}
			task.Status = *in.Status
		}
		if in.Progress != nil {
			if *in.Progress < 0 || *in.Progress > 100 {
				return apperr.Validation("progress must be between 0 and 100", map[string]any{"progress": *in.Progress})
			}
			task.Progress = *in.Progress
		}
		if in.Summary != nil {
			task.Summary = in.Summary
		}
		if in.BlockedReason != nil {
			task.BlockedReason = in.BlockedReason
		}
		task.UpdatedAt = s.clock.Now()
		if err := s.tasks.Update(ctx, tx, task); err != nil {
			return err
		}
		result = task
		return nil
	})
	return result, err
}

// ExpireStaleClaims transitions expired active claims (optionally scoped to
// one task) to expired and cascades {claimed,in_progress} tasks to stalled;
// returns the count of transitioned claims.
func (s *TaskService) ExpireStaleClaims(ctx context.Context, taskID string) (int, error) {
	var count int
	err := s.db.WithTx(ctx, func(tx pgx.Tx) error {
		n, err := s.expireStaleClaimsTx(ctx, tx, taskID)
		if err != nil {
			return err
		}
		count = n
		return nil
	})
	return count, err
}

func (s *TaskService) expireStaleClaimsTx(ctx context.Context, tx pgx.Tx, taskID string) (int, error) {
	now := s.clock.Now()
	affectedTaskIDs, err := s.claims.ExpireStale(ctx, tx, taskID, now)
	if err != nil {
		return 0, err
	}
	for _, id := range affectedTaskIDs {
		task, err := s.tasks.Get(ctx, tx, id)
		if err != nil {
			return 0, err
		}
		if task == nil {
			continue
		}
		if task.Status == model.TaskStatusClaimed || task.Status == model.TaskStatusInProgress {
			task.Status = model.TaskStatusStalled
			task.UpdatedAt = now
			if err := s.tasks.Update(ctx, tx, task); err != nil {
				return 0, err
			}
		}
	}
	return len(affectedTaskIDs), nil
}

// PendingWork and AssignedTo pass through to the store — used by the
// Orchestrator Engine and Adapter Service respectively, which need raw
// access outside a Claim/Update call.
func (s *TaskService) PendingWork(ctx context.Context, limit int) ([]*model.Task, error) {
	var result []*model.Task
	err := s.db.WithTx(ctx, func(tx pgx.Tx) error {
		tasks, err := s.tasks.PendingWork(ctx, tx, limit)
		if err != nil {
			return err
		}
		result = tasks
		return nil
	})
	return result, err
}

func (s *TaskService) AssignedTo(ctx context.Context, agentID, onlyTaskID string, limit int) ([]*model.Task, error) {
	var result []*model.Task
	err := s.db.WithTx(ctx, func(tx pgx.Tx) error {
		tasks, err := s.tasks.AssignedTo(ctx, tx, agentID, onlyTaskID, limit)
		if err != nil {
			return err
		}
		result = tasks
		return nil
	})
	return result, err
}

func (s *TaskService) CompletedOrderedByUpdated(ctx context.Context, limit int) ([]*model.Task, error) {
	var result []*model.Task
	err := s.db.WithTx(ctx, func(tx pgx.Tx) error {
		tasks, err := s.tasks.CompletedOrderedByUpdated(ctx, tx, limit)
		if err != nil {
			return err
		}
		result = tasks
		return nil
	})
	return result, err
}
