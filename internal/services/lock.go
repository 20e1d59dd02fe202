// Lock Service (C4): leased exclusive ownership of a string resource_key.
// Grounded on the Python original's services/locks.py sweep+read+write
// pattern, implemented with the teacher's db.WithTx-per-method unit of work
// (internal/common/database/database.go) so each operation below commits or
// rolls back as one atomic step, per spec.md section 4.1.
package services

import (
	"context"
	"time"

	"github.com/RSuyash/repomesh/internal/apperr"
	"github.com/RSuyash/repomesh/internal/clock"
	"github.com/RSuyash/repomesh/internal/db"
	"github.com/RSuyash/repomesh/internal/model"
	"github.com/RSuyash/repomesh/internal/store"
	"github.com/jackc/pgx/v5"
)

type LockService struct {
	db    *db.DB
	locks *store.LockStore
	clock clock.Clock
}

func NewLockService(database *db.DB, locks *store.LockStore, c clock.Clock) *LockService {
	return &LockService{db: database, locks: locks, clock: c}
}

// Acquire sweeps expired locks for resourceKey, then either extends the
// caller's own lock, fails with CONFLICT against another owner, or creates a
// new active lock.
func (s *LockService) Acquire(ctx context.Context, resourceKey, agentID string, ttlSeconds int) (*model.ResourceLock, error) {
	var result *model.ResourceLock
	err := s.db.WithTx(ctx, func(tx pgx.Tx) error {
		now := s.clock.Now()
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
					"resource_key": resourceKey,
					"owner_agent_id": lock.OwnerAgentID,
				})
			}
			expires := now.Add(time.Duration(ttlSeconds) * time.Second)
			lock.ExpiresAt = expires
			if err := s.locks.Update(ctx, tx, lock); err != nil {
				return err
			}
			result = lock
			return nil
		}

		lock := &model.ResourceLock{
			ID:           clock.NewID(),
			ResourceKey:  resourceKey,
			OwnerAgentID: agentID,
			State:        model.LockStateActive,
			CreatedAt:    now,
			ExpiresAt:    now.Add(time.Duration(ttlSeconds) * time.Second),
		}
		if err := s.locks.Insert(ctx, tx, lock); err != nil {
			return err
		}
		result = lock
		return nil
	})
	return result, err
}

// Renew extends an existing active lock owned by agentID.
func (s *LockService) Renew(ctx context.Context, lockID, agentID string, ttlSeconds int) (*model.ResourceLock, error) {
	var result *model.ResourceLock
	err := s.db.WithTx(ctx, func(tx pgx.Tx) error {
		lock, err := s.locks.Get(ctx, tx, lockID)
		if err != nil {
			return err
		}
		if lock == nil {
			return apperr.NotFound("lock", lockID)
		}
		now := s.clock.Now()
		if lock.State != model.LockStateActive || lock.ExpiresAt.Before(now) {
			return apperr.Conflict("lock is not active", nil)
		}
		if lock.OwnerAgentID != agentID {
			return apperr.Conflict("lock is owned by another agent", map[string]any{"owner_agent_id": lock.OwnerAgentID})
		}
		lock.ExpiresAt = now.Add(time.Duration(ttlSeconds) * time.Second)
		if err := s.locks.Update(ctx, tx, lock); err != nil {
			return err
		}
		result = lock
		return nil
	})
	return result, err
}

// Release marks a lock released. Owner-only.
func (s *LockService) Release(ctx context.Context, lockID, agentID string) (*model.ResourceLock, error) {
	var result *model.ResourceLock
	err := s.db.WithTx(ctx, func(tx pgx.Tx) error {
		lock, err := s.locks.Get(ctx, tx, lockID)
		if err != nil {
			return err
		}
		if lock == nil {
			return apperr.NotFound("lock", lockID)
		}
		if lock.OwnerAgentID != agentID {
			return apperr.Conflict("lock is owned by another agent", map[string]any{"owner_agent_id": lock.OwnerAgentID})
		}
		now := s.clock.Now()
		lock.State = model.LockStateReleased
		lock.ReleasedAt = &now
		if err := s.locks.Update(ctx, tx, lock); err != nil {
			return err
		}
		result = lock
		return nil
	})
	return result, err
}

// ActiveFor sweeps then lists active locks, optionally filtered by agent
// and/or resource_key.
func (s *LockService) ActiveFor(ctx context.Context, agentID, resourceKey string) ([]*model.ResourceLock, error) {
	var result []*model.ResourceLock
	err := s.db.WithTx(ctx, func(tx pgx.Tx) error {
		now := s.clock.Now()
		if err := s.locks.SweepExpired(ctx, tx, resourceKey, now); err != nil {
			return err
		}
		locks, err := s.locks.ActiveFor(ctx, tx, agentID, resourceKey)
		if err != nil {
			return err
		}
		result = locks
		return nil
	})
	return result, err
}
