// Agent Service (C5): registration with identity reuse, heartbeats, session
// leases, stale-session sweep. Grounded on the Python original's
// services/agents.py register/heartbeat/list flow, wired through the
// teacher's WithTx-per-method persistence pattern.
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

type AgentService struct {
	db         *db.DB
	agents     *store.AgentStore
	sessions   *store.SessionStore
	clock      clock.Clock
	sessionTTL time.Duration
}

func NewAgentService(database *db.DB, agents *store.AgentStore, sessions *store.SessionStore, c clock.Clock, sessionTTL time.Duration) *AgentService {
	return &AgentService{db: database, agents: agents, sessions: sessions, clock: c, sessionTTL: sessionTTL}
}

// RegisterOptions mirrors register's keyword arguments (spec.md section 4.4).
type RegisterOptions struct {
	Name            string
	Type            string
	Capabilities    map[string]any
	RepoID          *string
	ReuseExisting   bool
	TakeoverIfStale bool
}

// Register implements the four-branch identity-reuse algorithm: sweep stale
// sessions, look up the (name, repo_id) identity slot, and either refresh an
// active session, reactivate a stale agent, or create a brand new one.
func (s *AgentService) Register(ctx context.Context, opts RegisterOptions) (*model.Agent, error) {
	var result *model.Agent
	err := s.db.WithTx(ctx, func(tx pgx.Tx) error {
		now := s.clock.Now()
		if _, err := s.sessions.SweepStale(ctx, tx, now); err != nil {
			return err
		}

		existing, err := s.agents.FindByNameRepo(ctx, tx, opts.Name, opts.RepoID)
		if err != nil {
			return err
		}

		if existing != nil && opts.ReuseExisting {
			activeSession, err := s.sessions.ActiveNonExpiredForAgent(ctx, tx, existing.ID, now)
			if err != nil {
				return err
			}
			if activeSession != nil {
				existing.Type = opts.Type
				existing.Capabilities = opts.Capabilities
				existing.UpdatedAt = now
				if err := s.agents.Update(ctx, tx, existing); err != nil {
					return err
				}
				activeSession.LastHeartbeatAt = now
				activeSession.ExpiresAt = now.Add(s.sessionTTL)
				if err := s.sessions.Update(ctx, tx, activeSession); err != nil {
					return err
				}
				result = existing
				return nil
			}
			if opts.TakeoverIfStale {
				existing.Status = model.AgentStatusActive
				existing.Type = opts.Type
				existing.Capabilities = opts.Capabilities
				existing.UpdatedAt = now
				if err := s.agents.Update(ctx, tx, existing); err != nil {
					return err
				}
				session := &model.AgentSession{
					ID:              clock.NewID(),
					AgentID:         existing.ID,
					Status:          model.SessionStatusActive,
					LastHeartbeatAt: now,
					ExpiresAt:       now.Add(s.sessionTTL),
				}
				if err := s.sessions.Insert(ctx, tx, session); err != nil {
					return err
				}
				result = existing
				return nil
			}
		}

		agent := &model.Agent{
			ID:           clock.NewID(),
			RepoID:       opts.RepoID,
			Name:         opts.Name,
			Type:         opts.Type,
			Status:       model.AgentStatusActive,
			Capabilities: opts.Capabilities,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := s.agents.Insert(ctx, tx, agent); err != nil {
			return err
		}
		session := &model.AgentSession{
			ID:              clock.NewID(),
			AgentID:         agent.ID,
			Status:          model.SessionStatusActive,
			LastHeartbeatAt: now,
			ExpiresAt:       now.Add(s.sessionTTL),
		}
		if err := s.sessions.Insert(ctx, tx, session); err != nil {
			return err
		}
		result = agent
		return nil
	})
	return result, err
}

// Heartbeat updates status/current_task and refreshes or creates the
// agent's active session.
func (s *AgentService) Heartbeat(ctx context.Context, agentID, status string, currentTaskID *string) (*model.Agent, error) {
	var result *model.Agent
	err := s.db.WithTx(ctx, func(tx pgx.Tx) error {
		agent, err := s.agents.Get(ctx, tx, agentID)
		if err != nil {
			return err
		}
		if agent == nil {
			return apperr.NotFound("agent", agentID)
		}
		now := s.clock.Now()
		agent.Status = status
		agent.LastHeartbeatAt = &now
		agent.UpdatedAt = now
		if err := s.agents.Update(ctx, tx, agent); err != nil {
			return err
		}

		session, err := s.sessions.ActiveNonExpiredForAgent(ctx, tx, agentID, now)
		if err != nil {
			return err
		}
		if session != nil {
			session.CurrentTaskID = currentTaskID
			session.LastHeartbeatAt = now
			session.ExpiresAt = now.Add(s.sessionTTL)
			if err := s.sessions.Update(ctx, tx, session); err != nil {
				return err
			}
		} else {
			session = &model.AgentSession{
				ID:              clock.NewID(),
				AgentID:         agentID,
				Status:          model.SessionStatusActive,
				CurrentTaskID:   currentTaskID,
				LastHeartbeatAt: now,
				ExpiresAt:       now.Add(s.sessionTTL),
			}
			if err := s.sessions.Insert(ctx, tx, session); err != nil {
				return err
			}
		}
		result = agent
		return nil
	})
	return result, err
}

// List sweeps stale sessions then returns agents ordered by created_at desc.
func (s *AgentService) List(ctx context.Context, repoID *string) ([]*model.Agent, error) {
	var result []*model.Agent
	err := s.db.WithTx(ctx, func(tx pgx.Tx) error {
		if _, err := s.sessions.SweepStale(ctx, tx, s.clock.Now()); err != nil {
			return err
		}
		agents, err := s.agents.List(ctx, tx, repoID)
		if err != nil {
			return err
		}
		result = agents
		return nil
	})
	return result, err
}

// FindByName resolves an agent name to the most recently created agent with
// that (name, repo_id) identity slot — used by the MCP dispatcher's
// event.log recipient_id-as-name resolution (spec.md section 4.12).
func (s *AgentService) FindByName(ctx context.Context, name string, repoID *string) (*model.Agent, error) {
	var result *model.Agent
	err := s.db.WithTx(ctx, func(tx pgx.Tx) error {
		agent, err := s.agents.FindByNameRepo(ctx, tx, name, repoID)
		if err != nil {
			return err
		}
		result = agent
		return nil
	})
	return result, err
}

// MarkStaleSessions transitions expired active sessions to stale and any
// agent left without an active session to inactive; returns the count of
// transitioned sessions.
func (s *AgentService) MarkStaleSessions(ctx context.Context) (int, error) {
	var count int
	err := s.db.WithTx(ctx, func(tx pgx.Tx) error {
		n, err := s.sessions.SweepStale(ctx, tx, s.clock.Now())
		if err != nil {
			return err
		}
		count = n
		return nil
	})
	return count, err
}
