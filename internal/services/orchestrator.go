// Orchestrator Engine (C8): one reconciliation+assignment cycle. Grounded on
// the Python original's services/orchestrator.py run_once, with the
// round-robin index kept as engine state the way the teacher's
// internal/orchestrator/scheduler.go keeps its own dispatch cursor across
// ticks.
package services

import (
	"context"
	"sync"
	"time"

	"github.com/RSuyash/repomesh/internal/apperr"
	"github.com/RSuyash/repomesh/internal/model"
)

const orchestratorAgentName = "orchestrator"

// AssignmentReport is run_once's return value.
type AssignmentReport struct {
	CandidateWorkers int      `json:"candidate_workers"`
	PendingTasks     int      `json:"pending_tasks"`
	Assigned         []string `json:"assigned_task_ids"`
	Skipped          int      `json:"skipped"`
}

type OrchestratorEngine struct {
	agents *AgentService
	tasks  *TaskService
	events *EventService

	sessionTTL time.Duration

	mu     sync.Mutex
	cursor int
}

func NewOrchestratorEngine(agents *AgentService, tasks *TaskService, events *EventService, sessionTTL time.Duration) *OrchestratorEngine {
	return &OrchestratorEngine{agents: agents, tasks: tasks, events: events, sessionTTL: sessionTTL}
}

// RunOnce implements spec.md section 4.7's six steps.
func (o *OrchestratorEngine) RunOnce(ctx context.Context, maxAssignments int) (*AssignmentReport, error) {
	orchestratorAgent, err := o.agents.Register(ctx, RegisterOptions{
		Name:            orchestratorAgentName,
		Type:            "orchestrator",
		Capabilities:    map[string]any{},
		ReuseExisting:   true,
		TakeoverIfStale: true,
	})
	if err != nil {
		return nil, err
	}

	if _, err := o.agents.Heartbeat(ctx, orchestratorAgent.ID, model.AgentStatusActive, nil); err != nil {
		return nil, err
	}

	if _, err := o.agents.MarkStaleSessions(ctx); err != nil {
		return nil, err
	}
	if _, err := o.tasks.ExpireStaleClaims(ctx, ""); err != nil {
		return nil, err
	}

	workers, err := o.candidateWorkers(ctx)
	if err != nil {
		return nil, err
	}

	pending, err := o.tasks.PendingWork(ctx, maxAssignments)
	if err != nil {
		return nil, err
	}

	report := &AssignmentReport{CandidateWorkers: len(workers), PendingTasks: len(pending)}

	o.mu.Lock()
	defer o.mu.Unlock()

	for _, task := range pending {
		decision := Decide(task)
		candidates := filterSupporting(workers, decision)
		if len(candidates) == 0 {
			candidates = workers
		}
		if len(candidates) == 0 {
			report.Skipped++
			continue
		}

		worker := candidates[o.cursor%len(candidates)]
		o.cursor++

		resourceKey := ResourceKey(task.Scope, task.ID)

		claim, err := o.tasks.Claim(ctx, task.ID, worker.ID, resourceKey, int(o.sessionTTL.Seconds()))
		if err != nil {
			if apperr.Is(err, apperr.CodeConflict) {
				report.Skipped++
				continue
			}
			return nil, err
		}

		if _, err := o.tasks.Update(ctx, task.ID, UpdateInput{
			Status:   strPtr(model.TaskStatusInProgress),
			Progress: intPtr(0),
		}); err != nil {
			return nil, err
		}

		if _, err := o.events.Log(ctx, LogInput{
			Type:        "orchestrator.assignment",
			Channel:     "orchestration",
			RecipientID: &worker.ID,
			TaskID:      &task.ID,
			Payload: map[string]any{
				"task_id":      task.ID,
				"agent_id":     worker.ID,
				"tier":         decision.Tier,
				"profile":      decision.Profile,
				"reason":       decision.Reason,
				"resource_key": resourceKey,
				"claim_id":     claim.ID,
			},
		}); err != nil {
			return nil, err
		}

		report.Assigned = append(report.Assigned, task.ID)
	}

	return report, nil
}

// candidateWorkers gathers active, non-orchestrator agents heartbeaten
// within the last 2*session_ttl, ordered by last_heartbeat_at desc.
func (o *OrchestratorEngine) candidateWorkers(ctx context.Context) ([]*model.Agent, error) {
	all, err := o.agents.List(ctx, nil)
	if err != nil {
		return nil, err
	}
	cutoff := o.agents.clock.Now().Add(-2 * o.sessionTTL)

	var workers []*model.Agent
	for _, a := range all {
		if a.Status != model.AgentStatusActive || a.Type == "orchestrator" {
			continue
		}
		if a.LastHeartbeatAt == nil || a.LastHeartbeatAt.Before(cutoff) {
			continue
		}
		workers = append(workers, a)
	}
	sortAgentsByLastHeartbeatDesc(workers)
	return workers, nil
}

func sortAgentsByLastHeartbeatDesc(agents []*model.Agent) {
	for i := 1; i < len(agents); i++ {
		j := i
		for j > 0 && agents[j-1].LastHeartbeatAt.Before(*agents[j].LastHeartbeatAt) {
			agents[j-1], agents[j] = agents[j], agents[j-1]
			j--
		}
	}
}

func filterSupporting(agents []*model.Agent, decision RouteDecision) []*model.Agent {
	var out []*model.Agent
	for _, a := range agents {
		if Supports(a, decision) {
			out = append(out, a)
		}
	}
	return out
}

func strPtr(s string) *string { return &s }
func intPtr(n int) *int       { return &n }
