// Adapter Service (C10): per-agent shell execution of claimed tasks, with
// pre-pass remediation, timeout/retry, and lock release on success. Grounded
// on the Python original's services/adapters.py state machine, executed
// through Go's os/exec with a context timeout the way the teacher's
// internal/agent/lifecycle process runner bounds external commands.
package services

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/RSuyash/repomesh/internal/apperr"
	"github.com/RSuyash/repomesh/internal/clock"
	"github.com/RSuyash/repomesh/internal/db"
	"github.com/RSuyash/repomesh/internal/model"
	"github.com/RSuyash/repomesh/internal/store"
)

// AdapterPolicy supplies the allowlist/prepass configuration the execute
// loop validates commands against (see internal/config.AdapterPolicy).
type AdapterPolicy interface {
	AllowedCommandPrefixes() []string
	DefaultPrepassCommands() []string
}

type AdapterService struct {
	db     *db.DB
	tasks  *TaskService
	claims *store.ClaimStore
	locks  *store.LockStore
	events *EventService
	clock  clock.Clock

	workspaceRoot  string
	defaultTimeout time.Duration
	policy         AdapterPolicy
}

func NewAdapterService(database *db.DB, tasks *TaskService, claims *store.ClaimStore, locks *store.LockStore, events *EventService, c clock.Clock, workspaceRoot string, defaultTimeout time.Duration, policy AdapterPolicy) *AdapterService {
	return &AdapterService{
		db: database, tasks: tasks, claims: claims, locks: locks, events: events, clock: c,
		workspaceRoot: workspaceRoot, defaultTimeout: defaultTimeout, policy: policy,
	}
}

// ExecutionReport is execute's return value.
type ExecutionReport struct {
	Executed []TaskExecutionResult `json:"executed"`
	Skipped  int                   `json:"skipped"`
}

type TaskExecutionResult struct {
	TaskID   string `json:"task_id"`
	Outcome  string `json:"outcome"`
	ExitCode int    `json:"exit_code,omitempty"`
}

// Execute implements spec.md section 4.9.
func (a *AdapterService) Execute(ctx context.Context, agentID, onlyTaskID string, dryRun bool, maxTasks int) (*ExecutionReport, error) {
	tasks, err := a.tasks.AssignedTo(ctx, agentID, onlyTaskID, maxTasks)
	if err != nil {
		return nil, err
	}

	report := &ExecutionReport{}
	for _, task := range tasks {
		result, err := a.executeOne(ctx, agentID, task, dryRun)
		if err != nil {
			if apperr.Is(err, apperr.CodeValidationError) {
				report.Skipped++
				continue
			}
			return nil, err
		}
		report.Executed = append(report.Executed, *result)
	}
	return report, nil
}

type adapterSpec struct {
	Command         string
	Cwd             string
	TimeoutSeconds  int
	PrepassCommands []string
}

func (a *AdapterService) resolveSpec(task *model.Task) (adapterSpec, error) {
	raw := scopeAdapter(task.Scope)
	spec := adapterSpec{
		Command:        stringField(raw, "command"),
		Cwd:            stringField(raw, "cwd"),
		TimeoutSeconds: int(a.defaultTimeout.Seconds()),
	}
	if spec.Cwd == "" {
		spec.Cwd = stringField(task.Scope, "component")
	}
	if ts := intField(raw, "timeout_seconds"); ts > 0 {
		spec.TimeoutSeconds = ts
	}
	spec.PrepassCommands = stringListField(raw, "prepass_commands")
	if len(spec.PrepassCommands) == 0 && a.policy != nil {
		spec.PrepassCommands = a.policy.DefaultPrepassCommands()
	}
	return spec, nil
}

func intField(m map[string]any, key string) int {
	if m == nil {
		return 0
	}
	v, ok := m[key]
	if !ok {
		return 0
	}
	switch n := v.(type) {
	case int:
		return n
	case float64:
		return int(n)
	default:
		return 0
	}
}

func (a *AdapterService) executeOne(ctx context.Context, agentID string, task *model.Task, dryRun bool) (*TaskExecutionResult, error) {
	spec, err := a.resolveSpec(task)
	if err != nil {
		return nil, err
	}
	if spec.Command == "" {
		return nil, apperr.Validation("task has no adapter command", map[string]any{"task_id": task.ID})
	}

	resolvedCwd, err := a.resolveWorkspaceCwd(spec.Cwd)
	if err != nil {
		return nil, err
	}

	if a.policy != nil {
		prefixes := a.policy.AllowedCommandPrefixes()
		if len(prefixes) > 0 && !hasAnyPrefix(spec.Command, prefixes) {
			return nil, apperr.Validation("command is not in the allowed prefix list", map[string]any{
				"task_id": task.ID,
				"command": spec.Command,
			})
		}
	}

	if dryRun {
		if _, err := a.events.Log(ctx, LogInput{
			Type:    "adapter.execution.planned",
			Channel: "execution",
			TaskID:  &task.ID,
			AgentID: &agentID,
			Payload: map[string]any{"command": spec.Command, "cwd": resolvedCwd},
		}); err != nil {
			return nil, err
		}
		return &TaskExecutionResult{TaskID: task.ID, Outcome: "planned"}, nil
	}

	if _, err := a.events.Log(ctx, LogInput{
		Type:    "adapter.execution.started",
		Channel: "execution",
		TaskID:  &task.ID,
		AgentID: &agentID,
		Payload: map[string]any{"command": spec.Command},
	}); err != nil {
		return nil, err
	}
	if _, err := a.events.Log(ctx, LogInput{
		Type:    "adapter.hook.pre_execute",
		Channel: "execution",
		TaskID:  &task.ID,
		AgentID: &agentID,
		Payload: map[string]any{},
	}); err != nil {
		return nil, err
	}

	if _, err := a.tasks.Update(ctx, task.ID, UpdateInput{
		Status:   strPtr(model.TaskStatusInProgress),
		Progress: intPtr(10),
	}); err != nil {
		return nil, err
	}

	timeout := time.Duration(spec.TimeoutSeconds) * time.Second
	stdout, stderr, exitCode, timedOut, runErr := runCommand(ctx, spec.Command, resolvedCwd, timeout)
	if runErr != nil && !timedOut {
		return nil, apperr.Internal("failed to run adapter command", runErr)
	}

	if timedOut {
		reason := fmt.Sprintf("Execution timeout after %ds", spec.TimeoutSeconds)
		if _, err := a.tasks.Update(ctx, task.ID, UpdateInput{
			Status:        strPtr(model.TaskStatusBlocked),
			BlockedReason: &reason,
		}); err != nil {
			return nil, err
		}
		if _, err := a.events.Log(ctx, LogInput{
			Type: "adapter.execution.timeout", Channel: "execution", TaskID: &task.ID, AgentID: &agentID,
			Payload: map[string]any{"timeout_seconds": spec.TimeoutSeconds},
		}); err != nil {
			return nil, err
		}
		return &TaskExecutionResult{TaskID: task.ID, Outcome: "timeout"}, nil
	}

	if exitCode == 0 {
		return a.completeSuccess(ctx, agentID, task, stdout, stderr)
	}

	if len(spec.PrepassCommands) > 0 {
		allSucceeded := true
		for _, cmd := range spec.PrepassCommands {
			if _, err := a.events.Log(ctx, LogInput{
				Type: "adapter.hook.prepass.started", Channel: "execution", TaskID: &task.ID, AgentID: &agentID,
				Payload: map[string]any{"command": cmd},
			}); err != nil {
				return nil, err
			}
			_, prepassStderr, prepassExit, prepassTimedOut, _ := runCommand(ctx, cmd, resolvedCwd, timeout)
			if prepassTimedOut {
				prepassExit = -1
				prepassStderr = "prepass timeout"
			}
			eventType := "adapter.hook.prepass.completed"
			if prepassExit != 0 {
				eventType = "adapter.hook.prepass.failed"
				allSucceeded = false
			}
			if _, err := a.events.Log(ctx, LogInput{
				Type: eventType, Channel: "execution", TaskID: &task.ID, AgentID: &agentID,
				Payload: map[string]any{"command": cmd, "exit_code": prepassExit, "stderr": prepassStderr},
			}); err != nil {
				return nil, err
			}
		}

		if allSucceeded {
			retryStdout, retryStderr, retryExit, retryTimedOut, _ := runCommand(ctx, spec.Command, resolvedCwd, timeout)
			if !retryTimedOut && retryExit == 0 {
				if _, err := a.events.Log(ctx, LogInput{
					Type: "adapter.execution.retried_success", Channel: "execution", TaskID: &task.ID, AgentID: &agentID,
					Payload: map[string]any{},
				}); err != nil {
					return nil, err
				}
				return a.completeSuccess(ctx, agentID, task, retryStdout, retryStderr)
			}
		}
	}

	reason := fmt.Sprintf("Execution failed (exit %d)", exitCode)
	if _, err := a.tasks.Update(ctx, task.ID, UpdateInput{
		Status:        strPtr(model.TaskStatusBlocked),
		BlockedReason: &reason,
	}); err != nil {
		return nil, err
	}
	if _, err := a.events.Log(ctx, LogInput{
		Type: "adapter.execution.failed", Channel: "execution", TaskID: &task.ID, AgentID: &agentID,
		Payload: map[string]any{
			"exit_code":      exitCode,
			"stdout_preview": truncate(stdout, 1000),
			"stderr_preview": truncate(stderr, 2000),
		},
	}); err != nil {
		return nil, err
	}
	if _, err := a.events.Log(ctx, LogInput{
		Type: "adapter.hook.on_failure", Channel: "execution", TaskID: &task.ID, AgentID: &agentID,
		Payload: map[string]any{"route": "blocked"},
	}); err != nil {
		return nil, err
	}

	return &TaskExecutionResult{TaskID: task.ID, Outcome: "failed", ExitCode: exitCode}, nil
}

func (a *AdapterService) completeSuccess(ctx context.Context, agentID string, task *model.Task, stdout, stderr string) (*TaskExecutionResult, error) {
	summary := summarizeStdout(stdout)
	if _, err := a.tasks.Update(ctx, task.ID, UpdateInput{
		Status:   strPtr(model.TaskStatusCompleted),
		Progress: intPtr(100),
		Summary:  &summary,
	}); err != nil {
		return nil, err
	}

	if err := a.releaseClaimsAndLocks(ctx, task.ID, agentID); err != nil {
		return nil, err
	}

	if _, err := a.events.Log(ctx, LogInput{
		Type: "adapter.execution.completed", Channel: "execution", TaskID: &task.ID, AgentID: &agentID,
		Payload: map[string]any{
			"summary":        summary,
			"stdout_preview": truncate(stdout, 2000),
			"stderr_preview": truncate(stderr, 500),
		},
	}); err != nil {
		return nil, err
	}
	return &TaskExecutionResult{TaskID: task.ID, Outcome: "completed", ExitCode: 0}, nil
}

// releaseClaimsAndLocks releases the agent's active claims on this task and
// the resource locks those claims hold, per spec.md 4.9 step 4.
func (a *AdapterService) releaseClaimsAndLocks(ctx context.Context, taskID, agentID string) error {
	return a.db.WithTx(ctx, func(tx pgx.Tx) error {
		now := a.clock.Now()
		claims, err := a.claims.ActiveForTaskAndAgent(ctx, tx, taskID, agentID)
		if err != nil {
			return err
		}
		for _, claim := range claims {
			claim.State = model.ClaimStateReleased
			claim.ReleasedAt = &now
			if err := a.claims.Update(ctx, tx, claim); err != nil {
				return err
			}

			if claim.ResourceKey == "" {
				continue
			}
			locks, err := a.locks.ActiveForKey(ctx, tx, claim.ResourceKey, now)
			if err != nil {
				return err
			}
			for _, lock := range locks {
				if lock.OwnerAgentID != agentID {
					continue
				}
				lock.State = model.LockStateReleased
				lock.ReleasedAt = &now
				if err := a.locks.Update(ctx, tx, lock); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

// summarizeStdout takes the first five lines of stdout, truncated to 500
// characters — the exact rule from spec.md section 4.9 step 4.
func summarizeStdout(stdout string) string {
	lines := strings.Split(stdout, "\n")
	if len(lines) > 5 {
		lines = lines[:5]
	}
	joined := strings.Join(lines, "\n")
	return truncate(joined, 500)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}

func (a *AdapterService) resolveWorkspaceCwd(cwd string) (string, error) {
	resolved := filepath.Join(a.workspaceRoot, cwd)
	absRoot, err := filepath.Abs(a.workspaceRoot)
	if err != nil {
		return "", apperr.Internal("failed to resolve workspace root", err)
	}
	absResolved, err := filepath.Abs(resolved)
	if err != nil {
		return "", apperr.Internal("failed to resolve task cwd", err)
	}
	if absResolved != absRoot && !strings.HasPrefix(absResolved, absRoot+string(filepath.Separator)) {
		return "", apperr.Validation("cwd escapes workspace root", map[string]any{"cwd": cwd})
	}
	return absResolved, nil
}

func hasAnyPrefix(command string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(command, p) {
			return true
		}
	}
	return false
}

// runCommand executes command in a shell under cwd with a hard wall-clock
// timeout, returning stdout, stderr, exit code, and whether it timed out.
func runCommand(ctx context.Context, command, cwd string, timeout time.Duration) (stdout, stderr string, exitCode int, timedOut bool, err error) {
	execCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(execCtx, "sh", "-c", command)
	cmd.Dir = cwd
	var outBuf, errBuf bytes.Buffer
	cmd.Stdout = &outBuf
	cmd.Stderr = &errBuf

	runErr := cmd.Run()
	stdout, stderr = outBuf.String(), errBuf.String()

	if execCtx.Err() == context.DeadlineExceeded {
		return stdout, stderr, -1, true, nil
	}
	if runErr == nil {
		return stdout, stderr, 0, false, nil
	}
	if exitErr, ok := runErr.(*exec.ExitError); ok {
		return stdout, stderr, exitErr.ExitCode(), false, nil
	}
	return stdout, stderr, -1, false, runErr
}
