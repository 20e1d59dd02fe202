// Package cronjanitor is a domain-stack addition (see SPEC_FULL.md): an
// optional robfig/cron schedule that triggers a reconcile cycle
// (expire_stale_claims + mark_stale_sessions) on a cron expression, as a
// belt-and-braces sweep independent of the Orchestrator's own per-cycle
// reconcile step — useful when the orchestrator loop itself is not
// running (e.g. only the HTTP/MCP surface is up) but leases still need to
// be swept on a schedule.
package cronjanitor

import (
	"context"

	"github.com/robfig/cron/v3"

	"github.com/RSuyash/repomesh/internal/logging"
	"go.uber.org/zap"
)

// ReconcileFunc performs one sweep; returns the number of sessions and
// claims transitioned.
type ReconcileFunc func(ctx context.Context) (staleSessions int, staleClaims int, err error)

type Janitor struct {
	cron      *cron.Cron
	reconcile ReconcileFunc
	log       *logging.Logger
}

// New builds a Janitor scheduled on expr (standard 5-field cron syntax).
// Returns an error if expr fails to parse, so callers can surface a
// configuration mistake at startup rather than silently never firing.
func New(expr string, reconcile ReconcileFunc, log *logging.Logger) (*Janitor, error) {
	c := cron.New()
	j := &Janitor{cron: c, reconcile: reconcile, log: log.WithComponent("cron_janitor")}

	_, err := c.AddFunc(expr, j.runOnce)
	if err != nil {
		return nil, err
	}
	return j, nil
}

func (j *Janitor) runOnce() {
	staleSessions, staleClaims, err := j.reconcile(context.Background())
	if err != nil {
		j.log.Error("scheduled reconcile failed", zap.Error(err))
		return
	}
	j.log.Info("scheduled reconcile complete",
		zap.Int("stale_sessions", staleSessions),
		zap.Int("stale_claims", staleClaims))
}

func (j *Janitor) Start() { j.cron.Start() }

func (j *Janitor) Stop() { <-j.cron.Stop().Done() }
