// Package supervisor implements Runtime Supervisors (C14): a generic
// start/stop/status/run_once_sync loop shared by the Orchestrator, Adapter,
// and Summarizer background loops, each differing only in cadence and the
// cycle function it runs. Grounded on the teacher's
// internal/orchestrator/scheduler/scheduler.go Start/Stop/stopCh/WaitGroup
// pattern, generalized since spec.md section 4.13 asks for three
// differently-paced loops sharing one status/counter shape rather than one
// task-queue-specific scheduler.
package supervisor

import (
	"context"
	"sync"
	"time"

	"github.com/RSuyash/repomesh/internal/clock"
	"github.com/RSuyash/repomesh/internal/eventbus"
	"github.com/RSuyash/repomesh/internal/logging"
	"go.uber.org/zap"
)

// CycleFunc runs one reconciliation cycle and returns counter deltas to add
// to the supervisor's running totals (e.g. {"assignments": 3}).
type CycleFunc func(ctx context.Context) (counterDeltas map[string]int, err error)

// Waiter blocks until the next cycle should run, or returns false if ctx was
// cancelled while waiting. FixedInterval and BrokerOrTimeout below are the
// two cadences spec.md section 4.13 describes.
type Waiter func(ctx context.Context) bool

// Status mirrors spec.md 4.13's reported shape.
type Status struct {
	Running     bool           `json:"running"`
	Cycles      int            `json:"cycles"`
	LastCycleAt *time.Time     `json:"last_cycle_at,omitempty"`
	LastError   string         `json:"last_error,omitempty"`
	Counters    map[string]int `json:"counters"`
}

// Supervisor runs a CycleFunc on the cadence given by Waiter, exposing
// Start/Stop/Status/RunOnceSync. Safe for the RunOnceSync path to be called
// while the background loop is also running — both paths serialize through
// mu when advancing counters.
type Supervisor struct {
	name   string
	cycle  CycleFunc
	waiter Waiter
	clock  clock.Clock
	log    *logging.Logger

	mu          sync.Mutex
	running     bool
	cycles      int
	lastCycleAt *time.Time
	lastError   string
	counters    map[string]int

	stopCh chan struct{}
	wg     sync.WaitGroup
}

func New(name string, cycle CycleFunc, waiter Waiter, c clock.Clock, log *logging.Logger) *Supervisor {
	return &Supervisor{
		name:     name,
		cycle:    cycle,
		waiter:   waiter,
		clock:    c,
		log:      log.WithComponent(name),
		counters: make(map[string]int),
	}
}

// Start is idempotent: calling it while already running is a no-op.
func (s *Supervisor) Start(ctx context.Context) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.mu.Unlock()

	s.log.Info("supervisor starting")
	s.wg.Add(1)
	go s.loop(ctx)
}

// Stop cancels the background loop and waits for it to finish.
func (s *Supervisor) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	close(s.stopCh)
	s.mu.Unlock()

	s.wg.Wait()
	s.log.Info("supervisor stopped")
}

func (s *Supervisor) loop(ctx context.Context) {
	defer s.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		default:
		}

		loopCtx, cancel := contextWithStop(ctx, s.stopCh)
		ok := s.waiter(loopCtx)
		cancel()
		if !ok {
			return
		}

		s.runCycle(ctx)
	}
}

func (s *Supervisor) runCycle(ctx context.Context) {
	deltas, err := s.cycle(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.cycles++
	now := s.clock.Now()
	s.lastCycleAt = &now
	if err != nil {
		s.lastError = err.Error()
		s.log.Error("cycle failed", zap.Error(err))
	} else {
		s.lastError = ""
	}
	for k, v := range deltas {
		s.counters[k] += v
	}
}

// RunOnceSync runs one cycle synchronously regardless of whether the
// background loop is active, updating the same counters.
func (s *Supervisor) RunOnceSync(ctx context.Context) error {
	deltas, err := s.cycle(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.cycles++
	now := s.clock.Now()
	s.lastCycleAt = &now
	if err != nil {
		s.lastError = err.Error()
	} else {
		s.lastError = ""
	}
	for k, v := range deltas {
		s.counters[k] += v
	}
	return err
}

func (s *Supervisor) GetStatus() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	counters := make(map[string]int, len(s.counters))
	for k, v := range s.counters {
		counters[k] = v
	}
	return Status{
		Running:     s.running,
		Cycles:      s.cycles,
		LastCycleAt: s.lastCycleAt,
		LastError:   s.lastError,
		Counters:    counters,
	}
}

// FixedInterval is the Adapter/Summarizer cadence: sleep for d, or return
// early if ctx is cancelled.
func FixedInterval(d time.Duration) Waiter {
	return func(ctx context.Context) bool {
		timer := time.NewTimer(d)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return false
		case <-timer.C:
			return true
		}
	}
}

// BrokerOrTimeout is the Orchestrator's cadence: block on the broker
// subscription to channel, waking either on the next matching event or
// after timeout, whichever comes first (spec.md section 4.13).
func BrokerOrTimeout(broker *eventbus.Broker, channel string, timeout time.Duration) Waiter {
	return func(ctx context.Context) bool {
		sub := broker.Subscribe("", channel, false)
		defer broker.Unsubscribe(sub.ID)

		timer := time.NewTimer(timeout)
		defer timer.Stop()

		select {
		case <-ctx.Done():
			return false
		case <-timer.C:
			return true
		case _, ok := <-sub.Events():
			if !ok {
				return false
			}
			return true
		}
	}
}

func contextWithStop(parent context.Context, stopCh <-chan struct{}) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	go func() {
		select {
		case <-stopCh:
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}
