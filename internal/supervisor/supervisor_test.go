package supervisor

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RSuyash/repomesh/internal/clock"
	"github.com/RSuyash/repomesh/internal/eventbus"
	"github.com/RSuyash/repomesh/internal/logging"
	"github.com/RSuyash/repomesh/internal/model"
)

func testLogger() *logging.Logger {
	return logging.New(logging.Config{Level: "error"})
}

func TestSupervisor_RunOnceSync(t *testing.T) {
	calls := int32(0)
	cycle := func(ctx context.Context) (map[string]int, error) {
		atomic.AddInt32(&calls, 1)
		return map[string]int{"processed": 2}, nil
	}
	s := New("test", cycle, FixedInterval(time.Hour), clock.System{}, testLogger())

	err := s.RunOnceSync(context.Background())
	require.NoError(t, err)

	status := s.GetStatus()
	assert.Equal(t, 1, status.Cycles)
	assert.Equal(t, 2, status.Counters["processed"])
	assert.Empty(t, status.LastError)
	assert.False(t, status.Running)
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestSupervisor_RunOnceSyncAccumulatesCounters(t *testing.T) {
	cycle := func(ctx context.Context) (map[string]int, error) {
		return map[string]int{"processed": 1}, nil
	}
	s := New("test", cycle, FixedInterval(time.Hour), clock.System{}, testLogger())

	require.NoError(t, s.RunOnceSync(context.Background()))
	require.NoError(t, s.RunOnceSync(context.Background()))
	require.NoError(t, s.RunOnceSync(context.Background()))

	status := s.GetStatus()
	assert.Equal(t, 3, status.Cycles)
	assert.Equal(t, 3, status.Counters["processed"])
}

func TestSupervisor_RunOnceSyncRecordsError(t *testing.T) {
	cycle := func(ctx context.Context) (map[string]int, error) {
		return nil, errors.New("boom")
	}
	s := New("test", cycle, FixedInterval(time.Hour), clock.System{}, testLogger())

	err := s.RunOnceSync(context.Background())
	require.Error(t, err)

	status := s.GetStatus()
	assert.Equal(t, "boom", status.LastError)
	assert.Equal(t, 1, status.Cycles)
}

func TestSupervisor_StartStopRunsLoop(t *testing.T) {
	calls := int32(0)
	cycle := func(ctx context.Context) (map[string]int, error) {
		atomic.AddInt32(&calls, 1)
		return nil, nil
	}
	s := New("test", cycle, FixedInterval(10*time.Millisecond), clock.System{}, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s.Start(ctx)
	assert.True(t, s.GetStatus().Running)

	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&calls) >= 2
	}, time.Second, 5*time.Millisecond)

	s.Stop()
	assert.False(t, s.GetStatus().Running)
}

func TestSupervisor_StartIsIdempotent(t *testing.T) {
	s := New("test", func(ctx context.Context) (map[string]int, error) {
		return nil, nil
	}, FixedInterval(time.Hour), clock.System{}, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s.Start(ctx)
	s.Start(ctx)
	assert.True(t, s.GetStatus().Running)
	s.Stop()
}

func TestSupervisor_StopIsIdempotent(t *testing.T) {
	s := New("test", func(ctx context.Context) (map[string]int, error) {
		return nil, nil
	}, FixedInterval(time.Hour), clock.System{}, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s.Start(ctx)
	s.Stop()
	assert.NotPanics(t, func() { s.Stop() })
}

func TestSupervisor_StopBeforeStartIsNoop(t *testing.T) {
	s := New("test", func(ctx context.Context) (map[string]int, error) {
		return nil, nil
	}, FixedInterval(time.Hour), clock.System{}, testLogger())

	assert.NotPanics(t, func() { s.Stop() })
	assert.False(t, s.GetStatus().Running)
}

func TestFixedInterval_ReturnsFalseOnCancel(t *testing.T) {
	waiter := FixedInterval(time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.False(t, waiter(ctx))
}

func TestFixedInterval_ReturnsTrueAfterDuration(t *testing.T) {
	waiter := FixedInterval(5 * time.Millisecond)
	assert.True(t, waiter(context.Background()))
}

func TestBrokerOrTimeout_WakesOnEvent(t *testing.T) {
	log := testLogger()
	broker := eventbus.New(log)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go broker.Run(ctx)

	waiter := BrokerOrTimeout(broker, "tasks", time.Hour)

	done := make(chan bool, 1)
	go func() {
		done <- waiter(ctx)
	}()

	time.Sleep(20 * time.Millisecond)
	broker.Publish(&model.Event{Type: "task.created", Channel: "tasks"})

	select {
	case result := <-done:
		assert.True(t, result)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for waiter to wake on event")
	}
}

func TestBrokerOrTimeout_WakesOnTimeout(t *testing.T) {
	log := testLogger()
	broker := eventbus.New(log)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go broker.Run(ctx)

	waiter := BrokerOrTimeout(broker, "tasks", 10*time.Millisecond)
	assert.True(t, waiter(ctx))
}

func TestBrokerOrTimeout_ReturnsFalseOnCancel(t *testing.T) {
	log := testLogger()
	broker := eventbus.New(log)
	ctx, cancel := context.WithCancel(context.Background())
	go broker.Run(ctx)

	waiter := BrokerOrTimeout(broker, "tasks", time.Hour)

	waitCtx, waitCancel := context.WithCancel(ctx)
	done := make(chan bool, 1)
	go func() {
		done <- waiter(waitCtx)
	}()
	waitCancel()

	select {
	case result := <-done:
		assert.False(t, result)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for waiter to return on cancel")
	}
	cancel()
}
