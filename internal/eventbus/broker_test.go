package eventbus

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RSuyash/repomesh/internal/logging"
	"github.com/RSuyash/repomesh/internal/model"
)

func newTestBroker(t *testing.T) (*Broker, context.CancelFunc) {
	t.Helper()
	log := logging.New(logging.Config{Level: "error"})
	broker := New(log)
	ctx, cancel := context.WithCancel(context.Background())
	go broker.Run(ctx)
	t.Cleanup(cancel)
	return broker, cancel
}

func recv(t *testing.T, ch <-chan *model.Event) *model.Event {
	t.Helper()
	select {
	case e := <-ch:
		return e
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return nil
	}
}

func TestBroker_BroadcastDelivery(t *testing.T) {
	broker, _ := newTestBroker(t)

	sub := broker.Subscribe("", "orchestration", false)
	defer broker.Unsubscribe(sub.ID)

	broker.Publish(&model.Event{Type: "task.created", Channel: "orchestration"})

	event := recv(t, sub.Events())
	assert.Equal(t, "task.created", event.Type)
}

func TestBroker_ChannelFilter(t *testing.T) {
	broker, _ := newTestBroker(t)

	sub := broker.Subscribe("", "orchestration", false)
	defer broker.Unsubscribe(sub.ID)

	broker.Publish(&model.Event{Type: "chat.message", Channel: "chat"})

	select {
	case e := <-sub.Events():
		t.Fatalf("expected no delivery for non-matching channel, got %v", e)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestBroker_RecipientTargeting(t *testing.T) {
	broker, _ := newTestBroker(t)

	mine := broker.Subscribe("agent-1", "", false)
	defer broker.Unsubscribe(mine.ID)
	other := broker.Subscribe("agent-2", "", false)
	defer broker.Unsubscribe(other.ID)

	recipient := "agent-1"
	broker.Publish(&model.Event{Type: "event.log", RecipientID: &recipient})

	event := recv(t, mine.Events())
	assert.Equal(t, "event.log", event.Type)

	select {
	case e := <-other.Events():
		t.Fatalf("expected agent-2 to not receive agent-1's event, got %v", e)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestBroker_RecipientWithIncludeBroadcast(t *testing.T) {
	broker, _ := newTestBroker(t)

	sub := broker.Subscribe("agent-1", "", true)
	defer broker.Unsubscribe(sub.ID)

	broker.Publish(&model.Event{Type: "announcement", RecipientID: nil})

	event := recv(t, sub.Events())
	assert.Equal(t, "announcement", event.Type)
}

func TestBroker_RecipientWithoutIncludeBroadcastIgnoresBroadcast(t *testing.T) {
	broker, _ := newTestBroker(t)

	sub := broker.Subscribe("agent-1", "", false)
	defer broker.Unsubscribe(sub.ID)

	broker.Publish(&model.Event{Type: "announcement", RecipientID: nil})

	select {
	case e := <-sub.Events():
		t.Fatalf("expected no broadcast delivery, got %v", e)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestBroker_DropOldestOnOverflow(t *testing.T) {
	broker, _ := newTestBroker(t)

	sub := broker.Subscribe("", "flood", false)
	defer broker.Unsubscribe(sub.ID)

	for i := 0; i < subscriberQueueCapacity+10; i++ {
		broker.Publish(&model.Event{Type: "flood.event", Channel: "flood"})
	}

	// Draining must not block even though we published more than capacity.
	time.Sleep(50 * time.Millisecond)
	count := 0
	for {
		select {
		case <-sub.Events():
			count++
		default:
			require.LessOrEqual(t, count, subscriberQueueCapacity)
			return
		}
	}
}

func TestBroker_UnsubscribeClosesChannel(t *testing.T) {
	broker, _ := newTestBroker(t)

	sub := broker.Subscribe("", "", false)
	broker.Unsubscribe(sub.ID)

	select {
	case _, ok := <-sub.Events():
		assert.False(t, ok, "channel should be closed after unsubscribe")
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for channel close")
	}
}

func TestBroker_ContextCancelClosesAllSubscribers(t *testing.T) {
	log := logging.New(logging.Config{Level: "error"})
	broker := New(log)
	ctx, cancel := context.WithCancel(context.Background())
	go broker.Run(ctx)

	sub := broker.Subscribe("", "", false)
	cancel()

	select {
	case _, ok := <-sub.Events():
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for shutdown close")
	}
}
