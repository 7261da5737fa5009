package event

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/bizdocs/backend/internal/domain/shared"
)

type testEvent struct {
	shared.BaseDomainEvent
}

func newTestEvent(eventType string) *testEvent {
	return &testEvent{BaseDomainEvent: shared.NewBaseDomainEvent(eventType, "Test", uuid.New())}
}

type recordingHandler struct {
	mu     sync.Mutex
	types  []string
	seen   []shared.DomainEvent
	err    error
	panics bool
}

func (h *recordingHandler) EventTypes() []string { return h.types }

func (h *recordingHandler) Handle(_ context.Context, e shared.DomainEvent) error {
	if h.panics {
		panic("boom")
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.seen = append(h.seen, e)
	return h.err
}

func (h *recordingHandler) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.seen)
}

func TestInMemoryEventBus_Publish(t *testing.T) {
	ctx := context.Background()

	t.Run("routes by event type", func(t *testing.T) {
		bus := NewInMemoryEventBus(nil)
		paid := &recordingHandler{types: []string{"InvoicePaid"}}
		sent := &recordingHandler{types: []string{"InvoiceSent"}}
		bus.Subscribe(paid)
		bus.Subscribe(sent)

		require.NoError(t, bus.Publish(ctx, newTestEvent("InvoicePaid"), newTestEvent("InvoicePaid")))
		assert.Equal(t, 2, paid.count())
		assert.Equal(t, 0, sent.count())
	})

	t.Run("explicit types override handler types", func(t *testing.T) {
		bus := NewInMemoryEventBus(nil)
		h := &recordingHandler{types: []string{"InvoicePaid"}}
		bus.Subscribe(h, "OrderCreated")

		_ = bus.Publish(ctx, newTestEvent("InvoicePaid"), newTestEvent("OrderCreated"))
		assert.Equal(t, 1, h.count())
	})

	t.Run("wildcard handlers receive everything", func(t *testing.T) {
		bus := NewInMemoryEventBus(nil)
		all := &recordingHandler{}
		bus.Subscribe(all)

		_ = bus.Publish(ctx, newTestEvent("A"), newTestEvent("B"))
		assert.Equal(t, 2, all.count())
	})

	t.Run("failures and panics are logged and isolated", func(t *testing.T) {
		core, logs := observer.New(zapcore.ErrorLevel)
		bus := NewInMemoryEventBus(zap.New(core))
		failing := &recordingHandler{types: []string{"A"}, err: errors.New("nope")}
		panicking := &recordingHandler{types: []string{"A"}, panics: true}
		ok := &recordingHandler{types: []string{"A"}}
		bus.Subscribe(failing)
		bus.Subscribe(panicking)
		bus.Subscribe(ok)

		require.NoError(t, bus.Publish(ctx, newTestEvent("A")))
		assert.Equal(t, 1, ok.count())
		assert.Equal(t, 2, logs.FilterMessage("Event handler failed").Len())
	})
}

func TestInMemoryEventBus_Unsubscribe(t *testing.T) {
	bus := NewInMemoryEventBus(nil)
	typed := &recordingHandler{types: []string{"A", "B"}}
	all := &recordingHandler{}
	bus.Subscribe(typed)
	bus.Subscribe(all)

	bus.Unsubscribe(typed)
	bus.Unsubscribe(all)
	_ = bus.Publish(context.Background(), newTestEvent("A"), newTestEvent("B"))

	assert.Zero(t, typed.count())
	assert.Zero(t, all.count())
	assert.Empty(t, bus.handlers)
}
