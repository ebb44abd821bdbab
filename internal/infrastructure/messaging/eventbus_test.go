package messaging

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/classpulse/insight-hub/internal/domain/shared"
)

func syncBus() *InMemoryEventBus {
	return NewInMemoryEventBus(InMemoryEventBusConfig{
		AsyncMode:     false,
		EnableMetrics: true,
	})
}

func TestInMemoryEventBus_PublishReachesTypedSubscriber(t *testing.T) {
	bus := syncBus()
	defer bus.Close()

	var received []shared.Event
	err := bus.Subscribe(shared.EventBadgeSuggested, func(e shared.Event) error {
		received = append(received, e)
		return nil
	})
	assert.NoError(t, err)

	event := shared.NewBadgeSuggestedEvent(
		"sug-1", "student-1", "progress_star", "math", "math-fractions-02", "high",
		"Improved from 45% to 82% on Fractions II")
	assert.NoError(t, bus.Publish(event))

	assert.Len(t, received, 1)
	assert.Equal(t, shared.EventBadgeSuggested, received[0].EventType())
	assert.Equal(t, "student-1", received[0].AggregateID())
}

func TestInMemoryEventBus_TypedSubscriberIgnoresOtherEvents(t *testing.T) {
	bus := syncBus()
	defer bus.Close()

	calls := 0
	_ = bus.Subscribe(shared.EventAttentionCleared, func(e shared.Event) error {
		calls++
		return nil
	})

	assert.NoError(t, bus.Publish(shared.NewAttemptCompletedEvent(
		"student-1", "math-fractions-02", "math", 82, 0.1, 12)))
	assert.Equal(t, 0, calls)
}

func TestInMemoryEventBus_GlobalSubscriberSeesEverything(t *testing.T) {
	bus := syncBus()
	defer bus.Close()

	var types []shared.EventType
	_ = bus.SubscribeAll(func(e shared.Event) error {
		types = append(types, e.EventType())
		return nil
	})

	_ = bus.Publish(shared.NewAttemptCompletedEvent("s1", "a1-x", "math", 80, 0.2, 10))
	_ = bus.Publish(shared.NewAttentionClearedEvent("s1"))

	assert.Equal(t, []shared.EventType{shared.EventAttemptCompleted, shared.EventAttentionCleared}, types)
}

func TestInMemoryEventBus_HandlerErrorDoesNotStopOthers(t *testing.T) {
	bus := syncBus()
	defer bus.Close()

	secondCalled := false
	_ = bus.Subscribe(shared.EventRecommendationResolved, func(e shared.Event) error {
		return errors.New("boom")
	})
	_ = bus.Subscribe(shared.EventRecommendationResolved, func(e shared.Event) error {
		secondCalled = true
		return nil
	})

	assert.NoError(t, bus.Publish(shared.NewRecommendationResolvedEvent("r1", "s1", "teacher-1")))
	assert.True(t, secondCalled)

	snap := bus.Metrics().Snapshot()
	assert.Equal(t, int64(1), snap.TotalPublished)
	assert.Equal(t, int64(2), snap.TotalHandlerExecs)
}

func TestInMemoryEventBus_ClosedBusRejectsOperations(t *testing.T) {
	bus := syncBus()
	assert.NoError(t, bus.Close())

	err := bus.Publish(shared.NewAttentionClearedEvent("s1"))
	assert.ErrorIs(t, err, ErrEventBusClosed)

	err = bus.Subscribe(shared.EventAttemptCompleted, func(e shared.Event) error { return nil })
	assert.ErrorIs(t, err, ErrEventBusClosed)
}
