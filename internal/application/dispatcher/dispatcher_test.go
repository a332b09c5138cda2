package dispatcher

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aditpras/loan-workflow/internal/domain/event"
)

func TestDispatcher_DeliversInRegistrationOrder(t *testing.T) {
	d := NewDispatcher()
	defer d.Close()

	var order []string
	d.SubscribeNamed(event.TypeLoanUpdated, "first", func(ctx context.Context, evt *event.Event) error {
		order = append(order, "first")
		return nil
	})
	d.SubscribeNamed(event.TypeLoanUpdated, "second", func(ctx context.Context, evt *event.Event) error {
		order = append(order, "second")
		return nil
	})

	err := d.Dispatch(context.Background(), event.NewEvent(event.TypeLoanUpdated, "loan-1", nil))
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second"}, order)
}

func TestDispatcher_HandlerErrorDoesNotStarveLaterHandlers(t *testing.T) {
	d := NewDispatcher()
	defer d.Close()

	called := false
	d.SubscribeNamed(event.TypeLoanUpdated, "failing", func(ctx context.Context, evt *event.Event) error {
		return errors.New("boom")
	})
	d.SubscribeNamed(event.TypeLoanUpdated, "after", func(ctx context.Context, evt *event.Event) error {
		called = true
		return nil
	})

	err := d.Dispatch(context.Background(), event.NewEvent(event.TypeLoanUpdated, "loan-1", nil))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failing")
	assert.True(t, called, "every subscriber registered at emission time must receive the event")
}

func TestDispatcher_JoinsMultipleHandlerErrors(t *testing.T) {
	d := NewDispatcher()
	defer d.Close()

	first := errors.New("sqlite locked")
	second := errors.New("sink unreachable")
	d.SubscribeNamed(event.TypeLoanUpdated, "one", func(ctx context.Context, evt *event.Event) error {
		return first
	})
	d.SubscribeNamed(event.TypeLoanUpdated, "two", func(ctx context.Context, evt *event.Event) error {
		return second
	})

	err := d.Dispatch(context.Background(), event.NewEvent(event.TypeLoanUpdated, "loan-1", nil))
	require.Error(t, err)
	assert.ErrorIs(t, err, first)
	assert.ErrorIs(t, err, second)
}

func TestDispatcher_PanicIsRecovered(t *testing.T) {
	d := NewDispatcher()
	defer d.Close()

	d.Subscribe(event.TypeLoanUpdated, func(ctx context.Context, evt *event.Event) error {
		panic("handler blew up")
	})

	err := d.Dispatch(context.Background(), event.NewEvent(event.TypeLoanUpdated, "loan-1", nil))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "panic")
}

func TestDispatcher_Unsubscribe(t *testing.T) {
	d := NewDispatcher()
	defer d.Close()

	count := 0
	d.SubscribeNamed(event.TypeLoanUpdated, "counter", func(ctx context.Context, evt *event.Event) error {
		count++
		return nil
	})

	require.NoError(t, d.Dispatch(context.Background(), event.NewEvent(event.TypeLoanUpdated, "loan-1", nil)))
	d.Unsubscribe(event.TypeLoanUpdated, "counter")
	require.NoError(t, d.Dispatch(context.Background(), event.NewEvent(event.TypeLoanUpdated, "loan-1", nil)))

	assert.Equal(t, 1, count)
	assert.Equal(t, 0, d.HandlerCount(event.TypeLoanUpdated))
}

func TestDispatcher_ClosedRejectsDispatch(t *testing.T) {
	d := NewDispatcher()
	require.NoError(t, d.Close())

	err := d.Dispatch(context.Background(), event.NewEvent(event.TypeLoanUpdated, "loan-1", nil))
	assert.Error(t, err)
	assert.Error(t, d.Close())
}

func TestDispatcher_AsyncWaitsOnClose(t *testing.T) {
	d := NewDispatcher()

	var mu sync.Mutex
	done := false
	d.Subscribe(event.TypeLoanApplied, func(ctx context.Context, evt *event.Event) error {
		mu.Lock()
		done = true
		mu.Unlock()
		return nil
	})

	d.DispatchAsync(context.Background(), event.NewEvent(event.TypeLoanApplied, "loan-1", nil))
	require.NoError(t, d.Close())

	mu.Lock()
	defer mu.Unlock()
	assert.True(t, done, "Close must wait for async handlers")
}

func TestPublisher_AppliedAlsoTriggersUpdated(t *testing.T) {
	d := NewDispatcher()
	defer d.Close()
	p := NewPublisher(d)

	appliedCalls := 0
	updatedCalls := 0
	p.OnLoanApplied("applied-observer", func(ctx context.Context, evt *event.Event) error {
		appliedCalls++
		assert.Equal(t, "loan-9", evt.LoanID)
		return nil
	})
	p.OnLoanUpdated("updated-observer", func(ctx context.Context, evt *event.Event) error {
		updatedCalls++
		return nil
	})

	require.NoError(t, p.LoanApplied(context.Background(), "loan-9", nil))
	assert.Equal(t, 1, appliedCalls)
	assert.Equal(t, 1, updatedCalls, "loan.applied must fan out exactly one loan.updated per subscriber")
}

func TestPublisher_AppliedHandlerErrorStillTriggersUpdated(t *testing.T) {
	d := NewDispatcher()
	defer d.Close()
	p := NewPublisher(d)

	p.OnLoanApplied("failing-bookkeeper", func(ctx context.Context, evt *event.Event) error {
		return errors.New("disk full")
	})

	viewRefetched := false
	p.OnLoanUpdated("list-view", func(ctx context.Context, evt *event.Event) error {
		viewRefetched = true
		return nil
	})

	err := p.LoanApplied(context.Background(), "loan-9", nil)
	require.Error(t, err)
	assert.True(t, viewRefetched, "loan.applied must also trigger loan.updated even when an applied subscriber fails")
}

func TestPublisher_NoReplayForLateSubscribers(t *testing.T) {
	d := NewDispatcher()
	defer d.Close()
	p := NewPublisher(d)

	require.NoError(t, p.LoanUpdated(context.Background(), "loan-1", nil))

	late := 0
	unsubscribe := p.OnLoanUpdated("late", func(ctx context.Context, evt *event.Event) error {
		late++
		return nil
	})
	defer unsubscribe()

	assert.Equal(t, 0, late, "subscribers registered after emission see nothing")

	require.NoError(t, p.LoanUpdated(context.Background(), "loan-1", nil))
	assert.Equal(t, 1, late)
}
