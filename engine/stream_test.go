package engine

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/wfunc/murderboard/actions"
	"github.com/wfunc/murderboard/state"
)

type countingObserver struct {
	mu     sync.Mutex
	counts map[actions.Type]int
}

func (o *countingObserver) ObserveAction(a actions.Action, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.counts[a.Type]++
}

func (o *countingObserver) count(t actions.Type) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.counts[t]
}

func TestStream_ReducesBeforeDelivery(t *testing.T) {
	store := state.NewStore(state.AppState{})
	stream := NewStream(store, nil, nil)

	seen := make(chan int, 1)
	stream.Subscribe(func(actions.Action) {
		seen <- int(store.Snapshot().Board.Lives)
	}, actions.GuessFailed)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = stream.Run(ctx) }()

	require.NoError(t, stream.Dispatch(ctx, actions.NewSetupBoardComplete(actions.SetupBoardCompletePayload{Lives: 3})))
	require.NoError(t, stream.Dispatch(ctx, actions.NewGuessFailed()))

	select {
	case lives := <-seen:
		require.Equal(t, 2, lives, "subscriber should observe the state after the action was reduced")
	case <-time.After(time.Second):
		t.Fatal("subscriber was not called")
	}
}

func TestStream_EmissionsQueueBehindCurrentAction(t *testing.T) {
	store := state.NewStore(state.AppState{})
	stream := NewStream(store, nil, nil)

	var mu sync.Mutex
	var order []string
	note := func(s string) {
		mu.Lock()
		order = append(order, s)
		mu.Unlock()
	}

	stream.Subscribe(func(actions.Action) {
		note("first:setup")
		stream.emit(actions.NewStartSession())
	}, actions.SetupBoard)
	stream.Subscribe(func(a actions.Action) {
		note("second:" + string(a.Type))
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = stream.Run(ctx) }()

	require.NoError(t, stream.Dispatch(ctx, actions.NewSetupBoard()))
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(order) == 3
	}, time.Second, 2*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []string{"first:setup", "second:SETUP_BOARD", "second:START_SESSION"}, order)
}

func TestStream_ObserverAndClose(t *testing.T) {
	observer := &countingObserver{counts: map[actions.Type]int{}}
	stream := NewStream(state.NewStore(state.AppState{}), observer, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- stream.Run(ctx) }()

	require.NoError(t, stream.Dispatch(ctx, actions.NewNavToMainMenu()))
	require.Eventually(t, func() bool { return observer.count(actions.NavToMainMenu) == 1 }, time.Second, 2*time.Millisecond)

	cancel()
	require.ErrorIs(t, <-done, context.Canceled)
	require.ErrorIs(t, stream.Dispatch(context.Background(), actions.NewNavToMainMenu()), ErrStreamClosed)
}
