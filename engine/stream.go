package engine

import (
	"context"
	"errors"
	"slices"
	"time"

	"github.com/wfunc/murderboard/actions"
	"github.com/wfunc/murderboard/logger"
	"github.com/wfunc/murderboard/state"
	"go.uber.org/zap"
)

// ErrStreamClosed is returned when dispatching to a stream whose loop has exited.
var ErrStreamClosed = errors.New("action stream closed")

const inboxSize = 64

// Observer is told about every processed action and how long its
// reduction and delivery took.
type Observer interface {
	ObserveAction(a actions.Action, d time.Duration)
}

type subscription struct {
	types []actions.Type // empty means every type
	fn    func(actions.Action)
}

func (s subscription) matches(t actions.Type) bool {
	return len(s.types) == 0 || slices.Contains(s.types, t)
}

type envelope struct {
	action actions.Action
	task   func()
}

// Stream is the ordered, multicast action stream of one game. Every action is
// reduced into the store before subscribers see it, so snapshots taken by a
// subscriber include the action being delivered. Subscribers and scheduled
// tasks all run on the goroutine calling Run.
type Stream struct {
	store    *state.Store
	observer Observer
	log      *zap.SugaredLogger
	inbox    chan envelope
	pending  []actions.Action
	subs     []subscription
	done     chan struct{}
}

func NewStream(store *state.Store, observer Observer, log *zap.SugaredLogger) *Stream {
	if log == nil {
		log = logger.Log
	}
	return &Stream{
		store:    store,
		observer: observer,
		log:      log,
		inbox:    make(chan envelope, inboxSize),
		done:     make(chan struct{}),
	}
}

// Subscribe registers fn for the given action types, or for all of them when
// none are given. Subscribers are called in registration order. Subscribe must
// not be called after Run has started.
func (s *Stream) Subscribe(fn func(actions.Action), types ...actions.Type) {
	s.subs = append(s.subs, subscription{types: types, fn: fn})
}

// Dispatch queues a from any goroutine.
func (s *Stream) Dispatch(ctx context.Context, a actions.Action) error {
	select {
	case <-s.done:
		return ErrStreamClosed
	default:
	}

	select {
	case s.inbox <- envelope{action: a}:
		return nil
	case <-s.done:
		return ErrStreamClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// schedule runs task on the loop. Tasks scheduled after the loop exited are dropped.
func (s *Stream) schedule(task func()) {
	select {
	case s.inbox <- envelope{task: task}:
	case <-s.done:
	}
}

// emit queues an action produced on the loop behind the one being processed.
func (s *Stream) emit(a actions.Action) {
	s.pending = append(s.pending, a)
}

// Done is closed once Run has returned.
func (s *Stream) Done() <-chan struct{} {
	return s.done
}

// Run processes actions until ctx is canceled.
func (s *Stream) Run(ctx context.Context) error {
	defer close(s.done)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case env := <-s.inbox:
			if env.task != nil {
				env.task()
			} else {
				s.emit(env.action)
			}
			s.drain()
		}
	}
}

func (s *Stream) drain() {
	for len(s.pending) > 0 {
		a := s.pending[0]
		s.pending[0] = actions.Action{}
		s.pending = s.pending[1:]
		s.process(a)
	}
	s.pending = s.pending[:0]
}

func (s *Stream) process(a actions.Action) {
	start := time.Now()
	s.store.Apply(a)
	for _, sub := range s.subs {
		if sub.matches(a.Type) {
			sub.fn(a)
		}
	}
	elapsed := time.Since(start)
	s.log.Debugw("action processed", "type", a.Type, "elapsed", elapsed)
	if s.observer != nil {
		s.observer.ObserveAction(a, elapsed)
	}
}
