package flux

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/roach88/roster/internal/queue"
)

// Action is anything that can be dispatched.
type Action interface {
	Type() string
}

// Reducer computes the next state. It must not perform side effects.
type Reducer[S any] func(state S, action Action) S

// Epic turns the stream of reduced actions into a stream of derived actions.
//
// The epic must stop reading and close its output when actions is closed or
// ctx is done.
type Epic[S any] func(ctx context.Context, actions <-chan Action, state func() S) <-chan Action

// Listener observes every reduced action together with the resulting state.
type Listener[S any] func(state S, action Action)

// ErrAlreadyRunning is returned by Run when called a second time.
var ErrAlreadyRunning = errors.New("flux: store already running")

// Store holds state S and owns the dispatch loop.
//
// Thread-safety model:
//   - Dispatch, State, Subscribe, WaitFor: safe from any goroutine
//   - Run: exactly one goroutine
type Store[S any] struct {
	mu      sync.RWMutex
	state   S
	reducer Reducer[S]
	epics   []Epic[S]
	queue   *queue.Queue[Action]
	running atomic.Bool

	subsMu  sync.Mutex
	subs    map[int]Listener[S]
	nextSub int

	// epicInputs is owned by the Run goroutine.
	epicInputs []*queue.Queue[Action]
}

// New creates a store. Epics start when Run is called.
func New[S any](initial S, reducer Reducer[S], epics ...Epic[S]) *Store[S] {
	return &Store[S]{
		state:   initial,
		reducer: reducer,
		epics:   epics,
		queue:   queue.New[Action](),
		subs:    make(map[int]Listener[S]),
	}
}

// Dispatch enqueues a for the Run loop. Returns false once the store stopped.
func (s *Store[S]) Dispatch(a Action) bool {
	if a == nil {
		return false
	}
	return s.queue.Enqueue(a)
}

// State returns the current state.
func (s *Store[S]) State() S {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Subscribe registers l and returns a function that removes it.
// Listeners run on the Run goroutine and must not block.
func (s *Store[S]) Subscribe(l Listener[S]) (unsubscribe func()) {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()

	id := s.nextSub
	s.nextSub++
	s.subs[id] = l

	var once sync.Once
	return func() {
		once.Do(func() {
			s.subsMu.Lock()
			defer s.subsMu.Unlock()
			delete(s.subs, id)
		})
	}
}

// WaitFor blocks until done reports true for the current state or a later
// one, and returns that state.
func (s *Store[S]) WaitFor(ctx context.Context, done func(S) bool) (S, error) {
	matched := make(chan S, 1)
	unsubscribe := s.Subscribe(func(state S, _ Action) {
		if done(state) {
			select {
			case matched <- state:
			default:
			}
		}
	})
	defer unsubscribe()

	// Subscribed first so a transition between this check and the
	// subscription cannot be missed.
	if current := s.State(); done(current) {
		return current, nil
	}

	select {
	case state := <-matched:
		return state, nil
	case <-ctx.Done():
		var zero S
		return zero, ctx.Err()
	}
}

// Run starts the epics and processes dispatched actions until ctx is done or
// Stop is called. Returns ctx.Err() on cancellation and nil after Stop.
func (s *Store[S]) Run(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}

	ctx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	defer func() {
		cancel()
		for _, in := range s.epicInputs {
			in.Close()
		}
		wg.Wait()
	}()

	for _, epic := range s.epics {
		in := queue.New[Action]()
		s.epicInputs = append(s.epicInputs, in)

		actions := make(chan Action)
		wg.Add(2)
		go func() {
			defer wg.Done()
			pump(ctx, in, actions)
		}()

		out := epic(ctx, actions, s.State)
		go func() {
			defer wg.Done()
			s.forward(ctx, out)
		}()
	}

	slog.Debug("store running", "epics", len(s.epics))

	for {
		if a, ok := s.queue.TryDequeue(); ok {
			s.process(a)
			continue
		}

		select {
		case <-ctx.Done():
			s.queue.Close()
			slog.Debug("store stopping: context cancelled")
			return ctx.Err()

		case <-s.queue.Wait():
			if s.queue.Closed() && s.queue.Len() == 0 {
				slog.Debug("store stopping: queue closed")
				return nil
			}
		}
	}
}

// Stop closes the dispatch queue. Run drains what is queued and returns.
func (s *Store[S]) Stop() {
	s.queue.Close()
}

// process is called only from Run.
func (s *Store[S]) process(a Action) {
	s.mu.Lock()
	next := s.reducer(s.state, a)
	s.state = next
	s.mu.Unlock()

	slog.Debug("action reduced", "type", a.Type())

	s.subsMu.Lock()
	listeners := make([]Listener[S], 0, len(s.subs))
	for _, l := range s.subs {
		listeners = append(listeners, l)
	}
	s.subsMu.Unlock()

	for _, l := range listeners {
		l(next, a)
	}

	for _, in := range s.epicInputs {
		in.Enqueue(a)
	}
}

// forward dispatches everything an epic emits.
func (s *Store[S]) forward(ctx context.Context, out <-chan Action) {
	if out == nil {
		return
	}
	for {
		select {
		case <-ctx.Done():
			return
		case a, ok := <-out:
			if !ok {
				return
			}
			s.Dispatch(a)
		}
	}
}

// pump moves actions from an unbounded queue onto an epic's input channel.
func pump(ctx context.Context, in *queue.Queue[Action], actions chan<- Action) {
	defer close(actions)
	for {
		if a, ok := in.TryDequeue(); ok {
			select {
			case actions <- a:
			case <-ctx.Done():
				return
			}
			continue
		}

		select {
		case <-ctx.Done():
			return
		case <-in.Wait():
			if in.Closed() && in.Len() == 0 {
				return
			}
		}
	}
}
