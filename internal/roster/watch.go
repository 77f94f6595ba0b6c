package roster

import (
	"context"
	"log/slog"

	"github.com/roach88/roster/internal/flux"
	"github.com/roach88/roster/internal/queue"
	"github.com/roach88/roster/internal/realtime"
)

// WatchEpic owns the single live subscription to the signed-in user's
// employees. A new WatchRequested replaces the subscription; UnwatchRequested
// and signing out drop it.
func WatchEpic(d Deps) flux.Epic[RootState] {
	return func(ctx context.Context, actions <-chan flux.Action, _ func() RootState) <-chan flux.Action {
		out := make(chan flux.Action)
		go func() {
			defer close(out)
			w := &watcher{deps: d, events: queue.New[watchEvent]()}
			defer w.events.Close()
			defer w.stop()
			w.loop(ctx, actions, out)
		}()
		return out
	}
}

// watchEvent is an action produced by a listener. gen ties it to the
// subscription that produced it so late deliveries from a replaced
// subscription are dropped.
type watchEvent struct {
	gen    uint64
	action flux.Action
}

type watcher struct {
	deps    Deps
	events  *queue.Queue[watchEvent]
	current *realtime.Listener
	gen     uint64
}

func (w *watcher) loop(ctx context.Context, actions <-chan flux.Action, out chan<- flux.Action) {
	emit := func(a flux.Action) bool {
		select {
		case out <- a:
			return true
		case <-ctx.Done():
			return false
		}
	}

	for {
		if ev, ok := w.events.TryDequeue(); ok {
			if ev.gen == w.gen && w.current != nil {
				if !emit(ev.action) {
					return
				}
			}
			continue
		}

		select {
		case <-ctx.Done():
			return
		case <-w.events.Wait():
		case a, ok := <-actions:
			if !ok {
				return
			}
			for _, derived := range w.handle(a) {
				if !emit(derived) {
					return
				}
			}
		}
	}
}

func (w *watcher) handle(a flux.Action) []flux.Action {
	switch a := a.(type) {
	case WatchRequested:
		return w.watch()
	case UnwatchRequested:
		w.stop()
		return []flux.Action{Unsubscribed{}}
	case AuthStateChanged:
		if a.User == nil && w.current != nil {
			w.stop()
			return []flux.Action{Unsubscribed{}}
		}
	}
	return nil
}

func (w *watcher) watch() []flux.Action {
	u := w.deps.Auth.CurrentUser()
	if u == nil {
		w.deps.Nav.Navigate(RouteAuth, nil)
		return []flux.Action{WatchFailed{Err: NotSignedInMessage}}
	}

	w.stop()
	w.gen++
	gen := w.gen
	path := EmployeesPath(u.UID)

	l, err := w.deps.DB.On(path, realtime.EventValue,
		func(s realtime.Snapshot) {
			w.events.Enqueue(watchEvent{gen: gen, action: fetched(s)})
		},
		func(err error) {
			slog.Warn("employee feed read failed", "path", path, "error", err)
			w.events.Enqueue(watchEvent{gen: gen, action: WatchFailed{Err: FailureMessage}})
		})
	if err != nil {
		slog.Warn("watch employees failed", "path", path, "error", err)
		return []flux.Action{WatchFailed{Err: FailureMessage}}
	}

	w.current = l
	slog.Debug("watching employees", "path", path)
	return []flux.Action{WatchStarted{Path: path}}
}

// stop drops the current subscription, if any.
func (w *watcher) stop() {
	if w.current == nil {
		return
	}
	w.deps.DB.Off(w.current)
	w.current = nil
}

// fetched decodes a snapshot of the employees path. Keys become UIDs.
func fetched(s realtime.Snapshot) flux.Action {
	list := make(map[string]Employee)
	if err := s.Decode(&list); err != nil {
		slog.Warn("decode employees failed", "path", s.Path, "error", err)
		return WatchFailed{Err: FailureMessage}
	}
	for uid, e := range list {
		e.UID = uid
		list[uid] = e
	}
	return EmployeesFetched{Employees: list}
}
