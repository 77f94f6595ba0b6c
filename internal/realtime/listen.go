package realtime

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/roach88/roster/internal/queue"
)

// EventType selects what a listener is told about.
type EventType string

const (
	// EventValue delivers the whole value at the path, immediately and after
	// every change.
	EventValue EventType = "value"
	// EventChildAdded delivers each new direct child, starting with the
	// children that already exist.
	EventChildAdded EventType = "child_added"
	// EventChildRemoved delivers the last value of each removed child.
	EventChildRemoved EventType = "child_removed"
	// EventChildChanged delivers the new value of each changed child.
	EventChildChanged EventType = "child_changed"
)

// ParseEventType validates an event type name.
func ParseEventType(s string) (EventType, error) {
	switch e := EventType(s); e {
	case EventValue, EventChildAdded, EventChildRemoved, EventChildChanged:
		return e, nil
	}
	return "", fmt.Errorf("unknown event type %q", s)
}

// Handler receives snapshots for a listener.
type Handler func(Snapshot)

// ErrorHandler receives read failures. The listener stays registered.
type ErrorHandler func(error)

// Listener is a registered handler. Pass it to Off to stop delivery.
type Listener struct {
	id      uint64
	path    string
	event   EventType
	handler Handler
	onErr   ErrorHandler
	db      *DB

	refresh *queue.Queue[struct{}]
	cancel  context.CancelFunc
	stopped atomic.Bool
	done    chan struct{}
	ready   chan struct{}
	once    sync.Once

	// owned by the listener goroutine
	last     Snapshot
	children map[string][]byte
}

// Path returns the watched path.
func (l *Listener) Path() string { return l.path }

// Event returns the watched event type.
func (l *Listener) Event() EventType { return l.event }

// On registers handler for event at path. The first delivery happens
// asynchronously right after registration. onErr may be nil.
func (d *DB) On(path string, event EventType, handler Handler, onErr ErrorHandler) (*Listener, error) {
	p, err := cleanPath(path)
	if err != nil {
		return nil, err
	}
	if _, err := ParseEventType(string(event)); err != nil {
		return nil, err
	}
	if handler == nil {
		return nil, fmt.Errorf("on %s: nil handler", p)
	}

	ctx, cancel := context.WithCancel(context.Background())
	l := &Listener{
		path:    p,
		event:   event,
		handler: handler,
		onErr:   onErr,
		db:      d,
		refresh: queue.New[struct{}](),
		cancel:  cancel,
		done:    make(chan struct{}),
		ready:   make(chan struct{}),
	}

	d.hub.add(l)
	l.refresh.Enqueue(struct{}{})
	go l.run(ctx)

	slog.Debug("listener added", "path", p, "event", event, "id", l.id)
	return l, nil
}

// Off stops delivery to l. A handler call already in progress completes;
// no call starts after Off returns. Calling Off twice is a no-op.
func (d *DB) Off(l *Listener) {
	if l == nil || !l.stopped.CompareAndSwap(false, true) {
		return
	}
	d.hub.remove(l)
	l.refresh.Close()
	l.cancel()
	slog.Debug("listener removed", "path", l.path, "event", l.event, "id", l.id)
}

// Done is closed when the listener goroutine has exited.
func (l *Listener) Done() <-chan struct{} {
	return l.done
}

// Ready is closed once the initial read has been delivered.
func (l *Listener) Ready() <-chan struct{} {
	return l.ready
}

func (l *Listener) run(ctx context.Context) {
	defer close(l.done)
	for {
		if _, ok := l.refresh.TryDequeue(); ok {
			// Coalesce a burst of writes into one read.
			for l.refresh.Len() > 0 {
				l.refresh.TryDequeue()
			}
			l.deliver(ctx)
			l.once.Do(func() { close(l.ready) })
			continue
		}

		select {
		case <-ctx.Done():
			return
		case <-l.refresh.Wait():
			if l.refresh.Closed() && l.refresh.Len() == 0 {
				return
			}
		}
	}
}

func (l *Listener) deliver(ctx context.Context) {
	snap, err := l.db.Get(ctx, l.path)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		slog.Warn("listener read failed", "path", l.path, "error", err)
		if l.onErr != nil && !l.stopped.Load() {
			l.onErr(err)
		}
		return
	}

	if l.event == EventValue {
		first := l.last.Path == ""
		if !first && bytes.Equal(l.last.Raw, snap.Raw) {
			return
		}
		l.last = snap
		l.emit(snap)
		return
	}

	current := make(map[string][]byte)
	kids := snap.Children()
	for _, c := range kids {
		current[c.Key()] = c.Raw
	}
	previous := l.children
	l.children = current

	switch l.event {
	case EventChildAdded:
		for _, c := range kids {
			if _, ok := previous[c.Key()]; !ok {
				l.emit(c)
			}
		}
	case EventChildChanged:
		if previous == nil {
			return
		}
		for _, c := range kids {
			if old, ok := previous[c.Key()]; ok && !bytes.Equal(old, c.Raw) {
				l.emit(c)
			}
		}
	case EventChildRemoved:
		for _, key := range sortedKeys(previous) {
			if _, ok := current[key]; !ok {
				l.emit(Snapshot{Path: child(l.path, key), Raw: previous[key], Rev: snap.Rev})
			}
		}
	}
}

func (l *Listener) emit(s Snapshot) {
	if l.stopped.Load() {
		return
	}
	l.handler(s)
}

// hub tracks listeners by path.
type hub struct {
	mu        sync.Mutex
	listeners map[uint64]*Listener
	nextID    uint64
}

func newHub() *hub {
	return &hub{listeners: make(map[uint64]*Listener)}
}

func (h *hub) add(l *Listener) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.nextID++
	l.id = h.nextID
	h.listeners[l.id] = l
}

func (h *hub) remove(l *Listener) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.listeners, l.id)
}

// notify schedules a refresh on every listener related to changed.
func (h *hub) notify(changed string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, l := range h.listeners {
		if related(l.path, changed) {
			l.refresh.Enqueue(struct{}{})
		}
	}
}

func (h *hub) closeAll() {
	h.mu.Lock()
	all := make([]*Listener, 0, len(h.listeners))
	for _, l := range h.listeners {
		all = append(all, l)
	}
	h.mu.Unlock()

	for _, l := range all {
		l.db.Off(l)
	}
}

// Listeners returns the number of registered listeners.
func (d *DB) Listeners() int {
	d.hub.mu.Lock()
	defer d.hub.mu.Unlock()
	return len(d.hub.listeners)
}

func sortedKeys(m map[string][]byte) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
