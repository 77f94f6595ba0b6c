package roster

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/roach88/roster/internal/auth"
	"github.com/roach88/roster/internal/flux"
	"github.com/roach88/roster/internal/realtime"
)

var errUnavailable = errors.New("database unavailable")

// failingDB rejects every write and subscription.
type failingDB struct {
	*realtime.DB
}

func (failingDB) Push(context.Context, string, any) (string, error) { return "", errUnavailable }
func (failingDB) Set(context.Context, string, any) error            { return errUnavailable }
func (failingDB) Remove(context.Context, string) error              { return errUnavailable }
func (failingDB) On(string, realtime.EventType, realtime.Handler, realtime.ErrorHandler) (*realtime.Listener, error) {
	return nil, errUnavailable
}

type harness struct {
	store *flux.Store[RootState]
	db    *realtime.DB
	auth  *auth.Service
	nav   *History

	mu      sync.Mutex
	actions []flux.Action
}

type harnessOption func(*Deps, *harness)

func withFailingDB() harnessOption {
	return func(d *Deps, h *harness) { d.DB = failingDB{h.db} }
}

func newHarness(t *testing.T, keys []string, opts ...harnessOption) *harness {
	t.Helper()
	ctx := context.Background()

	var dbOpts []realtime.Option
	if len(keys) > 0 {
		dbOpts = append(dbOpts, realtime.WithKeys(realtime.NewFixedKeys(keys...)))
	}
	db, err := realtime.Open(ctx, realtime.Config{DSN: filepath.Join(t.TempDir(), "roster.db")}, dbOpts...)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	n := 0
	svc, err := auth.New(ctx, db, auth.WithCost(bcrypt.MinCost), auth.WithUIDs(func() string {
		n++
		return fmt.Sprintf("user-%d", n)
	}))
	require.NoError(t, err)

	h := &harness{db: db, auth: svc, nav: &History{}}
	deps := Deps{Auth: svc, DB: db, Nav: h.nav, Timeout: 5 * time.Second}
	for _, opt := range opts {
		opt(&deps, h)
	}

	h.store = flux.New(InitialState(), Reduce, Epics(deps)...)
	h.store.Subscribe(func(_ RootState, a flux.Action) {
		h.mu.Lock()
		defer h.mu.Unlock()
		h.actions = append(h.actions, a)
	})

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() { done <- h.store.Run(runCtx) }()
	t.Cleanup(func() {
		cancel()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Error("store did not stop")
		}
	})
	return h
}

// signIn creates an account directly on the auth service.
func (h *harness) signIn(t *testing.T) *auth.User {
	t.Helper()
	u, err := h.auth.CreateUser(context.Background(), "boss@example.com", "secret1")
	require.NoError(t, err)
	h.waitState(t, func(s RootState) bool { return s.Auth.User != nil })
	return u
}

func (h *harness) waitState(t *testing.T, done func(RootState) bool) RootState {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	state, err := h.store.WaitFor(ctx, done)
	require.NoError(t, err)
	return state
}

func (h *harness) seen() []flux.Action {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]flux.Action(nil), h.actions...)
}

// ofType returns the reduced actions whose Type is typ.
func (h *harness) ofType(typ string) []flux.Action {
	var out []flux.Action
	for _, a := range h.seen() {
		if a.Type() == typ {
			out = append(out, a)
		}
	}
	return out
}

func (h *harness) waitNav(t *testing.T, route string, count int) {
	t.Helper()
	require.Eventually(t, func() bool {
		n := 0
		for _, s := range h.nav.Steps() {
			if s.Route == route {
				n++
			}
		}
		return n >= count
	}, 3*time.Second, 5*time.Millisecond, "expected %d navigations to %s, got %v", count, route, h.nav.Steps())
}
