// Package app wires the database, auth service, and store together and
// exposes a blocking Client over the action stream.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/roach88/roster/internal/auth"
	"github.com/roach88/roster/internal/config"
	"github.com/roach88/roster/internal/flux"
	"github.com/roach88/roster/internal/realtime"
	"github.com/roach88/roster/internal/roster"
)

// App is a running roster instance.
type App struct {
	DB    *realtime.DB
	Auth  *auth.Service
	Store *flux.Store[roster.RootState]
	Nav   *roster.History

	cancel context.CancelFunc
	done   chan error
}

type options struct {
	db   []realtime.Option
	auth []auth.Option
}

// Option customises Open.
type Option func(*options)

// WithDBOptions passes options to realtime.Open.
func WithDBOptions(opts ...realtime.Option) Option {
	return func(o *options) {
		o.db = append(o.db, opts...)
	}
}

// WithAuthOptions passes options to auth.New.
func WithAuthOptions(opts ...auth.Option) Option {
	return func(o *options) {
		o.auth = append(o.auth, opts...)
	}
}

// Open connects to the database, restores the saved session, and starts
// the store loop with every epic. Close releases everything.
func Open(ctx context.Context, cfg config.Config, opts ...Option) (*App, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	db, err := realtime.Open(ctx, cfg.Database.Realtime(), o.db...)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	authOpts := append([]auth.Option{auth.WithSession(auth.NewSessionFile(cfg.SessionFile))}, o.auth...)
	svc, err := auth.New(ctx, db, authOpts...)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("open auth: %w", err)
	}

	u, err := svc.Restore(ctx)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("restore session: %w", err)
	}
	if u != nil {
		slog.Debug("session restored", "uid", u.UID)
	}

	nav := &roster.History{}
	deps := roster.Deps{Auth: svc, DB: db, Nav: nav, Timeout: cfg.RequestTimeout}
	store := flux.New(roster.InitialState(), roster.Reduce, roster.Epics(deps)...)

	runCtx, cancel := context.WithCancel(context.Background())
	a := &App{
		DB:     db,
		Auth:   svc,
		Store:  store,
		Nav:    nav,
		cancel: cancel,
		done:   make(chan error, 1),
	}
	go func() {
		a.done <- store.Run(runCtx)
	}()

	return a, nil
}

// Client returns a blocking client bound to this app.
func (a *App) Client() *Client {
	return &Client{store: a.Store, auth: a.Auth}
}

// Close stops the store loop, then closes the database.
func (a *App) Close() error {
	a.cancel()
	if err := <-a.done; err != nil && !errors.Is(err, context.Canceled) {
		slog.Warn("store loop stopped with error", "error", err)
	}
	return a.DB.Close()
}
