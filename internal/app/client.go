package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/roach88/roster/internal/async"
	"github.com/roach88/roster/internal/auth"
	"github.com/roach88/roster/internal/flux"
	"github.com/roach88/roster/internal/roster"
)

var (
	// ErrMissingUID is returned when an update or fire names no employee.
	ErrMissingUID = errors.New("app: employee uid is required")
	// ErrStopped is returned once the store loop has stopped.
	ErrStopped = errors.New("app: store stopped")
)

// RequestError is a remote request that settled as a failure.
type RequestError struct {
	Op      string
	Message string
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

// Client runs one request at a time through the store: it dispatches the
// request action and waits for the matching async action to settle.
type Client struct {
	store *flux.Store[roster.RootState]
	auth  *auth.Service

	mu sync.Mutex
}

// State returns the current store state.
func (c *Client) State() roster.RootState {
	return c.store.State()
}

// CurrentUser returns the signed-in user, or nil.
func (c *Client) CurrentUser() *auth.User {
	return c.auth.CurrentUser()
}

// Login signs in, creating the account when it does not exist yet.
func (c *Client) Login(ctx context.Context, email, password string) (*auth.User, error) {
	var user *auth.User
	err := c.await(ctx, roster.LoginRequested{Email: email, Password: password}, func(a flux.Action) (bool, error) {
		login, ok := a.(roster.Login)
		if !ok {
			return false, nil
		}
		if u, ok := login.Result(); ok {
			user = u
			return true, nil
		}
		if msg, ok := login.Reason(); ok {
			return true, &RequestError{Op: "login", Message: msg}
		}
		return false, nil
	})
	return user, err
}

// Logout signs out. Logging out twice is not an error.
func (c *Client) Logout() error {
	return c.auth.SignOut()
}

// CreateEmployee stores a new employee and returns it with its UID.
func (c *Client) CreateEmployee(ctx context.Context, e roster.Employee) (roster.Employee, error) {
	if c.auth.CurrentUser() == nil {
		return roster.Employee{}, auth.ErrNotSignedIn
	}
	e = e.Normalize()
	e.UID = ""
	if err := e.Validate(); err != nil {
		return roster.Employee{}, err
	}

	err := c.await(ctx, roster.CreateRequested{Employee: e}, func(a flux.Action) (bool, error) {
		create, ok := a.(roster.Create)
		if !ok {
			return false, nil
		}
		return settle("create employee", create.Action.Tag(), func() {
			e.UID, _ = create.Result()
		}, create.Reason)
	})
	if err != nil {
		return roster.Employee{}, err
	}
	return e, nil
}

// UpdateEmployee overwrites the employee named by e.UID.
func (c *Client) UpdateEmployee(ctx context.Context, e roster.Employee) (roster.Employee, error) {
	if c.auth.CurrentUser() == nil {
		return roster.Employee{}, auth.ErrNotSignedIn
	}
	if e.UID == "" {
		return roster.Employee{}, ErrMissingUID
	}
	e = e.Normalize()
	if err := e.Validate(); err != nil {
		return roster.Employee{}, err
	}

	err := c.await(ctx, roster.UpdateRequested{Employee: e}, func(a flux.Action) (bool, error) {
		update, ok := a.(roster.Update)
		if !ok {
			return false, nil
		}
		return settle("update employee", update.Action.Tag(), nil, update.Reason)
	})
	if err != nil {
		return roster.Employee{}, err
	}
	return e, nil
}

// FireEmployee removes the employee uid.
func (c *Client) FireEmployee(ctx context.Context, uid string) error {
	if c.auth.CurrentUser() == nil {
		return auth.ErrNotSignedIn
	}
	if uid == "" {
		return ErrMissingUID
	}

	return c.await(ctx, roster.FireRequested{UID: uid}, func(a flux.Action) (bool, error) {
		fire, ok := a.(roster.Fire)
		if !ok {
			return false, nil
		}
		return settle("fire employee", fire.Action.Tag(), nil, fire.Reason)
	})
}

// Employees returns the current list once, then drops the subscription.
func (c *Client) Employees(ctx context.Context) (map[string]roster.Employee, error) {
	if c.auth.CurrentUser() == nil {
		return nil, auth.ErrNotSignedIn
	}

	var list map[string]roster.Employee
	err := c.await(ctx, roster.WatchRequested{}, func(a flux.Action) (bool, error) {
		switch a := a.(type) {
		case roster.EmployeesFetched:
			list = a.Employees
			return true, nil
		case roster.WatchFailed:
			return true, requestError("list employees", a.Err)
		}
		return false, nil
	})
	if uerr := c.unwatch(ctx); err == nil {
		err = uerr
	}
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = map[string]roster.Employee{}
	}
	return list, nil
}

// Watch calls fn with every new version of the list until ctx is done or
// the subscription fails. It returns nil when ctx ends the watch.
func (c *Client) Watch(ctx context.Context, fn func(map[string]roster.Employee)) error {
	if c.auth.CurrentUser() == nil {
		return auth.ErrNotSignedIn
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	failed := make(chan error, 1)
	stopped := make(chan struct{}, 1)
	unsubscribe := c.store.Subscribe(func(_ roster.RootState, a flux.Action) {
		switch a := a.(type) {
		case roster.EmployeesFetched:
			fn(a.Employees)
		case roster.WatchFailed:
			select {
			case failed <- requestError("watch employees", a.Err):
			default:
			}
		case roster.Unsubscribed:
			select {
			case stopped <- struct{}{}:
			default:
			}
		}
	})
	defer unsubscribe()

	if !c.store.Dispatch(roster.WatchRequested{}) {
		return ErrStopped
	}

	var err error
	select {
	case err = <-failed:
	case <-ctx.Done():
	}

	if c.store.Dispatch(roster.UnwatchRequested{}) {
		select {
		case <-stopped:
		case <-time.After(unwatchTimeout):
			slog.Warn("watch teardown not confirmed", "timeout", unwatchTimeout)
		}
	}
	return err
}

// unwatchTimeout bounds how long Watch waits for its subscription to close.
const unwatchTimeout = 5 * time.Second

// unwatch drops the subscription and waits until it is gone, so no delivery
// from it can settle a later request.
func (c *Client) unwatch(ctx context.Context) error {
	return c.await(ctx, roster.UnwatchRequested{}, func(a flux.Action) (bool, error) {
		_, ok := a.(roster.Unsubscribed)
		return ok, nil
	})
}

// await dispatches req and blocks until match reports that a reduced
// action settled the request.
func (c *Client) await(ctx context.Context, req flux.Action, match func(flux.Action) (bool, error)) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	result := make(chan error, 1)
	unsubscribe := c.store.Subscribe(func(_ roster.RootState, a flux.Action) {
		if done, err := match(a); done {
			select {
			case result <- err:
			default:
			}
		}
	})
	defer unsubscribe()

	if !c.store.Dispatch(req) {
		return ErrStopped
	}

	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// settle interprets one async action tag for await.
func settle(op string, tag async.Tag, onSuccess func(), reason func() (string, bool)) (bool, error) {
	switch tag {
	case async.TagSuccess:
		if onSuccess != nil {
			onSuccess()
		}
		return true, nil
	case async.TagFailure:
		msg, _ := reason()
		return true, requestError(op, msg)
	}
	return false, nil
}

// requestError turns a failure reason into an error. A request that found
// nobody signed in reports auth.ErrNotSignedIn.
func requestError(op, msg string) error {
	if msg == roster.NotSignedInMessage {
		return fmt.Errorf("%s: %w", op, auth.ErrNotSignedIn)
	}
	return &RequestError{Op: op, Message: msg}
}
