package roster

import (
	"context"
	"log/slog"
	"time"

	"github.com/roach88/roster/internal/async"
	"github.com/roach88/roster/internal/auth"
	"github.com/roach88/roster/internal/flux"
	"github.com/roach88/roster/internal/queue"
	"github.com/roach88/roster/internal/realtime"
)

// Authenticator is the part of the auth service the epics use.
type Authenticator interface {
	SignIn(ctx context.Context, email, password string) (*auth.User, error)
	CreateUser(ctx context.Context, email, password string) (*auth.User, error)
	CurrentUser() *auth.User
	OnAuthStateChanged(fn func(*auth.User)) (unsubscribe func())
}

// Database is the part of the realtime database the epics use.
type Database interface {
	Push(ctx context.Context, path string, value any) (string, error)
	Set(ctx context.Context, path string, value any) error
	Remove(ctx context.Context, path string) error
	On(path string, event realtime.EventType, handler realtime.Handler, onErr realtime.ErrorHandler) (*realtime.Listener, error)
	Off(l *realtime.Listener)
}

// Deps are the ports the epics call.
type Deps struct {
	Auth Authenticator
	DB   Database
	Nav  Navigator

	// Timeout bounds each remote call. Zero means no limit.
	Timeout time.Duration
}

// Epics returns every epic of the application.
func Epics(d Deps) []flux.Epic[RootState] {
	return []flux.Epic[RootState]{
		LoginEpic(d),
		CreateEpic(d),
		UpdateEpic(d),
		FireEpic(d),
		EditEpic(d),
		WatchEpic(d),
		SessionEpic(d),
	}
}

// EmployeesPath is where uid's employees live.
func EmployeesPath(uid string) string {
	return realtime.Join("users", uid, "employees")
}

// EmployeePath is the record of one employee.
func EmployeePath(uid, employeeUID string) string {
	return realtime.Join("users", uid, "employees", employeeUID)
}

func (d Deps) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if d.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d.Timeout)
}

// LoginEpic signs in, falls back to creating the account, and navigates to
// Main on success.
func LoginEpic(d Deps) flux.Epic[RootState] {
	return flux.Typed(func(ctx context.Context, req LoginRequested, _ func() RootState, emit flux.Emit) {
		emit(Login{async.Start[string, *auth.User, AuthState]()})

		ctx, cancel := d.withTimeout(ctx)
		defer cancel()

		u, err := d.Auth.SignIn(ctx, req.Email, req.Password)
		if err != nil {
			slog.Debug("sign in failed, creating account", "error", err)
			u, err = d.Auth.CreateUser(ctx, req.Email, req.Password)
		}
		if err != nil {
			slog.Warn("login failed", "error", err)
			emit(Login{async.Failure[string, *auth.User, AuthState](FailureMessage)})
			return
		}

		emit(Login{async.Success[string, *auth.User, AuthState](u)})
		d.Nav.Navigate(RouteMain, nil)
	})
}

// CreateEpic pushes a new employee under the signed-in user.
func CreateEpic(d Deps) flux.Epic[RootState] {
	return flux.Typed(func(ctx context.Context, req CreateRequested, _ func() RootState, emit flux.Emit) {
		u := d.Auth.CurrentUser()
		if u == nil {
			d.Nav.Navigate(RouteAuth, nil)
			emit(Create{async.Failure[string, string, EmployeeState](NotSignedInMessage)})
			return
		}

		emit(Create{async.Start[string, string, EmployeeState]()})

		e := req.Employee.Normalize()
		key, err := d.store(ctx, e, func(ctx context.Context) (string, error) {
			return d.DB.Push(ctx, EmployeesPath(u.UID), e.record())
		})
		if err != nil {
			slog.Warn("create employee failed", "error", err)
			emit(Create{async.Failure[string, string, EmployeeState](FailureMessage)})
			return
		}

		d.Nav.Navigate(RouteEmployeeList, nil)
		emit(Create{async.Success[string, string, EmployeeState](key)})
	})
}

// UpdateEpic overwrites an existing employee.
func UpdateEpic(d Deps) flux.Epic[RootState] {
	return flux.Typed(func(ctx context.Context, req UpdateRequested, _ func() RootState, emit flux.Emit) {
		u := d.Auth.CurrentUser()
		if u == nil {
			d.Nav.Navigate(RouteAuth, nil)
			emit(Update{async.Failure[string, string, EmployeeState](NotSignedInMessage)})
			return
		}
		if req.Employee.UID == "" {
			d.Nav.Navigate(RouteEmployeeList, nil)
			return
		}

		emit(Update{async.Start[string, string, EmployeeState]()})

		e := req.Employee.Normalize()
		uid, err := d.store(ctx, e, func(ctx context.Context) (string, error) {
			return e.UID, d.DB.Set(ctx, EmployeePath(u.UID, e.UID), e.record())
		})
		if err != nil {
			slog.Warn("update employee failed", "uid", e.UID, "error", err)
			emit(Update{async.Failure[string, string, EmployeeState](FailureMessage)})
			return
		}

		d.Nav.Navigate(RouteEmployeeList, nil)
		emit(Update{async.Success[string, string, EmployeeState](uid)})
	})
}

// store validates e and runs write with a bounded context.
func (d Deps) store(ctx context.Context, e Employee, write func(context.Context) (string, error)) (string, error) {
	if err := e.Validate(); err != nil {
		return "", err
	}
	ctx, cancel := d.withTimeout(ctx)
	defer cancel()
	return write(ctx)
}

// FireEpic removes an employee.
func FireEpic(d Deps) flux.Epic[RootState] {
	return flux.Typed(func(ctx context.Context, req FireRequested, _ func() RootState, emit flux.Emit) {
		u := d.Auth.CurrentUser()
		if u == nil {
			d.Nav.Navigate(RouteAuth, nil)
			emit(Fire{async.Failure[string, string, EmployeeState](NotSignedInMessage)})
			return
		}
		if req.UID == "" {
			d.Nav.Navigate(RouteEmployeeList, nil)
			return
		}

		emit(Fire{async.Start[string, string, EmployeeState]()})

		ctx, cancel := d.withTimeout(ctx)
		defer cancel()
		if err := d.DB.Remove(ctx, EmployeePath(u.UID, req.UID)); err != nil {
			slog.Warn("fire employee failed", "uid", req.UID, "error", err)
			emit(Fire{async.Failure[string, string, EmployeeState](FailureMessage)})
			return
		}

		d.Nav.Navigate(RouteEmployeeList, nil)
		emit(Fire{async.Success[string, string, EmployeeState](req.UID)})
	})
}

// EditEpic loads an employee into the form and opens the editor.
func EditEpic(d Deps) flux.Epic[RootState] {
	return flux.Typed(func(_ context.Context, req EditRequested, _ func() RootState, emit flux.Emit) {
		emit(Edit{Employee: req.Employee})
		d.Nav.Navigate(RouteEditEmployee, Params{"employeeName": req.Employee.Name})
	})
}

// SessionEpic follows the auth service: every change of signed-in user is
// dispatched as AuthStateChanged and navigates to Main or Auth.
func SessionEpic(d Deps) flux.Epic[RootState] {
	return func(ctx context.Context, actions <-chan flux.Action, _ func() RootState) <-chan flux.Action {
		out := make(chan flux.Action)
		go func() {
			defer close(out)

			changes := queue.New[*auth.User]()
			defer changes.Close()
			unsubscribe := d.Auth.OnAuthStateChanged(func(u *auth.User) {
				changes.Enqueue(u)
			})
			defer unsubscribe()

			for {
				if u, ok := changes.TryDequeue(); ok {
					if u != nil {
						d.Nav.Navigate(RouteMain, nil)
					} else {
						d.Nav.Navigate(RouteAuth, nil)
					}
					select {
					case out <- AuthStateChanged{User: u}:
					case <-ctx.Done():
						return
					}
					continue
				}

				select {
				case <-ctx.Done():
					return
				case _, ok := <-actions:
					if !ok {
						return
					}
				case <-changes.Wait():
				}
			}
		}()
		return out
	}
}
