package roster

import (
	"github.com/roach88/roster/internal/async"
	"github.com/roach88/roster/internal/auth"
)

// FailureMessage replaces every remote error in state.
const FailureMessage = "Something went wrong!"

// NotSignedInMessage is the failure reason of a request made with nobody
// signed in.
const NotSignedInMessage = "You must be signed in."

// Auth slice.

type (
	// EmailChanged updates the login form email.
	EmailChanged struct{ Email string }
	// PasswordChanged updates the login form password.
	PasswordChanged struct{ Password string }
	// LoginRequested asks the login epic to sign in, creating the account
	// when sign-in fails.
	LoginRequested struct{ Email, Password string }
	// Login is the lifecycle of one login request.
	Login struct {
		async.Action[string, *auth.User, AuthState]
	}
	// AuthStateChanged mirrors the auth service's signed-in user.
	AuthStateChanged struct{ User *auth.User }
)

func (EmailChanged) Type() string     { return "EMAIL_CHANGED" }
func (PasswordChanged) Type() string  { return "PASSWORD_CHANGED" }
func (LoginRequested) Type() string   { return "LOGIN_REQUESTED" }
func (Login) Type() string            { return "LOGIN_ACTION" }
func (AuthStateChanged) Type() string { return "AUTH_STATE_CHANGED" }

// Employee form slice.

// Field names a form field for UpdateField.
type Field string

const (
	FieldName  Field = "employeeName"
	FieldPhone Field = "phone"
	FieldShift Field = "shift"
)

type (
	// UpdateField sets one form field. A shift day is stored in canonical
	// form when it parses and as given otherwise, for Validate to reject.
	UpdateField struct {
		Field Field
		Value string
	}
	// Edit loads an existing employee into the form.
	Edit struct{ Employee Employee }
	// Reset clears the form.
	Reset struct{}
	// ShowFireModal opens the fire confirmation.
	ShowFireModal struct{}
	// CloseFireModal dismisses the fire confirmation.
	CloseFireModal struct{}

	// Create is the lifecycle of a create request. Success carries the new key.
	Create struct {
		async.Action[string, string, EmployeeState]
	}
	// Update is the lifecycle of an update request. Success carries the key.
	Update struct {
		async.Action[string, string, EmployeeState]
	}
	// Fire is the lifecycle of a fire request. Success carries the key.
	Fire struct {
		async.Action[string, string, EmployeeState]
	}

	// CreateRequested asks the create epic to store a new employee.
	CreateRequested struct{ Employee Employee }
	// UpdateRequested asks the update epic to overwrite Employee.UID.
	UpdateRequested struct{ Employee Employee }
	// FireRequested asks the fire epic to remove UID.
	FireRequested struct{ UID string }
	// EditRequested asks the edit epic to load Employee and open the editor.
	EditRequested struct{ Employee Employee }
)

func (UpdateField) Type() string     { return "UPDATE_FIELD" }
func (Edit) Type() string            { return "EDIT" }
func (Reset) Type() string           { return "RESET" }
func (ShowFireModal) Type() string   { return "SHOW_MODAL" }
func (CloseFireModal) Type() string  { return "CLOSE_MODAL" }
func (Create) Type() string          { return "CREATE_ACTION" }
func (Update) Type() string          { return "UPDATE_ACTION" }
func (Fire) Type() string            { return "FIRE_ACTION" }
func (CreateRequested) Type() string { return "CREATE_REQUESTED" }
func (UpdateRequested) Type() string { return "UPDATE_REQUESTED" }
func (FireRequested) Type() string   { return "FIRE_REQUESTED" }
func (EditRequested) Type() string   { return "EDIT_REQUESTED" }

// Employees list slice.

type (
	// WatchRequested asks the watch epic to subscribe to the signed-in
	// user's employees, replacing any current subscription.
	WatchRequested struct{}
	// UnwatchRequested asks the watch epic to drop its subscription.
	UnwatchRequested struct{}
	// WatchStarted reports a new subscription on Path.
	WatchStarted struct{ Path string }
	// Unsubscribed reports that no subscription is active.
	Unsubscribed struct{}
	// EmployeesFetched carries the latest list, keyed by UID.
	EmployeesFetched struct{ Employees map[string]Employee }
	// WatchFailed reports a subscription or decode failure.
	WatchFailed struct{ Err string }
)

func (WatchRequested) Type() string   { return "WATCH_REQUESTED" }
func (UnwatchRequested) Type() string { return "UNWATCH_REQUESTED" }
func (WatchStarted) Type() string     { return "WATCH_START" }
func (Unsubscribed) Type() string     { return "UNSUBSCRIBE" }
func (EmployeesFetched) Type() string { return "EMPLOYEES_FETCHED" }
func (WatchFailed) Type() string      { return "WATCH_FAILED" }
