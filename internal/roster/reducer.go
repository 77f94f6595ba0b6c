package roster

import (
	"github.com/roach88/roster/internal/async"
	"github.com/roach88/roster/internal/auth"
	"github.com/roach88/roster/internal/flux"
)

// AuthState is the login form and the signed-in user.
type AuthState struct {
	Email    string                  `json:"email"`
	Password string                  `json:"-"`
	Login    async.Value[*auth.User] `json:"login"`
	User     *auth.User              `json:"user,omitempty"`
}

// InitialAuthState is the empty login form.
func InitialAuthState() AuthState {
	return AuthState{Login: async.Init[*auth.User]()}
}

// EmployeeState is the create/edit form and its three requests.
type EmployeeState struct {
	Employee
	Create         async.Value[string] `json:"create"`
	Update         async.Value[string] `json:"update"`
	Fire           async.Value[string] `json:"fire"`
	FireModalShown bool                `json:"fireModalShown"`
}

// InitialEmployeeState is a blank form.
func InitialEmployeeState() EmployeeState {
	return EmployeeState{
		Employee: NewEmployee(),
		Create:   async.Init[string](),
		Update:   async.Init[string](),
		Fire:     async.Init[string](),
	}
}

// EmployeesState is the live employee list.
type EmployeesState struct {
	Employees async.Value[map[string]Employee] `json:"employees"`
	Watching  string                           `json:"watching,omitempty"`
}

// InitialEmployeesState has no subscription.
func InitialEmployeesState() EmployeesState {
	return EmployeesState{Employees: async.Init[map[string]Employee]()}
}

// RootState combines the three slices.
type RootState struct {
	Auth      AuthState      `json:"auth"`
	Employee  EmployeeState  `json:"employee"`
	Employees EmployeesState `json:"employees"`
}

// InitialState is the state of a fresh store.
func InitialState() RootState {
	return RootState{
		Auth:      InitialAuthState(),
		Employee:  InitialEmployeeState(),
		Employees: InitialEmployeesState(),
	}
}

// Reduce is the store reducer. Every slice sees every action.
func Reduce(state RootState, a flux.Action) RootState {
	state.Auth = ReduceAuth(state.Auth, a)
	state.Employee = ReduceEmployee(state.Employee, a)
	state.Employees = ReduceEmployees(state.Employees, a)
	return state
}

var _ flux.Reducer[RootState] = Reduce

// ReduceAuth folds auth actions.
//
//	Login start   -> PROGRESS
//	Login success -> initial state with User
//	Login failure -> ERROR
func ReduceAuth(state AuthState, a flux.Action) AuthState {
	switch a := a.(type) {
	case EmailChanged:
		state.Email = a.Email
	case PasswordChanged:
		state.Password = a.Password
	case AuthStateChanged:
		state.User = a.User
	case Login:
		act := async.MapSuccess(a.Action, func(u *auth.User) (*auth.User, []async.Patch[AuthState]) {
			return u, []async.Patch[AuthState]{func(s *AuthState) {
				*s = InitialAuthState()
				s.User = u
			}}
		})
		return async.Reduce(state, liftLogin, act)
	}
	return state
}

func liftLogin(v async.Value[*auth.User]) async.Patch[AuthState] {
	return func(s *AuthState) { s.Login = v }
}

// ReduceEmployee folds form actions. A successful create, update, or fire
// resets the form; starting a fire closes the confirmation.
func ReduceEmployee(state EmployeeState, a flux.Action) EmployeeState {
	switch a := a.(type) {
	case UpdateField:
		switch a.Field {
		case FieldName:
			state.Name = a.Value
		case FieldPhone:
			state.Phone = a.Value
		case FieldShift:
			state.Shift = ShiftDay(a.Value)
			if d, err := ParseShiftDay(a.Value); err == nil {
				state.Shift = d
			}
		}
	case Edit:
		state.Employee = a.Employee
	case Reset:
		return InitialEmployeeState()
	case ShowFireModal:
		state.FireModalShown = true
	case CloseFireModal:
		state.FireModalShown = false
	case Create:
		return async.Reduce(state, liftCreate, resetOnSuccess(a.Action))
	case Update:
		return async.Reduce(state, liftUpdate, resetOnSuccess(a.Action))
	case Fire:
		act := a.Action.OnStart(func() []async.Patch[EmployeeState] {
			return []async.Patch[EmployeeState]{func(s *EmployeeState) { s.FireModalShown = false }}
		})
		return async.Reduce(state, liftFire, resetOnSuccess(act))
	}
	return state
}

func resetOnSuccess(a async.Action[string, string, EmployeeState]) async.Action[string, string, EmployeeState] {
	return async.MapSuccess(a, func(uid string) (string, []async.Patch[EmployeeState]) {
		return uid, []async.Patch[EmployeeState]{func(s *EmployeeState) { *s = InitialEmployeeState() }}
	})
}

func liftCreate(v async.Value[string]) async.Patch[EmployeeState] {
	return func(s *EmployeeState) { s.Create = v }
}

func liftUpdate(v async.Value[string]) async.Patch[EmployeeState] {
	return func(s *EmployeeState) { s.Update = v }
}

func liftFire(v async.Value[string]) async.Patch[EmployeeState] {
	return func(s *EmployeeState) { s.Fire = v }
}

// ReduceEmployees folds list actions. Subscriptions themselves live in the
// watch epic; the state only records which path is watched.
func ReduceEmployees(state EmployeesState, a flux.Action) EmployeesState {
	switch a := a.(type) {
	case WatchStarted:
		state.Employees = async.Progress[map[string]Employee]()
		state.Watching = a.Path
	case EmployeesFetched:
		list := a.Employees
		if list == nil {
			list = map[string]Employee{}
		}
		state.Employees = async.Complete(list)
	case WatchFailed:
		state.Employees = async.Failed[map[string]Employee](a.Err)
	case Unsubscribed:
		state.Employees = async.Init[map[string]Employee]()
		state.Watching = ""
	}
	return state
}
