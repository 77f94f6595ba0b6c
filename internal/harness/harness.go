package harness

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/roach88/roster/internal/app"
	"github.com/roach88/roster/internal/auth"
	"github.com/roach88/roster/internal/config"
	"github.com/roach88/roster/internal/realtime"
	"github.com/roach88/roster/internal/roster"
	"github.com/roach88/roster/internal/testutil"
)

// stepTimeout bounds a single client call.
const stepTimeout = 10 * time.Second

// Error kinds recorded in traces.
const (
	ErrKindValidation  = "validation"
	ErrKindRequest     = "request"
	ErrKindNotSignedIn = "not_signed_in"
	ErrKindMissingUID  = "missing_uid"
	ErrKindNotFound    = "not_found"
	ErrKindOther       = "other"
)

// ErrNotFound is returned by update and text steps naming an unknown uid.
var ErrNotFound = errors.New("employee not found")

// Harness runs one scenario against a private app.
type Harness struct {
	app    *app.App
	client *app.Client

	// uid of the last user to sign in, for reading the final list.
	uid string
}

// Run executes a scenario and returns the result.
//
// Each scenario runs against a fresh SQLite database in a temporary
// directory with deterministic push keys and account uids.
func Run(scenario *Scenario) (*Result, error) {
	dir, err := os.MkdirTemp("", "roster-harness-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	cfg := config.Default()
	cfg.Database.Driver = realtime.DriverSQLite
	cfg.Database.DSN = filepath.Join(dir, "roster.db")
	cfg.SessionFile = filepath.Join(dir, "session.json")
	cfg.RequestTimeout = stepTimeout

	var keys realtime.KeyGenerator = testutil.NewSequence("e")
	if len(scenario.Keys) > 0 {
		keys = realtime.NewFixedKeys(scenario.Keys...)
	}

	ctx := context.Background()
	a, err := app.Open(ctx, cfg,
		app.WithAuthOptions(auth.WithCost(bcrypt.MinCost), auth.WithUIDs(testutil.NewSequence("uid-").Next)),
		app.WithDBOptions(realtime.WithKeys(keys)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to open app: %w", err)
	}
	defer a.Close()

	h := &Harness{app: a, client: a.Client()}
	result := NewResult()

	for i, step := range scenario.Setup {
		if _, err := h.execute(ctx, step); err != nil {
			return nil, fmt.Errorf("failed to execute setup[%d] %s: %w", i, step.Op, err)
		}
	}

	for i, step := range scenario.Flow {
		out, err := h.execute(ctx, step)
		event := TraceEvent{Step: i, Op: step.Op, Args: step.Args, Case: CaseOK, Result: out}
		if err != nil {
			event.Case = CaseError
			event.Error = errorKind(err)
			event.Result = nil
			var verr *roster.ValidationError
			if errors.As(err, &verr) {
				event.Field = verr.Field
			}
			slog.Debug("scenario step failed", "scenario", scenario.Name, "step", i, "error", err)
		}
		result.Trace = append(result.Trace, event)
		checkExpect(result, i, step, event)
	}

	employees, err := h.finalEmployees(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read final employees: %w", err)
	}
	result.Employees = employees

	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}

	return result, nil
}

// execute runs one step through the client and returns its payload.
func (h *Harness) execute(ctx context.Context, step Step) (any, error) {
	ctx, cancel := context.WithTimeout(ctx, stepTimeout)
	defer cancel()

	switch step.Op {
	case OpLogin:
		u, err := h.client.Login(ctx, step.Args["email"], step.Args["password"])
		if err != nil {
			return nil, err
		}
		h.uid = u.UID
		return u, nil

	case OpLogout:
		return nil, h.client.Logout()

	case OpCreate:
		return h.client.CreateEmployee(ctx, applyArgs(roster.NewEmployee(), step.Args))

	case OpUpdate:
		current, err := h.lookup(ctx, step.Args["uid"])
		if err != nil {
			return nil, err
		}
		return h.client.UpdateEmployee(ctx, applyArgs(current, step.Args))

	case OpFire:
		return nil, h.client.FireEmployee(ctx, step.Args["uid"])

	case OpList:
		list, err := h.client.Employees(ctx)
		if err != nil {
			return nil, err
		}
		return sorted(list), nil

	case OpText:
		e, err := h.lookup(ctx, step.Args["uid"])
		if err != nil {
			return nil, err
		}
		return roster.ScheduleText(e), nil
	}
	return nil, fmt.Errorf("unknown op %q", step.Op)
}

func (h *Harness) lookup(ctx context.Context, uid string) (roster.Employee, error) {
	list, err := h.client.Employees(ctx)
	if err != nil {
		return roster.Employee{}, err
	}
	e, ok := list[uid]
	if !ok {
		return roster.Employee{}, fmt.Errorf("%w: %s", ErrNotFound, uid)
	}
	return e, nil
}

// finalEmployees reads the last signed-in user's list from the database.
func (h *Harness) finalEmployees(ctx context.Context) (map[string]roster.Employee, error) {
	out := map[string]roster.Employee{}
	if h.uid == "" {
		return out, nil
	}
	snap, err := h.app.DB.Get(ctx, roster.EmployeesPath(h.uid))
	if err != nil {
		return nil, err
	}
	if err := snap.Decode(&out); err != nil {
		return nil, err
	}
	for uid, e := range out {
		e.UID = uid
		out[uid] = e
	}
	return out, nil
}

// applyArgs overwrites the employee fields present in args.
func applyArgs(e roster.Employee, args map[string]string) roster.Employee {
	if v, ok := args[string(roster.FieldName)]; ok {
		e.Name = v
	}
	if v, ok := args[string(roster.FieldPhone)]; ok {
		e.Phone = v
	}
	if v, ok := args[string(roster.FieldShift)]; ok {
		e.Shift = roster.ShiftDay(v)
	}
	return e
}

// sorted orders employees by uid.
func sorted(m map[string]roster.Employee) []roster.Employee {
	out := make([]roster.Employee, 0, len(m))
	for _, e := range m {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UID < out[j].UID })
	return out
}

// errorKind classifies a step error for the trace.
func errorKind(err error) string {
	var verr *roster.ValidationError
	var rerr *app.RequestError
	switch {
	case errors.As(err, &verr):
		return ErrKindValidation
	case errors.As(err, &rerr):
		return ErrKindRequest
	case errors.Is(err, auth.ErrNotSignedIn):
		return ErrKindNotSignedIn
	case errors.Is(err, app.ErrMissingUID):
		return ErrKindMissingUID
	case errors.Is(err, ErrNotFound):
		return ErrKindNotFound
	}
	return ErrKindOther
}

// checkExpect compares a traced step with its expect clause.
func checkExpect(result *Result, i int, step Step, event TraceEvent) {
	if step.Expect == nil {
		return
	}
	if event.Case != step.Expect.Case {
		result.AddError(fmt.Sprintf("flow[%d] %s: expected case %q, got %q (error %q)",
			i, step.Op, step.Expect.Case, event.Case, event.Error))
		return
	}
	if step.Expect.Error != "" && event.Error != step.Expect.Error {
		result.AddError(fmt.Sprintf("flow[%d] %s: expected error %q, got %q",
			i, step.Op, step.Expect.Error, event.Error))
	}
}
