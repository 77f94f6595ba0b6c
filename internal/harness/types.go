package harness

import "github.com/roach88/roster/internal/roster"

// TraceEvent records how one flow step settled.
type TraceEvent struct {
	Step   int               `json:"step"`
	Op     string            `json:"op"`
	Args   map[string]string `json:"args,omitempty"`
	Case   string            `json:"case"`            // "ok" or "error"
	Error  string            `json:"error,omitempty"` // error kind, see errorKind
	Field  string            `json:"-"`               // failing field for validation errors
	Result any               `json:"result,omitempty"`
}

// Result is the outcome of a scenario run.
type Result struct {
	// Pass is true when every expect clause and assertion held.
	Pass bool `json:"pass"`

	// Trace has one event per flow step, in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains expect and assertion failures.
	Errors []string `json:"errors,omitempty"`

	// Employees is the last signed-in user's stored list, read directly
	// from the database after the flow.
	Employees map[string]roster.Employee `json:"employees"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:      true,
		Trace:     []TraceEvent{},
		Errors:    []string{},
		Employees: map[string]roster.Employee{},
	}
}

// AddError adds a failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
