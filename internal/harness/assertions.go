package harness

import (
	"fmt"
	"sort"

	"github.com/roach88/roster/internal/roster"
)

// AssertionError describes a failed assertion.
type AssertionError struct {
	Type    string
	Message string
}

func (e *AssertionError) Error() string {
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// EvaluateAssertions checks every assertion against result and returns one
// message per failure.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var failures []string
	for i, a := range assertions {
		var err error
		switch a.Type {
		case AssertTraceContains:
			err = assertTraceContains(result.Trace, a)
		case AssertTraceOrder:
			err = assertTraceOrder(result.Trace, a)
		case AssertTraceCount:
			err = assertTraceCount(result.Trace, a)
		case AssertFinalEmployees:
			err = assertFinalEmployees(result.Employees, a)
		default:
			err = &AssertionError{Type: a.Type, Message: "unknown assertion type"}
		}
		if err != nil {
			failures = append(failures, fmt.Sprintf("assertions[%d] %v", i, err))
		}
	}
	return failures
}

func matches(e TraceEvent, a Assertion) bool {
	return e.Op == a.Op && (a.Case == "" || e.Case == a.Case)
}

func assertTraceContains(trace []TraceEvent, a Assertion) error {
	for _, e := range trace {
		if matches(e, a) {
			return nil
		}
	}
	return &AssertionError{Type: a.Type, Message: fmt.Sprintf("no %s step with case %q", a.Op, a.Case)}
}

// assertTraceOrder checks that the first occurrences of Ops appear in order.
func assertTraceOrder(trace []TraceEvent, a Assertion) error {
	next := 0
	for _, e := range trace {
		if next < len(a.Ops) && e.Op == a.Ops[next] {
			next++
		}
	}
	if next < len(a.Ops) {
		return &AssertionError{Type: a.Type, Message: fmt.Sprintf("%s not found after %v", a.Ops[next], a.Ops[:next])}
	}
	return nil
}

func assertTraceCount(trace []TraceEvent, a Assertion) error {
	n := 0
	for _, e := range trace {
		if matches(e, a) {
			n++
		}
	}
	if n != *a.Count {
		return &AssertionError{Type: a.Type, Message: fmt.Sprintf("%s ran %d times, want %d", a.Op, n, *a.Count)}
	}
	return nil
}

func assertFinalEmployees(employees map[string]roster.Employee, a Assertion) error {
	if a.Count != nil && len(employees) != *a.Count {
		return &AssertionError{Type: a.Type, Message: fmt.Sprintf("%d employees, want %d", len(employees), *a.Count)}
	}

	uids := make([]string, 0, len(a.Employees))
	for uid := range a.Employees {
		uids = append(uids, uid)
	}
	sort.Strings(uids)

	for _, uid := range uids {
		e, ok := employees[uid]
		if !ok {
			return &AssertionError{Type: a.Type, Message: fmt.Sprintf("employee %s missing", uid)}
		}
		got := map[string]string{
			string(roster.FieldName):  e.Name,
			string(roster.FieldPhone): e.Phone,
			string(roster.FieldShift): string(e.Shift),
		}
		for field, want := range a.Employees[uid] {
			if got[field] != want {
				return &AssertionError{Type: a.Type, Message: fmt.Sprintf("employee %s %s = %q, want %q", uid, field, got[field], want)}
			}
		}
	}
	return nil
}
