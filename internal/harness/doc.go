// Package harness runs roster scenarios end to end.
//
// A scenario opens a fresh app on a temporary SQLite database, runs its
// steps through the blocking client, and records one trace event per step.
// Traces are compared against golden files.
//
// # Scenario Format
//
//	name: hire_and_fire
//	description: "A manager hires two people and fires one"
//	keys: [e1, e2]
//	setup:
//	  - op: login
//	    args: { email: boss@example.com, password: secret1 }
//	flow:
//	  - op: create
//	    args: { employeeName: Taylor, phone: 555-0100, shift: Friday }
//	    expect:
//	      case: ok
//	  - op: fire
//	    args: { uid: e1 }
//	assertions:
//	  - type: trace_count
//	    op: create
//	    count: 1
//	  - type: final_employees
//	    count: 0
//
// # Operations
//
//   - login: email, password
//   - logout
//   - create: employeeName, phone, shift
//   - update: uid plus any of employeeName, phone, shift
//   - fire: uid
//   - list
//   - text: uid
//
// # Assertion Types
//
//   - trace_contains: a step with the given op (and case, when set) ran
//   - trace_order: the ops appear in this relative order
//   - trace_count: the op ran exactly count times
//   - final_employees: the signed-in user ends with count employees, and
//     each listed uid has the given fields
//
// Push keys come from the scenario's keys list, or e1, e2, ... when it is
// empty. Account uids are uid-1, uid-2, ... in creation order.
package harness
