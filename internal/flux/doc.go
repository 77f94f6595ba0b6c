// Package flux implements a single-writer state store with epics.
//
// ARCHITECTURE:
//
// Actions are enqueued with Store.Dispatch from any goroutine. Store.Run
// dequeues them one at a time and, for each action:
//  1. reduces it into the next state,
//  2. notifies subscribers with the new state and the action,
//  3. offers the action to every epic.
//
// An Epic receives the stream of reduced actions and returns a stream of
// derived actions, usually after performing one remote call. Derived actions
// are dispatched back into the same queue, so they are reduced in the same
// order they were produced.
//
// Only Run mutates state. Epic inputs are unbounded queues, so an epic that
// is blocked on a remote call never stalls the reducer loop.
package flux
