// Package realtime provides the realtime database roster is backed by.
//
// Data is a tree of JSON values addressed by slash paths, e.g.
// /users/{uid}/employees/{key}. Objects are flattened into one row per leaf,
// so a write to a deep path and a read of any ancestor agree without a
// document merge step.
//
// # Storage
//
// The tree lives in a SQL table. Two drivers are supported:
//
//   - sqlite3 (default): WAL mode, synchronous=NORMAL, 5s busy timeout,
//     single connection
//   - postgres: pooled connections via lib/pq
//
// Invariant: a stored leaf is never the ancestor of another stored leaf.
// Every write removes the subtree it replaces and any leaf ancestors.
//
// # Listeners
//
// On registers a handler for one path and event type. A listener is
// notified after every write whose path is an ancestor, descendant, or the
// path itself. Each listener owns a FIFO and a goroutine, so handlers for
// the same listener never run concurrently and never block writers.
//
// Every write is stamped with a logical revision taken from a counter row in
// the same transaction, so processes sharing one database never issue the
// same revision. Clock tracks the highest revision a handle has seen.
package realtime
