// Package queue holds the conversion queue for one bindery session.
//
// Items live in a private in-memory SQLite database that disappears when the
// Store is closed. Every status change goes through Store.Transition, which
// applies the move as a single compare-and-set UPDATE so the lifecycle
// pending -> converting -> done|error can never skip a step, and a partial
// unique index keeps at most one item in converting.
//
// Ids come from AUTOINCREMENT and are never reused within a session; listing
// order is always ascending id, which is also processing order.
package queue
