// Package presenter defines how queue activity reaches whatever is showing
// it to the user.
//
// The processor and session call a Presenter after every intake and every
// status change. Calls are fire-and-forget: implementations must not block
// and have no way to refuse an event. Console renders a line per event for a
// terminal, Log forwards events to slog, and Fanout feeds several at once.
package presenter
