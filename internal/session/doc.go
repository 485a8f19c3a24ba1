// Package session ties one bindery run together.
//
// A Session owns the in-memory queue, the processor, the bundle requester and
// the converter client for as long as the user keeps the program open, and
// holds an exclusive lock on the output directory so two sessions never write
// the same result or bundle file. Closing the session discards the queue.
package session
