// Package converter talks to the remote e-book conversion service.
//
// Convert uploads one file as multipart form data and decodes the JSON
// envelope the service answers with. Download fetches a single converted
// result by its download url, and Bundle asks the service to package several
// results into one zip archive. Every request carries a fresh X-Request-ID
// so client and server logs can be joined.
//
// Failures are returned as *Failure, which carries the HTTP status and the
// server's own error text when it sent one; services.UserMessage turns it
// into the short text stored on a failed queue item.
package converter
