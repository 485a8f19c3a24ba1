package converter

import (
	"fmt"
	"net/http"
	"strings"
)

// Failure describes a rejected or unreadable service exchange.
type Failure struct {
	Op         string
	StatusCode int
	Message    string
	Err        error
}

func (f *Failure) Error() string {
	var b strings.Builder
	b.WriteString(f.Op)
	if f.StatusCode > 0 {
		fmt.Fprintf(&b, ": HTTP %d", f.StatusCode)
	}
	if f.Message != "" {
		b.WriteString(": ")
		b.WriteString(f.Message)
	}
	if f.Err != nil {
		b.WriteString(": ")
		b.WriteString(f.Err.Error())
	}
	return b.String()
}

func (f *Failure) Unwrap() error { return f.Err }

// UserMessage prefers the server's error text, then the HTTP status, then the cause.
func (f *Failure) UserMessage() string {
	switch {
	case f.Message != "":
		return f.Message
	case f.StatusCode > 0:
		return fmt.Sprintf("HTTP %d", f.StatusCode)
	case f.Err != nil:
		return f.Err.Error()
	default:
		return "service request failed"
	}
}

// Temporary reports whether the failure came from the network or a 5xx
// answer rather than the service rejecting the input.
func (f *Failure) Temporary() bool {
	return f.StatusCode == 0 || f.StatusCode >= http.StatusInternalServerError
}
