package queue

import (
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"
)

// Status represents the lifecycle of a queue item.
type Status string

const (
	StatusPending    Status = "pending"
	StatusConverting Status = "converting"
	StatusDone       Status = "done"
	StatusError      Status = "error"
)

// InterruptedMessage is recorded on an item whose conversion was cut short by shutdown.
const InterruptedMessage = "conversion interrupted"

var allStatuses = []Status{
	StatusPending,
	StatusConverting,
	StatusDone,
	StatusError,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// legalSources lists the status an item must hold before entering each target.
var legalSources = map[Status]Status{
	StatusConverting: StatusPending,
	StatusDone:       StatusConverting,
	StatusError:      StatusConverting,
}

// Item is one submitted file and its conversion outcome.
type Item struct {
	ID             int64
	SourcePath     string
	DisplayName    string
	Status         Status
	ResultFilename string
	DownloadURL    string
	ErrorMessage   string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Outcome carries the data recorded by a transition into done or error.
type Outcome struct {
	ResultFilename string
	DownloadURL    string
	Message        string
}

// AllStatuses returns every status in lifecycle order.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// IsTerminal reports whether no further transition can leave the status.
func (s Status) IsTerminal() bool {
	return s == StatusDone || s == StatusError
}

// CanTransition reports whether from -> to is one of the three legal moves.
func CanTransition(from, to Status) bool {
	source, ok := legalSources[to]
	return ok && source == from
}

// IsDone is true when the item has a retrievable result.
func (i Item) IsDone() bool {
	return i.Status == StatusDone
}

// displayNameFor derives the presentation name from a source path.
func displayNameFor(sourcePath string) string {
	base := filepath.Base(strings.TrimSpace(sourcePath))
	if base == "." || base == string(filepath.Separator) {
		return sourcePath
	}
	return norm.NFC.String(base)
}
