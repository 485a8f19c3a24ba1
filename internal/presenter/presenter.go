package presenter

import (
	"fmt"

	"bindery/internal/queue"
)

// Presenter receives queue events.
type Presenter interface {
	OnQueued(id int64, displayName string)
	OnStateChanged(id int64, status queue.Status, detail string)
	OnQueueSummaryChanged(pending, converting int)
}

// Noop discards every event.
type Noop struct{}

func (Noop) OnQueued(int64, string) {}
func (Noop) OnStateChanged(int64, queue.Status, string) {}
func (Noop) OnQueueSummaryChanged(int, int) {}

// Fanout forwards every event to each presenter in order.
type Fanout []Presenter

// Combine returns a presenter for the non-nil entries of list.
func Combine(list ...Presenter) Presenter {
	out := make(Fanout, 0, len(list))
	for _, p := range list {
		if p != nil {
			out = append(out, p)
		}
	}
	switch len(out) {
	case 0:
		return Noop{}
	case 1:
		return out[0]
	}
	return out
}

func (f Fanout) OnQueued(id int64, displayName string) {
	for _, p := range f {
		p.OnQueued(id, displayName)
	}
}

func (f Fanout) OnStateChanged(id int64, status queue.Status, detail string) {
	for _, p := range f {
		p.OnStateChanged(id, status, detail)
	}
}

func (f Fanout) OnQueueSummaryChanged(pending, converting int) {
	for _, p := range f {
		p.OnQueueSummaryChanged(pending, converting)
	}
}

// SummaryText renders the awaiting-conversion counter.
func SummaryText(pending, converting int) string {
	return fmt.Sprintf("pending: %d | converting: %d", pending, converting)
}
