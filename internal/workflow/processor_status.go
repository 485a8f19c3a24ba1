package workflow

import (
	"context"

	"bindery/internal/queue"
)

// Status is a snapshot of the processor and queue for display.
type Status struct {
	State     State
	InFlight  int64
	LastError string
	Queue     queue.Summary
	LastRun   RunReport
}

// Summary returns the current processor state together with queue counts.
func (p *Processor) Summary(ctx context.Context) (Status, error) {
	p.mu.Lock()
	status := Status{
		State:    p.state,
		InFlight: p.inFlight,
		LastRun:  p.report,
	}
	if p.lastErr != nil {
		status.LastError = p.lastErr.Error()
	}
	p.mu.Unlock()

	summary, err := p.store.Summarize(ctx)
	if err != nil {
		return status, err
	}
	status.Queue = summary
	return status, nil
}

// LastError returns the error that last stopped a run, if any.
func (p *Processor) LastError() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastErr
}

// LastRun returns the counters of the most recent run.
func (p *Processor) LastRun() RunReport {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.report
}
