package workflow

import (
	"context"
	"errors"
	"time"

	"bindery/internal/logging"
	"bindery/internal/queue"
	"bindery/internal/services"
	"bindery/internal/services/converter"
)

func (p *Processor) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	for {
		if ctx.Err() != nil {
			p.stop(StatePaused, "queue stopped", nil)
			return
		}
		if p.claimPause() {
			p.stop(StatePaused, "queue paused", nil)
			return
		}

		item, err := p.store.NextPending(ctx)
		if err != nil {
			p.stop(StatePaused, "queue read failed", err)
			return
		}
		if item == nil {
			p.stop(StateCompleted, "queue finished", nil)
			return
		}

		if !p.processItem(ctx, item) {
			return
		}
	}
}

// claimPause consumes a pending pause request at a boundary. When there is
// none the loop is marked past the boundary in the same critical section, so
// a pause requested from here on drains the item about to be claimed.
func (p *Processor) claimPause() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.pauseRequested {
		p.pastBoundary = true
		return false
	}
	p.pauseRequested = false
	return true
}

// processItem converts one item. It returns false when the run must end.
func (p *Processor) processItem(ctx context.Context, item *queue.Item) bool {
	itemCtx := services.WithItemID(ctx, item.ID)
	logger := logging.WithContext(itemCtx, p.logger)

	if _, err := p.store.Transition(ctx, item.ID, queue.StatusConverting, queue.Outcome{}); err != nil {
		if ctx.Err() != nil {
			p.stop(StatePaused, "queue stopped", nil)
		} else {
			p.stop(StatePaused, "claim failed", err)
		}
		return false
	}
	p.setInFlight(item.ID)
	p.presenter.OnStateChanged(item.ID, queue.StatusConverting, "")
	p.publishSummary(ctx)

	logger.Info("conversion started", logging.String("file", item.DisplayName))
	started := time.Now()
	result, convErr := p.converter.Convert(itemCtx, item.SourcePath)

	// Recording the outcome must survive a cancelled run context.
	recordCtx := context.WithoutCancel(ctx)
	interrupted := convErr != nil && ctx.Err() != nil

	var (
		to      queue.Status
		outcome queue.Outcome
		detail  string
	)
	switch {
	case convErr == nil:
		to = queue.StatusDone
		outcome = queue.Outcome{ResultFilename: result.Filename, DownloadURL: result.DownloadURL}
		detail = result.Filename
	case interrupted:
		to = queue.StatusError
		outcome = queue.Outcome{Message: queue.InterruptedMessage}
		detail = queue.InterruptedMessage
	default:
		to = queue.StatusError
		detail = services.UserMessage(convErr)
		outcome = queue.Outcome{Message: detail}
	}

	_, err := p.store.Transition(recordCtx, item.ID, to, outcome)
	p.setInFlight(0)
	if err != nil {
		p.releaseUnrecorded(recordCtx, item, err)
		p.stop(StatePaused, "recording outcome failed", err)
		return false
	}

	p.countOutcome(to)
	p.presenter.OnStateChanged(item.ID, to, detail)
	p.publishSummary(ctx)

	elapsed := logging.Duration("elapsed", time.Since(started))
	switch {
	case convErr == nil:
		logger.Info("conversion finished", logging.String("result", result.Filename), elapsed)
	case interrupted:
		logger.Warn("conversion interrupted by shutdown",
			elapsed,
			logging.String(logging.FieldEventType, "conversion_interrupted"),
			logging.String(logging.FieldImpact, "file marked failed"),
			logging.String(logging.FieldErrorHint, "add the file again in a new session"),
		)
		p.stop(StatePaused, "queue stopped", nil)
		return false
	default:
		logging.WarnWithContext(logger, "conversion failed", "conversion_failed",
			logging.Error(convErr),
			logging.String(logging.FieldImpact, "file marked failed, queue continues"),
			logging.String(logging.FieldErrorHint, failureHint(convErr)),
			elapsed,
		)
	}
	return true
}

// releaseUnrecorded marks an item whose outcome could not be stored as failed,
// so it does not hold the converting slot for the rest of the session.
func (p *Processor) releaseUnrecorded(ctx context.Context, item *queue.Item, cause error) {
	if errors.Is(cause, queue.ErrNotFound) {
		return
	}
	if _, err := p.store.Transition(ctx, item.ID, queue.StatusError,
		queue.Outcome{Message: UnrecordedMessage}); err != nil {
		p.logger.Warn("could not mark item failed",
			logging.Item(item.ID),
			logging.Error(err),
			logging.String(logging.FieldEventType, "item_release_failed"),
			logging.String(logging.FieldImpact, "item may keep later files from starting"),
		)
		return
	}
	p.countOutcome(queue.StatusError)
	p.presenter.OnStateChanged(item.ID, queue.StatusError, UnrecordedMessage)
	p.publishSummary(ctx)
}

// failureHint tells apart service outages from files the service rejected.
func failureHint(err error) string {
	var failure *converter.Failure
	if errors.As(err, &failure) && !failure.Temporary() {
		return "the service rejected this file"
	}
	return "service or network problem; add the file again once the service is healthy"
}

// stop ends the run in state. A non-nil err is recorded as the last error.
func (p *Processor) stop(state State, msg string, err error) {
	p.mu.Lock()
	p.state = state
	p.pauseRequested = false
	p.pastBoundary = false
	p.inFlight = 0
	p.report.Finished = time.Now()
	report := p.report
	if err != nil {
		p.lastErr = err
	}
	p.mu.Unlock()

	attrs := []logging.Attr{
		logging.String("state", string(state)),
		logging.Int("converted", report.Converted),
		logging.Int("failed", report.Failed),
		logging.Duration("elapsed", report.Finished.Sub(report.Started)),
	}
	if err == nil {
		p.logger.Info(msg, logging.Args(attrs...)...)
		return
	}

	hint := "check the queue state with the status command"
	if errors.Is(err, queue.ErrInvalidTransition) {
		hint = "queue state changed underneath the processor; start again to resume"
	}
	attrs = append(attrs, logging.Error(err), logging.Alert("processor_stopped"))
	logging.ErrorWithContext(p.logger, msg, "processor_stopped",
		append(attrs, logging.String(logging.FieldErrorHint, hint))...)
}

func (p *Processor) setInFlight(id int64) {
	p.mu.Lock()
	p.inFlight = id
	p.mu.Unlock()
}

func (p *Processor) countOutcome(status queue.Status) {
	p.mu.Lock()
	defer p.mu.Unlock()
	switch status {
	case queue.StatusDone:
		p.report.Converted++
	case queue.StatusError:
		p.report.Failed++
	}
}

func (p *Processor) publishSummary(ctx context.Context) {
	summary, err := p.store.Summarize(context.WithoutCancel(ctx))
	if err != nil {
		p.logger.Warn("queue summary unavailable",
			logging.Error(err),
			logging.String(logging.FieldEventType, "queue_stats_failed"),
			logging.String(logging.FieldImpact, "counters not refreshed"),
		)
		return
	}
	p.presenter.OnQueueSummaryChanged(summary.Pending, summary.Converting)
}
