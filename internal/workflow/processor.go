package workflow

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"bindery/internal/logging"
	"bindery/internal/presenter"
	"bindery/internal/queue"
	"bindery/internal/services/converter"
)

// State is the processor lifecycle.
type State string

const (
	StateIdle      State = "idle"
	StateRunning   State = "running"
	StatePaused    State = "paused"
	StateDraining  State = "draining"
	StateCompleted State = "completed"
)

var (
	// ErrNothingToDo is returned by Start when no item is pending.
	ErrNothingToDo = errors.New("no pending items")
	// ErrAlreadyRunning is returned by Start while a run is in progress.
	ErrAlreadyRunning = errors.New("processor already running")
	// ErrNotRunning is returned by RequestPause outside a run.
	ErrNotRunning = errors.New("processor not running")
)

// UnrecordedMessage is stored on an item whose conversion outcome could not be saved.
const UnrecordedMessage = "conversion result could not be recorded"

// Converter performs one remote conversion.
type Converter interface {
	Convert(ctx context.Context, sourcePath string) (converter.Result, error)
}

// RunReport summarizes the most recent run.
type RunReport struct {
	Started   time.Time
	Finished  time.Time
	Converted int
	Failed    int
}

// Processor drives queue items through conversion sequentially.
type Processor struct {
	store     *queue.Store
	converter Converter
	presenter presenter.Presenter
	logger    *slog.Logger

	mu             sync.Mutex
	state          State
	pauseRequested bool
	inFlight       int64
	lastErr        error
	report         RunReport
	done           chan struct{}

	// pastBoundary is set once the loop has passed its pause check and is
	// claiming or converting an item.
	pastBoundary bool
}

// NewProcessor constructs an idle processor. A nil presenter discards events.
func NewProcessor(store *queue.Store, conv Converter, p presenter.Presenter, logger *slog.Logger) *Processor {
	if p == nil {
		p = presenter.Noop{}
	}
	return &Processor{
		store:     store,
		converter: conv,
		presenter: p,
		logger:    logging.NewComponentLogger(logger, "processor"),
		state:     StateIdle,
	}
}

// Start begins a run on its own goroutine. ctx bounds the whole run; cancel it
// only to abandon work at shutdown, use RequestPause to stop between files.
func (p *Processor) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state == StateRunning || p.state == StateDraining {
		return ErrAlreadyRunning
	}
	pending, err := p.store.CountByStatus(ctx, queue.StatusPending)
	if err != nil {
		return err
	}
	if pending == 0 {
		return ErrNothingToDo
	}

	p.state = StateRunning
	p.pauseRequested = false
	p.pastBoundary = false
	p.lastErr = nil
	p.report = RunReport{Started: time.Now()}
	done := make(chan struct{})
	p.done = done

	p.logger.Info("queue started",
		logging.Int("pending", pending),
		logging.String(logging.FieldEventType, "queue_started"),
	)
	go p.run(ctx, done)
	return nil
}

// RequestPause asks the run to stop before claiming the next file. The file
// currently converting, if any, is allowed to finish.
func (p *Processor) RequestPause() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state != StateRunning {
		return ErrNotRunning
	}
	p.pauseRequested = true
	if p.pastBoundary {
		p.state = StateDraining
	}
	p.logger.Info("pause requested",
		logging.Bool("draining", p.pastBoundary),
		logging.String(logging.FieldEventType, "pause_requested"),
	)
	return nil
}

// Wait blocks until the current run, if any, has returned.
func (p *Processor) Wait() {
	p.mu.Lock()
	done := p.done
	p.mu.Unlock()
	if done != nil {
		<-done
	}
}

// State returns the current lifecycle state.
func (p *Processor) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// InFlight returns the id of the item being converted, or zero.
func (p *Processor) InFlight() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.inFlight
}
