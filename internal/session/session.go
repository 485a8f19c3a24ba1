package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/gofrs/flock"

	"bindery/internal/bundle"
	"bindery/internal/config"
	"bindery/internal/logging"
	"bindery/internal/presenter"
	"bindery/internal/queue"
	"bindery/internal/services"
	"bindery/internal/services/converter"
	"bindery/internal/workflow"
)

const lockFileName = ".bindery.lock"

// ErrLocked is returned when another session holds the output directory.
var ErrLocked = errors.New("output directory is in use by another bindery session")

// Session is one interactive or batch run.
type Session struct {
	cfg       *config.Config
	logger    *slog.Logger
	store     *queue.Store
	client    *converter.Client
	processor *workflow.Processor
	bundler   *bundle.Requester
	presenter presenter.Presenter
	lock      *flock.Flock
}

// Option customizes a session.
type Option func(*options)

type options struct {
	clientOpts []converter.Option
}

// WithConverterOptions passes options to the converter client.
func WithConverterOptions(opts ...converter.Option) Option {
	return func(o *options) {
		o.clientOpts = append(o.clientOpts, opts...)
	}
}

// Open prepares the output directory, takes its lock and creates an empty queue.
func Open(ctx context.Context, cfg *config.Config, p presenter.Presenter, logger *slog.Logger, opts ...Option) (*Session, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if p == nil {
		p = presenter.Noop{}
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	if err := cfg.EnsureDirectories(); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "session", "open", "prepare output directory", err)
	}
	lockPath := filepath.Join(cfg.Output.Dir, lockFileName)
	lock := flock.New(lockPath)
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrLocked, cfg.Output.Dir)
	}

	store, err := queue.Open(ctx)
	if err != nil {
		_ = lock.Unlock()
		return nil, err
	}

	clientOpts := append([]converter.Option{converter.WithLogger(logger)}, o.clientOpts...)
	client := converter.NewClient(cfg, clientOpts...)
	s := &Session{
		cfg:       cfg,
		logger:    logging.NewComponentLogger(logger, "session"),
		store:     store,
		client:    client,
		processor: workflow.NewProcessor(store, client, p, logger),
		bundler: bundle.NewRequester(store, client,
			bundle.NewFileDelivery(cfg.Output.Dir, cfg.Output.BundleName), logger),
		presenter: p,
		lock:      lock,
	}
	s.logger.Debug("session opened",
		logging.String("output_dir", cfg.Output.Dir),
		logging.String("service", cfg.Service.BaseURL),
		logging.String("lock", lockPath),
	)
	return s, nil
}

// Close waits for any run to return, discards the queue and releases the lock.
// Callers stop a run first with Pause or by cancelling its context.
func (s *Session) Close() error {
	if s == nil {
		return nil
	}
	s.processor.Wait()
	storeErr := s.store.Close()
	if err := s.lock.Unlock(); err != nil {
		s.logger.Warn("failed to release output lock",
			logging.Error(err),
			logging.String(logging.FieldEventType, "lock_release_failed"),
			logging.String(logging.FieldImpact, "next session may report the directory as busy"),
		)
	}
	return storeErr
}

// Config returns the session configuration.
func (s *Session) Config() *config.Config { return s.cfg }

// Processor exposes the sequential processor.
func (s *Session) Processor() *workflow.Processor { return s.processor }

// Start begins or resumes processing.
func (s *Session) Start(ctx context.Context) error { return s.processor.Start(ctx) }

// Pause requests a pause after the current file.
func (s *Session) Pause() error { return s.processor.RequestPause() }

// Status reports processor state and queue counts.
func (s *Session) Status(ctx context.Context) (workflow.Status, error) {
	return s.processor.Summary(ctx)
}
