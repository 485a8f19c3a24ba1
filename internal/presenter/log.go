package presenter

import (
	"log/slog"

	"bindery/internal/logging"
	"bindery/internal/queue"
)

// Log forwards events to a logger.
type Log struct {
	logger *slog.Logger
}

// NewLog builds a presenter that logs under the "presenter" component.
func NewLog(logger *slog.Logger) *Log {
	return &Log{logger: logging.NewComponentLogger(logger, "presenter")}
}

func (l *Log) OnQueued(id int64, displayName string) {
	l.logger.Info("file queued", logging.Item(id), logging.String("name", displayName))
}

func (l *Log) OnStateChanged(id int64, status queue.Status, detail string) {
	attrs := []logging.Attr{
		logging.Item(id),
		logging.String("status", string(status)),
	}
	if detail != "" {
		attrs = append(attrs, logging.String("detail", detail))
	}
	if status == queue.StatusError {
		// The processor logs the warning with its cause.
		attrs = append(attrs,
			logging.String(logging.FieldEventType, "item_failed"),
			logging.String(logging.FieldErrorHint, "check the file and resubmit it"),
		)
		l.logger.Info("conversion failed", logging.Args(attrs...)...)
		return
	}
	l.logger.Info("status changed", logging.Args(attrs...)...)
}

func (l *Log) OnQueueSummaryChanged(pending, converting int) {
	l.logger.Debug("queue summary",
		logging.Int("pending", pending),
		logging.Int("converting", converting),
	)
}
