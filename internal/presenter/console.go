package presenter

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/mattn/go-isatty"

	"bindery/internal/queue"
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiBlue   = "\x1b[34m"
	ansiDim    = "\x1b[2m"
)

// Console writes one line per event, colorized when the writer is a terminal.
type Console struct {
	mu       sync.Mutex
	out      io.Writer
	colorize bool
	names    map[int64]string
	summary  string
}

// NewConsole builds a console presenter on w.
func NewConsole(w io.Writer) *Console {
	return &Console{
		out:      w,
		colorize: ShouldColorize(w),
		names:    make(map[int64]string),
	}
}

// ShouldColorize reports whether w is an interactive terminal.
func ShouldColorize(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func (c *Console) OnQueued(id int64, displayName string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.names[id] = displayName
	c.writeLine(ansiDim, fmt.Sprintf("#%d %s queued", id, displayName))
}

func (c *Console) OnStateChanged(id int64, status queue.Status, detail string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	name := c.names[id]
	if name == "" {
		name = "item"
	}
	line := fmt.Sprintf("#%d %s %s", id, name, StatusLabel(status))
	if detail = strings.TrimSpace(detail); detail != "" {
		line += ": " + detail
	}
	c.writeLine(statusColor(status), line)
}

// OnQueueSummaryChanged prints the counter only when it differs from the last one shown.
func (c *Console) OnQueueSummaryChanged(pending, converting int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	text := SummaryText(pending, converting)
	if text == c.summary {
		return
	}
	c.summary = text
	c.writeLine(ansiBlue, text)
}

func (c *Console) writeLine(color, text string) {
	if c.colorize && color != "" {
		text = color + text + ansiReset
	}
	_, _ = fmt.Fprintln(c.out, text)
}

// StatusLabel is the short word shown for a status.
func StatusLabel(status queue.Status) string {
	switch status {
	case queue.StatusPending:
		return "waiting"
	case queue.StatusConverting:
		return "converting..."
	case queue.StatusDone:
		return "done"
	case queue.StatusError:
		return "failed"
	default:
		return string(status)
	}
}

func statusColor(status queue.Status) string {
	switch status {
	case queue.StatusConverting:
		return ansiYellow
	case queue.StatusDone:
		return ansiGreen
	case queue.StatusError:
		return ansiRed
	default:
		return ""
	}
}
