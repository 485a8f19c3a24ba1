package main

import (
	"fmt"
	"io"
	"strings"

	"bindery/internal/presenter"
	"bindery/internal/queue"
)

type statusKind int

const (
	statusInfo statusKind = iota
	statusOK
	statusWarn
	statusError
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiBlue   = "\x1b[34m"
)

const (
	statusLabelWidth = 20
	statusIndent     = "  "
)

func renderStatusLine(label string, kind statusKind, message string, colorize bool) string {
	statusText := statusKindLabel(kind)
	if message != "" {
		statusText = fmt.Sprintf("[%s] %s", statusText, message)
	} else {
		statusText = fmt.Sprintf("[%s]", statusText)
	}
	base := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, label+":", statusText)
	if colorize {
		if color := statusKindColor(kind); color != "" {
			return color + base + ansiReset
		}
	}
	return base
}

func statusKindLabel(kind statusKind) string {
	switch kind {
	case statusOK:
		return "OK"
	case statusWarn:
		return "WARN"
	case statusError:
		return "ERROR"
	default:
		return "INFO"
	}
}

func statusKindColor(kind statusKind) string {
	switch kind {
	case statusOK:
		return ansiGreen
	case statusWarn:
		return ansiYellow
	case statusError:
		return ansiRed
	case statusInfo:
		return ansiBlue
	default:
		return ""
	}
}

func kindForStatus(status queue.Status) statusKind {
	switch status {
	case queue.StatusDone:
		return statusOK
	case queue.StatusError:
		return statusError
	case queue.StatusConverting:
		return statusWarn
	default:
		return statusInfo
	}
}

func shouldColorize(writer io.Writer) bool {
	return presenter.ShouldColorize(writer)
}

// renderItems draws the item table used by convert, list and status.
func renderItems(title string, items []*queue.Item) string {
	if len(items) == 0 {
		return ""
	}
	rows := make([][]string, 0, len(items))
	for _, item := range items {
		outcome := item.ResultFilename
		if item.Status == queue.StatusError {
			outcome = item.ErrorMessage
		}
		rows = append(rows, []string{
			fmt.Sprintf("%d", item.ID),
			item.DisplayName,
			presenter.StatusLabel(item.Status),
			outcome,
		})
	}
	return renderTable(title, []string{"ID", "File", "Status", "Result"}, rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft})
}

func writeLines(w io.Writer, lines ...string) {
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		fmt.Fprintln(w, line)
	}
}
