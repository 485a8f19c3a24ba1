package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"bindery/internal/config"
	"bindery/internal/presenter"
	"bindery/internal/services"
	"bindery/internal/session"
	"bindery/internal/workflow"
)

const shellHelp = `Commands:
  add <path>...        queue files
  start                convert pending files (resumes after pause)
  pause                stop after the current file
  status               show processor state and queue counts
  list                 show awaiting and completed files
  get <id>             download one converted file
  bundle <id>...|all   download completed files as one zip
  wait                 block until the current run stops
  help                 show this help
  quit                 pause, wait for the current file and exit`

func newShellCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "shell [file]...",
		Short: "Start an interactive conversion session",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			return runShell(cmd, cfg, logger, args)
		},
	}
}

type shell struct {
	cfg  *config.Config
	sess *session.Session
	out  io.Writer
	errw io.Writer
}

func runShell(cmd *cobra.Command, cfg *config.Config, logger *slog.Logger, args []string) error {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	out := cmd.OutOrStdout()
	p := presenter.Combine(presenter.NewConsole(out), presenter.NewLog(logger))

	sess, err := session.Open(parent, cfg, p, logger)
	if err != nil {
		return err
	}
	defer sess.Close()

	sh := &shell{cfg: cfg, sess: sess, out: out, errw: cmd.ErrOrStderr()}
	if len(args) > 0 {
		sh.add(parent, args)
	}
	fmt.Fprintln(out, `bindery shell; type "help" for commands`)

	scanner := bufio.NewScanner(cmd.InOrStdin())
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		if quit := sh.dispatch(parent, fields[0], fields[1:]); quit {
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read input: %w", err)
	}
	sh.shutdown()
	return nil
}

func (s *shell) dispatch(ctx context.Context, name string, args []string) bool {
	switch strings.ToLower(name) {
	case "add":
		s.add(ctx, args)
	case "start", "resume":
		s.start(ctx)
	case "pause":
		if err := s.sess.Pause(); err != nil {
			if errors.Is(err, workflow.ErrNotRunning) {
				fmt.Fprintln(s.out, "not running")
				return false
			}
			s.fail(err)
			return false
		}
		fmt.Fprintln(s.out, "pausing after the current file")
	case "status":
		s.status(ctx)
	case "list", "ls":
		s.list(ctx)
	case "get":
		s.get(ctx, args)
	case "bundle":
		s.bundle(ctx, args)
	case "wait":
		s.sess.Processor().Wait()
		fmt.Fprintf(s.out, "processor %s\n", s.sess.Processor().State())
	case "help", "?":
		fmt.Fprintln(s.out, shellHelp)
	case "quit", "exit":
		return true
	default:
		fmt.Fprintf(s.errw, "unknown command %q (try help)\n", name)
	}
	return false
}

func (s *shell) add(ctx context.Context, args []string) {
	paths, skipped := session.FilterPaths(s.cfg, args)
	for _, sk := range skipped {
		fmt.Fprintf(s.errw, "skipping %s: %s\n", sk.Path, sk.Reason)
	}
	if _, err := s.sess.Intake(ctx, paths); err != nil {
		s.fail(err)
	}
}

func (s *shell) start(ctx context.Context) {
	err := s.sess.Start(ctx)
	switch {
	case err == nil:
	case errors.Is(err, workflow.ErrNothingToDo):
		fmt.Fprintln(s.out, "nothing to convert")
	case errors.Is(err, workflow.ErrAlreadyRunning):
		fmt.Fprintln(s.out, "already running")
	default:
		s.fail(err)
	}
}

func (s *shell) status(ctx context.Context) {
	status, err := s.sess.Status(ctx)
	if err != nil {
		s.fail(err)
		return
	}
	colorize := shouldColorize(s.out)
	kind := statusInfo
	switch status.State {
	case workflow.StateRunning, workflow.StateDraining:
		kind = statusWarn
	case workflow.StateCompleted:
		kind = statusOK
	}
	detail := string(status.State)
	if status.InFlight != 0 {
		detail = fmt.Sprintf("%s (#%d)", detail, status.InFlight)
	}
	fmt.Fprintln(s.out, renderStatusLine("Processor", kind, detail, colorize))
	fmt.Fprintln(s.out, renderStatusLine("Queue", statusInfo,
		presenter.SummaryText(status.Queue.Pending, status.Queue.Converting), colorize))
	results := fmt.Sprintf("%d done, %d failed", status.Queue.Done, status.Queue.Error)
	fmt.Fprintln(s.out, renderStatusLine("Results", statusInfo, results, colorize))
	if status.LastError != "" {
		fmt.Fprintln(s.out, renderStatusLine("Last error", statusError, status.LastError, colorize))
	}
}

func (s *shell) list(ctx context.Context) {
	awaiting, finished, err := s.sess.Views(ctx)
	if err != nil {
		s.fail(err)
		return
	}
	if len(awaiting)+len(finished) == 0 {
		fmt.Fprintln(s.out, "queue is empty")
		return
	}
	writeLines(s.out,
		renderItems("Awaiting conversion", awaiting),
		renderItems("Completed", finished),
	)
}

func (s *shell) get(ctx context.Context, args []string) {
	if len(args) != 1 {
		fmt.Fprintln(s.errw, "usage: get <id>")
		return
	}
	id, err := parseItemID(args[0])
	if err != nil {
		s.fail(err)
		return
	}
	path, size, err := s.sess.Download(ctx, id)
	if err != nil {
		s.fail(err)
		return
	}
	fmt.Fprintf(s.out, "saved %s (%s)\n", path, humanize.IBytes(uint64(size)))
}

func (s *shell) bundle(ctx context.Context, args []string) {
	var ids []int64
	if len(args) == 1 && strings.EqualFold(args[0], "all") {
		done, err := s.sess.DoneIDs(ctx)
		if err != nil {
			s.fail(err)
			return
		}
		ids = done
	} else {
		parsed, err := parseItemIDs(args)
		if err != nil {
			s.fail(err)
			return
		}
		ids = parsed
	}
	result, err := s.sess.Bundle(ctx, ids)
	if err != nil {
		s.fail(err)
		return
	}
	fmt.Fprintf(s.out, "bundle saved to %s (%d files, %s)\n", result.Path, result.Entries, humanize.IBytes(uint64(result.Size)))
}

func (s *shell) fail(err error) {
	fmt.Fprintf(s.errw, "error: %s\n", services.UserMessage(err))
}

// shutdown lets an in-flight file finish before the session closes.
func (s *shell) shutdown() {
	proc := s.sess.Processor()
	switch proc.State() {
	case workflow.StateRunning:
		_ = proc.RequestPause()
		fmt.Fprintln(s.out, "waiting for the current file to finish")
	case workflow.StateDraining:
		fmt.Fprintln(s.out, "waiting for the current file to finish")
	}
	proc.Wait()
}

func parseItemID(raw string) (int64, error) {
	value := strings.TrimPrefix(strings.TrimSpace(raw), "#")
	id, err := strconv.ParseInt(value, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid item id %q", raw)
	}
	return id, nil
}

func parseItemIDs(args []string) ([]int64, error) {
	ids := make([]int64, 0, len(args))
	for _, raw := range args {
		for _, part := range strings.Split(raw, ",") {
			if strings.TrimSpace(part) == "" {
				continue
			}
			id, err := parseItemID(part)
			if err != nil {
				return nil, err
			}
			ids = append(ids, id)
		}
	}
	return ids, nil
}
