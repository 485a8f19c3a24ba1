package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"bindery/internal/bundle"
	"bindery/internal/config"
	"bindery/internal/logging"
	"bindery/internal/preflight"
	"bindery/internal/presenter"
	"bindery/internal/queue"
	"bindery/internal/session"
	"bindery/internal/workflow"
)

type convertOptions struct {
	bundle    bool
	download  bool
	json      bool
	skipCheck bool
}

type convertJSON struct {
	State   string     `json:"state"`
	Items   []itemJSON `json:"items"`
	Bundle  string     `json:"bundle,omitempty"`
	Entries int        `json:"bundle_entries,omitempty"`
}

func newConvertCommand(ctx *commandContext) *cobra.Command {
	var opts convertOptions

	cmd := &cobra.Command{
		Use:   "convert <file>...",
		Short: "Convert files one at a time and report the results",
		Long: "Queue every file, convert them sequentially and print a summary.\n" +
			"Ctrl-C once pauses after the current file; a second Ctrl-C abandons it.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			return runConvert(cmd, cfg, logger, args, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.bundle, "bundle", false, "Request one zip bundle of every converted file")
	cmd.Flags().BoolVar(&opts.download, "download", false, "Download each converted file into the output directory")
	cmd.Flags().BoolVar(&opts.json, "json", false, "Print results as JSON")
	cmd.Flags().BoolVar(&opts.skipCheck, "skip-check", false, "Do not probe the conversion service before starting")
	return cmd
}

func runConvert(cmd *cobra.Command, cfg *config.Config, logger *slog.Logger, args []string, opts convertOptions) error {
	stdout := cmd.OutOrStdout()
	stderr := cmd.ErrOrStderr()

	paths, skipped := session.FilterPaths(cfg, args)
	for _, s := range skipped {
		fmt.Fprintf(stderr, "skipping %s: %s\n", s.Path, s.Reason)
	}
	if len(paths) == 0 {
		return errors.New("no convertible files given")
	}

	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}

	if !opts.skipCheck {
		if result := preflight.CheckService(parent, cfg); !result.Passed {
			return fmt.Errorf("conversion service unavailable: %s", result.Detail)
		}
	}

	progress := stdout
	if opts.json {
		progress = stderr
	}
	p := presenter.Combine(presenter.NewConsole(progress), presenter.NewLog(logger))

	sess, err := session.Open(parent, cfg, p, logger)
	if err != nil {
		return err
	}
	defer sess.Close()

	if _, err := sess.Intake(parent, paths); err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(parent)
	defer cancel()
	if err := sess.Start(runCtx); err != nil {
		return err
	}
	waitWithSignals(runCtx, sess.Processor(), cancel, stderr, logger)

	status, err := sess.Status(parent)
	if err != nil {
		return err
	}
	runErr := sess.Processor().LastError()

	savedTo := map[int64]string{}
	var bundled bundle.Result
	if runErr == nil {
		if opts.download {
			if err := downloadResults(parent, sess, savedTo, progress); err != nil {
				return err
			}
		}
		if opts.bundle {
			bundled, err = bundleAll(parent, sess, progress)
			if err != nil {
				return err
			}
		}
	}

	return reportConvert(cmd, sess, convertReport{
		status:  status,
		savedTo: savedTo,
		bundled: bundled,
		json:    opts.json,
		runErr:  runErr,
	})
}

type convertReport struct {
	status  workflow.Status
	savedTo map[int64]string
	bundled bundle.Result
	json    bool

	// runErr stopped the processor early. It is returned after the items are
	// printed.
	runErr error
}

func reportConvert(cmd *cobra.Command, sess *session.Session, r convertReport) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	items, err := sess.Items(ctx)
	if err != nil {
		return err
	}

	if r.json {
		payload := convertJSON{State: string(r.status.State), Items: make([]itemJSON, 0, len(items))}
		for _, item := range items {
			payload.Items = append(payload.Items, toItemJSON(item, r.savedTo[item.ID]))
		}
		payload.Bundle = r.bundled.Path
		payload.Entries = r.bundled.Entries
		if err := writeJSON(cmd, payload); err != nil {
			return err
		}
	} else {
		awaiting, finished, err := sess.Views(ctx)
		if err != nil {
			return err
		}
		writeLines(cmd.OutOrStdout(),
			renderItems("Completed", finished),
			renderItems("Awaiting conversion", awaiting),
		)
	}

	if r.runErr != nil {
		return r.runErr
	}
	if r.status.Queue.Pending > 0 {
		fmt.Fprintf(cmd.ErrOrStderr(), "paused with %d file(s) not converted\n", r.status.Queue.Pending)
	}
	if r.status.Queue.Error > 0 {
		return fmt.Errorf("%d of %d file(s) failed to convert", r.status.Queue.Error, r.status.Queue.Total())
	}
	return nil
}

// waitWithSignals blocks until the run returns. The first interrupt requests a
// pause; the second cancels the in-flight conversion.
func waitWithSignals(ctx context.Context, proc *workflow.Processor, cancel context.CancelFunc, stderr io.Writer, logger *slog.Logger) {
	signals := make(chan os.Signal, 2)
	signal.Notify(signals, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(signals)

	done := make(chan struct{})
	var g errgroup.Group
	g.Go(func() error {
		defer close(done)
		proc.Wait()
		return nil
	})
	g.Go(func() error {
		interrupts := 0
		for {
			select {
			case <-done:
				return nil
			case <-ctx.Done():
				return nil
			case sig := <-signals:
				interrupts++
				if interrupts > 1 {
					fmt.Fprintln(stderr, "stopping now")
					logger.Warn("conversion abandoned",
						logging.String("signal", sig.String()),
						logging.String(logging.FieldEventType, "run_cancelled"),
						logging.String(logging.FieldImpact, "in-flight file marked failed"),
					)
					cancel()
					return nil
				}
				if err := proc.RequestPause(); err != nil && !errors.Is(err, workflow.ErrNotRunning) {
					return err
				}
				fmt.Fprintln(stderr, "pausing after the current file (Ctrl-C again to stop now)")
			}
		}
	})
	if err := g.Wait(); err != nil {
		logging.ErrorWithContext(logger, "signal handling failed", "signal_failed", logging.Error(err))
	}
}

func downloadResults(ctx context.Context, sess *session.Session, savedTo map[int64]string, out io.Writer) error {
	items, err := sess.Items(ctx)
	if err != nil {
		return err
	}
	for _, item := range items {
		if item.Status != queue.StatusDone {
			continue
		}
		path, size, err := sess.Download(ctx, item.ID)
		if err != nil {
			return fmt.Errorf("download #%d: %w", item.ID, err)
		}
		savedTo[item.ID] = path
		fmt.Fprintf(out, "saved %s (%s)\n", path, humanize.IBytes(uint64(size)))
	}
	return nil
}

func bundleAll(ctx context.Context, sess *session.Session, out io.Writer) (bundle.Result, error) {
	ids, err := sess.DoneIDs(ctx)
	if err != nil {
		return bundle.Result{}, err
	}
	if len(ids) == 0 {
		fmt.Fprintln(out, "nothing to bundle")
		return bundle.Result{}, nil
	}
	result, err := sess.Bundle(ctx, ids)
	if err != nil {
		return bundle.Result{}, err
	}
	fmt.Fprintf(out, "bundle saved to %s (%d files, %s)\n", result.Path, result.Entries, humanize.IBytes(uint64(result.Size)))
	return result, nil
}
