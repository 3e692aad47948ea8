// Command taskeval compiles a task directory into an evaluation plan,
// submits it to the evaluation backend and follows the run to the final
// report.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lmittmann/tint"
	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"

	"github.com/programme-lv/taskeval/internal/backend"
	"github.com/programme-lv/taskeval/internal/environment"
	"github.com/programme-lv/taskeval/internal/taskfs"
	"github.com/programme-lv/taskeval/internal/term"
	"github.com/programme-lv/taskeval/internal/tracker"
)

func main() {
	cmd := &cli.Command{
		Name:  "taskeval",
		Usage: "evaluate a task directory's solutions against its test data",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "dir",
				Aliases: []string{"C"},
				Value:   ".",
				Usage:   "task directory",
			},
			&cli.StringSliceFlag{
				Name:    "solution",
				Aliases: []string{"s"},
				Usage:   "evaluate only these solutions (repeatable)",
			},
			&cli.StringFlag{
				Name:  "ui",
				Usage: "progress rendering: live, print or silent",
			},
			&cli.StringFlag{
				Name:  "cache",
				Usage: "backend cache mode: all, generation or nothing",
			},
			&cli.IntFlag{
				Name:  "cores",
				Usage: "parallelism hint for the backend",
			},
			&cli.BoolFlag{
				Name:  "dry-run",
				Usage: "generate and validate test data, skip the solutions",
			},
			&cli.BoolFlag{
				Name:  "copy-exe",
				Usage: "write compiled binaries back into bin/",
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "debug diagnostics on stderr",
			},
		},
		Action: run,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmd.Run(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "taskeval: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cmd *cli.Command) error {
	level := slog.LevelWarn
	if cmd.Bool("verbose") {
		level = slog.LevelDebug
	}
	logger := slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      level,
		TimeFormat: time.Kitchen,
	}))
	slog.SetDefault(logger)

	cfg, err := environment.Load()
	if err != nil {
		return err
	}
	ui := cfg.UI
	if v := cmd.String("ui"); v != "" {
		ui = v
	}
	cacheMode := cfg.CacheMode
	if v := cmd.String("cache"); v != "" {
		cacheMode = v
	}
	numCores := cfg.NumCores
	if v := cmd.Int("cores"); v != 0 {
		numCores = int(v)
	}

	plan, err := taskfs.Compile(cmd.String("dir"), taskfs.Options{
		Solutions:    cmd.StringSlice("solution"),
		CopyBinaries: cmd.Bool("copy-exe"),
	})
	if err != nil {
		return err
	}
	logger.Debug("plan compiled",
		"task", plan.Name,
		"subtasks", len(plan.Subtasks),
		"testcases", plan.TestcaseCount(),
		"solutions", len(plan.Solutions))

	req := taskfs.BuildRequest(plan, taskfs.ReqOptions{
		CacheMode: cacheMode,
		NumCores:  numCores,
		DryRun:    cmd.Bool("dry-run"),
	})

	trk := tracker.New(plan)
	for _, f := range plan.NonSolutions() {
		trk.RegisterNonSolution(f)
	}
	for _, f := range plan.Solutions {
		trk.RegisterSolution(f)
	}

	var dash *term.Dashboard
	switch ui {
	case "print":
		trk.SetListener(term.NewPrinter(os.Stdout))
	case "silent":
	default:
		dash = term.NewDashboard(trk, plan, os.Stdout)
	}

	sup := backend.New(cfg.BackendURL, backend.Dial, &backend.ProcSpawner{
		Command: cfg.BackendCmd,
		Logger:  logger,
	}, logger)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	g := new(errgroup.Group)
	g.Go(func() error {
		defer cancel()
		return sup.Run(runCtx, req, trk)
	})
	if dash != nil {
		g.Go(func() error {
			dash.Run(runCtx)
			return nil
		})
	}
	runErr := g.Wait()

	term.FinalReport(os.Stdout, plan, trk.Snapshot())

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return runErr
	}
	if trk.Aborted() {
		return errors.New("evaluation aborted")
	}
	if n := len(trk.Errors()); n > 0 {
		return fmt.Errorf("evaluation finished with %d errors", n)
	}
	return nil
}
