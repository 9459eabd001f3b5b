// Package main is the stacbg CLI entry point.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/stacbg/internal/aoi"
	"github.com/hyperjump/stacbg/internal/cli"
	"github.com/hyperjump/stacbg/internal/config"
	"github.com/hyperjump/stacbg/internal/models"
	"github.com/hyperjump/stacbg/internal/server"
	"github.com/hyperjump/stacbg/internal/storage"
	"github.com/hyperjump/stacbg/internal/watcher"
	"github.com/hyperjump/stacbg/pkg/utils"
)

var version = "dev"

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run dispatches a subcommand and returns the process exit code. With no
// subcommand (or only flags) it generates.
func run(args []string, stdout, stderr io.Writer) int {
	command := "generate"
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		command, args = args[0], args[1:]
	}
	switch command {
	case "generate":
		return runGenerate(args, stderr)
	case "status":
		return runStatus(args, stdout, stderr)
	case "history":
		return runHistory(args, stdout, stderr)
	case "aoi":
		return runAOI(args, stdout, stderr)
	case "serve":
		return runServe(args, stderr)
	case "version", "--version":
		fmt.Fprintf(stdout, "stacbg version %s\n", version)
		return 0
	case "help", "--help":
		printUsage(stdout)
		return 0
	default:
		fmt.Fprintf(stderr, "Unknown command: %s\n", command)
		printUsage(stderr)
		return 2
	}
}

// session is the per-command state shared by all subcommands.
type session struct {
	cfg    *config.Settings
	logger *zap.Logger
	debug  bool
	stderr io.Writer
}

func openSession(configPath string, debugFlag bool, stderr io.Writer) (*session, error) {
	path := config.ResolvePath(configPath)
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	debug := cfg.Debug || debugFlag
	logger, err := utils.NewLogger(debug)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}
	logger.Debug("settings loaded", zap.String("path", path))
	return &session{cfg: cfg, logger: logger, debug: debug, stderr: stderr}, nil
}

// fail reports err and returns the exit code. In debug mode the error is
// logged and re-raised so the whole chain and stack are visible.
func (s *session) fail(err error) int {
	if s.debug {
		s.logger.Error("run failed", zap.Error(err))
		_ = s.logger.Sync()
		panic(err)
	}
	fmt.Fprintf(s.stderr, "ERROR: %v\n", err)
	return 1
}

// startupFail handles errors before a session exists.
func startupFail(err error, debug bool, stderr io.Writer) int {
	if debug {
		panic(err)
	}
	fmt.Fprintf(stderr, "ERROR: %v\n", err)
	return 1
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func runGenerate(args []string, stderr io.Writer) int {
	fs := flag.NewFlagSet("generate", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "settings file path (default: $"+config.SettingsEnv+" or ./settings.yaml)")
	var force, debug bool
	fs.BoolVar(&force, "force", false, "regenerate even if the current background is still fresh")
	fs.BoolVar(&force, "f", false, "shorthand for -force")
	fs.BoolVar(&debug, "debug", false, "debug logging; failures panic with the full error chain")
	fs.BoolVar(&debug, "d", false, "shorthand for -debug")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	s, err := openSession(*configPath, debug, stderr)
	if err != nil {
		return startupFail(err, debug, stderr)
	}
	defer s.logger.Sync()

	// History is a convenience log; the run goes ahead without it.
	history, err := openHistory(s.cfg.HistoryPath, true)
	if err != nil {
		s.logger.Warn("history unavailable, generations will not be logged", zap.Error(err))
		history = nil
	} else {
		defer history.Close()
	}

	ctx, stop := signalContext()
	defer stop()
	res, err := newGenerator(s.cfg, s.logger, history).Generate(ctx, force)
	if err != nil {
		return s.fail(err)
	}
	if !res.Generated {
		s.logger.Info("background is current, nothing to do", zap.String("reason", res.Reason))
		return 0
	}
	s.logger.Info("done",
		zap.String("image", res.ImagePath),
		zap.String("item", res.Record.TargetItem.ID),
		zap.Bool("aoi", res.Record.IsAOI),
	)
	return 0
}

func runStatus(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("status", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "settings file path")
	output := fs.String("output", "text", "output format: text or json")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	format, err := cli.ParseOutputFormat(*output)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 2
	}

	s, err := openSession(*configPath, false, stderr)
	if err != nil {
		return startupFail(err, false, stderr)
	}
	defer s.logger.Sync()
	history, err := openHistory(s.cfg.HistoryPath, false)
	if err != nil {
		return s.fail(err)
	}
	var count int64
	if history != nil {
		defer history.Close()
		if count, err = history.Count(context.Background()); err != nil {
			return s.fail(err)
		}
	}

	ctx := context.Background()
	decision, rec, err := newGenerator(s.cfg, s.logger, nil).Check(ctx)
	if err != nil {
		return s.fail(err)
	}
	artifacts, total, err := storage.Artifacts(
		s.cfg.ImagePath(), s.cfg.ThumbnailPath(), s.cfg.ImageInfoPath, s.cfg.HistoryPath,
	)
	if err != nil {
		return s.fail(err)
	}
	status := &cli.Status{
		Decision:     decision,
		Record:       rec,
		Artifacts:    artifacts,
		TotalBytes:   total,
		HistoryCount: count,
	}
	if err := cli.WriteStatus(stdout, status, format); err != nil {
		return s.fail(err)
	}
	return 0
}

func runHistory(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("history", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "settings file path")
	limit := fs.Int("limit", 10, "number of generations to show (0 = all)")
	output := fs.String("output", "text", "output format: text or json")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	format, err := cli.ParseOutputFormat(*output)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 2
	}

	s, err := openSession(*configPath, false, stderr)
	if err != nil {
		return startupFail(err, false, stderr)
	}
	defer s.logger.Sync()
	history, err := openHistory(s.cfg.HistoryPath, false)
	if err != nil {
		return s.fail(err)
	}
	var entries []*models.HistoryEntry
	if history != nil {
		defer history.Close()
		if entries, err = history.List(context.Background(), *limit); err != nil {
			return s.fail(err)
		}
	}
	if err := cli.WriteHistory(stdout, entries, format); err != nil {
		return s.fail(err)
	}
	return 0
}

func runAOI(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 || strings.HasPrefix(args[0], "-") {
		fmt.Fprintln(stderr, "Usage: stacbg aoi <list|ensure-ids> [-config path] [-output text|json]")
		return 2
	}
	action, args := args[0], args[1:]
	fs := flag.NewFlagSet("aoi "+action, flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "settings file path")
	output := fs.String("output", "text", "output format: text or json")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	format, err := cli.ParseOutputFormat(*output)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 2
	}

	s, err := openSession(*configPath, false, stderr)
	if err != nil {
		return startupFail(err, false, stderr)
	}
	defer s.logger.Sync()
	if s.cfg.AOIs == nil {
		return s.fail(fmt.Errorf("%w: no aois configured", models.ErrConfiguration))
	}
	tracker := aoi.NewTracker(aoi.NewFileStore(s.cfg.AOIs.FeatureCollectionPath), aoi.WithLogger(s.logger))
	ctx := context.Background()

	var c aoi.Collection
	switch action {
	case "list":
		c, err = tracker.Load(ctx)
	case "ensure-ids":
		var changed bool
		c, changed, err = tracker.EnsureIdentifiers(ctx)
		if err == nil && !changed {
			fmt.Fprintln(stderr, "All areas of interest already have ids.")
		}
	default:
		fmt.Fprintf(stderr, "Unknown aoi command: %s\n", action)
		return 2
	}
	if err != nil {
		return s.fail(err)
	}
	if err := cli.WriteAOIs(stdout, aoi.Summarize(c), format); err != nil {
		return s.fail(err)
	}
	return 0
}

func runServe(args []string, stderr io.Writer) int {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "settings file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	s, err := openSession(*configPath, *debug, stderr)
	if err != nil {
		return startupFail(err, *debug, stderr)
	}
	defer s.logger.Sync()

	var history storage.HistoryStore
	if h, err := openHistory(s.cfg.HistoryPath, false); err != nil {
		s.logger.Warn("history unavailable", zap.Error(err))
	} else if h != nil {
		defer h.Close()
		history = h
	}

	var aoiStore aoi.Store
	watched := []string{s.cfg.ImageInfoPath}
	if s.cfg.AOIs != nil {
		aoiStore = aoi.NewFileStore(s.cfg.AOIs.FeatureCollectionPath)
		watched = append(watched, s.cfg.AOIs.FeatureCollectionPath)
	}
	srv := server.NewServer(
		storage.NewRecordFile(s.cfg.ImageInfoPath),
		history,
		aoiStore,
		server.Paths{Image: s.cfg.ImagePath(), Thumbnail: s.cfg.ThumbnailPath()},
		&s.cfg.Server,
		s.logger,
	)

	ctx, stop := signalContext()
	defer stop()
	watchSvc := watcher.NewWatcher(watched, srv.Invalidate, watcher.WithLogger(s.logger))
	if err := watchSvc.Start(ctx); err != nil {
		return s.fail(fmt.Errorf("start watcher: %w", err))
	}
	defer watchSvc.Stop()

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		return s.fail(fmt.Errorf("server failed: %w", err))
	case <-ctx.Done():
	}
	s.logger.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Stop(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Warn("shutdown failed", zap.Error(err))
	}
	return 0
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, `stacbg - Desktop backgrounds from recent satellite imagery

Usage:
  stacbg [generate] [flags]          Render a new background if one is due
  stacbg status [flags]              Show the current background and whether it is stale
  stacbg history [flags]             List past generations
  stacbg aoi <list|ensure-ids>       Inspect areas of interest or assign missing ids
  stacbg serve [flags]               Start the preview server
  stacbg version                     Show version
  stacbg help                        Show this help

Generate Flags:
  -config string    Settings file path (default: $STACBG_SETTINGS_FILE or ./settings.yaml)
  -force, -f        Regenerate even if the current background is fresh
  -debug, -d        Debug logging; failures panic with the full error chain

Status / History / AOI Flags:
  -config string    Settings file path
  -output string    Output format: text or json (default: text)
  -limit int        History only: number of rows (default: 10, 0 = all)

Serve Flags:
  -config string    Settings file path
  -debug            Enable debug logging

Examples:
  stacbg
  stacbg -force
  stacbg status -output json
  stacbg history -limit 5
  stacbg aoi ensure-ids
  STACBG_SETTINGS_FILE=~/bg/settings.yaml stacbg serve`)
}
