package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/AndyXFuture/bilix-meta/internal/api"
	"github.com/AndyXFuture/bilix-meta/internal/config"
	"github.com/AndyXFuture/bilix-meta/internal/fetch"
	"github.com/AndyXFuture/bilix-meta/internal/ledger"
	"github.com/AndyXFuture/bilix-meta/internal/media"
	"github.com/AndyXFuture/bilix-meta/internal/merge"
	"github.com/AndyXFuture/bilix-meta/internal/orchestrator"
	"github.com/AndyXFuture/bilix-meta/internal/progress"
)

// app bundles the wired collaborators one command invocation uses.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	reporter *progress.Reporter
	console  *progress.Console
	ledger   *ledger.Ledger
	engine   *orchestrator.Engine
}

// newApp loads configuration, applies flag overrides, and wires the
// engine. The console renderer is already running when it returns.
func newApp() (*app, error) {
	path := configPath
	if path == "" {
		if found, err := config.Discover(); err == nil {
			path = found
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if dirFlag != "" {
		cfg.Download.Root = dirFlag
	}
	if dbFlag != "" {
		cfg.Ledger.Path = dbFlag
	}
	if speedFlag > 0 {
		cfg.Download.SpeedLimit = speedFlag
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel(cfg.LogLevel),
	}))

	var led *ledger.Ledger
	if cfg.Ledger.Path != "" {
		if led, err = ledger.Open(cfg.Ledger.Path); err != nil {
			return nil, fmt.Errorf("open ledger: %w", err)
		}
	}

	reporter := progress.NewReporter()
	console := progress.NewConsole(reporter, os.Stderr)
	go console.Run()

	resolver := api.NewClient(api.WithSessData(cfg.Auth.SessData))
	engine := orchestrator.New(orchestrator.Config{
		Resolver: resolver,
		Fetcher: fetch.New(fetch.Options{
			RetryBudget: cfg.Download.StreamRetry,
			SpeedLimit:  cfg.Download.SpeedLimit,
			Logger:      logger,
		}),
		Merger:           merge.New(cfg.Tools.FFmpeg),
		Reporter:         reporter,
		Logger:           logger,
		Root:             cfg.Download.Root,
		PeopleRoot:       cfg.Download.PeopleRoot,
		Hierarchy:        cfg.Download.Hierarchy,
		VideoConcurrency: cfg.Download.VideoConcurrency,
		APIConcurrency:   cfg.Download.APIConcurrency,
		PartConcurrency:  cfg.Download.PartConcurrency,
	})

	return &app{
		cfg:      cfg,
		logger:   logger,
		reporter: reporter,
		console:  console,
		ledger:   led,
		engine:   engine,
	}, nil
}

// close drains the console and releases the ledger.
func (a *app) close() {
	a.reporter.Close()
	a.console.Wait()
	if a.ledger != nil {
		a.ledger.Close()
	}
}

// opts builds per-invocation download options from the shared flags.
func (a *app) opts() orchestrator.Options {
	return orchestrator.Options{
		Quality:   media.ParsePreference(qualityFlag),
		Codec:     codecFlag,
		Cover:     imageFlag,
		Subtitle:  subtitleFlag,
		Caption:   danmakuFlag,
		Meta:      metaFlag,
		OnlyAudio: onlyAudioFlag,
		Update:    updateFlag,
		Ledger:    a.ledger,
	}
}

func logLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
