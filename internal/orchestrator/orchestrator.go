// Package orchestrator is the download engine: it resolves items, applies
// the skip policy, fans out stream fetches under bounded concurrency
// pools, runs the merge step, and reports task lifecycle.
package orchestrator

import (
	"log/slog"

	"golang.org/x/sync/semaphore"

	"github.com/AndyXFuture/bilix-meta/internal/api"
	"github.com/AndyXFuture/bilix-meta/internal/fetch"
	"github.com/AndyXFuture/bilix-meta/internal/ledger"
	"github.com/AndyXFuture/bilix-meta/internal/media"
	"github.com/AndyXFuture/bilix-meta/internal/merge"
	"github.com/AndyXFuture/bilix-meta/internal/progress"
)

// Config wires an Engine.
type Config struct {
	Resolver api.Resolver
	Fetcher  *fetch.Fetcher
	Merger   *merge.Merger
	Reporter *progress.Reporter
	Logger   *slog.Logger

	// Root is where item directories are created.
	Root string
	// PeopleRoot holds shared creator portrait folders.
	PeopleRoot string
	// Hierarchy enables per-collection and per-item directories.
	Hierarchy bool

	// VideoConcurrency bounds items in flight across the whole run.
	VideoConcurrency int
	// APIConcurrency bounds concurrent resolution calls, independent of
	// the item pool so resolution bursts don't starve running downloads.
	APIConcurrency int
	// PartConcurrency bounds raw segment fetches within one item on the
	// legacy multi-segment path.
	PartConcurrency int
}

// Engine orchestrates downloads. One Engine serves a whole run; its pools
// bound work across unrelated collection walks.
//
// Pool acquisition order is always resolution pool, then item pool, then
// the per-item segment pool. No code path acquires them out of order.
type Engine struct {
	resolver api.Resolver
	fetcher  *fetch.Fetcher
	merger   *merge.Merger
	reporter *progress.Reporter
	logger   *slog.Logger

	root       string
	peopleRoot string
	hierarchy  bool

	itemSem   *semaphore.Weighted
	apiSem    *semaphore.Weighted
	partLimit int64

	catalog categoryCatalog
}

// New creates an Engine.
func New(cfg Config) *Engine {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.VideoConcurrency < 1 {
		cfg.VideoConcurrency = 3
	}
	if cfg.APIConcurrency < 1 {
		cfg.APIConcurrency = cfg.VideoConcurrency
	}
	if cfg.PartConcurrency < 1 {
		cfg.PartConcurrency = 10
	}
	if cfg.Root == "" {
		cfg.Root = "."
	}
	if cfg.PeopleRoot == "" {
		cfg.PeopleRoot = "./People"
	}
	return &Engine{
		resolver:   cfg.Resolver,
		fetcher:    cfg.Fetcher,
		merger:     cfg.Merger,
		reporter:   cfg.Reporter,
		logger:     cfg.Logger.With("component", "engine"),
		root:       cfg.Root,
		peopleRoot: cfg.PeopleRoot,
		hierarchy:  cfg.Hierarchy,
		itemSem:    semaphore.NewWeighted(int64(cfg.VideoConcurrency)),
		apiSem:     semaphore.NewWeighted(int64(cfg.APIConcurrency)),
		partLimit:  int64(cfg.PartConcurrency),
	}
}

// Options tunes one download invocation. The zero value downloads the
// best-quality video with no auxiliary artifacts.
type Options struct {
	Quality media.Preference
	Codec   string

	Cover    bool
	Subtitle bool
	Caption  bool
	Meta     bool

	// CaptionConvert optionally converts raw caption protobuf into a
	// rendered format (changing the artifact suffix to .ass). When nil the
	// raw segments are stored as-is.
	CaptionConvert func([]byte) ([]byte, error)

	OnlyAudio bool

	// Update bypasses the skip policy unconditionally.
	Update bool

	// PartRange slices a series to parts [First, Last], 1-based inclusive.
	PartRange *[2]int

	// TimeRange clips a single video to [From, To] seconds.
	TimeRange *[2]float64

	// Ledger is the optional dedup store for this invocation. A nil
	// ledger disables the early-skip optimization only.
	Ledger *ledger.Ledger
	// CollectionID scopes ledger records; set by the walker.
	CollectionID int64
}

// wantsAux reports whether any auxiliary artifact was requested.
func (o Options) wantsAux() bool {
	return o.Cover || o.Subtitle || o.Caption || o.Meta
}
