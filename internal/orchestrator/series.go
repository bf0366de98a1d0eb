package orchestrator

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/AndyXFuture/bilix-meta/internal/api"
	"github.com/AndyXFuture/bilix-meta/internal/naming"
)

// DownloadSeries downloads every part of the item an URL belongs to.
// Single-part items work through the same path. Per-item failures are
// logged, never propagated; the returned error is reserved for context
// cancellation.
func (e *Engine) DownloadSeries(ctx context.Context, url string, opts Options) error {
	return e.downloadSeries(ctx, e.root, url, opts)
}

func (e *Engine) downloadSeries(ctx context.Context, dir, url string, opts Options) error {
	info, err := e.resolveItem(ctx, url)
	if err != nil {
		e.warnItem(url, "resolve", err)
		return nil
	}

	if e.hierarchy && len(info.Parts) > 1 {
		dir = filepath.Join(dir, naming.Sanitize(info.Title))
		if err := os.MkdirAll(dir, 0o755); err != nil {
			e.warnItem(info.BVID, "create series dir", err)
			return nil
		}
		if opts.Meta {
			e.seriesPoster(ctx, dir, info, opts.Update)
		}
	}

	type job struct {
		url string
		pre *api.ItemDescriptor
	}
	jobs := make([]job, len(info.Parts))
	for i, p := range info.Parts {
		jobs[i] = job{url: p.URL}
		if i == info.Part {
			jobs[i].pre = info
		}
	}
	if opts.PartRange != nil {
		jobs = sliceRange(jobs, *opts.PartRange)
	}

	var wg sync.WaitGroup
	for _, j := range jobs {
		wg.Add(1)
		go func(j job) {
			defer wg.Done()
			_ = e.downloadItem(ctx, dir, j.url, opts, j.pre)
		}(j)
	}
	wg.Wait()
	return ctx.Err()
}

// seriesPoster saves the series cover once per series directory.
func (e *Engine) seriesPoster(ctx context.Context, dir string, info *api.ItemDescriptor, update bool) {
	dest := filepath.Join(dir, "poster.jpg")
	if _, err := os.Stat(dest); err == nil && !update {
		e.logger.Info("已存在", "path", dest)
		return
	}
	if _, err := e.fetcher.Static(ctx, []string{info.CoverURL}, dest, nil); err != nil {
		e.warnItem(info.BVID, "series poster", err)
		return
	}
	e.logger.Info("已完成", "path", dest)
}

// sliceRange keeps elements [first, last] of jobs, 1-based inclusive,
// preserving order. Out-of-range bounds clamp.
func sliceRange[T any](jobs []T, r [2]int) []T {
	first, last := r[0], r[1]
	if first < 1 {
		first = 1
	}
	if last > len(jobs) || last < 1 {
		last = len(jobs)
	}
	if first > last {
		return nil
	}
	return jobs[first-1 : last]
}

// resolveItem calls the resolution collaborator under the resolution pool.
func (e *Engine) resolveItem(ctx context.Context, url string) (*api.ItemDescriptor, error) {
	if err := e.apiSem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer e.apiSem.Release(1)
	return e.resolver.ResolveItem(ctx, url)
}

// warnItem emits the single human-readable line every non-fatal failure
// must produce.
func (e *Engine) warnItem(item, stage string, err error) {
	e.logger.Warn(fmt.Sprintf("%s failed", stage), "item", item, "error", err)
}
