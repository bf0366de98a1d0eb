package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/AndyXFuture/bilix-meta/internal/api"
	"github.com/AndyXFuture/bilix-meta/internal/fetch"
	"github.com/AndyXFuture/bilix-meta/internal/ledger"
	"github.com/AndyXFuture/bilix-meta/internal/media"
	"github.com/AndyXFuture/bilix-meta/internal/naming"
	"github.com/AndyXFuture/bilix-meta/internal/progress"
)

// DownloadItem downloads the single part an URL points at.
func (e *Engine) DownloadItem(ctx context.Context, url string, opts Options) error {
	e.downloadItem(ctx, e.root, url, opts, nil)
	return ctx.Err()
}

// mediaJob is one stream fetch feeding the item's final artifact.
type mediaJob struct {
	dest string
	run  func(ctx context.Context) error
}

// downloadItem walks one item through the state machine and returns its
// terminal state. Failures are contained: they are logged and reflected
// in the returned state, never propagated to sibling items.
func (e *Engine) downloadItem(ctx context.Context, dir, url string, opts Options, pre *api.ItemDescriptor) State {
	state := StateResolving
	info := pre
	if info == nil {
		var err error
		if info, err = e.resolveItem(ctx, url); err != nil {
			if errors.Is(err, context.Canceled) {
				return e.step(&state, StateFailed, url)
			}
			e.warnItem(url, "resolve", err)
			return e.step(&state, StateFailed, url)
		}
	}

	// Item pool: bounds items in flight across the whole run.
	if err := e.itemSem.Acquire(ctx, 1); err != nil {
		return e.step(&state, StateFailed, url)
	}
	defer e.itemSem.Release(1)

	e.step(&state, StateSelecting, info.BVID)

	pName := naming.LegalTitle(" ", info.CurrentPart().Name)
	taskName := naming.LegalTitle(" ", info.Title, pName)
	mediaName := naming.BaseName(info.Title, pName, e.hierarchy)

	stem := naming.LegalTitle(".", info.BVID, pName)
	if opts.TimeRange != nil {
		clip := naming.ClipSuffix(opts.TimeRange[0], opts.TimeRange[1])
		mediaName = naming.LegalTitle(" ", mediaName, clip)
		stem = naming.LegalTitle(".", stem, clip)
	}

	itemDir := naming.ItemDir(dir, mediaName, info.BVID)
	finalPath := filepath.Join(itemDir, stem+".mp4")

	key := ledger.Key{ItemID: info.BVID, Name: mediaName, CollectionID: opts.CollectionID}
	if !opts.Update && e.skipDecision(itemDir, finalPath, stem, pName, key, opts) {
		e.logger.Info("已存在", "item", taskName, "path", finalPath)
		return e.step(&state, StateSkipped, info.BVID)
	}

	if err := os.MkdirAll(itemDir, 0o755); err != nil {
		e.warnItem(taskName, "create item dir", err)
		return e.step(&state, StateFailed, info.BVID)
	}

	taskID := e.reporter.AddTask(taskName, 0)
	defer func() {
		hidden := false
		e.reporter.Update(taskID, progress.Update{Visible: &hidden})
	}()
	tracker := e.reporter.Tracker(taskID)

	jobs, planErr := e.planMedia(info, opts, itemDir, stem, finalPath, taskID, tracker)
	if planErr != nil {
		e.warnItem(taskName, "select variant", planErr)
		return e.step(&state, StateFailed, info.BVID)
	}

	e.step(&state, StateFetching, info.BVID)
	flags := ledger.Flags{}
	var (
		mu       sync.Mutex
		mediaErr error
		produced []string
	)

	var wg sync.WaitGroup
	for _, j := range jobs {
		wg.Add(1)
		go func(j mediaJob) {
			defer wg.Done()
			err := j.run(ctx)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				// sibling streams of the same item keep going
				e.warnItem(taskName, "fetch "+filepath.Base(j.dest), err)
				if mediaErr == nil {
					mediaErr = err
				}
				return
			}
			produced = append(produced, j.dest)
		}(j)
	}
	if opts.wantsAux() {
		wg.Add(1)
		go func() {
			defer wg.Done()
			aux := e.fetchAux(ctx, info, opts, itemDir, pName, stem)
			mu.Lock()
			flags.Cover = aux.cover
			flags.Subtitle = aux.subtitle
			flags.Caption = aux.caption
			flags.Metadata = aux.metadata
			mu.Unlock()
		}()
	}
	wg.Wait()

	failed := mediaErr != nil
	if !failed && len(jobs) == 0 {
		// media planning found the artifact already on disk
		flags.Video = exists(finalPath) || anyMediaArtifact(itemDir, stem)
	}
	if !failed && len(jobs) > 0 {
		flags.Video = true
		// post-merge callback set while planning; its result is the
		// final artifact assembled from the produced stream files
		if task, ok := e.reporter.Task(taskID); ok && task.PostMerge != nil {
			e.step(&state, StateMerging, info.BVID)
			orderByDest(produced, jobs)
			if err := task.PostMerge(ctx, produced, finalPath); err != nil {
				e.warnItem(taskName, "merge", err)
				flags.Video = false
				failed = true
			}
		}
	}

	if opts.Ledger != nil {
		if err := opts.Ledger.Record(key, flags); err != nil {
			e.warnItem(taskName, "ledger record", err)
		}
	}
	if failed {
		return e.step(&state, StateFailed, info.BVID)
	}
	if len(jobs) > 0 {
		e.logger.Info("已完成", "path", finalPath)
	}
	return e.step(&state, StateCompleted, info.BVID)
}

// step advances the item lifecycle, logging each transition. Invalid
// transitions are refused so the state reported at the end is always one
// the table allows reaching.
func (e *Engine) step(s *State, to State, item string) State {
	if *s != to && (*s).CanTransitionTo(to) {
		*s = to
		e.logger.Debug("state change", "item", item, "state", to)
	}
	return *s
}

// planMedia turns the selected variants into fetch jobs and registers the
// post-merge callback on the progress task when one is needed.
func (e *Engine) planMedia(info *api.ItemDescriptor, opts Options, itemDir, stem, finalPath string, taskID progress.TaskID, tracker progress.Tracker) ([]mediaJob, error) {
	set := info.Streams

	if len(set.Video) > 0 {
		sel, err := media.Select(set, opts.Quality, opts.Codec)
		if err != nil {
			return nil, err
		}
		if sel.CodecFallback {
			e.logger.Warn("codec preference unavailable, using best available",
				"item", info.BVID, "codec", opts.Codec)
		}
		return e.planSeparate(sel, opts, itemDir, stem, finalPath, taskID, tracker)
	}

	if len(set.Muxed) > 0 {
		e.logger.Warn("no separate streams offered, falling back to muxed parts", "item", info.BVID)
		return e.planMuxed(set.Muxed, opts, itemDir, stem, finalPath, taskID, tracker)
	}

	return nil, media.ErrVariantUnavailable
}

func (e *Engine) planSeparate(sel media.Selection, opts Options, itemDir, stem, finalPath string, taskID progress.TaskID, tracker progress.Tracker) ([]mediaJob, error) {
	video, audio := sel.Video, sel.Audio

	switch {
	case opts.OnlyAudio:
		if audio == nil {
			return nil, fmt.Errorf("%w: no audio stream", media.ErrVariantUnavailable)
		}
		dest := filepath.Join(itemDir, stem+audio.Suffix)
		if opts.TimeRange != nil && audio.SegmentBase != nil {
			if exists(dest) && !opts.Update {
				e.logger.Info("已存在", "path", dest)
				return nil, nil
			}
			// lone stream, no counterpart to align with
			return []mediaJob{e.clipJob(audio, dest, *opts.TimeRange, nil, nil, tracker)}, nil
		}
		return []mediaJob{e.fileJob(audio.URLs, dest, opts, tracker)}, nil

	case audio == nil:
		if opts.TimeRange != nil && video.SegmentBase != nil {
			if exists(finalPath) && !opts.Update {
				e.logger.Info("已存在", "path", finalPath)
				return nil, nil
			}
			return []mediaJob{e.clipJob(video, finalPath, *opts.TimeRange, nil, nil, tracker)}, nil
		}
		return []mediaJob{e.fileJob(video.URLs, finalPath, opts, tracker)}, nil

	default:
		if exists(finalPath) && !opts.Update {
			e.logger.Info("已存在", "path", finalPath)
			return nil, nil
		}
		vDest := filepath.Join(itemDir, stem+"-v.mp4")
		aDest := filepath.Join(itemDir, stem+"-a"+audio.Suffix)
		e.reporter.Update(taskID, progress.Update{PostMerge: e.merger.Combine})

		if opts.TimeRange != nil && video.SegmentBase != nil && audio.SegmentBase != nil {
			sync := fetch.NewKeyframeSync()
			return []mediaJob{
				e.clipJob(video, vDest, *opts.TimeRange, sync, nil, tracker),
				e.clipJob(audio, aDest, *opts.TimeRange, nil, sync, tracker),
			}, nil
		}
		return []mediaJob{
			e.fileJob(video.URLs, vDest, opts, tracker),
			e.fileJob(audio.URLs, aDest, opts, tracker),
		}, nil
	}
}

// planMuxed handles the legacy path where the service serves one or more
// container-muxed parts instead of separate streams.
func (e *Engine) planMuxed(parts []media.Variant, opts Options, itemDir, stem, finalPath string, taskID progress.TaskID, tracker progress.Tracker) ([]mediaJob, error) {
	if len(parts) == 1 {
		dest := filepath.Join(itemDir, stem+parts[0].Suffix)
		return []mediaJob{e.fileJob(parts[0].URLs, dest, opts, tracker)}, nil
	}

	if exists(finalPath) && !opts.Update {
		e.logger.Info("已存在", "path", finalPath)
		return nil, nil
	}

	// Segment pool: bounds raw part fetches within this one item.
	partSem := semaphore.NewWeighted(e.partLimit)
	jobs := make([]mediaJob, 0, len(parts))
	for i, p := range parts {
		dest := filepath.Join(itemDir, fmt.Sprintf("%s-%d%s", stem, i, p.Suffix))
		urls := p.URLs
		jobs = append(jobs, mediaJob{
			dest: dest,
			run: func(ctx context.Context) error {
				if err := partSem.Acquire(ctx, 1); err != nil {
					return err
				}
				defer partSem.Release(1)
				_, err := e.fetcher.File(ctx, urls, dest, tracker)
				return err
			},
		})
	}
	e.reporter.Update(taskID, progress.Update{PostMerge: e.merger.Concat})
	return jobs, nil
}

func (e *Engine) fileJob(urls []string, dest string, opts Options, tracker progress.Tracker) mediaJob {
	return mediaJob{
		dest: dest,
		run: func(ctx context.Context) error {
			if exists(dest) && !opts.Update {
				e.logger.Info("已存在", "path", dest)
				return nil
			}
			_, err := e.fetcher.File(ctx, urls, dest, tracker)
			return err
		},
	}
}

func (e *Engine) clipJob(v *media.Variant, dest string, window [2]float64, pub, wait *fetch.KeyframeSync, tracker progress.Tracker) mediaJob {
	return mediaJob{
		dest: dest,
		run: func(ctx context.Context) error {
			_, err := e.fetcher.Clip(ctx, fetch.ClipRequest{
				URLs:        v.URLs,
				Dest:        dest,
				SegmentBase: *v.SegmentBase,
				From:        window[0],
				To:          window[1],
				Publish:     pub,
				Wait:        wait,
			}, tracker)
			if err != nil && pub != nil {
				// release the consumer stream so it never waits on a
				// start time that will not come
				pub.Abort()
			}
			return err
		},
	}
}

// orderByDest sorts produced paths into job order so combine always gets
// [video, audio] and concat gets parts in play order.
func orderByDest(produced []string, jobs []mediaJob) {
	rank := make(map[string]int, len(jobs))
	for i, j := range jobs {
		rank[j.dest] = i
	}
	for i := 0; i < len(produced); i++ {
		for j := i + 1; j < len(produced); j++ {
			if rank[produced[j]] < rank[produced[i]] {
				produced[i], produced[j] = produced[j], produced[i]
			}
		}
	}
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
