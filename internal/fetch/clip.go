package fetch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/AndyXFuture/bilix-meta/internal/media"
	"github.com/AndyXFuture/bilix-meta/internal/progress"
)

// ErrClipAborted reports that the stream determining the clip start
// failed before publishing it.
var ErrClipAborted = errors.New("clip aborted before start was published")

// KeyframeSync is the single-producer/single-consumer rendezvous that
// aligns the audio clip to the video clip's keyframe-snapped start time.
// The producer publishes exactly once, or aborts; the consumer waits.
type KeyframeSync struct {
	ch        chan float64
	abort     chan struct{}
	abortOnce sync.Once
}

// NewKeyframeSync creates a rendezvous for one clip pair.
func NewKeyframeSync() *KeyframeSync {
	return &KeyframeSync{
		ch:    make(chan float64, 1),
		abort: make(chan struct{}),
	}
}

// Publish sends the actual clip start. Must be called at most once.
func (s *KeyframeSync) Publish(start float64) {
	s.ch <- start
}

// Abort releases any waiter when the producer fails before publishing.
// Safe to call multiple times.
func (s *KeyframeSync) Abort() {
	s.abortOnce.Do(func() { close(s.abort) })
}

// Wait blocks until the clip start is published or the producer aborts.
func (s *KeyframeSync) Wait(ctx context.Context) (float64, error) {
	select {
	case v := <-s.ch:
		return v, nil
	case <-s.abort:
		return 0, ErrClipAborted
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

// ClipRequest describes one clipped stream download.
type ClipRequest struct {
	URLs        []string
	Dest        string
	SegmentBase media.SegmentBase
	// From and To bound the requested time window in seconds.
	From float64
	To   float64
	// Publish is set on the stream that determines the clip start (the
	// video stream, snapped backward to the nearest keyframe). Wait is
	// set on the stream that must align to it. At most one is non-nil.
	Publish *KeyframeSync
	Wait    *KeyframeSync
}

// Clip downloads the subset of a segmented stream overlapping the
// requested window: always the initialization and index ranges in full,
// then only the media segments inside the (possibly snapped) window.
// Returns the number of bytes written.
func (f *Fetcher) Clip(ctx context.Context, req ClipRequest, tracker progress.Tracker) (int64, error) {
	var written int64

	init, err := f.Range(ctx, req.URLs, req.SegmentBase.Initialization)
	if err != nil {
		return 0, fmt.Errorf("clip init range: %w", err)
	}
	index, err := f.Range(ctx, req.URLs, req.SegmentBase.Index)
	if err != nil {
		return 0, fmt.Errorf("clip index range: %w", err)
	}
	segs, err := parseIndex(index, req.SegmentBase.Index.End)
	if err != nil {
		return 0, fmt.Errorf("clip %s: %w", req.Dest, err)
	}

	start := req.From
	if req.Wait != nil {
		if start, err = req.Wait.Wait(ctx); err != nil {
			return 0, err
		}
	}

	chosen := overlapping(segs, start, req.To)
	if len(chosen) == 0 {
		return 0, fmt.Errorf("clip %s: window [%v, %v] outside stream", req.Dest, req.From, req.To)
	}
	if req.Publish != nil {
		// Segments begin at keyframes; the first chosen segment's start
		// is the snapped clip start the audio stream aligns to.
		req.Publish.Publish(chosen[0].Start)
	}

	tmp := req.Dest + ".part"
	out, err := os.Create(tmp)
	if err != nil {
		return 0, fmt.Errorf("create %s: %w", tmp, err)
	}
	defer func() {
		if err != nil {
			out.Close()
			os.Remove(tmp)
		}
	}()

	n, err := out.Write(init)
	if err != nil {
		return 0, fmt.Errorf("write init: %w", err)
	}
	written += int64(n)

	for _, seg := range chosen {
		body, rerr := f.Range(ctx, req.URLs, seg.Range)
		if rerr != nil {
			err = fmt.Errorf("clip segment [%v, %v): %w", seg.Start, seg.End, rerr)
			return 0, err
		}
		if tracker != nil {
			_, _ = tracker.Write(body)
		}
		if n, err = out.Write(body); err != nil {
			return 0, fmt.Errorf("write segment: %w", err)
		}
		written += int64(n)
	}

	if err = out.Close(); err != nil {
		return 0, fmt.Errorf("close %s: %w", tmp, err)
	}
	if err = os.Rename(tmp, req.Dest); err != nil {
		return 0, fmt.Errorf("finalize %s: %w", req.Dest, err)
	}
	return written, nil
}

// overlapping returns the contiguous run of segments intersecting
// [start, to). A segment containing start is included whole, which is what
// snaps the clip backward rather than forward.
func overlapping(segs []segment, start, to float64) []segment {
	lo, hi := -1, len(segs)
	for i, s := range segs {
		if lo == -1 && s.End > start {
			lo = i
		}
		if s.Start >= to {
			hi = i
			break
		}
	}
	if lo == -1 {
		return nil
	}
	return segs[lo:hi]
}
