// Package fetch downloads one logical stream from a list of redundant
// source URLs, with a shared transfer-rate ceiling and retry budget.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/time/rate"

	"github.com/AndyXFuture/bilix-meta/internal/media"
	"github.com/AndyXFuture/bilix-meta/internal/progress"
)

// ErrFetchExhausted is returned once the retry budget is spent without a
// successful transfer.
var ErrFetchExhausted = errors.New("fetch retry budget exhausted")

// burstSize is the token bucket burst for the shared rate limiter.
const burstSize = 256 * 1024

// Options configures a Fetcher.
type Options struct {
	// RetryBudget is the total number of attempts across the whole mirror
	// list, not per URL. Minimum 1.
	RetryBudget int

	// SpeedLimit caps the combined transfer rate of all concurrent
	// fetches, in bytes per second. Zero disables the ceiling.
	SpeedLimit float64

	// Client is the HTTP client to use. Defaults to a 30s-timeout client.
	Client *http.Client

	Logger *slog.Logger
}

// Fetcher downloads streams. One Fetcher is shared by all concurrent
// downloads of a run so the rate ceiling is global.
type Fetcher struct {
	client  *http.Client
	limiter *rate.Limiter
	retries int
	logger  *slog.Logger
}

// New creates a Fetcher.
func New(opts Options) *Fetcher {
	if opts.RetryBudget < 1 {
		opts.RetryBudget = 5
	}
	if opts.Client == nil {
		opts.Client = &http.Client{Timeout: 30 * time.Second}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	f := &Fetcher{
		client:  opts.Client,
		retries: opts.RetryBudget,
		logger:  opts.Logger,
	}
	if opts.SpeedLimit > 0 {
		f.limiter = rate.NewLimiter(rate.Limit(opts.SpeedLimit), burstSize)
	}
	return f
}

// File downloads one stream to dest, trying the mirror URLs in order on
// transient failure. Reports progress deltas to tracker when non-nil.
// Returns the number of bytes written.
func (f *Fetcher) File(ctx context.Context, urls []string, dest string, tracker progress.Tracker) (int64, error) {
	var written int64
	err := f.withRetry(ctx, urls, func(url string) error {
		n, err := f.download(ctx, url, nil, dest, tracker)
		written = n
		return err
	})
	return written, err
}

// Bytes downloads one stream into memory, with the same mirror rotation
// and retry budget as File.
func (f *Fetcher) Bytes(ctx context.Context, urls []string) ([]byte, error) {
	var body []byte
	err := f.withRetry(ctx, urls, func(url string) error {
		resp, err := f.do(ctx, url, nil)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		body, err = io.ReadAll(f.limited(resp.Body))
		return err
	})
	return body, err
}

// Range downloads one byte range of a stream into memory.
func (f *Fetcher) Range(ctx context.Context, urls []string, r media.ByteRange) ([]byte, error) {
	var body []byte
	err := f.withRetry(ctx, urls, func(url string) error {
		resp, err := f.do(ctx, url, &r)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		body, err = io.ReadAll(f.limited(resp.Body))
		return err
	})
	return body, err
}

// Static downloads an auxiliary artifact (cover, subtitle document),
// optionally converting the body before writing. Returns the final path.
func (f *Fetcher) Static(ctx context.Context, urls []string, dest string, convert func([]byte) ([]byte, error)) (string, error) {
	body, err := f.Bytes(ctx, urls)
	if err != nil {
		return "", err
	}
	if convert != nil {
		if body, err = convert(body); err != nil {
			return "", fmt.Errorf("convert %s: %w", filepath.Base(dest), err)
		}
	}
	if err := writeAtomic(dest, body); err != nil {
		return "", err
	}
	return dest, nil
}

// withRetry runs attempt against the mirror list, cycling through URLs
// until the total budget is spent.
func (f *Fetcher) withRetry(ctx context.Context, urls []string, attempt func(url string) error) error {
	if len(urls) == 0 {
		return fmt.Errorf("%w: empty url list", ErrFetchExhausted)
	}
	var lastErr error
	for i := 0; i < f.retries; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		url := urls[i%len(urls)]
		if err := attempt(url); err != nil {
			lastErr = err
			f.logger.Debug("fetch attempt failed", "attempt", i+1, "url", url, "error", err)
			continue
		}
		return nil
	}
	return fmt.Errorf("%w after %d attempts: %w", ErrFetchExhausted, f.retries, lastErr)
}

// do issues a GET, optionally with a Range header, and validates status.
func (f *Fetcher) do(ctx context.Context, url string, r *media.ByteRange) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Referer", "https://www.bilibili.com")
	req.Header.Set("User-Agent", "Mozilla/5.0")
	if r != nil {
		req.Header.Set("Range", fmt.Sprintf("bytes=%d-%d", r.Start, r.End))
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusPartialContent {
		resp.Body.Close()
		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	}
	return resp, nil
}

// download streams a response body to dest through a temp file so a failed
// attempt never leaves a half-written artifact behind.
func (f *Fetcher) download(ctx context.Context, url string, r *media.ByteRange, dest string, tracker progress.Tracker) (int64, error) {
	resp, err := f.do(ctx, url, r)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	tmp := dest + ".part"
	out, err := os.Create(tmp)
	if err != nil {
		return 0, fmt.Errorf("create %s: %w", tmp, err)
	}

	src := f.limited(resp.Body)
	if tracker != nil {
		src = io.TeeReader(src, tracker)
	}
	n, err := io.Copy(out, src)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmp)
		if tracker != nil {
			tracker.Rewind(n)
		}
		return 0, fmt.Errorf("write %s: %w", dest, err)
	}
	if err := os.Rename(tmp, dest); err != nil {
		os.Remove(tmp)
		return 0, fmt.Errorf("finalize %s: %w", dest, err)
	}
	return n, nil
}

// limited wraps r with the shared rate ceiling, when one is configured.
func (f *Fetcher) limited(r io.Reader) io.Reader {
	if f.limiter == nil {
		return r
	}
	return &limitedReader{r: r, limiter: f.limiter}
}

type limitedReader struct {
	r       io.Reader
	limiter *rate.Limiter
}

func (l *limitedReader) Read(p []byte) (int, error) {
	if len(p) > burstSize {
		p = p[:burstSize]
	}
	n, err := l.r.Read(p)
	if n > 0 {
		if werr := l.limiter.WaitN(context.Background(), n); werr != nil && err == nil {
			err = werr
		}
	}
	return n, err
}

func writeAtomic(dest string, body []byte) error {
	tmp := dest + ".part"
	if err := os.WriteFile(tmp, body, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", dest, err)
	}
	if err := os.Rename(tmp, dest); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("finalize %s: %w", dest, err)
	}
	return nil
}
