package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/appcourier/appcourier/internal/domain"
	"github.com/appcourier/appcourier/internal/infra/logger"
	"github.com/spf13/afero"
)

const (
	// DefaultTimeout budgets the whole transfer, not individual chunks.
	DefaultTimeout = 600 * time.Second

	// DefaultStep is the minimum percentage advance between two progress
	// callbacks. 0 and 100 always fire regardless.
	DefaultStep = 15

	copyBufferSize = 32 * 1024
)

// Result reports what a completed fetch actually moved.
type Result struct {
	BytesTotal   int64 // declared Content-Length, 0 if the server sent none
	BytesWritten int64
}

// ProgressFunc receives a monotonic 0-100 percentage. Callbacks are
// throttled because each one turns into an outbound chat edit.
type ProgressFunc func(percent int)

// Fetcher streams a URL to a file on the given filesystem, never buffering
// the whole payload in memory.
type Fetcher struct {
	fs     afero.Fs
	client *http.Client
	step   int
	log    *logger.Logger
}

func New(fs afero.Fs, timeout time.Duration, step int, log *logger.Logger) *Fetcher {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if step <= 0 {
		step = DefaultStep
	}
	return &Fetcher{
		fs:     fs,
		client: &http.Client{Timeout: timeout},
		step:   step,
		log:    log,
	}
}

// Fetch downloads url into destPath, invoking onProgress per the throttle
// rule when the response declares a total size. On failure the partially
// written destination is left for the caller to discard.
func (f *Fetcher) Fetch(ctx context.Context, url, destPath string, onProgress ProgressFunc) (*Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %d", domain.ErrBadStatus, resp.StatusCode)
	}

	dest, err := f.fs.Create(destPath)
	if err != nil {
		return nil, fmt.Errorf("cannot create %s: %w", destPath, err)
	}
	defer dest.Close()

	total := resp.ContentLength
	if total < 0 {
		total = 0
	}

	emit := newThrottle(f.step, onProgress)
	if total > 0 {
		emit(0)
	}

	var written int64
	buf := make([]byte, copyBufferSize)
	for {
		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			if _, writeErr := dest.Write(buf[:n]); writeErr != nil {
				return nil, fmt.Errorf("write failed: %w", writeErr)
			}
			written += int64(n)

			if total > 0 {
				pct := int(written * 100 / total)
				if pct > 100 {
					pct = 100
				}
				emit(pct)
			}
		}

		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return nil, fmt.Errorf("stream failed: %w", readErr)
		}
	}

	if total > 0 {
		emit(100)
	}

	f.log.Debug("fetched %d bytes to %s", written, destPath)

	return &Result{BytesTotal: total, BytesWritten: written}, nil
}

// newThrottle enforces the emission rule: a value fires only when it changed
// AND (it is 0, it is 100, or it advanced by at least step since the last
// emitted value). Values are non-decreasing by construction of the caller.
func newThrottle(step int, fn ProgressFunc) func(int) {
	last := -1
	return func(pct int) {
		if fn == nil || pct == last {
			return
		}
		if pct == 0 || pct == 100 || pct-last >= step {
			last = pct
			fn(pct)
		}
	}
}
