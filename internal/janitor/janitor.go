package janitor

import (
	"context"
	"path/filepath"
	"time"

	"github.com/appcourier/appcourier/internal/infra/logger"
	"github.com/spf13/afero"
)

const (
	DefaultInterval = 10 * time.Minute
	DefaultMaxAge   = time.Hour
)

// Janitor sweeps the temp directory for artifacts left behind by crashed or
// interrupted deliveries. Normal runs remove their own files; this is the
// backstop for the abnormal ones.
type Janitor struct {
	fs       afero.Fs
	dir      string
	interval time.Duration
	maxAge   time.Duration
	log      *logger.Logger
}

func New(fs afero.Fs, dir string, interval, maxAge time.Duration, log *logger.Logger) *Janitor {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	return &Janitor{fs: fs, dir: dir, interval: interval, maxAge: maxAge, log: log}
}

// Run sweeps once immediately, then on every tick until ctx is done.
func (j *Janitor) Run(ctx context.Context) {
	j.Sweep()

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			j.Sweep()
		}
	}
}

// Sweep removes regular files in the temp directory older than maxAge and
// returns how many it removed. A missing directory is not an error.
func (j *Janitor) Sweep() int {
	infos, err := afero.ReadDir(j.fs, j.dir)
	if err != nil {
		return 0
	}

	cutoff := time.Now().Add(-j.maxAge)
	removed := 0

	for _, fi := range infos {
		if fi.IsDir() || fi.ModTime().After(cutoff) {
			continue
		}

		p := filepath.Join(j.dir, fi.Name())
		if err := j.fs.Remove(p); err != nil {
			j.log.Warn("sweep could not remove %s: %v", p, err)
			continue
		}
		removed++
	}

	if removed > 0 {
		j.log.Info("swept %d stale artifact(s) from %s", removed, j.dir)
	}

	return removed
}
