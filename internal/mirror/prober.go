package mirror

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/appcourier/appcourier/internal/domain"
	"github.com/appcourier/appcourier/internal/infra/logger"
)

// DefaultProbeTimeout bounds a single source's existence check.
const DefaultProbeTimeout = 20 * time.Second

// Prober walks the static, priority-ordered mirror list and adopts the first
// source that answers a HEAD probe with success. Redirects are followed so
// the resolved URL is the final CDN location.
type Prober struct {
	sources []domain.DownloadSource
	client  *http.Client
	timeout time.Duration
	log     *logger.Logger
}

func NewProber(sources []domain.DownloadSource, timeout time.Duration, log *logger.Logger) *Prober {
	if timeout <= 0 {
		timeout = DefaultProbeTimeout
	}
	return &Prober{
		sources: sources,
		client:  &http.Client{},
		timeout: timeout,
		log:     log,
	}
}

// Probe returns the first viable source for identifier, or
// domain.ErrNoSource when every source failed. A failing source is skipped,
// never retried, and never aborts the probe.
func (p *Prober) Probe(ctx context.Context, identifier string) (*domain.ResolvedDownload, error) {
	for _, src := range p.sources {
		res, err := p.tryHead(ctx, src, identifier)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			p.log.Debug("probe %s failed for %s: %v", src.Name, identifier, err)
			continue
		}

		p.log.Info("probe: %s resolved %s (%d bytes)", src.Name, identifier, res.SizeHint)
		return res, nil
	}

	return nil, domain.ErrNoSource
}

func (p *Prober) tryHead(ctx context.Context, src domain.DownloadSource, identifier string) (*domain.ResolvedDownload, error) {
	probeCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(probeCtx, http.MethodHead, src.URLFor(identifier), nil)
	if err != nil {
		return nil, err
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %d", domain.ErrBadStatus, resp.StatusCode)
	}

	var size int64
	if cl := resp.Header.Get("Content-Length"); cl != "" {
		size, _ = strconv.ParseInt(cl, 10, 64)
	}

	// resp.Request points at the last request of the redirect chain, so
	// this is the final CDN URL, not the mirror's entry point.
	return &domain.ResolvedDownload{
		FinalURL:   resp.Request.URL.String(),
		Kind:       src.Kind,
		SizeHint:   size,
		SourceName: src.Name,
	}, nil
}
