package proxy

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"
)

// ProbeFunc issues one validation request through the given proxy and
// returns nil when the probe target answered with HTTP 200 in time.
type ProbeFunc func(ctx context.Context, proxyURL string) error

// Config carries the pool's tunables.
type Config struct {
	// Scheme is prefixed to bare host:port candidates, e.g. "socks5".
	Scheme string
	// MaxFailures is the consecutive-failure count that evicts a proxy.
	MaxFailures int
	// ProbeTimeout bounds each validation probe.
	ProbeTimeout time.Duration
	// MaxConcurrentProbes caps how many probes run at once.
	MaxConcurrentProbes int
}

// NewPool probes every candidate exactly once, at most
// cfg.MaxConcurrentProbes in flight at a time, and returns a pool holding
// the survivors. Candidates whose probe fails, times out or returns a
// non-200 go straight to the dead list without stats. When nothing
// survives the run cannot start and ErrNoWorkingProxies is returned.
func NewPool(ctx context.Context, candidates []string, probe ProbeFunc, cfg Config) (*Pool, error) {
	p := &Pool{
		maxFailures: cfg.MaxFailures,
		working:     make(map[string]*proxyState),
		archive:     make(map[string]*Stats),
	}

	log.Info("validating proxy candidates", "count", len(candidates), "concurrency", cfg.MaxConcurrentProbes)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.MaxConcurrentProbes)

	for _, raw := range candidates {
		url := normalizeEndpoint(raw, cfg.Scheme)
		if url == "" {
			continue
		}
		g.Go(func() error {
			probeCtx, cancel := context.WithTimeout(ctx, cfg.ProbeTimeout)
			defer cancel()

			err := probe(probeCtx, url)

			p.mu.Lock()
			defer p.mu.Unlock()
			if err != nil {
				log.Debug("proxy failed validation", "proxy", url, "error", err)
				p.dead = append(p.dead, url)
				return nil
			}
			log.Debug("proxy validated", "proxy", url)
			p.working[url] = &proxyState{
				lastUsed: time.Now(),
				stats:    newStats(ValidationSuccess),
			}
			return nil
		})
	}

	// Probe goroutines absorb their own failures, so Wait never errors.
	_ = g.Wait()

	if len(p.working) == 0 {
		return nil, ErrNoWorkingProxies
	}

	log.Info("proxy validation finished", "working", len(p.working), "dead", len(p.dead))
	return p, nil
}

// normalizeEndpoint applies the pool scheme to bare host:port entries.
// Entries that already carry a scheme pass through untouched.
func normalizeEndpoint(raw, scheme string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if strings.Contains(raw, "://") {
		return raw
	}
	return scheme + "://" + raw
}
