// Package proxy manages the pool of egress proxies a scrape run sends its
// traffic through. Candidates are probed once at startup; survivors enter
// the working set and are handed out per request, least-recently-used and
// healthiest first. Proxies that keep failing are evicted permanently, with
// their request history retained for the end-of-run report.
package proxy

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// ErrNoWorkingProxies means not a single candidate survived validation.
var ErrNoWorkingProxies = errors.New("no working proxies available")

// ExhaustedError is returned by Acquire once every validated proxy has been
// evicted. The run cannot continue, but callers decide how to wind down.
type ExhaustedError struct {
	Dead []string
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("all proxies exhausted, %d dead", len(e.Dead))
}

type proxyState struct {
	failures int
	lastUsed time.Time
	stats    *Stats
}

// Pool is the only holder of shared proxy state. The working set, the dead
// list and the stats archive live under one mutex so that selection,
// failure marking and eviction observe each other atomically.
type Pool struct {
	maxFailures int

	mu      sync.Mutex
	working map[string]*proxyState
	dead    []string
	archive map[string]*Stats
}

// Acquire picks the next proxy to use: fewest recorded failures first,
// ties broken by least-recently-used. Entries at or past the failure
// threshold are swept into the dead list before selection.
func (p *Pool) Acquire() (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.sweepLocked()

	if len(p.working) == 0 {
		if len(p.dead) > 0 {
			return "", &ExhaustedError{Dead: append([]string(nil), p.dead...)}
		}
		return "", ErrNoWorkingProxies
	}

	var bestURL string
	var best *proxyState
	for url, st := range p.working {
		if best == nil ||
			st.failures < best.failures ||
			(st.failures == best.failures && st.lastUsed.Before(best.lastUsed)) {
			bestURL, best = url, st
		}
	}

	best.lastUsed = time.Now()
	log.Debug("selected proxy", "proxy", bestURL, "failures", best.failures)
	return bestURL, nil
}

// ReportSuccess resets the proxy's failure streak and records the request
// in its stats. Reporting on an evicted proxy is a no-op.
func (p *Pool) ReportSuccess(proxyURL, requestURL string, statusCode int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	st, ok := p.working[proxyURL]
	if !ok {
		return
	}

	st.failures = 0
	st.lastUsed = time.Now()
	st.stats.recordSuccess(requestURL, statusCode)
}

// ReportFailure increments the proxy's failure streak and records the
// request. A statusCode of 0 means no response was received. Reaching the
// failure threshold evicts the proxy immediately and permanently.
// Reporting on an evicted proxy is a no-op.
func (p *Pool) ReportFailure(proxyURL, requestURL, reason string, statusCode int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	st, ok := p.working[proxyURL]
	if !ok {
		return
	}

	st.failures++
	st.stats.recordFailure(requestURL, reason, statusCode)

	if st.failures >= p.maxFailures {
		log.Warn("dropping proxy after repeated failures", "proxy", proxyURL, "failures", st.failures)
		p.buryLocked(proxyURL)
	}
}

// WorkingCount reports how many proxies are currently selectable.
func (p *Pool) WorkingCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.working)
}

// DeadCount reports how many proxies have been permanently excluded,
// including candidates that never passed validation.
func (p *Pool) DeadCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.dead)
}

// sweepLocked moves every entry at or past the failure threshold to the
// dead list. Swept URLs are sorted so the eviction order is stable.
func (p *Pool) sweepLocked() {
	var expired []string
	for url, st := range p.working {
		if st.failures >= p.maxFailures {
			expired = append(expired, url)
		}
	}
	if len(expired) == 0 {
		return
	}

	sort.Strings(expired)
	for _, url := range expired {
		log.Warn("sweeping exhausted proxy", "proxy", url)
		p.buryLocked(url)
	}
}

// buryLocked performs the one-way Working to Dead transition: the entry
// leaves the working set, its stats move to the archive and the URL is
// appended to the dead list.
func (p *Pool) buryLocked(url string) {
	st, ok := p.working[url]
	if !ok {
		return
	}
	p.archive[url] = st.stats
	delete(p.working, url)
	p.dead = append(p.dead, url)
}
