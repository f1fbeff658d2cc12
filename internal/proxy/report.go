package proxy

import (
	"fmt"
	"io"
	"sort"
	"time"
)

// ProxySnapshot is the per-proxy slice of a pool Snapshot. Failures is the
// live failure streak and stays zero for dead proxies; their counters come
// from the archived stats, or are zero when the proxy never passed
// validation.
type ProxySnapshot struct {
	URL                string `json:"url"`
	Failures           int    `json:"failures"`
	TotalRequests      int    `json:"total_requests"`
	SuccessfulRequests int    `json:"successful_requests"`
	FailedRequests     int    `json:"failed_requests"`
}

// Snapshot is a point-in-time view of the pool, small enough to publish as
// a heartbeat or archive at the end of a run.
type Snapshot struct {
	Taken   time.Time       `json:"taken"`
	Working []ProxySnapshot `json:"working"`
	Dead    []ProxySnapshot `json:"dead"`
}

// Snapshot captures the current pool state. Working entries are sorted by
// URL, the dead list keeps its eviction order.
func (p *Pool) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()

	snap := Snapshot{
		Taken:   time.Now(),
		Working: make([]ProxySnapshot, 0, len(p.working)),
		Dead:    make([]ProxySnapshot, 0, len(p.dead)),
	}
	for url, st := range p.working {
		snap.Working = append(snap.Working, ProxySnapshot{
			URL:                url,
			Failures:           st.failures,
			TotalRequests:      st.stats.TotalRequests,
			SuccessfulRequests: st.stats.SuccessfulRequests,
			FailedRequests:     st.stats.FailedRequests,
		})
	}
	sort.Slice(snap.Working, func(i, j int) bool {
		return snap.Working[i].URL < snap.Working[j].URL
	})
	for _, url := range p.dead {
		entry := ProxySnapshot{URL: url}
		if s, ok := p.archive[url]; ok {
			entry.TotalRequests = s.TotalRequests
			entry.SuccessfulRequests = s.SuccessfulRequests
			entry.FailedRequests = s.FailedRequests
		}
		snap.Dead = append(snap.Dead, entry)
	}
	return snap
}

// WriteReport prints a diagnostic summary of every proxy the pool has
// seen: working proxies first in key order, then dead ones in eviction
// order. Candidates that never passed validation have no stats and are
// listed as such. Stats are copied under the pool lock and formatted
// without it, so concurrent marks never race the writer.
func (p *Pool) WriteReport(w io.Writer) {
	p.mu.Lock()
	working := make([]string, 0, len(p.working))
	for url := range p.working {
		working = append(working, url)
	}
	sort.Strings(working)

	stats := make(map[string]*Stats, len(p.working)+len(p.archive))
	for url, st := range p.working {
		stats[url] = st.stats.clone()
	}
	for url, s := range p.archive {
		stats[url] = s.clone()
	}
	dead := append([]string(nil), p.dead...)
	p.mu.Unlock()

	fmt.Fprintf(w, "proxy pool report: %d working, %d dead\n", len(working), len(dead))

	if len(working) > 0 {
		fmt.Fprintf(w, "\nworking proxies:\n")
		for _, url := range working {
			fmt.Fprintf(w, "  %s\n", url)
			writeStats(w, stats[url])
		}
	}

	if len(dead) > 0 {
		fmt.Fprintf(w, "\ndead proxies (in eviction order):\n")
		for _, url := range dead {
			fmt.Fprintf(w, "  %s\n", url)
			if s, ok := stats[url]; ok {
				writeStats(w, s)
			} else {
				fmt.Fprintf(w, "    no stats recorded\n")
			}
		}
	}
}

func writeStats(w io.Writer, s *Stats) {
	fmt.Fprintf(w, "    validation: %s\n", s.ValidationStatus)
	fmt.Fprintf(w, "    requests: %d total, %d ok, %d failed\n",
		s.TotalRequests, s.SuccessfulRequests, s.FailedRequests)

	if len(s.StatusCodes) > 0 {
		codes := make([]int, 0, len(s.StatusCodes))
		for code := range s.StatusCodes {
			codes = append(codes, code)
		}
		sort.Ints(codes)
		fmt.Fprintf(w, "    status codes:")
		for _, code := range codes {
			fmt.Fprintf(w, " %dx%d", code, s.StatusCodes[code])
		}
		fmt.Fprintf(w, "\n")
	}

	if len(s.SuccessfulURLs) > 0 {
		fmt.Fprintf(w, "    succeeded:\n")
		for _, u := range s.SuccessfulURLs {
			fmt.Fprintf(w, "      %s\n", u)
		}
	}
	if len(s.FailedURLs) > 0 {
		fmt.Fprintf(w, "    failed:\n")
		for _, f := range s.FailedURLs {
			fmt.Fprintf(w, "      %s (%s)\n", f.URL, f.Reason)
		}
	}
}
