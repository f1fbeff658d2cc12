package proxy

import (
	"bytes"
	"io"
	"strings"
	"sync"
	"testing"
)

func TestSnapshotSortsWorkingByURL(t *testing.T) {
	p := newTestPool(2, "socks5://c:1080", "socks5://a:1080", "socks5://b:1080")

	snap := p.Snapshot()
	if len(snap.Working) != 3 {
		t.Fatalf("snapshot has %d working entries, want 3", len(snap.Working))
	}
	want := []string{"socks5://a:1080", "socks5://b:1080", "socks5://c:1080"}
	for i, w := range snap.Working {
		if w.URL != want[i] {
			t.Fatalf("snapshot working[%d] = %s, want %s", i, w.URL, want[i])
		}
	}
}

func TestSnapshotCarriesArchivedCountersForDead(t *testing.T) {
	p := newTestPool(2, "socks5://a:1080", "socks5://b:1080")
	p.ReportFailure("socks5://a:1080", "https://example.com/page/2", "blocked", 403)
	p.ReportFailure("socks5://a:1080", "https://example.com/page/2", "blocked", 403)
	p.dead = append(p.dead, "socks5://never-validated:1080")

	snap := p.Snapshot()
	if len(snap.Dead) != 2 {
		t.Fatalf("snapshot has %d dead entries, want 2", len(snap.Dead))
	}

	evicted := snap.Dead[0]
	if evicted.URL != "socks5://a:1080" {
		t.Fatalf("dead[0] = %s, want the evicted proxy first", evicted.URL)
	}
	if evicted.TotalRequests != 2 || evicted.FailedRequests != 2 {
		t.Fatalf("dead entry counters = %d total / %d failed, want 2 / 2",
			evicted.TotalRequests, evicted.FailedRequests)
	}

	unvalidated := snap.Dead[1]
	if unvalidated.URL != "socks5://never-validated:1080" {
		t.Fatalf("dead[1] = %s, want the pre-validation death", unvalidated.URL)
	}
	if unvalidated.TotalRequests != 0 {
		t.Fatalf("pre-validation death carries %d requests, want 0", unvalidated.TotalRequests)
	}
}

func TestWriteReportListsWorkingBeforeDead(t *testing.T) {
	p := newTestPool(2, "socks5://b:1080", "socks5://a:1080")
	p.ReportSuccess("socks5://a:1080", "https://example.com/page/1", 200)

	// One proxy burned through requests, one died before validation.
	p.ReportFailure("socks5://b:1080", "https://example.com/page/2", "blocked", 403)
	p.ReportFailure("socks5://b:1080", "https://example.com/page/2", "blocked", 403)
	p.dead = append(p.dead, "socks5://never-validated:1080")

	var buf bytes.Buffer
	p.WriteReport(&buf)
	out := buf.String()

	if !strings.Contains(out, "1 working, 2 dead") {
		t.Fatalf("report header missing counts:\n%s", out)
	}

	working := strings.Index(out, "working proxies:")
	dead := strings.Index(out, "dead proxies")
	if working == -1 || dead == -1 || working > dead {
		t.Fatalf("report does not list working proxies before dead ones:\n%s", out)
	}

	evicted := strings.Index(out, "socks5://b:1080")
	unvalidated := strings.Index(out, "socks5://never-validated:1080")
	if evicted == -1 || unvalidated == -1 || evicted > unvalidated {
		t.Fatalf("dead proxies are not in eviction order:\n%s", out)
	}
}

func TestWriteReportMarksStatlessDead(t *testing.T) {
	p := newTestPool(2, "socks5://a:1080")
	p.dead = append(p.dead, "socks5://never-validated:1080")

	var buf bytes.Buffer
	p.WriteReport(&buf)
	if !strings.Contains(buf.String(), "no stats recorded") {
		t.Fatalf("report missing the no-stats marker for a pre-validation death:\n%s", buf.String())
	}
}

func TestWriteReportIncludesRequestBreakdown(t *testing.T) {
	p := newTestPool(3, "socks5://a:1080")
	p.ReportSuccess("socks5://a:1080", "https://example.com/page/1", 200)
	p.ReportFailure("socks5://a:1080", "https://example.com/page/2", "blocked", 403)

	var buf bytes.Buffer
	p.WriteReport(&buf)
	out := buf.String()

	for _, want := range []string{
		"2 total, 1 ok, 1 failed",
		"200x1",
		"403x1",
		"https://example.com/page/2 (blocked)",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("report missing %q:\n%s", want, out)
		}
	}
}

func TestWriteReportToleratesConcurrentMarks(t *testing.T) {
	const (
		workers = 4
		marks   = 25
	)
	p := newTestPool(1000, "socks5://a:1080")

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(3)
		go func() {
			defer wg.Done()
			for j := 0; j < marks; j++ {
				p.ReportSuccess("socks5://a:1080", "https://example.com/page/1", 200)
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < marks; j++ {
				p.ReportFailure("socks5://a:1080", "https://example.com/page/2", "blocked", 403)
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < marks; j++ {
				p.WriteReport(io.Discard)
			}
		}()
	}
	wg.Wait()

	var buf bytes.Buffer
	p.WriteReport(&buf)
	if !strings.Contains(buf.String(), "200 total, 100 ok, 100 failed") {
		t.Fatalf("counters drifted under concurrent marks:\n%s", buf.String())
	}
}
