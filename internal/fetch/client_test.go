package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestClientGetReturnsStatusAndBody(t *testing.T) {
	var gotUserAgent, gotAcceptLanguage string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUserAgent = r.Header.Get("User-Agent")
		gotAcceptLanguage = r.Header.Get("Accept-Language")
		w.Write([]byte("<html>hello</html>"))
	}))
	defer srv.Close()

	client := NewClient(5*time.Second, "shrike-test", "en-US")

	status, body, err := client.Get(context.Background(), srv.URL, "")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if status != http.StatusOK {
		t.Fatalf("Get returned status %d, want %d", status, http.StatusOK)
	}
	if body != "<html>hello</html>" {
		t.Fatalf("Get returned body %q", body)
	}
	if gotUserAgent != "shrike-test" {
		t.Fatalf("request carried User-Agent %q, want shrike-test", gotUserAgent)
	}
	if gotAcceptLanguage != "en-US" {
		t.Fatalf("request carried Accept-Language %q, want en-US", gotAcceptLanguage)
	}
}

func TestClientGetPassesThroughErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "forbidden", http.StatusForbidden)
	}))
	defer srv.Close()

	client := NewClient(5*time.Second, "", "")

	status, _, err := client.Get(context.Background(), srv.URL, "")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if status != http.StatusForbidden {
		t.Fatalf("Get returned status %d, want %d", status, http.StatusForbidden)
	}
}

func TestClientGetHonorsContextCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(5 * time.Second)
	}))
	defer srv.Close()

	client := NewClient(10*time.Second, "", "")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, _, err := client.Get(ctx, srv.URL, "")
	if err == nil {
		t.Fatal("Get succeeded despite a cancelled context")
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("Get ran for %v after the context expired", elapsed)
	}
}

func TestClientGetRejectsMalformedProxyEndpoint(t *testing.T) {
	client := NewClient(time.Second, "", "")

	_, _, err := client.Get(context.Background(), "https://example.com", "://bad")
	if err == nil {
		t.Fatal("Get accepted a malformed proxy endpoint")
	}
}
