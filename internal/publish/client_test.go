package publish

import (
	"context"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"streamstats/internal/config"
)

const published = `{"terms": {
  "Winter 2024": {"total_students": 5, "total_reservations": 1, "departments": {
    "Span": {"total_students": 5, "total_reservations": 1, "levels": {"200": {"students": 5, "reservations": 1}}}}},
  "Fall 2017": {"total_students": 0, "total_reservations": 0, "departments": {}}
}}`

func TestFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Accept") != "application/json" {
			t.Errorf("accept=%q", r.Header.Get("Accept"))
		}
		_, _ = w.Write([]byte(published))
	}))
	defer srv.Close()

	cfg, _ := config.Load()
	doc, err := NewClient(cfg).Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	if got := doc.TermNames(); !reflect.DeepEqual(got, []string{"Winter 2024", "Fall 2017"}) {
		t.Fatalf("terms=%v", got)
	}
	winter, _ := doc.Term("Winter 2024")
	if winter.Departments["Span"].Levels["200"].Students != 5 {
		t.Fatalf("winter=%+v", winter)
	}
}

func TestFetchFailsFastWithoutRetry(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.Error(w, "boom", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	cfg, _ := config.Load()
	_, err := NewClient(cfg).Fetch(context.Background(), srv.URL)
	if err == nil || !strings.Contains(err.Error(), "status=503") {
		t.Fatalf("err=%v", err)
	}
	if hits.Load() != 1 {
		t.Fatalf("hits=%d", hits.Load())
	}
}

func TestFetchTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	cfg, _ := config.Load()
	cfg.FetchTimeoutMs = 50
	start := time.Now()
	if _, err := NewClient(cfg).Fetch(context.Background(), srv.URL); err == nil {
		t.Fatal("expected timeout")
	}
	if time.Since(start) > 5*time.Second {
		t.Fatal("timeout was not applied")
	}
}

func TestFetchRejectsBadDocument(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>maintenance</html>`))
	}))
	defer srv.Close()

	cfg, _ := config.Load()
	if _, err := NewClient(cfg).Fetch(context.Background(), srv.URL); err == nil {
		t.Fatal("expected decode error")
	}
	if _, err := NewClient(cfg).Fetch(context.Background(), " "); err == nil {
		t.Fatal("expected missing url error")
	}
}
