package enrich

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ppiankov/lumify/internal/cache"
	"github.com/ppiankov/lumify/internal/model"
	"github.com/ppiankov/lumify/internal/util"
	"github.com/ppiankov/lumify/internal/worker"
)

func TestExtractTitle(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{"plain", `<html><head><title>Pricing Plans</title></head></html>`, "Pricing Plans"},
		{"whitespace", "<title>\n  Getting   Started\n</title>", "Getting Started"},
		{"entities", `<title>Q&amp;A &#8211; Help</title>`, "Q&A – Help"},
		{"og fallback", `<head><meta property="og:title" content="Shared Title"></head><body></body>`, "Shared Title"},
		{"title beats og", `<meta property="og:title" content="OG"><title>Real</title>`, "Real"},
		{"svg title ignored", `<body><svg><title>icon</title></svg></body>`, ""},
		{"empty title", `<title>   </title>`, ""},
		{"no title", `<p>hello</p>`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractTitle(tt.doc); got != tt.want {
				t.Errorf("ExtractTitle() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestIsHTML(t *testing.T) {
	tests := map[string]bool{
		"":                         true,
		"text/html":                true,
		"text/html; charset=utf-8": true,
		"application/xhtml+xml":    true,
		"application/pdf":          false,
		"application/json":         false,
	}
	for ct, want := range tests {
		if got := isHTML(ct); got != want {
			t.Errorf("isHTML(%q) = %v, want %v", ct, got, want)
		}
	}
}

// site serves a few pages and counts page fetches
func site(t *testing.T, robots string) (*httptest.Server, *int32) {
	t.Helper()
	var fetches int32
	mux := http.NewServeMux()
	mux.HandleFunc("/robots.txt", func(w http.ResponseWriter, r *http.Request) {
		if robots == "" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(robots))
	})
	mux.HandleFunc("/docs", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&fetches, 1)
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte("<html><head><title>Docs Home</title></head></html>"))
	})
	mux.HandleFunc("/private", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&fetches, 1)
		_, _ = w.Write([]byte("<title>Secret</title>"))
	})
	mux.HandleFunc("/file.pdf", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&fetches, 1)
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = w.Write([]byte("%PDF"))
	})
	mux.HandleFunc("/untitled", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&fetches, 1)
		_, _ = w.Write([]byte("<p>nothing here</p>"))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, &fetches
}

func TestEnrich_FillsMissingTitles(t *testing.T) {
	srv, fetches := site(t, "")
	e := NewEnricher(NewFetcher(srv.Client(), "Lumify/1.1", 1<<20), WithWorkers(2))

	sources := []model.Source{
		{URL: srv.URL + "/docs"},
		{URL: srv.URL + "/docs", Title: "Given"},
		{URL: srv.URL + "/docs", PageTitle: "Scraped"},
		{URL: ""},
	}
	got, err := e.Enrich(context.Background(), sources)
	if err != nil {
		t.Fatalf("Enrich: %v", err)
	}

	if got[0].PageTitle != "Docs Home" {
		t.Errorf("expected fetched title, got %+v", got[0])
	}
	if got[1].PageTitle != "" || got[2].PageTitle != "Scraped" {
		t.Errorf("titled sources must not change: %+v %+v", got[1], got[2])
	}
	if atomic.LoadInt32(fetches) != 1 {
		t.Errorf("expected 1 fetch, got %d", *fetches)
	}
	if sources[0].PageTitle != "" {
		t.Error("input slice must not be modified")
	}
}

func TestEnrich_FailuresLeaveSourcesUntouched(t *testing.T) {
	srv, _ := site(t, "")
	e := NewEnricher(NewFetcher(srv.Client(), "Lumify/1.1", 1<<20))

	sources := []model.Source{
		{URL: srv.URL + "/file.pdf"},
		{URL: srv.URL + "/untitled"},
		{URL: srv.URL + "/missing"},
		{URL: "mailto:someone@example.test"},
		{URL: srv.URL + "/docs"},
	}
	got, err := e.Enrich(context.Background(), sources)
	if err == nil {
		t.Fatal("expected joined error")
	}
	if !errors.Is(err, ErrNotHTML) || !errors.Is(err, ErrNoTitle) {
		t.Errorf("expected typed errors, got %v", err)
	}
	for i := 0; i < 4; i++ {
		if got[i].PageTitle != "" {
			t.Errorf("source %d should be untouched, got %+v", i, got[i])
		}
	}
	if got[4].PageTitle != "Docs Home" {
		t.Errorf("healthy source should still be enriched, got %+v", got[4])
	}
}

func TestEnrich_RespectsRobots(t *testing.T) {
	srv, fetches := site(t, "User-agent: *\nDisallow: /private\n")
	rc := util.NewRobotsChecker(srv.Client(), "Lumify/1.1", time.Hour)
	e := NewEnricher(NewFetcher(srv.Client(), "Lumify/1.1", 1<<20),
		WithRobots(rc), WithLimiter(worker.NewLimiter(0, 1)))

	got, err := e.Enrich(context.Background(), []model.Source{
		{URL: srv.URL + "/private"},
		{URL: srv.URL + "/docs"},
	})
	if !errors.Is(err, ErrDisallowed) {
		t.Errorf("expected ErrDisallowed, got %v", err)
	}
	if got[0].PageTitle != "" {
		t.Errorf("disallowed page must not be enriched: %+v", got[0])
	}
	if got[1].PageTitle != "Docs Home" {
		t.Errorf("allowed page should be enriched: %+v", got[1])
	}
	if atomic.LoadInt32(fetches) != 1 {
		t.Errorf("disallowed page must not be fetched, got %d fetches", *fetches)
	}
}

func TestTitle_UsesCache(t *testing.T) {
	srv, fetches := site(t, "")
	c := cache.NewMemoryCache(time.Hour, time.Minute)
	e := NewEnricher(NewFetcher(srv.Client(), "Lumify/1.1", 1<<20), WithCache(c, time.Hour))

	for i := 0; i < 3; i++ {
		title, err := e.Title(context.Background(), srv.URL+"/docs")
		if err != nil || title != "Docs Home" {
			t.Fatalf("Title = %q, %v", title, err)
		}
	}
	if atomic.LoadInt32(fetches) != 1 {
		t.Errorf("expected cached title, got %d fetches", *fetches)
	}
}

func TestFetch_LimitsBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") != "Lumify/1.1" {
			t.Errorf("unexpected user agent %q", r.Header.Get("User-Agent"))
		}
		_, _ = w.Write([]byte("<title>" + strings.Repeat("x", 100) + "</title>"))
	}))
	defer srv.Close()

	res, err := NewFetcher(srv.Client(), "Lumify/1.1", 16).Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(res.HTML) != 16 {
		t.Errorf("expected 16 bytes, got %d", len(res.HTML))
	}
	if res.FinalURL != srv.URL {
		t.Errorf("final URL = %q", res.FinalURL)
	}
}

func TestNewEnricherFromConfig(t *testing.T) {
	cfg := model.DefaultConfig()
	cfg.Enrich.RespectRobots = false
	e := NewEnricherFromConfig(cfg, nil)
	if e.robots != nil {
		t.Error("robots checker should be off")
	}
	if e.workers != cfg.Concurrency.EnrichWorkers {
		t.Errorf("workers = %d", e.workers)
	}
	if _, ok := e.cache.(cache.NopCache); !ok {
		t.Errorf("nil cache should become NopCache, got %T", e.cache)
	}

	cfg.Enrich.RespectRobots = true
	if NewEnricherFromConfig(cfg, nil).robots == nil {
		t.Error("robots checker should be on")
	}
}
