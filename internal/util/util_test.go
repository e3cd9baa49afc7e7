package util

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"
)

func TestRobotsChecker_CanFetch(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			hits.Add(1)
			_, _ = fmt.Fprint(w, "User-agent: lawparse\nDisallow: /private/\nCrawl-delay: 2\n\nUser-agent: *\nDisallow: /\n")
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	checker := NewRobotsChecker("lawparse/0.1 (+https://github.com/ppiankov/lawparse)", 5*time.Second)
	ctx := context.Background()

	allowed, delay, err := checker.CanFetch(ctx, server.URL+"/laws/1.html")
	if err != nil {
		t.Fatalf("CanFetch failed: %v", err)
	}
	if !allowed {
		t.Error("Expected /laws/ to be allowed")
	}
	if delay != 2*time.Second {
		t.Errorf("Expected crawl delay 2s, got %v", delay)
	}

	if checker.IsAllowed(ctx, server.URL+"/private/x") {
		t.Error("Expected /private/ to be disallowed")
	}
	if hits.Load() != 1 {
		t.Errorf("Expected robots.txt to be fetched once, got %d", hits.Load())
	}

	checker.Clear()
	checker.IsAllowed(ctx, server.URL+"/laws/")
	if hits.Load() != 2 {
		t.Errorf("Expected refetch after Clear, got %d fetches", hits.Load())
	}
}

func TestRobotsChecker_MissingRobots(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	checker := NewRobotsChecker("lawparse", 5*time.Second)
	if !checker.IsAllowed(context.Background(), server.URL+"/anything") {
		t.Error("Expected everything allowed without robots.txt")
	}
}

func TestRobotsChecker_Unreachable(t *testing.T) {
	checker := NewRobotsChecker("lawparse", 100*time.Millisecond)
	allowed, _, err := checker.CanFetch(context.Background(), "http://127.0.0.1:1/x")
	if err != nil || !allowed {
		t.Errorf("Expected unreachable robots.txt to allow, got %v %v", allowed, err)
	}
}

func TestNormalizeUserAgent(t *testing.T) {
	tests := map[string]string{
		"lawparse/0.1 (+https://github.com/ppiankov/lawparse)": "lawparse",
		"Mozilla/5.0": "Mozilla",
		"":            "",
	}
	for in, want := range tests {
		if got := NormalizeUserAgent(in); got != want {
			t.Errorf("NormalizeUserAgent(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNewProxyFunc(t *testing.T) {
	proxy := NewProxyFunc("http://proxy.local:3128", "", "flk.npc.gov.cn,.internal")

	req := func(raw string) *http.Request {
		u, _ := url.Parse(raw)
		return &http.Request{URL: u}
	}

	got, err := proxy(req("https://example.com/law"))
	if err != nil || got == nil || got.Host != "proxy.local:3128" {
		t.Errorf("Expected proxy.local:3128 for https, got %v %v", got, err)
	}

	got, err = proxy(req("https://flk.npc.gov.cn/detail"))
	if err != nil || got != nil {
		t.Errorf("Expected no proxy for excluded host, got %v %v", got, err)
	}

	got, err = proxy(req("http://api.internal/x"))
	if err != nil || got != nil {
		t.Errorf("Expected no proxy for excluded domain, got %v %v", got, err)
	}
}
