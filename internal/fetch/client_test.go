package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestFetchRobots(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/robots.txt" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("X-Robots-Tag", "noindex")
		_, _ = w.Write([]byte("User-agent: *\nDisallow: /private"))
	}))
	defer srv.Close()

	client := NewClient(Config{})
	doc := client.Fetch(context.Background(), srv.URL+"/some/page?x=1", KindRobots)

	if !doc.Success {
		t.Fatalf("expected success, got error %q", doc.Error)
	}
	if doc.URL != srv.URL+"/robots.txt" {
		t.Fatalf("unexpected document url %q", doc.URL)
	}
	if doc.Content == "" {
		t.Fatal("expected robots content")
	}
	if doc.Headers["X-Robots-Tag"] != "noindex" {
		t.Fatalf("expected header capture, got %v", doc.Headers)
	}
}

func TestFetchTOSProbesPathsInOrder(t *testing.T) {
	var requested []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requested = append(requested, r.URL.Path)
		if r.URL.Path == "/tos" {
			_, _ = w.Write([]byte("terms text"))
			return
		}
		http.NotFound(w, r)
	}))
	defer srv.Close()

	client := NewClient(Config{})
	doc := client.Fetch(context.Background(), srv.URL, KindTOS)

	if !doc.Success {
		t.Fatalf("expected success, got error %q", doc.Error)
	}
	if doc.Content != "terms text" {
		t.Fatalf("unexpected content %q", doc.Content)
	}
	want := []string{"/terms", "/terms-of-service", "/tos"}
	if len(requested) != len(want) {
		t.Fatalf("expected %v got %v", want, requested)
	}
	for i, path := range want {
		if requested[i] != path {
			t.Fatalf("expected probe order %v got %v", want, requested)
		}
	}
}

func TestFetchTOSAllMissing(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	client := NewClient(Config{})
	doc := client.Fetch(context.Background(), srv.URL, KindTOS)

	if doc.Success {
		t.Fatal("expected failure when no terms page exists")
	}
	if doc.Error == "" {
		t.Fatal("expected an error description")
	}
}

func TestFetchMainNon200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "120")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client := NewClient(Config{})
	doc := client.Fetch(context.Background(), srv.URL, KindMain)

	if doc.Success {
		t.Fatal("expected failure for non-200 response")
	}
	if doc.Headers["Retry-After"] != "120" {
		t.Fatalf("expected headers even on failure, got %v", doc.Headers)
	}
}

func TestFetchUnreachableHost(t *testing.T) {
	client := NewClient(Config{})
	doc := client.Fetch(context.Background(), "http://127.0.0.1:1", KindMain)

	if doc.Success {
		t.Fatal("expected failure")
	}
	if doc.Error == "" {
		t.Fatal("expected an error description")
	}
}

func TestFetchSendsUserAgent(t *testing.T) {
	var agent string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		agent = r.Header.Get("User-Agent")
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	client := NewClient(Config{UserAgent: "analyzer-test/1.0"})
	if doc := client.Fetch(context.Background(), srv.URL, KindMain); !doc.Success {
		t.Fatalf("expected success, got %q", doc.Error)
	}
	if agent != "analyzer-test/1.0" {
		t.Fatalf("expected configured user agent, got %q", agent)
	}
}
