package source

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/amishk599/jobspot/internal/model"
)

func TestGreenhouse_Scrape(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"jobs": [
				{"id": 12345, "title": "Software Engineer", "absolute_url": "https://boards.greenhouse.io/acme/jobs/12345"},
				{"id": 67890, "title": "Backend Engineer", "absolute_url": "https://boards.greenhouse.io/acme/jobs/67890"},
				{"id": 11111, "title": "", "absolute_url": "https://boards.greenhouse.io/acme/jobs/11111"}
			]
		}`))
	}))
	defer srv.Close()

	src := NewGreenhouse("acme", "acme", rewriteClient(srv))
	got, err := src.Scrape(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []model.Listing{
		{Title: "Software Engineer", Link: "https://boards.greenhouse.io/acme/jobs/12345"},
		{Title: "Backend Engineer", Link: "https://boards.greenhouse.io/acme/jobs/67890"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("listings mismatch (-want +got):\n%s", diff)
	}
	if gotPath != "/v1/boards/acme/jobs" {
		t.Errorf("requested path %q", gotPath)
	}
	if src.Name() != "acme" {
		t.Errorf("Name() = %q", src.Name())
	}
}

func TestLever_Scrape_FallsBackToApplyURL(t *testing.T) {
	srv := jsonServer(`[
		{"id": "a", "text": "Software Engineer", "hostedUrl": "https://jobs.lever.co/acme/a", "applyUrl": "https://jobs.lever.co/acme/a/apply"},
		{"id": "b", "text": "Intern", "hostedUrl": "", "applyUrl": "https://jobs.lever.co/acme/b/apply"}
	]`)
	defer srv.Close()

	got, err := NewLever("acme", "acme", rewriteClient(srv)).Scrape(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []model.Listing{
		{Title: "Software Engineer", Link: "https://jobs.lever.co/acme/a"},
		{Title: "Intern", Link: "https://jobs.lever.co/acme/b/apply"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("listings mismatch (-want +got):\n%s", diff)
	}
}

func TestAshby_Scrape_SkipsUnlisted(t *testing.T) {
	srv := jsonServer(`{
		"jobs": [
			{"title": "Platform Engineer", "jobUrl": "https://jobs.ashbyhq.com/acme/1", "isListed": true},
			{"title": "Secret Role", "jobUrl": "https://jobs.ashbyhq.com/acme/2", "isListed": false}
		]
	}`)
	defer srv.Close()

	got, err := NewAshby("acme", "acme", rewriteClient(srv)).Scrape(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []model.Listing{{Title: "Platform Engineer", Link: "https://jobs.ashbyhq.com/acme/1"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("listings mismatch (-want +got):\n%s", diff)
	}
}

func TestGem_Scrape(t *testing.T) {
	srv := jsonServer(`[
		{"id": "g1", "title": "Data Engineer", "absolute_url": "https://jobs.gem.com/acme/g1"}
	]`)
	defer srv.Close()

	got, err := NewGem("acme", "acme", rewriteClient(srv)).Scrape(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []model.Listing{{Title: "Data Engineer", Link: "https://jobs.gem.com/acme/g1"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("listings mismatch (-want +got):\n%s", diff)
	}
}

func TestATS_EmptyBoard(t *testing.T) {
	objSrv := jsonServer(`{"jobs": []}`)
	defer objSrv.Close()
	arrSrv := jsonServer(`[]`)
	defer arrSrv.Close()

	sources := []model.Source{
		NewGreenhouse("gh", "empty-co", rewriteClient(objSrv)),
		NewAshby("ashby", "empty-co", rewriteClient(objSrv)),
		NewLever("lever", "empty-co", rewriteClient(arrSrv)),
		NewGem("gem", "empty-co", rewriteClient(arrSrv)),
	}
	for _, src := range sources {
		got, err := src.Scrape(context.Background())
		if err != nil {
			t.Errorf("%s: unexpected error: %v", src.Name(), err)
		}
		if len(got) != 0 {
			t.Errorf("%s: expected 0 listings, got %d", src.Name(), len(got))
		}
	}
}

func TestATS_MalformedJSON(t *testing.T) {
	srv := jsonServer(`{not valid json`)
	defer srv.Close()

	sources := []model.Source{
		NewGreenhouse("gh", "bad-co", rewriteClient(srv)),
		NewLever("lever", "bad-co", rewriteClient(srv)),
		NewAshby("ashby", "bad-co", rewriteClient(srv)),
		NewGem("gem", "bad-co", rewriteClient(srv)),
	}
	for _, src := range sources {
		if _, err := src.Scrape(context.Background()); err == nil {
			t.Errorf("%s: expected error for malformed JSON, got nil", src.Name())
		}
	}
}

func TestATS_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "30")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	sources := []model.Source{
		NewGreenhouse("gh", "fail-co", rewriteClient(srv)),
		NewLever("lever", "fail-co", rewriteClient(srv)),
		NewAshby("ashby", "fail-co", rewriteClient(srv)),
		NewGem("gem", "fail-co", rewriteClient(srv)),
	}
	for _, src := range sources {
		_, err := src.Scrape(context.Background())
		var httpErr *model.HTTPError
		if !errors.As(err, &httpErr) {
			t.Errorf("%s: expected *model.HTTPError, got %v", src.Name(), err)
			continue
		}
		if httpErr.StatusCode != http.StatusTooManyRequests {
			t.Errorf("%s: status = %d, want 429", src.Name(), httpErr.StatusCode)
		}
		if httpErr.RetryAfter != 30*time.Second {
			t.Errorf("%s: RetryAfter = %v, want 30s", src.Name(), httpErr.RetryAfter)
		}
	}
}

func TestParseRetryAfter(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
	}{
		{"", 0},
		{"120", 120 * time.Second},
		{"Wed, 21 Oct 2015 07:28:00 GMT", 0},
	}
	for _, tt := range tests {
		if got := parseRetryAfter(tt.in); got != tt.want {
			t.Errorf("parseRetryAfter(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
