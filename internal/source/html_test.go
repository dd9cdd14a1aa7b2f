package source

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/amishk599/jobspot/internal/model"
)

const testPage = `<html><body>
<nav><a href="/about">About</a></nav>
<ul class="jobs">
  <li><a href="/careers/1">Software
      Engineer,   Intern</a></li>
  <li><a href="https://acme.example/careers/2">Data Scientist</a></li>
  <li><a href="#top">Back to top</a></li>
  <li><a>No href</a></li>
  <li><a href="/careers/3"></a></li>
</ul>
</body></html>`

func TestHTML_Scrape_ResolvesAndFilters(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(testPage))
	}))
	defer srv.Close()

	src := NewHTML("acme", srv.URL+"/jobs", "ul.jobs a", "", srv.Client())
	got, err := src.Scrape(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []model.Listing{
		{Title: "Software Engineer, Intern", Link: srv.URL + "/careers/1"},
		{Title: "Data Scientist", Link: "https://acme.example/careers/2"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("listings mismatch (-want +got):\n%s", diff)
	}
}

func TestHTML_Scrape_LinkPrefix(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(testPage))
	}))
	defer srv.Close()

	// Default selector matches every anchor; the prefix keeps only careers links.
	src := NewHTML("acme", srv.URL, "", srv.URL+"/careers/", srv.Client())
	got, err := src.Scrape(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []model.Listing{{Title: "Software Engineer, Intern", Link: srv.URL + "/careers/1"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("listings mismatch (-want +got):\n%s", diff)
	}
}
