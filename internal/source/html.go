package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/amishk599/jobspot/internal/model"
)

// HTML scrapes anchors from a careers page. Every element matched by the
// selector that carries an href becomes a listing titled by its text.
type HTML struct {
	name       string
	url        string
	selector   string
	linkPrefix string
	client     *http.Client
}

// NewHTML creates a source for the page at pageURL. When linkPrefix is set,
// only resolved links starting with it are kept.
func NewHTML(name, pageURL, selector, linkPrefix string, client *http.Client) *HTML {
	if selector == "" {
		selector = "a"
	}
	return &HTML{
		name:       name,
		url:        pageURL,
		selector:   selector,
		linkPrefix: linkPrefix,
		client:     client,
	}
}

// Name returns the configured source name.
func (h *HTML) Name() string { return h.name }

// Scrape fetches the page and extracts matching links.
func (h *HTML) Scrape(ctx context.Context) ([]model.Listing, error) {
	what := "html fetch for " + h.name
	resp, err := get(ctx, h.client, h.url, what)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%s: parse html: %w", what, err)
	}

	// Relative links resolve against the final URL after redirects.
	base := resp.Request.URL
	var listings []model.Listing
	doc.Find(h.selector).Each(func(_ int, s *goquery.Selection) {
		href, ok := s.Attr("href")
		if !ok {
			return
		}
		link := resolve(base, href)
		if link == "" || (h.linkPrefix != "" && !strings.HasPrefix(link, h.linkPrefix)) {
			return
		}
		title := strings.Join(strings.Fields(s.Text()), " ")
		listings = appendListing(listings, title, link)
	})
	return listings, nil
}

func resolve(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(href, "javascript:") || strings.HasPrefix(href, "mailto:") {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if base == nil {
		return ref.String()
	}
	return base.ResolveReference(ref).String()
}
