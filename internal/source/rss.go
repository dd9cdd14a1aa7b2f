package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/mmcdole/gofeed"

	"github.com/amishk599/jobspot/internal/model"
)

// RSS turns the items of an RSS or Atom feed into listings.
type RSS struct {
	name   string
	url    string
	client *http.Client
	parser *gofeed.Parser
}

// NewRSS creates a source for the feed at feedURL.
func NewRSS(name, feedURL string, client *http.Client) *RSS {
	return &RSS{
		name:   name,
		url:    feedURL,
		client: client,
		parser: gofeed.NewParser(),
	}
}

// Name returns the configured source name.
func (r *RSS) Name() string { return r.name }

// Scrape downloads and parses the feed. Items without a link are skipped.
func (r *RSS) Scrape(ctx context.Context) ([]model.Listing, error) {
	what := "rss fetch for " + r.name
	resp, err := get(ctx, r.client, r.url, what)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	feed, err := r.parser.Parse(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%s: parse feed: %w", what, err)
	}

	listings := make([]model.Listing, 0, len(feed.Items))
	for _, item := range feed.Items {
		link := item.Link
		if link == "" && strings.HasPrefix(item.GUID, "http") {
			link = item.GUID
		}
		listings = appendListing(listings, strings.TrimSpace(item.Title), strings.TrimSpace(link))
	}
	return listings, nil
}
