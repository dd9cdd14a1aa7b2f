// Package source holds the listing sources jobspot can scrape and the
// factory that builds them from configuration.
package source

import (
	"fmt"
	"net/http"

	"github.com/amishk599/jobspot/internal/config"
	"github.com/amishk599/jobspot/internal/model"
	"github.com/amishk599/jobspot/internal/ratelimit"
)

// New builds the source described by sc.
func New(sc config.SourceConfig, client *http.Client) (model.Source, error) {
	switch sc.Type {
	case config.SourceGreenhouse:
		return NewGreenhouse(sc.Name, sc.BoardToken, client), nil
	case config.SourceLever:
		return NewLever(sc.Name, sc.BoardToken, client), nil
	case config.SourceAshby:
		return NewAshby(sc.Name, sc.BoardToken, client), nil
	case config.SourceGem:
		return NewGem(sc.Name, sc.BoardToken, client), nil
	case config.SourceWorkday:
		return NewWorkday(sc.Name, sc.URL, client), nil
	case config.SourceRSS:
		return NewRSS(sc.Name, sc.URL, client), nil
	case config.SourceHTML:
		return NewHTML(sc.Name, sc.URL, sc.Selector, sc.LinkPrefix, client), nil
	default:
		return nil, fmt.Errorf("source %s: unsupported type %q", sc.Name, sc.Type)
	}
}

// Build creates every enabled source in cfg, each wrapped with the shared
// provider rate limiter.
func Build(cfg *config.Config, client *http.Client, limiter *ratelimit.Limiter) ([]model.Source, error) {
	var sources []model.Source
	for _, sc := range cfg.EnabledSources() {
		src, err := New(sc, client)
		if err != nil {
			return nil, err
		}
		sources = append(sources, ratelimit.NewSource(src, limiter, sc.Type))
	}
	return sources, nil
}

// appendListing appends a listing when both title and link are present.
func appendListing(listings []model.Listing, title, link string) []model.Listing {
	if title == "" || link == "" {
		return listings
	}
	return append(listings, model.Listing{Title: title, Link: link})
}
