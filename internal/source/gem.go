package source

import (
	"context"
	"fmt"
	"net/http"

	"github.com/amishk599/jobspot/internal/model"
)

const gemBaseURL = "https://api.gem.com/job_board/v0"

type gemJob struct {
	Title       string `json:"title"`
	AbsoluteURL string `json:"absolute_url"`
}

// Gem lists the postings of a Gem job board.
type Gem struct {
	name       string
	boardToken string
	client     *http.Client
}

// NewGem creates a source for the Gem board boardToken.
func NewGem(name, boardToken string, client *http.Client) *Gem {
	return &Gem{name: name, boardToken: boardToken, client: client}
}

// Name returns the configured source name.
func (g *Gem) Name() string { return g.name }

// Scrape retrieves every job post on the board.
func (g *Gem) Scrape(ctx context.Context) ([]model.Listing, error) {
	url := fmt.Sprintf("%s/%s/job_posts/", gemBaseURL, g.boardToken)

	var jobs []gemJob
	if err := getJSON(ctx, g.client, url, "gem fetch for "+g.boardToken, &jobs); err != nil {
		return nil, err
	}

	listings := make([]model.Listing, 0, len(jobs))
	for _, j := range jobs {
		listings = appendListing(listings, j.Title, j.AbsoluteURL)
	}
	return listings, nil
}
