package source

import (
	"context"
	"fmt"
	"net/http"

	"github.com/amishk599/jobspot/internal/model"
)

const greenhouseBaseURL = "https://boards-api.greenhouse.io/v1/boards"

type greenhouseJob struct {
	Title       string `json:"title"`
	AbsoluteURL string `json:"absolute_url"`
}

type greenhouseResponse struct {
	Jobs []greenhouseJob `json:"jobs"`
}

// Greenhouse lists the open postings of a Greenhouse job board.
type Greenhouse struct {
	name       string
	boardToken string
	client     *http.Client
}

// NewGreenhouse creates a source for the Greenhouse board boardToken.
func NewGreenhouse(name, boardToken string, client *http.Client) *Greenhouse {
	return &Greenhouse{name: name, boardToken: boardToken, client: client}
}

// Name returns the configured source name.
func (g *Greenhouse) Name() string { return g.name }

// Scrape retrieves every job on the board.
func (g *Greenhouse) Scrape(ctx context.Context) ([]model.Listing, error) {
	url := fmt.Sprintf("%s/%s/jobs", greenhouseBaseURL, g.boardToken)

	var resp greenhouseResponse
	if err := getJSON(ctx, g.client, url, "greenhouse fetch for "+g.boardToken, &resp); err != nil {
		return nil, err
	}

	listings := make([]model.Listing, 0, len(resp.Jobs))
	for _, j := range resp.Jobs {
		listings = appendListing(listings, j.Title, j.AbsoluteURL)
	}
	return listings, nil
}
