package source

import (
	"context"
	"fmt"
	"net/http"

	"github.com/amishk599/jobspot/internal/model"
)

const ashbyBaseURL = "https://api.ashbyhq.com/posting-api/job-board"

type ashbyJob struct {
	Title    string `json:"title"`
	JobURL   string `json:"jobUrl"`
	IsListed bool   `json:"isListed"`
}

type ashbyResponse struct {
	Jobs []ashbyJob `json:"jobs"`
}

// Ashby lists the public postings of an Ashby job board.
type Ashby struct {
	name       string
	boardToken string
	client     *http.Client
}

// NewAshby creates a source for the Ashby board boardToken.
func NewAshby(name, boardToken string, client *http.Client) *Ashby {
	return &Ashby{name: name, boardToken: boardToken, client: client}
}

// Name returns the configured source name.
func (a *Ashby) Name() string { return a.name }

// Scrape retrieves the listed jobs; unlisted postings are skipped.
func (a *Ashby) Scrape(ctx context.Context) ([]model.Listing, error) {
	url := fmt.Sprintf("%s/%s", ashbyBaseURL, a.boardToken)

	var resp ashbyResponse
	if err := getJSON(ctx, a.client, url, "ashby fetch for "+a.boardToken, &resp); err != nil {
		return nil, err
	}

	listings := make([]model.Listing, 0, len(resp.Jobs))
	for _, j := range resp.Jobs {
		if !j.IsListed {
			continue
		}
		listings = appendListing(listings, j.Title, j.JobURL)
	}
	return listings, nil
}
