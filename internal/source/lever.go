package source

import (
	"context"
	"fmt"
	"net/http"

	"github.com/amishk599/jobspot/internal/model"
)

const leverBaseURL = "https://api.lever.co/v0/postings"

type leverJob struct {
	Text      string `json:"text"`
	HostedURL string `json:"hostedUrl"`
	ApplyURL  string `json:"applyUrl"`
}

// Lever lists the postings of a Lever company page.
type Lever struct {
	name        string
	companySlug string
	client      *http.Client
}

// NewLever creates a source for the Lever company companySlug.
func NewLever(name, companySlug string, client *http.Client) *Lever {
	return &Lever{name: name, companySlug: companySlug, client: client}
}

// Name returns the configured source name.
func (l *Lever) Name() string { return l.name }

// Scrape retrieves every posting. The hosted URL is the link; the apply URL
// is used when a posting has no hosted page.
func (l *Lever) Scrape(ctx context.Context) ([]model.Listing, error) {
	url := fmt.Sprintf("%s/%s?mode=json", leverBaseURL, l.companySlug)

	var jobs []leverJob
	if err := getJSON(ctx, l.client, url, "lever fetch for "+l.companySlug, &jobs); err != nil {
		return nil, err
	}

	listings := make([]model.Listing, 0, len(jobs))
	for _, j := range jobs {
		link := j.HostedURL
		if link == "" {
			link = j.ApplyURL
		}
		listings = appendListing(listings, j.Text, link)
	}
	return listings, nil
}
