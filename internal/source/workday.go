package source

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/amishk599/jobspot/internal/model"
)

const (
	workdayPageSize = 20
	workdayMaxPages = 50
)

type workdayListingResponse struct {
	Total       int              `json:"total"`
	JobPostings []workdayPosting `json:"jobPostings"`
}

type workdayPosting struct {
	Title        string `json:"title"`
	ExternalPath string `json:"externalPath"`
}

// workdayListingRequest is the POST body for the Workday jobs endpoint.
type workdayListingRequest struct {
	AppliedFacets map[string]any `json:"appliedFacets"`
	Limit         int            `json:"limit"`
	Offset        int            `json:"offset"`
	SearchText    string         `json:"searchText"`
}

// Workday lists the postings of a Workday career site. baseURL is the CXS
// API root, e.g. https://acme.wd5.myworkdayjobs.com/wday/cxs/acme/External.
type Workday struct {
	name    string
	baseURL string
	client  *http.Client
}

// NewWorkday creates a source for the Workday site at baseURL.
func NewWorkday(name, baseURL string, client *http.Client) *Workday {
	return &Workday{
		name:    name,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
	}
}

// Name returns the configured source name.
func (w *Workday) Name() string { return w.name }

// Scrape pages through POST /jobs until the reported total is reached.
func (w *Workday) Scrape(ctx context.Context) ([]model.Listing, error) {
	var listings []model.Listing
	total := 0

	for page := 0; page < workdayMaxPages; page++ {
		offset := page * workdayPageSize
		resp, err := w.fetchPage(ctx, offset)
		if err != nil {
			return nil, err
		}
		// Workday only reports the total on the first page.
		if resp.Total > 0 {
			total = resp.Total
		}
		for _, p := range resp.JobPostings {
			listings = appendListing(listings, p.Title, w.publicURL(p.ExternalPath))
		}

		if len(resp.JobPostings) == 0 || offset+workdayPageSize >= total {
			break
		}
	}
	return listings, nil
}

func (w *Workday) fetchPage(ctx context.Context, offset int) (*workdayListingResponse, error) {
	what := "workday listing fetch for " + w.name

	body, err := json.Marshal(workdayListingRequest{
		AppliedFacets: map[string]any{},
		Limit:         workdayPageSize,
		Offset:        offset,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", what, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.baseURL+"/jobs", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", what, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := w.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", what, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, statusError(resp, what)
	}

	var out workdayListingResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("%s: %w", what, err)
	}
	return &out, nil
}

// publicURL maps an externalPath to the candidate-facing page. The CXS root
// /wday/cxs/{tenant}/{site} is served publicly as /{site}.
func (w *Workday) publicURL(externalPath string) string {
	if externalPath == "" {
		return ""
	}
	u, err := url.Parse(w.baseURL)
	if err != nil {
		return w.baseURL + externalPath
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) == 4 && parts[0] == "wday" && parts[1] == "cxs" {
		u.Path = "/" + parts[3]
	}
	return strings.TrimRight(u.String(), "/") + externalPath
}
