package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/amishk599/jobspot/internal/model"
)

const (
	userAgent    = "jobspot/1.0"
	maxBodyBytes = 10 << 20
)

// parseRetryAfter parses the Retry-After header value into a duration.
// Supports seconds format (e.g. "120"). Returns zero if absent or unparseable.
func parseRetryAfter(value string) time.Duration {
	if value == "" {
		return 0
	}
	seconds, err := strconv.Atoi(value)
	if err != nil {
		return 0
	}
	return time.Duration(seconds) * time.Second
}

// statusError converts a non-200 response into a *model.HTTPError.
func statusError(resp *http.Response, what string) error {
	return &model.HTTPError{
		StatusCode: resp.StatusCode,
		RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
		Err:        fmt.Errorf("%s: unexpected status %d", what, resp.StatusCode),
	}
}

// get issues a GET and returns the response when the status is 200. The
// caller closes the body.
func get(ctx context.Context, client *http.Client, url, what string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", what, err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", what, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, statusError(resp, what)
	}
	return resp, nil
}

// getJSON fetches url and decodes the JSON body into out.
func getJSON(ctx context.Context, client *http.Client, url, what string, out any) error {
	resp, err := get(ctx, client, url, what)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(out); err != nil {
		return fmt.Errorf("%s: %w", what, err)
	}
	return nil
}
