package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/amishk599/jobspot/internal/model"
)

// Ensure SlackNotifier implements model.Notifier.
var _ model.Notifier = (*SlackNotifier)(nil)

// SlackNotifier posts batches to a Slack channel via Incoming Webhooks.
type SlackNotifier struct {
	webhookURL string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewSlackNotifier returns a notifier that posts each batch to Slack.
func NewSlackNotifier(webhookURL string, httpClient *http.Client, logger *slog.Logger) *SlackNotifier {
	return &SlackNotifier{
		webhookURL: webhookURL,
		httpClient: httpClient,
		logger:     logger,
	}
}

// Notify sends the batch as a single attachment colored with the accent
// color. A 429 is retried once after Retry-After.
func (s *SlackNotifier) Notify(ctx context.Context, b model.Batch) error {
	if len(b.Listings) == 0 {
		return nil
	}

	body, err := json.Marshal(buildPayload(b))
	if err != nil {
		return fmt.Errorf("marshal slack payload: %w", err)
	}

	status, retryAfter, err := s.post(ctx, body)
	if err != nil {
		return err
	}
	if status == http.StatusTooManyRequests {
		if retryAfter <= 0 {
			retryAfter = time.Second
		}
		s.logger.Warn("slack rate limited, retrying", "retry_after", retryAfter)
		select {
		case <-ctx.Done():
			return fmt.Errorf("post to slack: %w", ctx.Err())
		case <-time.After(retryAfter):
		}
		if status, _, err = s.post(ctx, body); err != nil {
			return err
		}
	}
	if status != http.StatusOK {
		return fmt.Errorf("slack returned %d", status)
	}

	s.logger.Info("slack message sent", "listings", len(b.Listings))
	return nil
}

func (s *SlackNotifier) post(ctx context.Context, body []byte) (int, time.Duration, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(body))
	if err != nil {
		return 0, 0, fmt.Errorf("post to slack: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return 0, 0, fmt.Errorf("post to slack: %w", err)
	}
	defer resp.Body.Close()

	secs, _ := strconv.Atoi(resp.Header.Get("Retry-After"))
	return resp.StatusCode, time.Duration(secs) * time.Second, nil
}

// Attachment payload types.

type slackPayload struct {
	Text        string            `json:"text"`
	Attachments []slackAttachment `json:"attachments"`
}

type slackAttachment struct {
	Color    string   `json:"color"`
	Title    string   `json:"title"`
	Text     string   `json:"text"`
	Footer   string   `json:"footer,omitempty"`
	Ts       int64    `json:"ts,omitempty"`
	MrkdwnIn []string `json:"mrkdwn_in"`
}

// slackEscape escapes the characters Slack treats as control sequences.
func slackEscape(s string) string {
	return strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;").Replace(s)
}

func buildPayload(b model.Batch) slackPayload {
	lines := make([]string, 0, len(b.Listings))
	for _, l := range b.Listings {
		lines = append(lines, fmt.Sprintf("- <%s|%s>", l.Link, slackEscape(l.Title)))
	}

	att := slackAttachment{
		Color:    hexColor(b.Accent),
		Title:    Title,
		Text:     strings.Join(lines, "\n"),
		Footer:   "jobspot",
		MrkdwnIn: []string{"text"},
	}
	if !b.FoundAt.IsZero() {
		att.Ts = b.FoundAt.Unix()
	}
	return slackPayload{
		Text:        fmt.Sprintf("%d new job(s)", len(b.Listings)),
		Attachments: []slackAttachment{att},
	}
}
