package notifier

import (
	"context"
	"time"

	"github.com/amishk599/jobspot/internal/model"
)

// SendTestMessage sends a sample batch to verify the integration works.
func SendTestMessage(ctx context.Context, n model.Notifier, channels []int64, accent int) error {
	b := model.Batch{
		Listings: []model.Listing{
			{Title: "jobspot test notification", Link: "https://www.ycombinator.com/jobs"},
		},
		Channels: channels,
		Accent:   accent,
		FoundAt:  time.Now(),
	}
	return n.Notify(ctx, b)
}
