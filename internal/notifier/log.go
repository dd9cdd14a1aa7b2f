package notifier

import (
	"context"
	"log/slog"

	"github.com/amishk599/jobspot/internal/model"
)

// Ensure LogNotifier implements model.Notifier.
var _ model.Notifier = (*LogNotifier)(nil)

// LogNotifier writes new listings to the given logger as structured messages.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier returns a notifier that logs each listing via slog.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Notify logs each listing. Returns nil (stdout logging does not fail).
func (n *LogNotifier) Notify(_ context.Context, b model.Batch) error {
	for _, l := range b.Listings {
		n.logger.Info("new job", "title", l.Title, "link", l.Link, "found_at", b.FoundAt.Format("2006-01-02T15:04:05Z07:00"))
	}
	return nil
}
