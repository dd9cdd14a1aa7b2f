package notifier

import (
	"fmt"
	"html"
	"strings"

	"github.com/amishk599/jobspot/internal/model"
)

// Title heads every notification.
const Title = "NEW JOBS FOUND"

// telegramLimit is the maximum length of a Telegram message text.
const telegramLimit = 4096

// FormatText renders a batch as plain text: the title, then one line per
// listing.
func FormatText(b model.Batch) string {
	var sb strings.Builder
	sb.WriteString(Title)
	sb.WriteString("\n")
	for _, l := range b.Listings {
		fmt.Fprintf(&sb, "\n- %s (%s)", l.Title, l.Link)
	}
	return sb.String()
}

// formatTelegram renders a batch as Telegram HTML, split into messages that
// fit the API limit. Only the first message carries the title. Listings too
// long for a single message are shortened.
func formatTelegram(b model.Batch) []string {
	header := "<b>" + Title + "</b>\n"
	footer := "\n<i>" + b.FoundAt.UTC().Format("2006-01-02 15:04 MST") + "</i>"
	budget := telegramLimit - len(header) - len(footer)

	var msgs []string
	var sb strings.Builder
	sb.WriteString(header)
	lines := 0
	for _, l := range b.Listings {
		line := telegramLine(l, budget)
		if lines > 0 && sb.Len()+len(line)+len(footer) > telegramLimit {
			msgs = append(msgs, sb.String())
			sb.Reset()
			lines = 0
		}
		sb.WriteString(line)
		lines++
	}
	sb.WriteString(footer)
	return append(msgs, sb.String())
}

const ellipsis = "…"

// telegramLine renders one listing in at most budget bytes. The title is
// cut first; a link that cannot fit is dropped.
func telegramLine(l model.Listing, budget int) string {
	link := html.EscapeString(l.Link)
	title := html.EscapeString(l.Title)
	line := fmt.Sprintf("\n- <a href=\"%s\">%s</a>", link, title)
	if len(line) <= budget {
		return line
	}
	overhead := len(line) - len(title)
	if overhead+len(ellipsis) < budget {
		return fmt.Sprintf("\n- <a href=\"%s\">%s</a>", link, escapeTruncated(l.Title, budget-overhead))
	}
	return "\n- " + escapeTruncated(l.Title, budget-len("\n- "))
}

// escapeTruncated HTML-escapes s, cutting it on a rune boundary so the
// result plus an ellipsis fits in limit bytes.
func escapeTruncated(s string, limit int) string {
	var sb strings.Builder
	for _, r := range s {
		esc := html.EscapeString(string(r))
		if sb.Len()+len(esc)+len(ellipsis) > limit {
			sb.WriteString(ellipsis)
			return sb.String()
		}
		sb.WriteString(esc)
	}
	return sb.String()
}

// hexColor renders a 24-bit color as "#RRGGBB".
func hexColor(c int) string {
	return fmt.Sprintf("#%06X", c&0xFFFFFF)
}
