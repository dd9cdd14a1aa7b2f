package filter

import (
	"strings"

	"github.com/amishk599/jobspot/internal/model"
)

// Keywords keeps the listings whose title contains at least one keyword
// (substring, not whole word). Keywords are expected to be lowercase already;
// only the title side is folded here. An empty keyword list passes every
// listing through unchanged.
func Keywords(listings model.ListingSet, keywords []string) model.ListingSet {
	if len(keywords) == 0 {
		return listings
	}

	matched := make(model.ListingSet)
	for l := range listings {
		if Match(l.Title, keywords) {
			matched.Add(l)
		}
	}
	return matched
}

// Match reports whether title contains any of the lowercase keywords.
func Match(title string, keywords []string) bool {
	titleLower := strings.ToLower(title)
	for _, kw := range keywords {
		if strings.Contains(titleLower, kw) {
			return true
		}
	}
	return false
}
