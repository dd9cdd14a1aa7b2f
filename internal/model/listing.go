package model

import (
	"context"
	"sort"
	"time"
)

// Listing is one open item reported by a source. Two listings are the same
// listing iff both fields match exactly.
type Listing struct {
	Title string `json:"title"`
	Link  string `json:"link"`
}

// ListingSet is a set of listings keyed by identity.
type ListingSet map[Listing]struct{}

// NewListingSet builds a set from the given listings, collapsing duplicates.
func NewListingSet(listings ...Listing) ListingSet {
	s := make(ListingSet, len(listings))
	for _, l := range listings {
		s[l] = struct{}{}
	}
	return s
}

// Add inserts l into the set.
func (s ListingSet) Add(l Listing) {
	s[l] = struct{}{}
}

// Has reports whether l is in the set.
func (s ListingSet) Has(l Listing) bool {
	_, ok := s[l]
	return ok
}

// Len returns the number of listings in the set.
func (s ListingSet) Len() int {
	return len(s)
}

// Union adds every listing of other into s.
func (s ListingSet) Union(other ListingSet) {
	for l := range other {
		s[l] = struct{}{}
	}
}

// Diff returns the listings in s that are not in other.
func (s ListingSet) Diff(other ListingSet) ListingSet {
	out := make(ListingSet)
	for l := range s {
		if !other.Has(l) {
			out[l] = struct{}{}
		}
	}
	return out
}

// Clone returns an independent copy of s.
func (s ListingSet) Clone() ListingSet {
	out := make(ListingSet, len(s))
	for l := range s {
		out[l] = struct{}{}
	}
	return out
}

// Equal reports whether s and other contain exactly the same listings.
func (s ListingSet) Equal(other ListingSet) bool {
	if len(s) != len(other) {
		return false
	}
	for l := range s {
		if !other.Has(l) {
			return false
		}
	}
	return true
}

// Sorted returns the listings ordered by title, then link.
func (s ListingSet) Sorted() []Listing {
	out := make([]Listing, 0, len(s))
	for l := range s {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Title != out[j].Title {
			return out[i].Title < out[j].Title
		}
		return out[i].Link < out[j].Link
	})
	return out
}

// Batch is one hand-off to a notification sink. It carries everything the
// sink needs so nothing else is shared between the check worker and delivery.
type Batch struct {
	Listings []Listing
	Channels []int64 // destination channel/chat ids
	Accent   int     // 24-bit embed accent color
	FoundAt  time.Time
}

// Source lists the currently open listings of one job board.
type Source interface {
	Name() string
	Scrape(ctx context.Context) ([]Listing, error)
}

// Notifier delivers a batch of new listings. It is only called with
// non-empty batches.
type Notifier interface {
	Notify(ctx context.Context, batch Batch) error
}
