package store

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/amishk599/jobspot/internal/model"
)

// Defaults written on first start.
const (
	DefaultCheckIntervalS = 3600
	DefaultColor          = "0xFFFFFF"
)

// State is the durable aggregate: bot configuration, keyword set and the
// known listing snapshot.
type State struct {
	Token          string
	GuildIDs       []int64
	ChannelIDs     []int64
	CheckIntervalS int
	Color          string
	Keywords       map[string]struct{}
	Known          model.ListingSet
}

// DefaultState returns the state written when no durable record exists.
func DefaultState() *State {
	return &State{
		GuildIDs:       []int64{},
		ChannelIDs:     []int64{},
		CheckIntervalS: DefaultCheckIntervalS,
		Color:          DefaultColor,
		Keywords:       make(map[string]struct{}),
		Known:          make(model.ListingSet),
	}
}

// stateDoc is the on-disk JSON shape.
type stateDoc struct {
	Token          string          `json:"token"`
	GuildIDs       []int64         `json:"guild_ids"`
	ChannelIDs     []int64         `json:"channel_ids"`
	CheckIntervalS int             `json:"check_interval_s"`
	Color          string          `json:"color"`
	Keywords       []string        `json:"keywords"`
	KnownListings  []model.Listing `json:"known_listings"`
}

func (st *State) sortedKeywords() []string {
	out := make([]string, 0, len(st.Keywords))
	for k := range st.Keywords {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func encodeState(st *State) ([]byte, error) {
	doc := stateDoc{
		Token:          st.Token,
		GuildIDs:       nonNil(st.GuildIDs),
		ChannelIDs:     nonNil(st.ChannelIDs),
		CheckIntervalS: st.CheckIntervalS,
		Color:          st.Color,
		Keywords:       st.sortedKeywords(),
		KnownListings:  st.Known.Sorted(),
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode state: %w", err)
	}
	return append(data, '\n'), nil
}

func decodeState(data []byte) (*State, error) {
	var doc stateDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode state: %w", err)
	}
	st := &State{
		Token:          doc.Token,
		GuildIDs:       nonNil(doc.GuildIDs),
		ChannelIDs:     nonNil(doc.ChannelIDs),
		CheckIntervalS: doc.CheckIntervalS,
		Color:          doc.Color,
		Keywords:       make(map[string]struct{}, len(doc.Keywords)),
		Known:          model.NewListingSet(doc.KnownListings...),
	}
	for _, k := range doc.Keywords {
		st.Keywords[k] = struct{}{}
	}
	return st, nil
}

// normalize enforces the invariants a hand-edited record may violate.
func (st *State) normalize() error {
	if st.CheckIntervalS < 1 {
		return fmt.Errorf("check_interval_s must be a positive integer, got %d", st.CheckIntervalS)
	}
	if st.GuildIDs == nil {
		st.GuildIDs = []int64{}
	}
	if st.ChannelIDs == nil {
		st.ChannelIDs = []int64{}
	}
	if st.Known == nil {
		st.Known = make(model.ListingSet)
	}
	folded := make(map[string]struct{}, len(st.Keywords))
	for k := range st.Keywords {
		if k = foldKeyword(k); k != "" {
			folded[k] = struct{}{}
		}
	}
	st.Keywords = folded
	return nil
}

func foldKeyword(k string) string {
	return strings.ToLower(strings.TrimSpace(k))
}

func nonNil(ids []int64) []int64 {
	if ids == nil {
		return []int64{}
	}
	return ids
}
