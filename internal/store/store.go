package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/amishk599/jobspot/internal/model"
)

var (
	// ErrNotExist is returned by a Backend when no durable record exists yet.
	ErrNotExist = errors.New("state does not exist")

	// ErrBootstrapped is returned by Open after it wrote a default record.
	// The operator has to fill in the token and restart.
	ErrBootstrapped = errors.New("created default state, configure the token and restart")

	// ErrEmptyKeyword is returned when a keyword is blank after trimming.
	ErrEmptyKeyword = errors.New("keyword is empty")
)

// Backend reads and writes the whole State.
type Backend interface {
	Load(ctx context.Context) (*State, error)
	Save(ctx context.Context, st *State) error
	Close() error
}

// Store owns the single live State of the process. Every mutation flushes
// the entire state through the backend before returning.
//
// Store does no locking of its own: callers serialize access, which the
// scheduler does by running every check and keyword edit on one worker.
type Store struct {
	backend Backend
	state   *State
	logger  *slog.Logger
}

// Open loads the state from backend. When no record exists it persists the
// defaults and returns ErrBootstrapped.
func Open(ctx context.Context, backend Backend, logger *slog.Logger) (*Store, error) {
	st, err := backend.Load(ctx)
	if errors.Is(err, ErrNotExist) {
		if err := backend.Save(ctx, DefaultState()); err != nil {
			return nil, fmt.Errorf("writing default state: %w", err)
		}
		logger.Warn("no stored state found, wrote defaults")
		return nil, ErrBootstrapped
	}
	if err != nil {
		return nil, fmt.Errorf("loading state: %w", err)
	}
	if err := st.normalize(); err != nil {
		return nil, fmt.Errorf("loading state: %w", err)
	}
	return &Store{backend: backend, state: st, logger: logger}, nil
}

// Close releases the backend.
func (s *Store) Close() error {
	return s.backend.Close()
}

func (s *Store) flush(ctx context.Context) error {
	if err := s.backend.Save(ctx, s.state); err != nil {
		return fmt.Errorf("flushing state: %w", err)
	}
	return nil
}

// AddKeyword case-folds k and inserts it. It returns false without writing
// if the keyword is already present.
func (s *Store) AddKeyword(ctx context.Context, k string) (bool, error) {
	k = foldKeyword(k)
	if k == "" {
		return false, ErrEmptyKeyword
	}
	if _, ok := s.state.Keywords[k]; ok {
		return false, nil
	}

	s.state.Keywords[k] = struct{}{}
	if err := s.flush(ctx); err != nil {
		delete(s.state.Keywords, k)
		return false, err
	}
	return true, nil
}

// RemoveKeyword case-folds k and removes it. It returns false without
// writing if the keyword is absent.
func (s *Store) RemoveKeyword(ctx context.Context, k string) (bool, error) {
	k = foldKeyword(k)
	if _, ok := s.state.Keywords[k]; !ok {
		return false, nil
	}

	delete(s.state.Keywords, k)
	if err := s.flush(ctx); err != nil {
		s.state.Keywords[k] = struct{}{}
		return false, err
	}
	return true, nil
}

// Keywords returns the keyword set, sorted.
func (s *Store) Keywords() []string {
	return s.state.sortedKeywords()
}

// KnownListings returns a copy of the last full snapshot.
func (s *Store) KnownListings() model.ListingSet {
	return s.state.Known.Clone()
}

// SetKnownListings replaces the known snapshot and flushes.
func (s *Store) SetKnownListings(ctx context.Context, listings model.ListingSet) error {
	prev := s.state.Known
	s.state.Known = listings.Clone()
	if err := s.flush(ctx); err != nil {
		s.state.Known = prev
		return err
	}
	return nil
}

// Token returns the chat bot access token.
func (s *Store) Token() string {
	return s.state.Token
}

// GuildIDs returns the guilds (chats) allowed to issue commands.
func (s *Store) GuildIDs() []int64 {
	return slices.Clone(s.state.GuildIDs)
}

// ChannelIDs returns the channels notifications are sent to.
func (s *Store) ChannelIDs() []int64 {
	return slices.Clone(s.state.ChannelIDs)
}

// CheckInterval returns the configured interval between scheduled checks.
func (s *Store) CheckInterval() time.Duration {
	return time.Duration(s.state.CheckIntervalS) * time.Second
}

// AccentColor parses the stored hex color. An invalid value is logged and
// replaced with white.
func (s *Store) AccentColor() int {
	c, err := ParseColor(s.state.Color)
	if err != nil {
		s.logger.Warn("invalid accent color, using white", "color", s.state.Color, "error", err)
		return 0xFFFFFF
	}
	return c
}

// ParseColor parses a 24-bit hex color written as "0xRRGGBB", "#RRGGBB" or
// "RRGGBB".
func ParseColor(raw string) (int, error) {
	v := strings.TrimSpace(raw)
	switch {
	case strings.HasPrefix(v, "0x"), strings.HasPrefix(v, "0X"):
		v = v[2:]
	case strings.HasPrefix(v, "#"):
		v = v[1:]
	}
	n, err := strconv.ParseUint(v, 16, 32)
	if err != nil {
		return 0, fmt.Errorf("parse color %q: %w", raw, err)
	}
	if n > 0xFFFFFF {
		return 0, fmt.Errorf("color %q exceeds 24 bits", raw)
	}
	return int(n), nil
}
