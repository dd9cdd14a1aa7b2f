package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-pkgz/repeater/v2"
	_ "modernc.org/sqlite"

	"github.com/amishk599/jobspot/internal/model"
)

const schema = `
CREATE TABLE IF NOT EXISTS settings (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS keywords (
	keyword TEXT PRIMARY KEY
);
CREATE TABLE IF NOT EXISTS known_listings (
	title TEXT NOT NULL,
	link  TEXT NOT NULL,
	PRIMARY KEY (title, link)
);`

const (
	keyToken         = "token"
	keyGuildIDs      = "guild_ids"
	keyChannelIDs    = "channel_ids"
	keyCheckInterval = "check_interval_s"
	keyColor         = "color"
)

// SQLiteBackend keeps the state in a SQLite database. A save replaces every
// table inside one transaction.
type SQLiteBackend struct {
	db *sql.DB
}

// NewSQLiteBackend opens (or creates) the database at dbPath and ensures the
// schema exists.
func NewSQLiteBackend(dbPath string) (*SQLiteBackend, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}
	// Single writer; also keeps ":memory:" databases on one connection.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging sqlite db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return &SQLiteBackend{db: db}, nil
}

// Load reads the state. An empty settings table yields ErrNotExist.
func (b *SQLiteBackend) Load(ctx context.Context) (*State, error) {
	settings, err := b.loadSettings(ctx)
	if err != nil {
		return nil, err
	}
	if len(settings) == 0 {
		return nil, ErrNotExist
	}

	st := &State{
		Token:    settings[keyToken],
		Color:    settings[keyColor],
		Keywords: make(map[string]struct{}),
		Known:    make(model.ListingSet),
	}
	if st.CheckIntervalS, err = strconv.Atoi(settings[keyCheckInterval]); err != nil {
		return nil, fmt.Errorf("parse %s: %w", keyCheckInterval, err)
	}
	if err := json.Unmarshal([]byte(settings[keyGuildIDs]), &st.GuildIDs); err != nil {
		return nil, fmt.Errorf("parse %s: %w", keyGuildIDs, err)
	}
	if err := json.Unmarshal([]byte(settings[keyChannelIDs]), &st.ChannelIDs); err != nil {
		return nil, fmt.Errorf("parse %s: %w", keyChannelIDs, err)
	}

	rows, err := b.db.QueryContext(ctx, "SELECT keyword FROM keywords")
	if err != nil {
		return nil, fmt.Errorf("loading keywords: %w", err)
	}
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scanning keyword: %w", err)
		}
		st.Keywords[k] = struct{}{}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("loading keywords: %w", err)
	}

	rows, err = b.db.QueryContext(ctx, "SELECT title, link FROM known_listings")
	if err != nil {
		return nil, fmt.Errorf("loading known listings: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var l model.Listing
		if err := rows.Scan(&l.Title, &l.Link); err != nil {
			return nil, fmt.Errorf("scanning known listing: %w", err)
		}
		st.Known.Add(l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("loading known listings: %w", err)
	}
	return st, nil
}

func (b *SQLiteBackend) loadSettings(ctx context.Context) (map[string]string, error) {
	rows, err := b.db.QueryContext(ctx, "SELECT key, value FROM settings")
	if err != nil {
		return nil, fmt.Errorf("loading settings: %w", err)
	}
	defer rows.Close()

	settings := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("scanning setting: %w", err)
		}
		settings[k] = v
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("loading settings: %w", err)
	}
	return settings, nil
}

// Save replaces the stored state with st in a single transaction. Busy or
// locked databases are retried with backoff.
func (b *SQLiteBackend) Save(ctx context.Context, st *State) error {
	guilds, err := json.Marshal(nonNil(st.GuildIDs))
	if err != nil {
		return fmt.Errorf("encode %s: %w", keyGuildIDs, err)
	}
	channels, err := json.Marshal(nonNil(st.ChannelIDs))
	if err != nil {
		return fmt.Errorf("encode %s: %w", keyChannelIDs, err)
	}
	settings := [][2]string{
		{keyToken, st.Token},
		{keyGuildIDs, string(guilds)},
		{keyChannelIDs, string(channels)},
		{keyCheckInterval, strconv.Itoa(st.CheckIntervalS)},
		{keyColor, st.Color},
	}

	retrier := repeater.NewBackoff(5, 50*time.Millisecond, repeater.WithMaxDelay(2*time.Second))
	return retrier.Do(ctx, func() error {
		err := b.replaceAll(ctx, settings, st)
		if err == nil || isLockError(err) {
			return err
		}
		return &criticalError{err: err}
	}, errCritical)
}

func (b *SQLiteBackend) replaceAll(ctx context.Context, settings [][2]string, st *State) (err error) {
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for _, table := range []string{"settings", "keywords", "known_listings"} {
		if _, err = tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clearing %s: %w", table, err)
		}
	}
	for _, kv := range settings {
		if _, err = tx.ExecContext(ctx, "INSERT INTO settings (key, value) VALUES (?, ?)", kv[0], kv[1]); err != nil {
			return fmt.Errorf("writing setting %s: %w", kv[0], err)
		}
	}
	for _, k := range st.sortedKeywords() {
		if _, err = tx.ExecContext(ctx, "INSERT INTO keywords (keyword) VALUES (?)", k); err != nil {
			return fmt.Errorf("writing keyword %q: %w", k, err)
		}
	}
	for l := range st.Known {
		if _, err = tx.ExecContext(ctx, "INSERT INTO known_listings (title, link) VALUES (?, ?)", l.Title, l.Link); err != nil {
			return fmt.Errorf("writing known listing %q: %w", l.Link, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Close closes the underlying database connection.
func (b *SQLiteBackend) Close() error {
	return b.db.Close()
}

// errCritical stops the save retrier.
var errCritical = errors.New("critical sqlite error")

// criticalError marks a save failure that is not worth retrying.
type criticalError struct {
	err error
}

func (e *criticalError) Error() string        { return e.err.Error() }
func (e *criticalError) Unwrap() error        { return e.err }
func (e *criticalError) Is(target error) bool { return target == errCritical }

// isLockError reports whether err is a SQLite busy/locked error.
func isLockError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") ||
		strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "database table is locked")
}
