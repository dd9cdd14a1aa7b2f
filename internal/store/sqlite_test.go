package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/amishk599/jobspot/internal/model"
)

func newTestSQLite(t *testing.T) *SQLiteBackend {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	b, err := NewSQLiteBackend(dbPath)
	if err != nil {
		t.Fatalf("NewSQLiteBackend: %v", err)
	}
	t.Cleanup(func() { b.Close() })
	return b
}

func TestSQLiteBackend_EmptyIsNotExist(t *testing.T) {
	b := newTestSQLite(t)
	if _, err := b.Load(context.Background()); !errors.Is(err, ErrNotExist) {
		t.Fatalf("expected ErrNotExist, got %v", err)
	}
}

func TestSQLiteBackend_SaveReplacesState(t *testing.T) {
	b := newTestSQLite(t)
	ctx := context.Background()

	first := DefaultState()
	first.Keywords["go"] = struct{}{}
	first.Known.Add(model.Listing{Title: "Old", Link: "https://old"})
	if err := b.Save(ctx, first); err != nil {
		t.Fatalf("first Save: %v", err)
	}

	second := DefaultState()
	second.Token = "tok"
	second.GuildIDs = []int64{-100123}
	second.CheckIntervalS = 60
	second.Keywords["rust"] = struct{}{}
	second.Known.Add(model.Listing{Title: "New", Link: "https://new"})
	if err := b.Save(ctx, second); err != nil {
		t.Fatalf("second Save: %v", err)
	}

	got, err := b.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Token != "tok" || got.CheckIntervalS != 60 {
		t.Errorf("settings = %+v", got)
	}
	if diff := cmp.Diff([]int64{-100123}, got.GuildIDs); diff != "" {
		t.Errorf("guild ids (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"rust"}, got.sortedKeywords()); diff != "" {
		t.Errorf("keywords (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]model.Listing{{Title: "New", Link: "https://new"}}, got.Known.Sorted()); diff != "" {
		t.Errorf("known listings (-want +got):\n%s", diff)
	}
}

func TestSQLiteBackend_WithStore(t *testing.T) {
	b := newTestSQLite(t)
	ctx := context.Background()

	if _, err := Open(ctx, b, discardLogger()); !errors.Is(err, ErrBootstrapped) {
		t.Fatalf("expected ErrBootstrapped, got %v", err)
	}
	s := openTestStore(t, b)
	if _, err := s.AddKeyword(ctx, "Intern"); err != nil {
		t.Fatalf("AddKeyword: %v", err)
	}

	reopened := openTestStore(t, b)
	if diff := cmp.Diff([]string{"intern"}, reopened.Keywords()); diff != "" {
		t.Errorf("keywords after reopen (-want +got):\n%s", diff)
	}
}

func TestIsLockError(t *testing.T) {
	if !isLockError(errors.New("database is locked (5) (SQLITE_BUSY)")) {
		t.Error("expected busy error to be a lock error")
	}
	if isLockError(errors.New("no such table: settings")) {
		t.Error("expected schema error not to be a lock error")
	}
	if isLockError(nil) {
		t.Error("nil is not a lock error")
	}
}

func TestCriticalError_StopsRetrier(t *testing.T) {
	inner := errors.New("no such table: settings")
	err := error(&criticalError{err: inner})
	if !errors.Is(err, errCritical) {
		t.Error("criticalError should match errCritical")
	}
	if !errors.Is(err, inner) {
		t.Error("criticalError should unwrap to the cause")
	}
}
