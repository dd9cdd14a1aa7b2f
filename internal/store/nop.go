package store

import "context"

// NopBackend loads through the wrapped backend but never writes. Used by
// dry-run checks so a cycle can be observed without moving the known set.
type NopBackend struct {
	inner Backend
}

// NewNopBackend wraps inner.
func NewNopBackend(inner Backend) *NopBackend { return &NopBackend{inner: inner} }

func (b *NopBackend) Load(ctx context.Context) (*State, error) { return b.inner.Load(ctx) }
func (b *NopBackend) Save(_ context.Context, _ *State) error   { return nil }
func (b *NopBackend) Close() error                             { return b.inner.Close() }
