// Package store persists the small per-client state of the dashboards: the
// admin notes and the admin view counter.
package store

import (
	"context"
	"strconv"
	"strings"

	"github.com/m-mizutani/goerr/v2"
)

// Keys used by the dashboards.
const (
	KeyNotes = "adminNotes"
	KeyViews = "views"
)

// KV is a key-value store partitioned by namespace. Each client gets its
// own namespace.
type KV interface {
	Get(ctx context.Context, ns, key string) (string, bool, error)
	Set(ctx context.Context, ns, key, value string) error
	// Incr adds one to the integer stored at key and returns the result. A
	// missing or non-numeric value counts as zero.
	Incr(ctx context.Context, ns, key string) (int64, error)
	// Clear removes every key of ns.
	Clear(ctx context.Context, ns string) error
	Close() error
}

// Backend names accepted by Open.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
)

// Open returns the KV for backend. path is only used by the sqlite backend.
func Open(backend, path string) (KV, error) {
	switch backend {
	case BackendMemory, "":
		return NewMemory(), nil
	case BackendSQLite:
		kv, err := NewSQLite(path)
		if err != nil {
			return nil, err
		}
		return kv, nil
	}
	return nil, goerr.New("unknown store backend", goerr.V("backend", backend))
}

// Notes returns the saved admin notes, or "" when none were saved.
func Notes(ctx context.Context, kv KV, ns string) (string, error) {
	v, _, err := kv.Get(ctx, ns, KeyNotes)
	return v, err
}

func SaveNotes(ctx context.Context, kv KV, ns, notes string) error {
	return kv.Set(ctx, ns, KeyNotes, notes)
}

// IncrementViews counts one admin dashboard load.
func IncrementViews(ctx context.Context, kv KV, ns string) (int64, error) {
	return kv.Incr(ctx, ns, KeyViews)
}

// Views returns the current admin view counter.
func Views(ctx context.Context, kv KV, ns string) (int64, error) {
	v, _, err := kv.Get(ctx, ns, KeyViews)
	if err != nil {
		return 0, err
	}
	return parseCount(v), nil
}

func parseCount(v string) int64 {
	n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	if err != nil {
		return 0
	}
	return n
}
