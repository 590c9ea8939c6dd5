// Package storage contains the store-agnostic contracts: a Repository that
// executes rendered SQL, a registry of backends keyed by storage kind, and
// the loader that applies batched statements with per-key failure isolation.
package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Config selects and configures a backend.
type Config struct {
	// Kind is the registered backend name: postgres, sqlite, mssql or mysql.
	Kind string
	DSN  string
}

// Execer runs one rendered statement.
type Execer interface {
	Exec(ctx context.Context, sql string) error
}

// Repository executes rendered SQL against one store.
type Repository interface {
	Execer
	Close()
}

// Factory opens a Repository for cfg.
type Factory func(ctx context.Context, cfg Config) (Repository, error)

var (
	regMu     sync.RWMutex
	factories = map[string]Factory{}
)

// Register installs (or replaces) the factory for kind. Backends call it from
// init.
func Register(kind string, fn Factory) {
	regMu.Lock()
	defer regMu.Unlock()
	factories[kind] = fn
}

// New opens a Repository using the factory registered for cfg.Kind.
func New(ctx context.Context, cfg Config) (Repository, error) {
	regMu.RLock()
	fn, ok := factories[cfg.Kind]
	regMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unsupported storage.kind=%s", cfg.Kind)
	}
	return fn(ctx, cfg)
}

// ListKinds returns a sorted snapshot of the registered kinds.
func ListKinds() []string {
	regMu.RLock()
	defer regMu.RUnlock()
	out := make([]string, 0, len(factories))
	for k := range factories {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// EnsureSchema executes the CREATE statements in order.
func EnsureSchema(ctx context.Context, repo Execer, stmts []string) error {
	for i, s := range stmts {
		if err := repo.Exec(ctx, s); err != nil {
			return fmt.Errorf("schema statement %d: %w", i+1, err)
		}
	}
	return nil
}
