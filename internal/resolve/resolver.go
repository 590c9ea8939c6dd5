// Package resolve maps rescue records onto the species dimension. The match
// chain is the normalized scientific name, then the normalized common name,
// then unmatched. Lookups are read-only and memoized in a Cache the caller
// creates per run.
package resolve

import (
	"context"
	"log"

	"bpmastats/internal/extract"
	"bpmastats/internal/schema"
	"bpmastats/internal/textnorm"
)

// Field is the dimension column a name is matched against.
type Field int

const (
	Scientific Field = iota
	Common
)

// Column is the dim_especies_fauna column for f.
func (f Field) Column() string {
	if f == Common {
		return "nome_popular"
	}
	return "nome_cientifico"
}

func (f Field) String() string {
	if f == Common {
		return "common"
	}
	return "scientific"
}

// Source answers one lookup. name is already normalized: lower case, trimmed
// and with inner whitespace collapsed. ok is false when nothing matches.
type Source interface {
	Lookup(ctx context.Context, field Field, name string) (id string, ok bool, err error)
}

type cacheKey struct {
	field Field
	name  string
}

type cacheEntry struct {
	id string
	ok bool
}

// Cache memoizes lookups for one run. The zero value is not usable; call
// NewCache.
type Cache struct {
	entries map[cacheKey]cacheEntry

	Hits   int
	Misses int
	// Errors counts failed lookups. A failure is cached as unmatched.
	Errors int
}

// NewCache returns an empty cache.
func NewCache() *Cache { return &Cache{entries: make(map[cacheKey]cacheEntry)} }

// Len is the number of memoized lookups.
func (c *Cache) Len() int { return len(c.entries) }

// Resolver walks the match chain against a Source.
type Resolver struct {
	src     Source
	verbose bool
}

// New returns a Resolver over src. verbose logs every unmatched record.
func New(src Source, verbose bool) *Resolver {
	return &Resolver{src: src, verbose: verbose}
}

// Resolve returns the species id for a record's names. A lookup error is
// logged and treated as unmatched; it never aborts the run.
func (r *Resolver) Resolve(ctx context.Context, cache *Cache, sci, common string) (string, bool) {
	for _, step := range []struct {
		field Field
		name  string
	}{{Scientific, sci}, {Common, common}} {
		key := textnorm.NameKey(step.name)
		if key == "" {
			continue
		}
		if id, ok := r.lookup(ctx, cache, step.field, key); ok {
			return id, true
		}
	}
	if r.verbose {
		log.Printf("resolver: unmatched scientific=%q common=%q", sci, common)
	}
	return "", false
}

func (r *Resolver) lookup(ctx context.Context, cache *Cache, field Field, key string) (string, bool) {
	ck := cacheKey{field: field, name: key}
	if e, hit := cache.entries[ck]; hit {
		cache.Hits++
		return e.id, e.ok
	}
	cache.Misses++

	id, ok, err := r.src.Lookup(ctx, field, key)
	if err != nil {
		cache.Errors++
		log.Printf("resolver: lookup %s %q: %v", field, key, err)
		id, ok = "", false
	}
	cache.entries[ck] = cacheEntry{id: id, ok: ok}
	return id, ok
}

// Ref adapts r to schema.SpeciesRef: the resolved id, or nil when unmatched.
func (r *Resolver) Ref(ctx context.Context, cache *Cache) schema.SpeciesRef {
	return func(rec extract.RescueRecord) any {
		if id, ok := r.Resolve(ctx, cache, rec.ScientificName, rec.CommonName); ok {
			return id
		}
		return nil
	}
}
