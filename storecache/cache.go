// Package storecache implements the variable-aware query cache (§6.3):
// a cache keyed not just by query shape but by the resolved variable
// bindings a particular session/role/query supplied, backed by
// Ristretto (github.com/dgraph-io/ristretto), grounded on the
// teacher's use of an in-process cost-aware cache ahead of its storage
// layer.
package storecache

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dgraph-io/ristretto"

	"github.com/Adebesin-Cell/triplit/query"
	"github.com/Adebesin-Cell/triplit/triple"
)

// Cache is the minimal get/set/invalidate contract the engine consumes,
// kept independent of any concrete cached value type so the engine
// package may cache whatever shape of result it likes without this
// package importing it back.
type Cache interface {
	Get(key string) (interface{}, bool)
	Set(key string, value interface{}, cost int64) bool
	Del(key string)
}

// RistrettoCache adapts *ristretto.Cache to Cache.
type RistrettoCache struct {
	inner *ristretto.Cache
}

// NewRistrettoCache builds a cache sized for maxCost bytes of admitted
// entries, with ristretto's usual 10x counters-to-items ratio for its
// admission sketch.
func NewRistrettoCache(maxCost int64) (*RistrettoCache, error) {
	c, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: maxCost / 100 * 10,
		MaxCost:     maxCost,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("storecache: failed to build ristretto cache: %w", err)
	}
	return &RistrettoCache{inner: c}, nil
}

func (r *RistrettoCache) Get(key string) (interface{}, bool) { return r.inner.Get(key) }

func (r *RistrettoCache) Set(key string, value interface{}, cost int64) bool {
	return r.inner.Set(key, value, cost)
}

func (r *RistrettoCache) Del(key string) { r.inner.Del(key) }

// Close releases ristretto's background goroutines.
func (r *RistrettoCache) Close() { r.inner.Close() }

// KeyFor builds a cache key that captures both a prepared query's shape
// and the resolved bindings that would make two structurally identical
// queries behave differently: $query vars supplied by the caller, plus
// the session and role scoped values the resolver would have pulled in
// (§4.5, §6.3 "variable-aware"). Two fetches of the same query text by
// two sessions with different $session.org_id values must miss each
// other's cache entry; two fetches by the same session with no
// variables at all must share one.
func KeyFor(q *query.Query, scoped map[string]triple.Value) string {
	var b strings.Builder
	b.WriteString(q.Collection)
	b.WriteByte('|')
	b.WriteString(q.String())
	fmt.Fprintf(&b, " after=%v select=%v", q.After, q.Select)
	aliases := make([]string, 0, len(q.Include))
	for alias := range q.Include {
		aliases = append(aliases, alias)
	}
	sort.Strings(aliases)
	for _, alias := range aliases {
		if inc := q.Include[alias]; inc.Query != nil {
			fmt.Fprintf(&b, " include %s=(%s)", alias, KeyFor(inc.Query, nil))
		}
	}
	b.WriteByte('|')
	writeSortedVars(&b, q.Vars)
	b.WriteByte('|')
	writeSortedVars(&b, scoped)
	return b.String()
}

func writeSortedVars(b *strings.Builder, vars map[string]triple.Value) {
	keys := make([]string, 0, len(vars))
	for k := range vars {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(b, "%s=%v;", k, vars[k])
	}
}
