// Package modcache provides an idempotent, content-addressed cache in
// front of an eval.Resolver. It never reads a filesystem or network itself
// (spec §1: the concrete module loader is a host-supplied collaborator);
// it only memoizes whatever Resolver it wraps, keyed by a blake2b digest of
// the resolved path, with singleflight collapsing concurrent duplicate
// resolves into one underlying call the way the teacher's fetch layer
// collapses duplicate concurrent downloads.
package modcache

import (
	"encoding/hex"
	"sync"

	"github.com/fxamacker/cbor/v2"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/sync/singleflight"

	"github.com/mqscript/mqscript/ast"
	"github.com/mqscript/mqscript/eval"
)

// entry is the CBOR-serializable record stored per cache key: only the
// path digest. Programs hold ast.Node interface values that do not
// round-trip through CBOR, so the resolved *ast.Program is kept in a
// separate in-memory map, and Snapshot serializes the entries alone.
type entry struct {
	Digest string `cbor:"digest"`
}

// Cache wraps a Resolver with a content-addressed, singleflight-deduped
// memoization layer.
type Cache struct {
	mu      sync.RWMutex
	inner   eval.Resolver
	group   singleflight.Group
	entries map[string]entry
	progs   map[string]*ast.Program
}

// New wraps inner with a fresh, empty Cache.
func New(inner eval.Resolver) *Cache {
	return &Cache{
		inner:   inner,
		entries: map[string]entry{},
		progs:   map[string]*ast.Program{},
	}
}

// Resolve satisfies eval.Resolver, serving a memoized *ast.Program when the
// digest for path has already been computed, and otherwise delegating to
// the wrapped Resolver exactly once even under concurrent callers.
func (c *Cache) Resolve(path string) (*ast.Program, error) {
	digest := digestOf(path)

	c.mu.RLock()
	if prog, ok := c.progs[digest]; ok {
		c.mu.RUnlock()
		return prog, nil
	}
	c.mu.RUnlock()

	result, err, _ := c.group.Do(digest, func() (interface{}, error) {
		prog, err := c.inner.Resolve(path)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.entries[digest] = entry{Digest: digest}
		c.progs[digest] = prog
		c.mu.Unlock()
		return prog, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*ast.Program), nil
}

// Invalidate drops any cached resolution for path, forcing the next
// Resolve to hit the wrapped Resolver again.
func (c *Cache) Invalidate(path string) {
	digest := digestOf(path)
	c.mu.Lock()
	delete(c.entries, digest)
	delete(c.progs, digest)
	c.mu.Unlock()
}

// Snapshot returns the CBOR encoding of the cache's current digest ledger,
// suitable for a host to persist and compare across runs.
func (c *Cache) Snapshot() ([]byte, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	list := make([]entry, 0, len(c.entries))
	for _, e := range c.entries {
		list = append(list, e)
	}
	return cbor.Marshal(list)
}

func digestOf(path string) string {
	sum := blake2b.Sum256([]byte(path))
	return hex.EncodeToString(sum[:])
}
