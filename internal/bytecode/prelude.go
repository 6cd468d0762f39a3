package bytecode

import (
	"sync"

	"golang.org/x/sync/singleflight"
)

// CompileFunc compiles source text to a Module. Supplied by the caller of
// Get, to keep this package decoupled from internal/cst/internal/ir.
type CompileFunc func(source string) (*Module, error)

// PreludeCache memoizes the compiled prelude/Base module so that concurrent
// REPL sessions or batch compiles pay the compilation cost once (spec §3:
// "content-addressed prelude cache", grounded on the embedded_cache module
// of the original implementation, generalized here to an in-process cache
// since Go has no include_bytes!-style build-time embed requirement).
type PreludeCache struct {
	group singleflight.Group
	mu    sync.RWMutex
	bySrc map[string]*Module
}

// NewPreludeCache returns an empty cache.
func NewPreludeCache() *PreludeCache {
	return &PreludeCache{bySrc: make(map[string]*Module)}
}

// Get returns the cached module for source, compiling it at most once even
// under concurrent callers requesting the same source simultaneously.
func (c *PreludeCache) Get(source string, compile CompileFunc) (*Module, error) {
	c.mu.RLock()
	if m, ok := c.bySrc[source]; ok {
		c.mu.RUnlock()
		return m, nil
	}
	c.mu.RUnlock()

	v, err, _ := c.group.Do(source, func() (any, error) {
		m, err := compile(source)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.bySrc[source] = m
		c.mu.Unlock()
		return m, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Module), nil
}

// Invalidate drops a cached entry, e.g. after an `include` target file
// changes underneath a long-lived REPL session.
func (c *PreludeCache) Invalidate(source string) {
	c.mu.Lock()
	delete(c.bySrc, source)
	c.mu.Unlock()
}
