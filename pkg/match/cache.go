package match

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// defaultCacheSize bounds the number of distinct pattern strings kept
// compiled at once. KEYS is typically called with a handful of recurring
// patterns, so this is generous without being unbounded.
const defaultCacheSize = 256

// Cache compiles glob patterns once and reuses the compiled form for
// repeated calls with the same pattern string, so a KEYS scan never
// recompiles inside its per-key loop (§9).
type Cache struct {
	compiled *lru.Cache[string, *Pattern]
}

// NewCache creates a pattern cache bounded at defaultCacheSize entries.
func NewCache() *Cache {
	c, err := lru.New[string, *Pattern](defaultCacheSize)
	if err != nil {
		// Only returns an error for a non-positive size, which never
		// happens with the constant above.
		panic(err)
	}
	return &Cache{compiled: c}
}

// Get returns the compiled Pattern for pattern, compiling and caching it on
// first use.
func (c *Cache) Get(pattern string) *Pattern {
	if p, ok := c.compiled.Get(pattern); ok {
		return p
	}
	p := Compile(pattern)
	c.compiled.Add(pattern, p)
	return p
}
