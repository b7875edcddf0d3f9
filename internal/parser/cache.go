package parser

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/dgraph-io/ristretto"

	"github.com/rashee1997/memgraph-mcp/pkg/types"
)

const (
	cacheNumCounters = 1e6
	cacheMaxCost     = 1 << 26 // 64MB of cached parse results
	cacheBufferItems = 64
)

// Cache memoizes parse results. Injected so tests can run with isolated
// or disabled caching instead of sharing module-level state.
type Cache interface {
	Get(key string) (*CachedResult, bool)
	Set(key string, result *CachedResult)
	Clear()
}

// CachedResult bundles both parse outputs for one (file, content) pair
type CachedResult struct {
	Entities []types.ExtractedCodeEntity
	Imports  []types.ExtractedImport
}

// RistrettoCache is the default Cache implementation
type RistrettoCache struct {
	cache *ristretto.Cache
}

// NewRistrettoCache creates a ristretto-backed parse cache
func NewRistrettoCache() (*RistrettoCache, error) {
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: cacheNumCounters,
		MaxCost:     cacheMaxCost,
		BufferItems: cacheBufferItems,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create parse cache: %w", err)
	}
	return &RistrettoCache{cache: cache}, nil
}

// Get returns the cached result for key, if present
func (c *RistrettoCache) Get(key string) (*CachedResult, bool) {
	value, ok := c.cache.Get(key)
	if !ok {
		return nil, false
	}
	result, ok := value.(*CachedResult)
	return result, ok
}

// Set stores the result, costing it by entity/import count
func (c *RistrettoCache) Set(key string, result *CachedResult) {
	cost := int64(1 + len(result.Entities) + len(result.Imports))
	c.cache.Set(key, result, cost)
	c.cache.Wait()
}

// Clear drops every cached entry
func (c *RistrettoCache) Clear() {
	c.cache.Clear()
}

// NoopCache disables memoization
type NoopCache struct{}

func (NoopCache) Get(string) (*CachedResult, bool) { return nil, false }
func (NoopCache) Set(string, *CachedResult)        {}
func (NoopCache) Clear()                           {}

// CachedParser wraps a Registry with content-hash-keyed memoization
type CachedParser struct {
	registry *Registry
	cache    Cache
	opts     Options
}

// NewCachedParser creates a caching front for the registry. A nil cache
// disables memoization.
func NewCachedParser(registry *Registry, cache Cache, opts Options) *CachedParser {
	if cache == nil {
		cache = NoopCache{}
	}
	return &CachedParser{registry: registry, cache: cache, opts: opts}
}

// Supports reports whether any registered parser handles the file
func (p *CachedParser) Supports(filePath string) bool {
	return p.registry.ForFile(filePath) != nil
}

// Language returns the language name for the file, or ""
func (p *CachedParser) Language(filePath string) string {
	lp := p.registry.ForFile(filePath)
	if lp == nil {
		return ""
	}
	return lp.Language()
}

// Parse returns both entities and imports for the file, consulting the
// cache first. The key includes a content hash, not just the path, so
// rapid edits are never served stale results.
func (p *CachedParser) Parse(ctx context.Context, filePath string, content []byte, projectRoot string) (*CachedResult, error) {
	lp := p.registry.ForFile(filePath)
	if lp == nil {
		return nil, parseErr(filePath, fmt.Errorf("no parser for extension"))
	}

	key := cacheKey(filePath, content, projectRoot, p.opts)
	if cached, ok := p.cache.Get(key); ok {
		return cached, nil
	}

	imports, err := lp.ParseImports(ctx, filePath, content)
	if err != nil {
		return nil, err
	}
	entities, err := lp.ParseCodeEntities(ctx, filePath, content, projectRoot, p.opts)
	if err != nil {
		return nil, err
	}

	result := &CachedResult{Entities: entities, Imports: imports}
	p.cache.Set(key, result)
	return result, nil
}

// cacheKey builds the memoization key from every input that affects output
func cacheKey(filePath string, content []byte, projectRoot string, opts Options) string {
	h := sha256.New()
	h.Write([]byte(filePath))
	h.Write([]byte{0})
	h.Write([]byte(projectRoot))
	h.Write([]byte{0})
	fmt.Fprintf(h, "%t:%t", opts.IncludeComplexity, opts.IncludeDecorators)
	h.Write([]byte{0})
	h.Write(content)
	return hex.EncodeToString(h.Sum(nil))
}
