package core

import (
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/mitchellh/hashstructure/v2"

	"github.com/foggy-projects/foggy-data-mcp-bridge-sub003/core/internal/expr"
)

// exprCache holds parsed expression trees by source text. Lowering is not
// cached, every compilation checks the tree against the allow-list again.
type exprCache struct {
	cache *lru.TwoQueueCache[string, expr.Node]
}

type resultCache struct {
	cache *lru.TwoQueueCache[uint64, *Result]
}

// initCache initializes the caches
func (e *Engine) initCache() (err error) {
	if e.exprs.cache, err = lru.New2Q[string, expr.Node](e.conf.exprCacheSize()); err != nil {
		return
	}
	if e.conf.EnableCache {
		e.results.cache, err = lru.New2Q[uint64, *Result](e.conf.cacheSize())
	}
	return
}

// Parse returns the cached tree of src, parsing it on a miss
func (c exprCache) Parse(src string) (expr.Node, error) {
	if n, ok := c.cache.Get(src); ok {
		return n, nil
	}
	n, err := expr.Parse(src)
	if err != nil {
		return nil, err
	}
	c.cache.Add(src, n)
	return n, nil
}

// Get returns the cached result of req
func (c resultCache) Get(req *QueryRequest) (res *Result, key uint64, fromCache bool) {
	if c.cache == nil {
		return
	}
	key, err := requestKey(req)
	if err != nil {
		return
	}
	res, fromCache = c.cache.Get(key)
	return
}

// Set stores res under key. A zero key is never stored.
func (c resultCache) Set(key uint64, res *Result) {
	if c.cache == nil || key == 0 {
		return
	}
	c.cache.Add(key, res)
}

func requestKey(req *QueryRequest) (uint64, error) {
	return hashstructure.Hash(req, hashstructure.FormatV2, nil)
}
