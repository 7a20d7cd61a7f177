package cache

import (
	"container/list"
	"context"
	"strconv"
	"sync"
	"time"

	"qarag/internal/domain"
	"qarag/internal/port"
)

// QueryCache is an LRU of retrieval results keyed by pivot-language
// query and k. Entries expire after ttl and are dropped wholesale when
// the index changes.
type QueryCache struct {
	mu      sync.Mutex
	entries map[string]*list.Element
	order   *list.List
	maxSize int
	ttl     time.Duration
	gen     uint64
	now     func() time.Time

	hits, misses uint64
}

type cacheEntry struct {
	key     string
	results []domain.ScoredChunk
	stored  time.Time
	gen     uint64
}

type Stats struct {
	Size   int    `json:"size"`
	Hits   uint64 `json:"hits"`
	Misses uint64 `json:"misses"`
}

func NewQueryCache(maxSize int, ttl time.Duration) *QueryCache {
	if maxSize <= 0 {
		maxSize = 100
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &QueryCache{
		entries: make(map[string]*list.Element),
		order:   list.New(),
		maxSize: maxSize,
		ttl:     ttl,
		now:     time.Now,
	}
}

func cacheKey(query string, k int) string {
	return strconv.Itoa(k) + "\x00" + query
}

func (c *QueryCache) Get(query string, k int) ([]domain.ScoredChunk, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[cacheKey(query, k)]
	if !ok {
		c.misses++
		return nil, false
	}
	entry := el.Value.(*cacheEntry)
	if entry.gen != c.gen || c.now().Sub(entry.stored) > c.ttl {
		c.remove(el)
		c.misses++
		return nil, false
	}

	c.order.MoveToBack(el)
	c.hits++
	return cloneResults(entry.results), true
}

func (c *QueryCache) Put(query string, k int, results []domain.ScoredChunk) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.put(query, k, results)
}

// putIfCurrent stores results only if no invalidation happened since gen
// was read, so results computed against a replaced index are dropped.
func (c *QueryCache) putIfCurrent(gen uint64, query string, k int, results []domain.ScoredChunk) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		return
	}
	c.put(query, k, results)
}

func (c *QueryCache) generation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen
}

func (c *QueryCache) put(query string, k int, results []domain.ScoredChunk) {
	key := cacheKey(query, k)
	entry := &cacheEntry{key: key, results: cloneResults(results), stored: c.now(), gen: c.gen}

	if el, ok := c.entries[key]; ok {
		el.Value = entry
		c.order.MoveToBack(el)
		return
	}

	for c.order.Len() >= c.maxSize {
		c.remove(c.order.Front())
	}
	c.entries[key] = c.order.PushBack(entry)
}

// Invalidate drops every entry. Called after the index is rebuilt.
func (c *QueryCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*list.Element)
	c.order.Init()
	c.gen++
}

func (c *QueryCache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{Size: c.order.Len(), Hits: c.hits, Misses: c.misses}
}

func (c *QueryCache) remove(el *list.Element) {
	entry := c.order.Remove(el).(*cacheEntry)
	delete(c.entries, entry.key)
}

func cloneResults(in []domain.ScoredChunk) []domain.ScoredChunk {
	if in == nil {
		return nil
	}
	out := make([]domain.ScoredChunk, len(in))
	copy(out, in)
	return out
}

// CachedRetriever serves repeated queries from a QueryCache.
// Errors are never cached.
type CachedRetriever struct {
	retriever port.Retriever
	cache     *QueryCache
}

func NewCachedRetriever(retriever port.Retriever, cache *QueryCache) *CachedRetriever {
	return &CachedRetriever{
		retriever: retriever,
		cache:     cache,
	}
}

func (r *CachedRetriever) Retrieve(ctx context.Context, query string, k int) ([]domain.ScoredChunk, error) {
	if results, hit := r.cache.Get(query, k); hit {
		return results, nil
	}

	gen := r.cache.generation()
	results, err := r.retriever.Retrieve(ctx, query, k)
	if err != nil {
		return nil, err
	}

	r.cache.putIfCurrent(gen, query, k, results)
	return results, nil
}

func (r *CachedRetriever) Invalidate() {
	r.cache.Invalidate()
}
