package embedder

import (
	"crypto/sha256"
	"encoding/hex"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize bounds the cache when no size is configured
const DefaultCacheSize = 10000

// Cache is an LRU of embeddings keyed by model and content hash. The same
// text embedded by two models occupies two entries.
type Cache struct {
	entries *lru.Cache[string, *Embedding]
}

// NewCache creates a cache holding at most size embeddings
func NewCache(size int) *Cache {
	if size <= 0 {
		size = DefaultCacheSize
	}
	// lru.New only fails for non-positive sizes
	entries, _ := lru.New[string, *Embedding](size)
	return &Cache{entries: entries}
}

// ComputeHash returns the hex SHA-256 of text
func ComputeHash(text string) string {
	h := sha256.Sum256([]byte(text))
	return hex.EncodeToString(h[:])
}

func cacheKey(model, hash string) string {
	return model + "\x00" + hash
}

// Lookup returns a private copy of the embedding of text under model
func (c *Cache) Lookup(model, text string) (*Embedding, bool) {
	emb, ok := c.entries.Get(cacheKey(model, ComputeHash(text)))
	if !ok {
		return nil, false
	}
	return emb.clone(), true
}

// Store records emb as the embedding of text under model
func (c *Cache) Store(model, text string, emb *Embedding) {
	c.entries.Add(cacheKey(model, ComputeHash(text)), emb.clone())
}

// Len reports how many embeddings are cached
func (c *Cache) Len() int {
	return c.entries.Len()
}

// Purge drops every entry
func (c *Cache) Purge() {
	c.entries.Purge()
}

// cached serves text from cache when present, otherwise generates,
// stamps the content hash and stores the result. A nil cache disables caching.
func cached(cache *Cache, model, text string, gen func() (*Embedding, error)) (*Embedding, error) {
	if cache != nil {
		if emb, ok := cache.Lookup(model, text); ok {
			return emb, nil
		}
	}
	emb, err := gen()
	if err != nil {
		return nil, err
	}
	emb.Hash = ComputeHash(text)
	if cache != nil {
		cache.Store(model, text, emb)
	}
	return emb, nil
}
