package content

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize is the number of classifications kept by a CachedClassifier
// when no size is configured.
const DefaultCacheSize = 256

// CachedClassifier memoizes another Classifier. Re-opening the same large
// value (a table cell viewed twice, a field re-edited) skips the parse.
type CachedClassifier struct {
	next  Classifier
	cache *lru.Cache[string, Classified]
}

// NewCachedClassifier wraps next with an LRU cache holding up to size entries.
func NewCachedClassifier(next Classifier, size int) (*CachedClassifier, error) {
	if next == nil {
		next = Default
	}
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, err := lru.New[string, Classified](size)
	if err != nil {
		return nil, fmt.Errorf("create classification cache: %w", err)
	}
	return &CachedClassifier{next: next, cache: cache}, nil
}

// Classify returns the cached classification of raw, computing it on a miss.
func (c *CachedClassifier) Classify(raw string) Classified {
	if hit, ok := c.cache.Get(raw); ok {
		return hit
	}
	out := c.next.Classify(raw)
	c.cache.Add(raw, out)
	return out
}

// Len returns the number of cached entries.
func (c *CachedClassifier) Len() int {
	return c.cache.Len()
}

// Purge drops all cached entries.
func (c *CachedClassifier) Purge() {
	c.cache.Purge()
}
