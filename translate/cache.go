package translate

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const cacheKeyPrefixLen = 64

// Cached wraps a Translator with a TTL'd LRU so identical recent text
// is never translated twice. Repeats are common: partial previews of
// the same unit, and the rolling-interval cadence re-emitting a
// boundary phrase.
type Cached struct {
	inner Translator
	lru   *expirable.LRU[string, string]
}

func NewCached(inner Translator, size int, ttl time.Duration) *Cached {
	return &Cached{
		inner: inner,
		lru:   expirable.NewLRU[string, string](size, nil, ttl),
	}
}

func (c *Cached) Translate(ctx context.Context, text, source, target string) (string, error) {
	key := cacheKey(text, source, target)
	if v, ok := c.lru.Get(key); ok {
		return v, nil
	}
	out, err := c.inner.Translate(ctx, text, source, target)
	if err != nil {
		return "", err
	}
	c.lru.Add(key, out)
	return out, nil
}

func cacheKey(text, source, target string) string {
	prefix := text
	if len(prefix) > cacheKeyPrefixLen {
		prefix = prefix[:cacheKeyPrefixLen]
	}
	return source + "|" + target + "|" + prefix
}
