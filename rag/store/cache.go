package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/smallnest/ragrouter/rag"
)

// CachedRetriever keeps the results of another retriever in Redis, keyed by
// the query text.
type CachedRetriever struct {
	client redis.UniversalClient
	next   rag.Retriever
	prefix string
	ttl    time.Duration
}

// CacheOptions configures a CachedRetriever.
type CacheOptions struct {
	Prefix string        // Key prefix, default "ragrouter:"
	TTL    time.Duration // Expiration of cached results, default 0 (no expiration)
}

// NewCachedRetriever wraps next with a Redis result cache.
func NewCachedRetriever(client redis.UniversalClient, next rag.Retriever, opts CacheOptions) *CachedRetriever {
	prefix := opts.Prefix
	if prefix == "" {
		prefix = "ragrouter:"
	}
	return &CachedRetriever{
		client: client,
		next:   next,
		prefix: prefix,
		ttl:    opts.TTL,
	}
}

func (c *CachedRetriever) key(query string) string {
	sum := sha256.Sum256([]byte(query))
	return fmt.Sprintf("%sretrieval:%s", c.prefix, hex.EncodeToString(sum[:]))
}

// Retrieve returns the cached documents for query, calling the wrapped
// retriever on a miss. Redis failures are returned, not hidden behind a
// call to the wrapped retriever.
func (c *CachedRetriever) Retrieve(ctx context.Context, query string) ([]rag.Document, error) {
	key := c.key(query)

	data, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var docs []rag.Document
		if err := json.Unmarshal(data, &docs); err != nil {
			return nil, fmt.Errorf("failed to unmarshal cached documents: %w", err)
		}
		return docs, nil
	case !errors.Is(err, redis.Nil):
		return nil, fmt.Errorf("failed to read retrieval cache: %w", err)
	}

	docs, err := c.next.Retrieve(ctx, query)
	if err != nil {
		return nil, err
	}

	data, err = json.Marshal(docs)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal documents: %w", err)
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		return nil, fmt.Errorf("failed to write retrieval cache: %w", err)
	}
	return docs, nil
}

// Invalidate drops every cached result under the prefix, typically after
// new documents were indexed.
func (c *CachedRetriever) Invalidate(ctx context.Context) (int, error) {
	var removed int
	iter := c.client.Scan(ctx, 0, c.prefix+"retrieval:*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return 0, fmt.Errorf("failed to scan retrieval cache: %w", err)
	}
	if len(keys) > 0 {
		n, err := c.client.Del(ctx, keys...).Result()
		if err != nil {
			return 0, fmt.Errorf("failed to clear retrieval cache: %w", err)
		}
		removed = int(n)
	}
	return removed, nil
}
