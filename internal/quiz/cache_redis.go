package quiz

import (
	"context"
	"encoding/json"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// CachedStore is a cache-aside decorator over a Store. The full normalized
// quiz document is cached as JSON under quiz:{id} with a jittered TTL;
// singleflight collapses concurrent misses for the same quiz into one DB
// load. Writes go through to the backing store and invalidate the entry.
type CachedStore struct {
	Store
	client redis.UniversalClient
	ttl    time.Duration
	sf     singleflight.Group
}

func NewCachedStore(inner Store, client redis.UniversalClient, ttl time.Duration) *CachedStore {
	return &CachedStore{
		Store:  inner,
		client: client,
		ttl:    ttl,
	}
}

func (c *CachedStore) GetQuiz(ctx context.Context, id string) (Quiz, error) {
	key := c.key(id)
	if data, err := c.client.Get(ctx, key).Bytes(); err == nil {
		var q Quiz
		if err := json.Unmarshal(data, &q); err == nil {
			return q, nil
		}
		// Corrupt entry: drop it and fall through to the loader.
		c.client.Del(ctx, key)
	}

	v, err, _ := c.sf.Do(id, func() (interface{}, error) {
		if data, err := c.client.Get(ctx, key).Bytes(); err == nil {
			var q Quiz
			if err := json.Unmarshal(data, &q); err == nil {
				return q, nil
			}
		}
		q, err := c.Store.GetQuiz(ctx, id)
		if err != nil {
			return Quiz{}, err
		}
		if data, err := json.Marshal(q); err == nil {
			c.client.Set(ctx, key, data, c.ttlWithJitter())
		}
		return q, nil
	})
	if err != nil {
		return Quiz{}, err
	}
	return v.(Quiz), nil
}

func (c *CachedStore) PutQuiz(ctx context.Context, q Quiz) error {
	if err := c.Store.PutQuiz(ctx, q); err != nil {
		return err
	}
	c.client.Del(ctx, c.key(q.ID))
	return nil
}

func (c *CachedStore) key(id string) string { return "quiz:" + id }

func (c *CachedStore) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	// The top-level rand source is safe for concurrent use; loaders for
	// distinct quizzes run in parallel under singleflight.
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(rand.Int63n(jitterMax+1))
}
