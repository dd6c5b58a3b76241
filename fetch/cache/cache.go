// Package cache keeps fetched belongs_to targets in an expirable LRU so
// batches sharing targets only fetch the ids they haven't seen yet.
package cache

import (
	"context"
	"time"

	"github.com/modelkit/tableless/internal/lru"
	"github.com/modelkit/tableless/preload"
	"github.com/modelkit/tableless/schema"
)

// Fetcher wraps another fetcher with an expirable LRU of entities
type Fetcher struct {
	Next     preload.Fetcher
	entities *lru.LRU[string, interface{}]
}

// New caches up to size entities of next for ttl, 0 disables either limit
func New(next preload.Fetcher, size int, ttl time.Duration) *Fetcher {
	return &Fetcher{Next: next, entities: lru.NewLRU[string, interface{}](size, nil, ttl)}
}

func cacheKey(target *schema.Schema, column, key string) string {
	return target.Name + "\x00" + column + "\x00" + key
}

// FetchByIDs serves cached entities and fetches the rest with one call to Next.
// Unmatched ids are not cached.
func (f *Fetcher) FetchByIDs(ctx context.Context, target *schema.Schema, column string, ids []interface{}) (map[string]interface{}, error) {
	if column == "" {
		column = target.PrimaryKey
	}

	var (
		result  = make(map[string]interface{}, len(ids))
		missing = make([]interface{}, 0, len(ids))
	)

	for _, id := range ids {
		key := preload.Key(id)
		if entity, ok := f.entities.Get(cacheKey(target, column, key)); ok {
			result[key] = entity
		} else {
			missing = append(missing, id)
		}
	}

	if len(missing) == 0 {
		return result, nil
	}

	if f.Next == nil {
		return nil, preload.ErrNoFetcher
	}

	fetched, err := f.Next.FetchByIDs(ctx, target, column, missing)
	if err != nil {
		return nil, err
	}

	for key, entity := range fetched {
		f.entities.Add(cacheKey(target, column, key), entity)
		result[key] = entity
	}
	return result, nil
}

// Forget drops cached entities of target looked up by column with the
// given values, an empty column means the primary key
func (f *Fetcher) Forget(target *schema.Schema, column string, ids ...interface{}) {
	if column == "" {
		column = target.PrimaryKey
	}
	for _, id := range ids {
		f.entities.Remove(cacheKey(target, column, preload.Key(id)))
	}
}

// Purge drops every cached entity
func (f *Fetcher) Purge() {
	f.entities.Purge()
}

// Len returns the number of cached entities
func (f *Fetcher) Len() int {
	return f.entities.Len()
}
