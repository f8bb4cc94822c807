package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"sync"
	"time"

	"chwazi-quiz/internal/domain"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// BankLoader fetches question bank content from a backing store (file, Postgres).
type BankLoader interface {
	LoadCategory(ctx context.Context, name string) (domain.Category, error)
	LoadCategoryNames(ctx context.Context) ([]string, error)
}

// BankRepository caches categories in Redis and falls back to a loader on cache miss.
// Categories are stored as: SET   bank:category:{name} {json}
// Names are stored as:      RPUSH bank:categories {name...}
type BankRepository struct {
	client *redis.Client
	loader BankLoader
	ttl    time.Duration
	sf     singleflight.Group

	rndMu sync.Mutex
	rnd   *rand.Rand
}

func NewBankRepository(client *redis.Client, loader BankLoader, ttl time.Duration) *BankRepository {
	return &BankRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *BankRepository) GetCategory(ctx context.Context, name string) (domain.Category, error) {
	key := r.categoryKey(name)
	if category, ok := r.cachedCategory(ctx, key); ok {
		return category, nil
	}

	result, err, _ := r.sf.Do(key, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if category, ok := r.cachedCategory(ctx, key); ok {
			return category, nil
		}

		category, err := r.loader.LoadCategory(ctx, name)
		if err != nil {
			return domain.Category{}, err
		}

		data, err := json.Marshal(category)
		if err != nil {
			return domain.Category{}, err
		}
		_ = r.client.Set(ctx, key, data, r.ttlWithJitter()).Err()
		return category, nil
	})
	if err != nil {
		return domain.Category{}, err
	}
	return result.(domain.Category), nil
}

func (r *BankRepository) ListCategories(ctx context.Context) ([]string, error) {
	names, err := r.client.LRange(ctx, namesKey, 0, -1).Result()
	if err == nil && len(names) > 0 {
		return names, nil
	}

	result, err, _ := r.sf.Do(namesKey, func() (interface{}, error) {
		names, err := r.loader.LoadCategoryNames(ctx)
		if err != nil {
			return nil, err
		}
		if len(names) == 0 {
			return names, nil
		}

		values := make([]interface{}, 0, len(names))
		for _, n := range names {
			values = append(values, n)
		}
		pipe := r.client.TxPipeline()
		pipe.Del(ctx, namesKey)
		pipe.RPush(ctx, namesKey, values...)
		if ttl := r.ttlWithJitter(); ttl > 0 {
			pipe.Expire(ctx, namesKey, ttl)
		}
		_, _ = pipe.Exec(ctx)
		return names, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]string), nil
}

// Invalidate drops every cached entry, e.g. after the bank was reseeded.
func (r *BankRepository) Invalidate(ctx context.Context) error {
	return InvalidateBankCache(ctx, r.client)
}

// InvalidateBankCache clears the bank keys written by any BankRepository on client.
func InvalidateBankCache(ctx context.Context, client *redis.Client) error {
	var cursor uint64
	for {
		keys, next, err := client.Scan(ctx, cursor, "bank:category:*", 100).Result()
		if err != nil {
			return err
		}
		if len(keys) > 0 {
			if err := client.Del(ctx, keys...).Err(); err != nil {
				return err
			}
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	return client.Del(ctx, namesKey).Err()
}

func (r *BankRepository) cachedCategory(ctx context.Context, key string) (domain.Category, bool) {
	data, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		return domain.Category{}, false
	}
	var category domain.Category
	if err := json.Unmarshal(data, &category); err != nil {
		return domain.Category{}, false
	}
	return category, true
}

const namesKey = "bank:categories"

func (r *BankRepository) categoryKey(name string) string {
	return "bank:category:" + name
}

func (r *BankRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	r.rndMu.Lock()
	defer r.rndMu.Unlock()
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
