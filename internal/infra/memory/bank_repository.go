package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"chwazi-quiz/internal/domain"
	"golang.org/x/sync/singleflight"
)

const categoriesKey = "\x00categories"

// BankLoader fetches question bank content from a backing store (file, Postgres).
type BankLoader interface {
	LoadCategory(ctx context.Context, name string) (domain.Category, error)
	LoadCategoryNames(ctx context.Context) ([]string, error)
}

// BankRepository caches categories with TTL to avoid repeated loads.
type BankRepository struct {
	loader BankLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group

	rndMu sync.Mutex
	rnd   *rand.Rand

	mu    sync.RWMutex
	cache map[string]cachedCategory
	names cachedNames
}

type cachedCategory struct {
	category  domain.Category
	expiresAt time.Time
}

type cachedNames struct {
	names     []string
	expiresAt time.Time
}

func NewBankRepository(loader BankLoader, ttl time.Duration) *BankRepository {
	return &BankRepository{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedCategory),
	}
}

func (r *BankRepository) GetCategory(ctx context.Context, name string) (domain.Category, error) {
	now := r.clock()

	r.mu.RLock()
	if entry, ok := r.cache[name]; ok && entry.expiresAt.After(now) {
		r.mu.RUnlock()
		return entry.category, nil
	}
	r.mu.RUnlock()

	result, err, _ := r.sf.Do(name, func() (interface{}, error) {
		now := r.clock()
		r.mu.RLock()
		if entry, ok := r.cache[name]; ok && entry.expiresAt.After(now) {
			r.mu.RUnlock()
			return entry.category, nil
		}
		r.mu.RUnlock()

		category, err := r.loader.LoadCategory(ctx, name)
		if err != nil {
			return domain.Category{}, err
		}

		r.mu.Lock()
		r.cache[name] = cachedCategory{
			category:  category,
			expiresAt: now.Add(r.ttlWithJitter()),
		}
		r.mu.Unlock()
		return category, nil
	})
	if err != nil {
		return domain.Category{}, err
	}
	return result.(domain.Category), nil
}

func (r *BankRepository) ListCategories(ctx context.Context) ([]string, error) {
	now := r.clock()

	r.mu.RLock()
	if r.names.expiresAt.After(now) {
		names := r.names.names
		r.mu.RUnlock()
		return names, nil
	}
	r.mu.RUnlock()

	result, err, _ := r.sf.Do(categoriesKey, func() (interface{}, error) {
		names, err := r.loader.LoadCategoryNames(ctx)
		if err != nil {
			return nil, err
		}
		r.mu.Lock()
		r.names = cachedNames{names: names, expiresAt: r.clock().Add(r.ttlWithJitter())}
		r.mu.Unlock()
		return names, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]string), nil
}

// StaticBankLoader is a simple loader backed by an in-memory bank (useful for tests/demos).
type StaticBankLoader struct {
	bank domain.Bank
}

func NewStaticBankLoader(bank domain.Bank) *StaticBankLoader {
	return &StaticBankLoader{bank: bank}
}

func (l *StaticBankLoader) LoadCategory(_ context.Context, name string) (domain.Category, error) {
	for _, c := range l.bank {
		if c.Name == name {
			return c, nil
		}
	}
	return domain.Category{}, domain.ErrUnknownCategory
}

func (l *StaticBankLoader) LoadCategoryNames(_ context.Context) ([]string, error) {
	return l.bank.Names(), nil
}

func (r *BankRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	r.rndMu.Lock()
	defer r.rndMu.Unlock()
	// add up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
