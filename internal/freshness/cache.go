package freshness

import (
	"context"
	"fmt"
	"sync"
	"time"

	"RoboInvestor/internal/metrics"
	"RoboInvestor/internal/model"

	"github.com/rs/zerolog/log"
)

// FetchFunc retrieves a fresh raw payload for a ticker from the upstream source.
type FetchFunc func(ctx context.Context, ticker string) ([]byte, error)

// Store persists one payload per ticker along with its modification time.
// Load reports found=false when nothing is stored. Save must never expose a
// partially written payload to a concurrent Load.
type Store interface {
	Load(ctx context.Context, ticker string) (payload model.CachedPayload, found bool, err error)
	Save(ctx context.Context, payload model.CachedPayload) error
}

// Option configures a Cache.
type Option func(*Cache)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// WithMetrics reports hits, refreshes and fetch failures.
func WithMetrics(rec *metrics.Recorder) Option {
	return func(c *Cache) { c.metrics = rec }
}

// Cache serves stored payloads while they are fresh and refreshes them otherwise.
type Cache struct {
	store   Store
	now     func() time.Time
	metrics *metrics.Recorder

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewCache creates a Cache on top of store.
func NewCache(store Store, opts ...Option) *Cache {
	c := &Cache{
		store: store,
		now:   time.Now,
		locks: make(map[string]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the stored payload for ticker if it is at most threshold old.
// Otherwise it calls fetch, stores the result stamped with the current time and
// returns it. A fetch error is returned as is; the stale payload is never used
// as a fallback. Calls for the same ticker are serialized.
func (c *Cache) Get(ctx context.Context, ticker string, threshold time.Duration, fetch FetchFunc) (model.CachedPayload, error) {
	lock := c.lockFor(ticker)
	lock.Lock()
	defer lock.Unlock()

	stored, found, err := c.store.Load(ctx, ticker)
	if err != nil {
		return model.CachedPayload{}, fmt.Errorf("load cached %s: %w", ticker, err)
	}

	reason := "missing"
	if found {
		age := c.now().Sub(stored.ModifiedAt)
		if age <= threshold {
			log.Debug().Str("ticker", ticker).Dur("age", age).Msg("loading data from local cache")
			c.metrics.RecordCacheHit(ticker)
			return stored, nil
		}
		reason = "stale"
		log.Info().Str("ticker", ticker).Dur("age", age).Dur("threshold", threshold).Msg("cached data is stale, requesting from API")
	} else {
		log.Info().Str("ticker", ticker).Msg("no local data, requesting from API")
	}

	data, err := fetch(ctx, ticker)
	if err != nil {
		c.metrics.RecordFetchError(ticker)
		return model.CachedPayload{}, err
	}

	payload := model.CachedPayload{Ticker: ticker, Data: data, ModifiedAt: c.now()}
	if err := c.store.Save(ctx, payload); err != nil {
		return model.CachedPayload{}, fmt.Errorf("save cached %s: %w", ticker, err)
	}
	c.metrics.RecordCacheRefresh(ticker, reason)
	return payload, nil
}

func (c *Cache) lockFor(ticker string) *sync.Mutex {
	c.mu.Lock()
	defer c.mu.Unlock()
	l, ok := c.locks[ticker]
	if !ok {
		l = &sync.Mutex{}
		c.locks[ticker] = l
	}
	return l
}
