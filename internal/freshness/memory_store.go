package freshness

import (
	"context"

	"RoboInvestor/internal/model"

	"github.com/patrickmn/go-cache"
)

// MemoryStore keeps payloads in process memory. Entries never expire;
// staleness is decided by Cache from ModifiedAt.
type MemoryStore struct {
	c *cache.Cache
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{c: cache.New(cache.NoExpiration, 0)}
}

func (s *MemoryStore) Load(_ context.Context, ticker string) (model.CachedPayload, bool, error) {
	v, ok := s.c.Get(ticker)
	if !ok {
		return model.CachedPayload{}, false, nil
	}
	p := v.(model.CachedPayload)
	p.Data = append([]byte(nil), p.Data...)
	return p, true, nil
}

func (s *MemoryStore) Save(_ context.Context, payload model.CachedPayload) error {
	payload.Data = append([]byte(nil), payload.Data...)
	s.c.Set(payload.Ticker, payload, cache.NoExpiration)
	return nil
}
