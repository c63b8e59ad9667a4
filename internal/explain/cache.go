package explain

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/rs/zerolog/log"

	"shelfscan/internal/storage"
	"shelfscan/pkg/models"
)

const cacheKeyPrefix = "explanation:"

// Cache stores explanations keyed by product code only; its key space is
// distinct from the history store's entry ids. Reads check the in-memory
// session tier first, then the persistent store (warming memory on a hit).
// Writes are best-effort: a storage failure never reaches the caller, the
// in-memory value keeps serving the session.
type Cache struct {
	mu    sync.Mutex
	mem   map[string]*models.ExplanationResponse
	store storage.Store
}

// NewCache creates a cache backed by the given persistent store.
func NewCache(store storage.Store) *Cache {
	return &Cache{
		mem:   make(map[string]*models.ExplanationResponse),
		store: store,
	}
}

// Get returns the cached explanation for code, or nil. Corrupt persisted
// entries count as misses.
func (c *Cache) Get(ctx context.Context, code string) *models.ExplanationResponse {
	c.mu.Lock()
	if cached, ok := c.mem[code]; ok {
		c.mu.Unlock()
		return cached
	}
	c.mu.Unlock()

	raw, err := c.store.Get(ctx, cacheKeyPrefix+code)
	if err != nil {
		return nil
	}

	var explanation models.ExplanationResponse
	if err := json.Unmarshal(raw, &explanation); err != nil {
		return nil
	}

	c.mu.Lock()
	c.mem[code] = &explanation
	c.mu.Unlock()
	return &explanation
}

// Put stores the explanation for code in both tiers.
func (c *Cache) Put(ctx context.Context, code string, explanation *models.ExplanationResponse) {
	if explanation == nil {
		return
	}

	c.mu.Lock()
	c.mem[code] = explanation
	c.mu.Unlock()

	raw, err := json.Marshal(explanation)
	if err != nil {
		log.Debug().Err(err).Str("code", code).Msg("Failed to serialize explanation for cache")
		return
	}
	if err := c.store.Set(ctx, cacheKeyPrefix+code, raw); err != nil {
		log.Debug().Err(err).Str("code", code).Msg("Failed to persist explanation cache entry")
	}
}
