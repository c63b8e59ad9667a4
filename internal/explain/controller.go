// Package explain owns the product-detail explanation lifecycle: for each
// viewed product code it resolves exactly one settled explanation from the
// competing sources (navigation handoff, cache, fresh fetch) and keeps late
// fetch results from overwriting a view that has moved on.
package explain

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"shelfscan/pkg/models"
)

// State is the controller's per-code lifecycle state. Transitions are
// one-directional: once a code is locked or settled, no later event for the
// same code changes the displayed explanation. Only a code change resets
// the machine.
type State int

const (
	StateUnresolved State = iota
	StateLockedFromHandoff
	StateLockedFromCache
	StateFetching
	StateSettled
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateLockedFromHandoff:
		return "locked_from_handoff"
	case StateLockedFromCache:
		return "locked_from_cache"
	case StateFetching:
		return "fetching"
	case StateSettled:
		return "settled"
	case StateFailed:
		return "failed"
	default:
		return "unresolved"
	}
}

// Fetcher issues the explanation call. Satisfied by *backend.Client.
type Fetcher interface {
	ExplainProduct(ctx context.Context, product *models.Product) (*models.ExplanationResponse, error)
}

// Snapshot is a point-in-time copy of the controller's display state.
type Snapshot struct {
	Code        string
	State       State
	Explanation *models.ExplanationResponse
}

// Controller reconciles the three explanation sources for the currently
// viewed product code. It tracks a generation counter bumped on every code
// change; a fetch captures the generation at issue time and re-checks it
// before committing, so a response arriving after the view navigated away
// is dropped on arrival. Navigation can be faster than the network round
// trip, which makes this check the controller's one correctness-critical
// invariant.
type Controller struct {
	mu      sync.Mutex
	fetcher Fetcher
	cache   *Cache

	gen         uint64
	code        string
	state       State
	explanation *models.ExplanationResponse
	done        chan struct{}
	doneClosed  bool
	cancel      context.CancelFunc
}

// NewController creates a controller over the given fetcher and cache.
func NewController(fetcher Fetcher, cache *Cache) *Controller {
	return &Controller{
		fetcher: fetcher,
		cache:   cache,
	}
}

// Mount resolves the explanation for code and returns a channel closed when
// the code reaches a terminal state. Callers bound their wait with their own
// context. Mounting the current code again is a no-op that returns the
// existing channel; no second fetch is issued for a code already locked,
// settled, failed, or in flight.
//
// Source precedence: a handoff payload locks immediately (and is written to
// the cache), then a cache hit locks, and only with neither does a fetch go
// out. The fetch needs the resolved product because its request body is
// built from product fields.
func (c *Controller) Mount(ctx context.Context, code string, handoff *models.ExplanationResponse, product *models.Product) <-chan struct{} {
	c.mu.Lock()

	if code == c.code && c.state != StateUnresolved {
		done := c.done
		c.mu.Unlock()
		return done
	}

	c.reset(code)
	done := c.done
	gen := c.gen

	if handoff != nil {
		c.state = StateLockedFromHandoff
		c.explanation = handoff
		c.closeDone()
		c.mu.Unlock()
		c.cache.Put(ctx, code, handoff)
		return done
	}

	c.mu.Unlock()
	// Cache lookup outside the lock: it may touch persistent storage.
	cached := c.cache.Get(ctx, code)

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		// Another code was mounted while we read the cache.
		return done
	}

	if cached != nil {
		c.state = StateLockedFromCache
		c.explanation = cached
		c.closeDone()
		return done
	}

	c.state = StateFetching
	fetchCtx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	go c.fetch(fetchCtx, gen, code, product)
	return done
}

// Unmount discards the active code; a pending fetch result will be dropped
// on arrival.
func (c *Controller) Unmount() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reset("")
	c.closeDone()
}

// Snapshot returns the current display state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{
		Code:        c.code,
		State:       c.state,
		Explanation: c.explanation,
	}
}

// reset prepares the machine for a new code. Callers hold mu.
func (c *Controller) reset(code string) {
	c.gen++
	if c.cancel != nil {
		// Cancel the superseded request as a courtesy; correctness relies
		// on the generation check, not on the cancellation landing.
		c.cancel()
		c.cancel = nil
	}
	// Release anyone still waiting on the superseded code.
	c.closeDone()
	c.code = code
	c.state = StateUnresolved
	c.explanation = nil
	c.done = make(chan struct{})
	c.doneClosed = false
}

// closeDone closes the current done channel exactly once. Callers hold mu.
func (c *Controller) closeDone() {
	if c.done != nil && !c.doneClosed {
		close(c.done)
		c.doneClosed = true
	}
}

func (c *Controller) fetch(ctx context.Context, gen uint64, code string, product *models.Product) {
	explanation, err := c.fetcher.ExplainProduct(ctx, product)

	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		log.Debug().Str("code", code).Msg("Dropping stale explanation result")
		return
	}

	if err != nil {
		// No retry: the rest of the view stays usable without enrichment.
		c.state = StateFailed
		c.explanation = nil
		c.closeDone()
		c.mu.Unlock()
		log.Warn().Err(err).Str("code", code).Msg("Explanation fetch failed")
		return
	}

	c.state = StateSettled
	c.explanation = explanation
	c.closeDone()
	c.mu.Unlock()

	c.cache.Put(context.Background(), code, explanation)
}
