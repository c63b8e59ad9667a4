// Package navctx carries data from one navigation step to the next so the
// destination view does not have to repeat backend calls. It replaces the
// ambient per-process maps the screens used to share: entries are keyed by
// product code, consumed on read, and expire if never consumed.
package navctx

import (
	"sync"
	"time"

	"shelfscan/pkg/models"
)

const defaultTTL = 10 * time.Minute

type entry struct {
	product       *models.Product
	explanation   *models.ExplanationResponse
	pendingSave   bool
	capturedImage string
	storedAt      time.Time
}

// Context is the short-lived keyed handoff cache for one user session.
type Context struct {
	mu      sync.Mutex
	entries map[string]*entry
	ttl     time.Duration
}

// New creates an empty navigation context.
func New() *Context {
	return &Context{
		entries: make(map[string]*entry),
		ttl:     defaultTTL,
	}
}

func (c *Context) get(code string) *entry {
	e, ok := c.entries[code]
	if !ok {
		e = &entry{}
		c.entries[code] = e
	}
	e.storedAt = time.Now()
	return e
}

// PutProduct stashes a resolved product for the upcoming detail view.
func (c *Context) PutProduct(code string, product *models.Product) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sweep()
	c.get(code).product = product
}

// PutExplanation stashes a pre-fetched explanation for the upcoming detail view.
func (c *Context) PutExplanation(code string, explanation *models.ExplanationResponse) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sweep()
	c.get(code).explanation = explanation
}

// MarkPendingSave flags the code so the next detail view appends a history
// entry. Only fresh scans set this; navigation from history or deep links
// does not. The captured image ref rides along for the history entry.
func (c *Context) MarkPendingSave(code, capturedImage string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sweep()
	e := c.get(code)
	e.pendingSave = true
	e.capturedImage = capturedImage
}

// TakeProduct returns and clears the stashed product for code, or nil.
func (c *Context) TakeProduct(code string) *models.Product {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[code]
	if !ok || e.product == nil {
		return nil
	}
	p := e.product
	e.product = nil
	c.dropIfEmpty(code, e)
	return p
}

// TakeExplanation returns and clears the stashed explanation for code, or nil.
func (c *Context) TakeExplanation(code string) *models.ExplanationResponse {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[code]
	if !ok || e.explanation == nil {
		return nil
	}
	x := e.explanation
	e.explanation = nil
	c.dropIfEmpty(code, e)
	return x
}

// TakePendingSave consumes the pending-save flag for code, returning whether
// it was set and the captured image ref stored with it.
func (c *Context) TakePendingSave(code string) (bool, string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[code]
	if !ok || !e.pendingSave {
		return false, ""
	}
	img := e.capturedImage
	e.pendingSave = false
	e.capturedImage = ""
	c.dropIfEmpty(code, e)
	return true, img
}

func (c *Context) dropIfEmpty(code string, e *entry) {
	if e.product == nil && e.explanation == nil && !e.pendingSave {
		delete(c.entries, code)
	}
}

// sweep evicts entries that were stashed but never consumed. Callers hold mu.
func (c *Context) sweep() {
	cutoff := time.Now().Add(-c.ttl)
	for code, e := range c.entries {
		if e.storedAt.Before(cutoff) {
			delete(c.entries, code)
		}
	}
}
