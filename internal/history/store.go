// Package history keeps the bounded, most-recent-first log of completed
// scans in the client-local key-value store.
package history

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"shelfscan/internal/storage"
	"shelfscan/pkg/models"
)

const (
	historyKey = "shelfscan_scan_history"

	// MaxEntries caps the stored list; insertion truncates the tail.
	MaxEntries = 30

	// quotaRetryEntries is the smaller slice retried when a full write
	// fails, so a storage quota never wipes the whole history.
	quotaRetryEntries = 10
)

// Store is the scan history log. Persistence is best-effort throughout:
// append never reports storage errors and list treats corrupt data as empty.
// Writes are whole-list read-modify-write serialized by the store mutex.
type Store struct {
	mu sync.Mutex
	kv storage.Store
}

// NewStore creates a history store over the given key-value layer.
func NewStore(kv storage.Store) *Store {
	return &Store{kv: kv}
}

// Append records a completed scan. An existing entry for the same product
// code is replaced and promoted to the front, so re-scanning refreshes the
// entry's position instead of duplicating it.
func (s *Store) Append(ctx context.Context, product *models.Product, capturedImage string) models.ScanHistoryEntry {
	entry := newEntry(product, capturedImage)

	s.mu.Lock()
	defer s.mu.Unlock()

	current := s.load(ctx)
	next := make([]models.ScanHistoryEntry, 0, len(current)+1)
	next = append(next, entry)
	for _, e := range current {
		if e.ProductCode != product.ProductCode {
			next = append(next, e)
		}
	}
	if len(next) > MaxEntries {
		next = next[:MaxEntries]
	}

	s.save(ctx, next)
	return entry
}

// List returns stored entries, most recent first. Missing, corrupt, or
// unreadable data yields an empty list, never an error.
func (s *Store) List(ctx context.Context) []models.ScanHistoryEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(ctx)
}

// DeleteByID removes exactly the entry with the matching id; no-op when the
// id is not present.
func (s *Store) DeleteByID(ctx context.Context, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current := s.load(ctx)
	next := make([]models.ScanHistoryEntry, 0, len(current))
	for _, e := range current {
		if e.ID != id {
			next = append(next, e)
		}
	}
	if len(next) == len(current) {
		return
	}
	s.save(ctx, next)
}

// Clear removes all entries.
func (s *Store) Clear(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.kv.Delete(ctx, historyKey); err != nil {
		log.Debug().Err(err).Msg("Failed to clear scan history")
	}
}

// newEntry builds the immutable log record. The id combines the product
// code, the save time, and a random suffix so rapid repeated scans of the
// same product within one millisecond still get distinct ids.
func newEntry(product *models.Product, capturedImage string) models.ScanHistoryEntry {
	now := time.Now().UTC()
	return models.ScanHistoryEntry{
		ID:              fmt.Sprintf("%s-%d-%s", product.ProductCode, now.UnixMilli(), uuid.NewString()[:8]),
		SavedAt:         now,
		CapturedImage:   capturedImage,
		ProductCode:     product.ProductCode,
		ProductName:     product.ProductName,
		Brands:          product.Brands,
		NutriscoreGrade: product.NutriscoreGrade,
		EcoscoreGrade:   product.EcoscoreGrade,
		EcoscoreScore:   product.EcoscoreScore,
		ProductImageURL: product.ImageURL,
		Product:         product,
	}
}

// load reads the persisted list. Callers hold mu.
func (s *Store) load(ctx context.Context) []models.ScanHistoryEntry {
	raw, err := s.kv.Get(ctx, historyKey)
	if err != nil {
		return []models.ScanHistoryEntry{}
	}

	var entries []models.ScanHistoryEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return []models.ScanHistoryEntry{}
	}
	return entries
}

// save writes the list back, retrying with a smaller slice on failure
// (storage quota) before giving up silently. Callers hold mu.
func (s *Store) save(ctx context.Context, entries []models.ScanHistoryEntry) {
	if s.write(ctx, entries) {
		return
	}

	if len(entries) > quotaRetryEntries {
		entries = entries[:quotaRetryEntries]
	}
	if !s.write(ctx, entries) {
		log.Debug().Int("entries", len(entries)).Msg("Giving up on scan history write")
	}
}

func (s *Store) write(ctx context.Context, entries []models.ScanHistoryEntry) bool {
	raw, err := json.Marshal(entries)
	if err != nil {
		return false
	}
	if err := s.kv.Set(ctx, historyKey, raw); err != nil {
		log.Debug().Err(err).Msg("Scan history write failed")
		return false
	}
	return true
}
