package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/vtsentry/vtsentry/internal/storage/models"
)

// DefaultFreshness is the cache freshness window for FindFreshByHash callers.
const DefaultFreshness = 7 * 24 * time.Hour

// ResultStore defines the methods required for scan-history storage.
// History is ordered newest-first and is only ever mutated through Append.
type ResultStore interface {
	// Load retrieves the full history, newest-first. Individually
	// undecodable records are dropped, not fatal.
	Load(ctx context.Context) ([]models.ScanRecord, error)

	// Append inserts the record at the head of history and persists it
	// synchronously before returning. A write failure is reported as a
	// *PersistenceError.
	Append(ctx context.Context, record models.ScanRecord) error

	// FindFreshByHash returns the most recent record matching hash whose
	// timestamp is within maxAge of now, or nil if there is none.
	FindFreshByHash(ctx context.Context, hash string, maxAge time.Duration) (*models.ScanRecord, error)

	Close(ctx context.Context) error
}

// PersistenceError reports a failed history write. The in-memory record is
// still valid for the current session; only durability failed.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence failure during %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// findFresh scans records (newest-first) for the head-most entry matching
// hash that is still within maxAge of now.
func findFresh(records []models.ScanRecord, hash string, maxAge time.Duration, now time.Time) *models.ScanRecord {
	for i := range records {
		if records[i].FileHash != hash {
			continue
		}
		if now.Sub(records[i].Timestamp) <= maxAge {
			rec := records[i]
			return &rec
		}
		// Records are newest-first: every later match is older still.
		return nil
	}
	return nil
}
