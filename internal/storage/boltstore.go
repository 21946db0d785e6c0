package storage

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"go.etcd.io/bbolt"

	"github.com/vtsentry/vtsentry/internal/storage/models"
)

const historyBucket = "ScanHistory"

// BoltStore implements ResultStore using bbolt. Records are keyed by the
// bucket sequence number, so reverse iteration yields newest-first.
type BoltStore struct {
	db   *bbolt.DB
	path string
	mu   sync.RWMutex
}

// NewBoltStore opens (or creates) the database file at path.
func NewBoltStore(path string) (*BoltStore, error) {
	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, err
	}

	store := &BoltStore{db: db, path: path}
	if err := store.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

func (b *BoltStore) initialize() error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(historyBucket)); err != nil {
			return fmt.Errorf("create %s bucket: %w", historyBucket, err)
		}
		return nil
	})
}

// Append persists the record under the next sequence number. The write is
// synchronous; bbolt fsyncs before Update returns.
func (b *BoltStore) Append(ctx context.Context, record models.ScanRecord) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	data, err := json.Marshal(record)
	if err != nil {
		return &PersistenceError{Op: "append", Err: err}
	}

	err = b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(historyBucket))
		if bucket == nil {
			return fmt.Errorf("%s bucket does not exist", historyBucket)
		}
		seq, err := bucket.NextSequence()
		if err != nil {
			return err
		}
		return bucket.Put(itob(seq), data)
	})
	if err != nil {
		return &PersistenceError{Op: "append", Err: err}
	}
	return nil
}

// Load retrieves all records, newest-first. Undecodable entries are
// skipped with a warning.
func (b *BoltStore) Load(ctx context.Context) ([]models.ScanRecord, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var records []models.ScanRecord
	err := b.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(historyBucket))
		if bucket == nil {
			return fmt.Errorf("%s bucket does not exist", historyBucket)
		}
		c := bucket.Cursor()
		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			var record models.ScanRecord
			if err := json.Unmarshal(v, &record); err != nil {
				logrus.WithError(err).Warn("Skipping undecodable scan record")
				continue
			}
			records = append(records, record)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// FindFreshByHash linearly scans history for the head-most match within
// maxAge. History size is bounded by user scan frequency, so the linear
// scan is fine.
func (b *BoltStore) FindFreshByHash(ctx context.Context, hash string, maxAge time.Duration) (*models.ScanRecord, error) {
	records, err := b.Load(ctx)
	if err != nil {
		return nil, err
	}
	return findFresh(records, hash, maxAge, time.Now().UTC()), nil
}

func (b *BoltStore) Close(ctx context.Context) error {
	return b.db.Close()
}

// itob returns an 8-byte big-endian representation of v so keys sort in
// insertion order.
func itob(v uint64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, v)
	return buf
}
