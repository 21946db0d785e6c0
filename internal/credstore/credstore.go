// Package credstore provides the local credential storage capability.
// Credentials are opaque strings keyed by fixed identifiers; the store is
// injected into consumers rather than reached through ambient state.
package credstore

import (
	"context"
	"fmt"
	"os"

	"go.etcd.io/bbolt"
)

// KeyVirusTotalAPIKey is the fixed identifier for the reputation-service API key.
const KeyVirusTotalAPIKey = "virustotal_api_key"

const credentialsBucket = "Credentials"

// Store is a get/set capability over opaque credential strings. Get returns
// an empty string when no value is stored for key.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
}

// BoltStore persists credentials in a bbolt file.
type BoltStore struct {
	db *bbolt.DB
}

// NewBoltStore opens (or creates) the credential file at path.
func NewBoltStore(path string) (*BoltStore, error) {
	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, err
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(credentialsBucket))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create %s bucket: %w", credentialsBucket, err)
	}
	return &BoltStore{db: db}, nil
}

func (s *BoltStore) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(credentialsBucket))
		if bucket == nil {
			return fmt.Errorf("%s bucket does not exist", credentialsBucket)
		}
		value = string(bucket.Get([]byte(key)))
		return nil
	})
	if err != nil {
		return "", err
	}
	return value, nil
}

func (s *BoltStore) Set(ctx context.Context, key, value string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(credentialsBucket))
		if bucket == nil {
			return fmt.Errorf("%s bucket does not exist", credentialsBucket)
		}
		return bucket.Put([]byte(key), []byte(value))
	})
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}

// Static serves fixed credentials, typically sourced from the environment.
// Set updates only the in-memory copy; nothing is persisted.
type Static struct {
	values map[string]string
}

// NewStatic builds a Static store from the given key/value pairs.
func NewStatic(values map[string]string) *Static {
	copied := make(map[string]string, len(values))
	for k, v := range values {
		copied[k] = v
	}
	return &Static{values: copied}
}

func (s *Static) Get(ctx context.Context, key string) (string, error) {
	return s.values[key], nil
}

func (s *Static) Set(ctx context.Context, key, value string) error {
	s.values[key] = value
	return nil
}

// DefaultPath returns the credential file path from the environment, with a
// working-directory default.
func DefaultPath() string {
	if path := os.Getenv("CREDENTIAL_STORE_PATH"); path != "" {
		return path
	}
	return "credentials.db"
}
