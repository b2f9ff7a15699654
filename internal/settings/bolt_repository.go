package settings

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"go.etcd.io/bbolt"
)

// BoltBucket is the bucket settings are kept in.
const BoltBucket = "settings"

// BoltRepository stores settings in a local BoltDB file, one JSON-encoded
// Entry per key.
type BoltRepository struct {
	db *bbolt.DB
}

// NewBoltRepository opens (or creates) the database at path.
func NewBoltRepository(path string) (*BoltRepository, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating settings directory %s: %w", dir, err)
	}

	db, err := bbolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("opening settings db at %s: %w", path, err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(BoltBucket))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating settings bucket: %w", err)
	}

	return &BoltRepository{db: db}, nil
}

// Get retrieves a single setting by key.
func (r *BoltRepository) Get(_ context.Context, key string) (*Entry, error) {
	var entry *Entry

	err := r.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket([]byte(BoltBucket)).Get([]byte(key))
		if data == nil {
			return ErrNotFound
		}
		entry = &Entry{}
		return json.Unmarshal(data, entry)
	})
	if err != nil {
		return nil, err
	}

	return entry, nil
}

// GetAll retrieves every stored setting.
func (r *BoltRepository) GetAll(_ context.Context) (map[string]*Entry, error) {
	entries := make(map[string]*Entry)

	err := r.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(BoltBucket)).ForEach(func(k, v []byte) error {
			var e Entry
			if err := json.Unmarshal(v, &e); err != nil {
				return fmt.Errorf("decoding setting %s: %w", k, err)
			}
			entries[string(k)] = &e
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	return entries, nil
}

// Set creates or updates a setting.
func (r *BoltRepository) Set(_ context.Context, entry *Entry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encoding setting %s: %w", entry.Key, err)
	}

	return r.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(BoltBucket)).Put([]byte(entry.Key), data)
	})
}

// Delete removes a setting by key.
func (r *BoltRepository) Delete(_ context.Context, key string) error {
	return r.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(BoltBucket)).Delete([]byte(key))
	})
}

// Close closes the database file.
func (r *BoltRepository) Close() error {
	return r.db.Close()
}

var _ Repository = (*BoltRepository)(nil)
