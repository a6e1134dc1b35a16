// Package baseline persists the last-synced content hash of every path in
// a sync pair (local root directory, remote folder id). The diff engine
// uses these records to tell which side of a divergent path changed; a
// missing baseline degrades to timestamp comparison, so the store is
// advisory rather than authoritative.
package baseline

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

const (
	// storeDirPerm is the permission mode for the state directory.
	storeDirPerm = fs.FileMode(0o700)

	// storeFilePerm is the permission mode for the state database file.
	storeFilePerm = fs.FileMode(0o600)

	// storeOpenTimeout is the maximum time to wait for the bolt database lock.
	storeOpenTimeout = 5 * time.Second
)

// pairID returns a stable identifier for a (local root, remote folder)
// pair, used in bucket names. Hashed so arbitrary filesystem paths do
// not end up as raw bucket names.
func pairID(root, folderID string) string {
	h := sha256.Sum256([]byte(root + "\x00" + folderID))
	return hex.EncodeToString(h[:8])
}

func entriesBucket(root, folderID string) []byte {
	return []byte("pair:" + pairID(root, folderID) + ":entries")
}

func metaBucket(root, folderID string) []byte {
	return []byte("pair:" + pairID(root, folderID) + ":meta")
}

var metaKey = []byte("meta")

// Entry records the state of one path at its last successful sync. SHA1
// is the content hash both sides agreed on at that moment (empty for
// folders).
type Entry struct {
	Path     string    `json:"path"`
	Folder   bool      `json:"folder"`
	SHA1     string    `json:"sha1"`
	Size     int64     `json:"size"`
	SyncedAt time.Time `json:"synced_at"`
}

// Meta summarizes the last completed sync run for a pair.
type Meta struct {
	RunID     string    `json:"run_id"`
	Direction string    `json:"direction"`
	Finished  time.Time `json:"finished"`
}

// Store wraps a bbolt database of sync baselines.
type Store struct {
	db *bolt.DB
}

// Open opens the baseline database at the given path, creating the file
// and its parent directory if needed.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), storeDirPerm); err != nil {
		return nil, fmt.Errorf("creating state directory: %w", err)
	}

	db, err := bolt.Open(path, storeFilePerm, &bolt.Options{Timeout: storeOpenTimeout})
	if err != nil {
		return nil, fmt.Errorf("opening baseline db: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Load returns all baseline entries for a pair, keyed by relative path.
// A pair that has never synced yields an empty map.
func (s *Store) Load(root, folderID string) (map[string]Entry, error) {
	result := make(map[string]Entry)
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(entriesBucket(root, folderID))
		if b == nil {
			return nil
		}

		return b.ForEach(func(k, v []byte) error {
			var e Entry
			if err := json.Unmarshal(v, &e); err != nil {
				return fmt.Errorf("decoding baseline entry %s: %w", k, err)
			}

			result[string(k)] = e

			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

// Save replaces the baseline for a pair with the given entries. The old
// bucket is dropped first so entries for paths gone from both sides do
// not linger.
func (s *Store) Save(root, folderID string, entries map[string]Entry) error {
	name := entriesBucket(root, folderID)

	return s.db.Update(func(tx *bolt.Tx) error {
		if tx.Bucket(name) != nil {
			if err := tx.DeleteBucket(name); err != nil {
				return err
			}
		}

		b, err := tx.CreateBucket(name)
		if err != nil {
			return err
		}

		for path, e := range entries {
			data, err := json.Marshal(e)
			if err != nil {
				return err
			}

			if err := b.Put([]byte(path), data); err != nil {
				return err
			}
		}

		return nil
	})
}

// SetMeta records summary information about the last sync run for a pair.
func (s *Store) SetMeta(root, folderID string, m Meta) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(metaBucket(root, folderID))
		if err != nil {
			return err
		}

		data, err := json.Marshal(m)
		if err != nil {
			return err
		}

		return b.Put(metaKey, data)
	})
}

// GetMeta returns the last sync summary for a pair, or nil if the pair
// has never synced.
func (s *Store) GetMeta(root, folderID string) (*Meta, error) {
	var m *Meta

	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(metaBucket(root, folderID))
		if b == nil {
			return nil
		}

		v := b.Get(metaKey)
		if v == nil {
			return nil
		}

		m = &Meta{}

		return json.Unmarshal(v, m)
	})
	if err != nil {
		return nil, err
	}

	return m, nil
}
