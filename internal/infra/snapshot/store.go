// Package snapshot persists scanned catalogs in a bbolt file keyed by root
// path.
package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"

	"pysnip/internal/domain"
)

var ErrStoreClosed = errors.New("catalog cache store is closed")

type Store struct {
	mu     sync.RWMutex
	db     *bolt.DB
	path   string
	closed bool
}

func Open(path string) (*Store, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return nil, fmt.Errorf("cache path is required")
	}
	if err := os.MkdirAll(filepath.Dir(trimmed), 0o755); err != nil {
		return nil, fmt.Errorf("ensure cache dir: %w", err)
	}
	base, err := bolt.Open(trimmed, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open cache db: %w", err)
	}
	if err := ensureSchema(base); err != nil {
		_ = base.Close()
		return nil, err
	}
	return &Store{db: base, path: trimmed}, nil
}

func (s *Store) Path() string {
	return s.path
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

// Load returns the snapshot stored for root. The boolean is false when none
// exists or the stored root differs.
func (s *Store) Load(root string) (domain.CatalogSnapshot, bool, error) {
	var (
		snap  domain.CatalogSnapshot
		found bool
	)
	err := s.view(func(tx *bolt.Tx) error {
		bucket, err := catalogsBucket(tx)
		if err != nil {
			return err
		}
		raw := bucket.Get([]byte(root))
		if raw == nil {
			return nil
		}
		if err := json.Unmarshal(raw, &snap); err != nil {
			return fmt.Errorf("decode snapshot for %s: %w", root, err)
		}
		found = snap.Root == root
		return nil
	})
	if err != nil {
		return domain.CatalogSnapshot{}, false, domain.E(domain.CodeIOFailure, "snapshot.load", "", err)
	}
	if !found {
		return domain.CatalogSnapshot{}, false, nil
	}
	return snap, true, nil
}

// Save overwrites the snapshot stored for its root.
func (s *Store) Save(snap domain.CatalogSnapshot) error {
	if strings.TrimSpace(snap.Root) == "" {
		return domain.E(domain.CodeInvalidArgument, "snapshot.save", "snapshot root is required", nil)
	}
	raw, err := json.Marshal(snap)
	if err != nil {
		return domain.E(domain.CodeInternal, "snapshot.save", "", err)
	}
	err = s.update(func(tx *bolt.Tx) error {
		bucket, err := catalogsBucket(tx)
		if err != nil {
			return err
		}
		return bucket.Put([]byte(snap.Root), raw)
	})
	if err != nil {
		return domain.E(domain.CodeIOFailure, "snapshot.save", "", err)
	}
	return nil
}

// Delete drops the snapshot stored for root.
func (s *Store) Delete(root string) error {
	return s.update(func(tx *bolt.Tx) error {
		bucket, err := catalogsBucket(tx)
		if err != nil {
			return err
		}
		return bucket.Delete([]byte(root))
	})
}

func (s *Store) view(fn func(*bolt.Tx) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrStoreClosed
	}
	return s.db.View(fn)
}

func (s *Store) update(fn func(*bolt.Tx) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrStoreClosed
	}
	return s.db.Update(fn)
}

func catalogsBucket(tx *bolt.Tx) (*bolt.Bucket, error) {
	root := tx.Bucket([]byte(rootBucketName))
	if root == nil {
		return nil, fmt.Errorf("missing root bucket")
	}
	bucket := root.Bucket([]byte(snapshotBucketName))
	if bucket == nil {
		return nil, fmt.Errorf("missing catalogs bucket")
	}
	return bucket, nil
}
