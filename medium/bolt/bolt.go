// Package bolt provides a file-backed Medium on top of bbolt.
package bolt

import (
	"context"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/unkn0wn-root/stash/medium"
)

const defaultBucket = "stash"

type Options struct {
	// Bucket is the name of the Bolt bucket to use. Default "stash".
	Bucket string
	// Timeout bounds how long Open waits for the file lock. Default 1s.
	Timeout time.Duration
}

// Bolt stores every key in a single bucket of a bbolt database.
// It is safe for concurrent use by multiple goroutines.
type Bolt struct {
	db     *bolt.DB
	bucket []byte
}

var _ medium.Medium = (*Bolt)(nil)

// Open initializes or opens a database at the given path.
func Open(path string, opts Options) (*Bolt, error) {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = time.Second
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: timeout})
	if err != nil {
		return nil, err
	}
	bucket := []byte(defaultBucket)
	if opts.Bucket != "" {
		bucket = []byte(opts.Bucket)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucket)
		return err
	}); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Bolt{db: db, bucket: bucket}, nil
}

func (s *Bolt) Get(_ context.Context, key string) ([]byte, bool, error) {
	var out []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(s.bucket).Get([]byte(key))
		if v == nil {
			return nil
		}
		// v is only valid for the life of the transaction
		out = append([]byte{}, v...)
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return out, out != nil, nil
}

func (s *Bolt) Set(_ context.Context, key string, value []byte) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(s.bucket).Put([]byte(key), value)
	})
}

func (s *Bolt) Del(_ context.Context, key string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(s.bucket).Delete([]byte(key))
	})
}

// Keys returns the keys in byte order.
func (s *Bolt) Keys(_ context.Context) ([]string, error) {
	var out []string
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(s.bucket).ForEach(func(k, _ []byte) error {
			out = append(out, string(k))
			return nil
		})
	})
	return out, err
}

// Close closes the underlying database.
func (s *Bolt) Close(_ context.Context) error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
