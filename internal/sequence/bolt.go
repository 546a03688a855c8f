package sequence

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

var sequenceBucket = []byte("changelog")

// Bolt persists the counter in a bbolt bucket sequence, so numbers keep
// increasing across process restarts. bbolt holds an exclusive file lock,
// which also keeps a second process from sharing the counter by accident.
type Bolt struct {
	db *bolt.DB
}

// OpenBolt opens (or creates) the sequence file at path.
func OpenBolt(path string) (*Bolt, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("sequence: create directory for %s: %w", path, err)
	}

	opts := *bolt.DefaultOptions
	opts.Timeout = 5 * time.Second

	db, err := bolt.Open(path, 0600, &opts)
	if err != nil {
		return nil, fmt.Errorf("sequence: open bolt db at %s: %w", path, err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(sequenceBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("sequence: create bucket: %w", err)
	}

	return &Bolt{db: db}, nil
}

// Close releases the file lock.
func (b *Bolt) Close() error {
	if b.db == nil {
		return nil
	}
	return b.db.Close()
}

// Next allocates the next number in its own write transaction.
func (b *Bolt) Next() (int64, error) {
	var n uint64
	err := b.db.Update(func(tx *bolt.Tx) error {
		var err error
		n, err = tx.Bucket(sequenceBucket).NextSequence()
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("sequence: next: %w", err)
	}
	return int64(n), nil
}

// Reserve allocates n consecutive numbers in one write transaction and
// returns the first.
func (b *Bolt) Reserve(n int64) (int64, error) {
	if n <= 0 {
		return 0, fmt.Errorf("sequence: reserve %d numbers", n)
	}
	var first uint64
	err := b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(sequenceBucket)
		first = bucket.Sequence() + 1
		return bucket.SetSequence(first + uint64(n) - 1)
	})
	if err != nil {
		return 0, fmt.Errorf("sequence: reserve %d: %w", n, err)
	}
	return int64(first), nil
}

// Current returns the last allocated number.
func (b *Bolt) Current() (int64, error) {
	var n uint64
	err := b.db.View(func(tx *bolt.Tx) error {
		n = tx.Bucket(sequenceBucket).Sequence()
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("sequence: current: %w", err)
	}
	return int64(n), nil
}

// Advance raises the bucket sequence to mark if it is behind.
func (b *Bolt) Advance(mark int64) error {
	if mark <= 0 {
		return nil
	}
	err := b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(sequenceBucket)
		if int64(bucket.Sequence()) >= mark {
			return nil
		}
		return bucket.SetSequence(uint64(mark))
	})
	if err != nil {
		return fmt.Errorf("sequence: advance to %d: %w", mark, err)
	}
	return nil
}
