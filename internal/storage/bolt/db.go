package boltstore

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"

	"github.com/rzbill/logpipe/internal/storage"
)

var dataBucket = []byte("logpipe")

// Options configures the bbolt store.
type Options struct {
	// DataDir is the directory holding the database file. Created when
	// missing.
	DataDir string
	// NoSync disables fsync on commit. Faster, less durable.
	NoSync bool
}

// DB wraps a bbolt database and implements storage.Backend.
type DB struct {
	inner *bbolt.DB
}

var _ storage.Backend = (*DB)(nil)

// Open creates or opens the bbolt database under opts.DataDir.
func Open(opts Options) (*DB, error) {
	if opts.DataDir == "" {
		return nil, errors.New("bolt: Options.DataDir is required")
	}
	if err := os.MkdirAll(opts.DataDir, 0o755); err != nil {
		return nil, err
	}
	path := filepath.Join(opts.DataDir, "logpipe.db")
	inner, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: time.Second, NoSync: opts.NoSync})
	if err != nil {
		return nil, err
	}
	err = inner.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(dataBucket)
		return err
	})
	if err != nil {
		inner.Close()
		return nil, err
	}
	return &DB{inner: inner}, nil
}

// Close closes the database file.
func (db *DB) Close() error {
	if db == nil || db.inner == nil {
		return nil
	}
	return db.inner.Close()
}

// Get copies the value for the given key.
func (db *DB) Get(key []byte) ([]byte, error) {
	var out []byte
	err := db.inner.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(dataBucket).Get(key)
		if v == nil {
			return storage.ErrKeyNotFound
		}
		out = append([]byte(nil), v...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Put sets a single key.
func (db *DB) Put(key, value []byte) error {
	return db.inner.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(dataBucket).Put(key, value)
	})
}

// ApplyBatch applies the ops in one transaction.
func (db *DB) ApplyBatch(ops []storage.Op) error {
	return db.inner.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(dataBucket)
		for _, op := range ops {
			if err := b.Put(op.Key, op.Value); err != nil {
				return err
			}
		}
		return nil
	})
}

// Scan visits keys in [low, high) in ascending order.
func (db *DB) Scan(low, high []byte, fn func(key, value []byte) error) error {
	return db.inner.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(dataBucket).Cursor()
		for k, v := c.Seek(low); k != nil && bytes.Compare(k, high) < 0; k, v = c.Next() {
			if err := fn(k, v); err != nil {
				return err
			}
		}
		return nil
	})
}
