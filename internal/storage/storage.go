// Package storage defines the narrow key-value contract feeds persist
// through, with Pebble and bbolt implementations in subpackages.
package storage

import "errors"

// ErrKeyNotFound is returned by Get when the key is absent.
var ErrKeyNotFound = errors.New("storage: key not found")

// Op is one write in an atomic batch.
type Op struct {
	Key   []byte
	Value []byte
}

// Backend is a minimal ordered key-value store. Keys compare byte-wise;
// Scan visits keys in ascending order. ApplyBatch is atomic: either every
// op is applied or none is.
type Backend interface {
	// Get copies the value for key, or returns ErrKeyNotFound.
	Get(key []byte) ([]byte, error)

	// Put sets a single key.
	Put(key, value []byte) error

	// ApplyBatch applies the ops as one atomic write.
	ApplyBatch(ops []Op) error

	// Scan visits keys in [low, high) in ascending order. Returning a
	// non-nil error from fn stops the scan and propagates the error.
	Scan(low, high []byte, fn func(key, value []byte) error) error

	// Close releases the backend.
	Close() error
}
