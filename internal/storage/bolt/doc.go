// Package boltstore implements the storage.Backend contract over bbolt. It
// trades Pebble's write throughput for a single-file, zero-compaction store
// that suits small deployments and tests.
package boltstore
