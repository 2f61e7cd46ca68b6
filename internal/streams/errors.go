package streams

import (
	"errors"
	"fmt"
)

// Sentinel errors for stream terminal states.
var (
	// Done is returned by Reader.Next when a bounded range is exhausted.
	// Check with errors.Is(err, streams.Done).
	Done = errors.New("streams: end of range")

	// ErrClosed indicates an operation on a closed stream, or a stream whose
	// feed closed underneath it.
	ErrClosed = errors.New("streams: closed resource")

	// ErrNotAvailable indicates a read with IfAvailable set found no entry.
	ErrNotAvailable = errors.New("streams: entry not available")

	// ErrTimeout indicates no entry was produced within the configured
	// timeout window since the last successful emission.
	ErrTimeout = errors.New("streams: read timed out")
)

// StreamError wraps a failure with the operation and the index at which it
// occurred. It supports errors.Is/As through Unwrap.
type StreamError struct {
	Op    string // "read", "decode", "append"
	Index uint64
	Err   error
}

func (e *StreamError) Error() string {
	return fmt.Sprintf("streams: %s at index %d: %v", e.Op, e.Index, e.Err)
}

func (e *StreamError) Unwrap() error { return e.Err }
