package feed

import "encoding/binary"

// Keyspace helpers.
//
// Layout (byte-wise, lexicographically sortable):
// - feed/{name}/m
// - feed/{name}/e/{idx_be8}

var (
	feedPrefix = []byte("feed/")
	metaSuffix = []byte("/m")
	entrySeg   = []byte("/e/")
)

func appendBE8(dst []byte, v uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	return append(dst, b[:]...)
}

// KeyMeta builds the feed metadata key.
func KeyMeta(name string) []byte {
	k := make([]byte, 0, len(feedPrefix)+len(name)+len(metaSuffix))
	k = append(k, feedPrefix...)
	k = append(k, name...)
	k = append(k, metaSuffix...)
	return k
}

// KeyEntry builds the entry key with a big-endian index for proper ordering.
func KeyEntry(name string, index uint64) []byte {
	k := make([]byte, 0, len(feedPrefix)+len(name)+len(entrySeg)+8)
	k = append(k, feedPrefix...)
	k = append(k, name...)
	k = append(k, entrySeg...)
	k = appendBE8(k, index)
	return k
}
