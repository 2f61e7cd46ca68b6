// Package pebblestore implements the storage.Backend contract over Pebble
// with fsync policy and minimal metrics hooks.
//
// Usage:
//
//	db, err := pebblestore.Open(pebblestore.Options{
//	    DataDir: "./data",
//	    Fsync:   pebblestore.FsyncModeInterval,
//	})
//	if err != nil { /* handle */ }
//	defer db.Close()
//
//	// Atomic multi-key writes
//	_ = db.ApplyBatch([]storage.Op{{Key: []byte("k"), Value: []byte("v")}})
//
//	// Point ops and ordered scans
//	v, _ := db.Get([]byte("k"))
//	_ = db.Scan(low, high, func(k, v []byte) error { return nil })
package pebblestore
