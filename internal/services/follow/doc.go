// Package follow provides a fan-out layer over live readers: it attaches a
// subscriber sink to a feed, optionally filtered by a CEL expression, and
// pushes new entries as they are appended.
//
// Performance tunables (env-driven, read at construction time):
//   - LOGPIPE_FOLLOW_FLUSH_MS: optional flush window in ms (default 0).
//     When >0, the subscriber writer coalesces sends for up to the window
//     before flushing. Small values (2-5ms) reduce flush overhead at high
//     append rates.
//   - LOGPIPE_FOLLOW_BUF: buffered item capacity per subscriber (default
//     1024). Increase for bursty producers or slow transports.
package follow
