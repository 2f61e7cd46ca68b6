package follow

import (
	"context"
	"errors"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rzbill/logpipe/internal/streams"
)

// Item is one entry delivered to a subscriber.
type Item struct {
	Index   uint64
	Payload []byte
}

// Sink receives delivered items. Send may buffer; Flush pushes buffered
// items to the transport. Context cancels the subscription when done.
type Sink interface {
	Send(it Item) error
	Flush() error
	Context() context.Context
}

// Options configures one subscription.
type Options struct {
	// Start is the first index to deliver. When nil, delivery starts at the
	// feed tail unless Earliest is set.
	Start *uint64
	// Earliest starts from index 0 when Start is nil.
	Earliest bool
	// Filter is an optional CEL expression over {index, size, text, json,
	// now_ms}; entries evaluating false are dropped.
	Filter string
	// Limit stops the subscription after this many delivered items.
	// Zero means unlimited.
	Limit int
	// Batch is the reader fetch width. Defaults to 128.
	Batch int
}

// Service attaches live subscribers to feeds.
type Service struct {
	logger      *zap.Logger
	flushWindow time.Duration
	bufLen      int

	subsMu sync.Mutex
	active map[string]int
}

// New returns a Service. Tunables are read from the environment at
// construction time.
func New(logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		logger:      logger.With(zap.String("component", "follow")),
		flushWindow: readFlushWindow(),
		bufLen:      readBufLen(),
		active:      map[string]int{},
	}
}

func readFlushWindow() time.Duration {
	if v := os.Getenv("LOGPIPE_FOLLOW_FLUSH_MS"); v != "" {
		if ms, err := strconv.ParseInt(v, 10, 64); err == nil && ms > 0 {
			return time.Duration(ms) * time.Millisecond
		}
	}
	return 0
}

func readBufLen() int {
	if v := os.Getenv("LOGPIPE_FOLLOW_BUF"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return 1024
}

// ActiveSubscribers reports how many subscribers are attached to name.
func (s *Service) ActiveSubscribers(name string) int {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	return s.active[name]
}

func (s *Service) addSub(name string) {
	s.subsMu.Lock()
	s.active[name]++
	s.subsMu.Unlock()
}

func (s *Service) removeSub(name string) {
	s.subsMu.Lock()
	if s.active[name] <= 1 {
		delete(s.active, name)
	} else {
		s.active[name]--
	}
	s.subsMu.Unlock()
}

// Follow runs a live subscription over f until the sink context or ctx is
// cancelled, the limit is reached, or the feed closes. Delivery order is
// feed index order.
func (s *Service) Follow(ctx context.Context, f streams.Feed, name string, opts Options, sink Sink) error {
	sub := uuid.NewString()
	s.addSub(name)
	defer s.removeSub(name)
	logger := s.logger.With(zap.String("stream", name), zap.String("subscriber", sub))
	logger.Debug("subscriber attached")
	defer logger.Debug("subscriber detached")

	cf, err := newCELFilter(opts.Filter)
	if err != nil {
		return err
	}

	// Per-subscriber async writer so slow sinks don't stall the read loop
	// beyond the buffer.
	outCh := make(chan Item, s.bufLen)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.runSinkWriter(outCh, sink)
	}()
	defer func() { close(outCh); wg.Wait() }()

	batch := opts.Batch
	if batch <= 0 {
		batch = 128
	}
	ropts := streams.ReaderOptions{Live: true, Batch: batch}
	switch {
	case opts.Start != nil:
		ropts.Start = opts.Start
	case opts.Earliest:
		zero := uint64(0)
		ropts.Start = &zero
	default:
		ropts.Tail = true
	}
	r := streams.NewReader(f, ropts)
	defer r.Close()

	sent := 0
	for {
		ent, err := r.Next(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			return err
		}
		payload, _ := ent.Bytes()
		if !cf.Eval(ent.Index, payload) {
			continue
		}
		select {
		case outCh <- Item{Index: ent.Index, Payload: payload}:
		case <-sink.Context().Done():
			return nil
		case <-ctx.Done():
			return nil
		}
		sent++
		if opts.Limit > 0 && sent >= opts.Limit {
			return nil
		}
	}
}

// runSinkWriter drains outCh into the sink, flushing every 64 sends or at
// the configured flush window, whichever comes first.
func (s *Service) runSinkWriter(outCh <-chan Item, sink Sink) {
	pending := 0
	var timer *time.Timer
	if s.flushWindow > 0 {
		timer = time.NewTimer(s.flushWindow)
		defer timer.Stop()
	}
	flush := func() {
		if pending > 0 {
			_ = sink.Flush()
			pending = 0
		}
	}
	timerC := func() <-chan time.Time {
		if timer != nil {
			return timer.C
		}
		return nil
	}
	for {
		select {
		case it, ok := <-outCh:
			if !ok {
				flush()
				return
			}
			if err := sink.Send(it); err != nil {
				return
			}
			pending++
			if s.flushWindow == 0 || pending >= 64 {
				flush()
				if timer != nil {
					if !timer.Stop() {
						select {
						case <-timer.C:
						default:
						}
					}
					timer.Reset(s.flushWindow)
				}
			}
		case <-sink.Context().Done():
			return
		case <-timerC():
			flush()
			timer.Reset(s.flushWindow)
		}
	}
}
