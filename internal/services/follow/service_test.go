package follow

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rzbill/logpipe/internal/feed"
	pebblestore "github.com/rzbill/logpipe/internal/storage/pebble"
)

type chanSink struct {
	ctx context.Context

	mu      sync.Mutex
	items   []Item
	flushes int
}

func newChanSink(ctx context.Context) *chanSink { return &chanSink{ctx: ctx} }

func (s *chanSink) Send(it Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, it)
	return nil
}

func (s *chanSink) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flushes++
	return nil
}

func (s *chanSink) Context() context.Context { return s.ctx }

func (s *chanSink) snapshot() []Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Item(nil), s.items...)
}

func newTestFeed(t *testing.T) *feed.Feed {
	t.Helper()
	db, err := pebblestore.Open(pebblestore.Options{DataDir: t.TempDir(), Fsync: pebblestore.FsyncModeNever})
	if err != nil {
		t.Fatalf("open pebble: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	f, err := feed.Open(db, "events", nil)
	if err != nil {
		t.Fatalf("open feed: %v", err)
	}
	return f
}

func TestFollowFromEarliest(t *testing.T) {
	f := newTestFeed(t)
	ctx := context.Background()
	if _, err := f.Append(ctx, []byte("a"), []byte("b"), []byte("c")); err != nil {
		t.Fatalf("append: %v", err)
	}

	svc := New(nil)
	sink := newChanSink(ctx)
	if err := svc.Follow(ctx, f, "events", Options{Earliest: true, Limit: 3}, sink); err != nil {
		t.Fatalf("follow: %v", err)
	}

	items := sink.snapshot()
	if len(items) != 3 {
		t.Fatalf("want 3 items, got %d", len(items))
	}
	for i, it := range items {
		if it.Index != uint64(i) {
			t.Fatalf("item %d: want index %d, got %d", i, i, it.Index)
		}
	}
	if string(items[2].Payload) != "c" {
		t.Fatalf("want payload c, got %q", items[2].Payload)
	}
}

func TestFollowTailSkipsExisting(t *testing.T) {
	f := newTestFeed(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := f.Append(ctx, []byte("old1"), []byte("old2")); err != nil {
		t.Fatalf("append: %v", err)
	}

	go func() {
		time.Sleep(50 * time.Millisecond)
		_, _ = f.Append(context.Background(), []byte("new"))
	}()

	svc := New(nil)
	sink := newChanSink(ctx)
	if err := svc.Follow(ctx, f, "events", Options{Limit: 1}, sink); err != nil {
		t.Fatalf("follow: %v", err)
	}

	items := sink.snapshot()
	if len(items) != 1 {
		t.Fatalf("want 1 item, got %d", len(items))
	}
	if items[0].Index != 2 || string(items[0].Payload) != "new" {
		t.Fatalf("tail subscriber saw %d/%q, want 2/%q", items[0].Index, items[0].Payload, "new")
	}
}

func TestFollowFilter(t *testing.T) {
	f := newTestFeed(t)
	ctx := context.Background()
	if _, err := f.Append(ctx, []byte("a"), []byte("b"), []byte("c")); err != nil {
		t.Fatalf("append: %v", err)
	}

	svc := New(nil)
	sink := newChanSink(ctx)
	opts := Options{Earliest: true, Filter: `text == "b"`, Limit: 1}
	if err := svc.Follow(ctx, f, "events", opts, sink); err != nil {
		t.Fatalf("follow: %v", err)
	}

	items := sink.snapshot()
	if len(items) != 1 || items[0].Index != 1 {
		t.Fatalf("filter should deliver only index 1, got %+v", items)
	}
}

func TestFollowBadFilter(t *testing.T) {
	f := newTestFeed(t)
	svc := New(nil)
	sink := newChanSink(context.Background())

	err := svc.Follow(context.Background(), f, "events", Options{Filter: "not ( valid"}, sink)
	if err == nil {
		t.Fatalf("want compile error for invalid filter")
	}
}

func TestFollowCancelDetaches(t *testing.T) {
	f := newTestFeed(t)
	ctx, cancel := context.WithCancel(context.Background())

	svc := New(nil)
	sink := newChanSink(ctx)
	done := make(chan error, 1)
	go func() { done <- svc.Follow(ctx, f, "events", Options{}, sink) }()

	time.Sleep(50 * time.Millisecond)
	if got := svc.ActiveSubscribers("events"); got != 1 {
		t.Fatalf("want 1 active subscriber, got %d", got)
	}
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("follow after cancel: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("follow did not stop on cancel")
	}
	if got := svc.ActiveSubscribers("events"); got != 0 {
		t.Fatalf("want 0 active subscribers, got %d", got)
	}
}
