package feed

import (
	"bytes"
	"testing"
)

func TestEntryKeyOrdering(t *testing.T) {
	a := KeyEntry("f", 10)
	b := KeyEntry("f", 11)
	if bytes.Compare(a, b) >= 0 {
		t.Fatalf("expected index 10 < index 11")
	}
	if !bytes.HasPrefix(a, []byte("feed/f/e/")) {
		t.Fatalf("unexpected entry key layout: %q", a)
	}
}

func TestMetaKey(t *testing.T) {
	if string(KeyMeta("events")) != "feed/events/m" {
		t.Fatalf("unexpected meta key: %q", KeyMeta("events"))
	}
}
