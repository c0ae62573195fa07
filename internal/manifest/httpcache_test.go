package manifest_test

import (
	"testing"
	"time"

	"github.com/addresskit/addresskit/internal/manifest"
)

func TestShortTTLCache_ExpiresAfterTTL(t *testing.T) {
	c := manifest.NewShortTTLCache(time.Minute)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	c.Put("https://example.org/x", []byte("body"), nil, base)

	if _, _, ok := c.Get("https://example.org/x", base.Add(30*time.Second)); !ok {
		t.Error("expected a hit within the TTL window")
	}
	if _, _, ok := c.Get("https://example.org/x", base.Add(61*time.Second)); ok {
		t.Error("expected a miss past the TTL window")
	}
}
