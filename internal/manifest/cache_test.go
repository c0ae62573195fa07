package manifest_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/addresskit/addresskit/internal/manifest"
)

const testURL = "https://data.gov.au/geoscape/gnaf/current.json"

func notCalled(t *testing.T) manifest.FetchFunc {
	return func(ctx context.Context) ([]byte, map[string]string, error) {
		t.Fatal("fetch should not have been called")
		return nil, nil, nil
	}
}

func TestResolve_FreshWithinOneDayMinusOneMillisecond(t *testing.T) {
	store := manifest.NewStore(filepath.Join(t.TempDir(), "manifest.msgpack"))
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	if _, _, err := store.Resolve(context.Background(), testURL, base, func(ctx context.Context) ([]byte, map[string]string, error) {
		return []byte(`{"result":{}}`), nil, nil
	}); err != nil {
		t.Fatalf("seed Resolve: %v", err)
	}

	readAt := base.Add(24*time.Hour - time.Millisecond)
	entry, outcome, err := store.Resolve(context.Background(), testURL, readAt, notCalled(t))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if outcome != manifest.OutcomeFresh {
		t.Errorf("outcome = %q, want fresh", outcome)
	}
	if string(entry.Body) != `{"result":{}}` {
		t.Errorf("entry.Body = %q", entry.Body)
	}
}

func TestResolve_StaleWithNetworkFailureReturnsCachedWarning(t *testing.T) {
	store := manifest.NewStore(filepath.Join(t.TempDir(), "manifest.msgpack"))
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	if _, _, err := store.Resolve(context.Background(), testURL, base, func(ctx context.Context) ([]byte, map[string]string, error) {
		return []byte("cached-body"), nil, nil
	}); err != nil {
		t.Fatalf("seed Resolve: %v", err)
	}

	readAt := base.Add(24*time.Hour + time.Millisecond)
	entry, outcome, err := store.Resolve(context.Background(), testURL, readAt, func(ctx context.Context) ([]byte, map[string]string, error) {
		return nil, nil, errors.New("network unreachable")
	})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if outcome != manifest.OutcomeStaleWarning {
		t.Errorf("outcome = %q, want stale", outcome)
	}
	if string(entry.Body) != "cached-body" {
		t.Errorf("entry.Body = %q, want the stale cached body", entry.Body)
	}
}

func TestResolve_ExpiredWithNetworkFailureSurfacesError(t *testing.T) {
	store := manifest.NewStore(filepath.Join(t.TempDir(), "manifest.msgpack"))
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	if _, _, err := store.Resolve(context.Background(), testURL, base, func(ctx context.Context) ([]byte, map[string]string, error) {
		return []byte("cached-body"), nil, nil
	}); err != nil {
		t.Fatalf("seed Resolve: %v", err)
	}

	readAt := base.Add(30 * 24 * time.Hour)
	wantErr := errors.New("network unreachable")
	_, _, err := store.Resolve(context.Background(), testURL, readAt, func(ctx context.Context) ([]byte, map[string]string, error) {
		return nil, nil, wantErr
	})
	if err == nil {
		t.Fatal("expected an error once the cache entry has expired past 30 days")
	}
}

func TestResolve_StaleWithSuccessfulNetworkFetchRefreshesCache(t *testing.T) {
	store := manifest.NewStore(filepath.Join(t.TempDir(), "manifest.msgpack"))
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	if _, _, err := store.Resolve(context.Background(), testURL, base, func(ctx context.Context) ([]byte, map[string]string, error) {
		return []byte("old-body"), nil, nil
	}); err != nil {
		t.Fatalf("seed Resolve: %v", err)
	}

	readAt := base.Add(2 * 24 * time.Hour)
	entry, outcome, err := store.Resolve(context.Background(), testURL, readAt, func(ctx context.Context) ([]byte, map[string]string, error) {
		return []byte("new-body"), nil, nil
	})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if outcome != manifest.OutcomeRefreshed {
		t.Errorf("outcome = %q, want refreshed", outcome)
	}
	if string(entry.Body) != "new-body" {
		t.Errorf("entry.Body = %q, want new-body", entry.Body)
	}

	again, outcome2, err := store.Resolve(context.Background(), testURL, readAt, notCalled(t))
	if err != nil {
		t.Fatalf("second Resolve: %v", err)
	}
	if outcome2 != manifest.OutcomeFresh {
		t.Errorf("outcome = %q, want fresh from the just-refreshed entry", outcome2)
	}
	if string(again.Body) != "new-body" {
		t.Errorf("persisted refreshed body = %q, want new-body", again.Body)
	}
}
