// Package manifest implements the package-metadata cache of spec.md §4.7
// (C7): a file-backed, URL-keyed cache over the upstream registry
// response, with fresh/stale/expired temporal tiers so a transient
// network failure doesn't block an otherwise-routine ingestion run.
package manifest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

const (
	freshWindow = 24 * time.Hour
	staleWindow = 30 * 24 * time.Hour
)

// Entry is one cached registry response.
type Entry struct {
	Body     []byte            `msgpack:"body"`
	Headers  map[string]string `msgpack:"headers"`
	CachedAt time.Time         `msgpack:"cachedAt"`
}

func (e Entry) age(now time.Time) time.Duration {
	return now.Sub(e.CachedAt)
}

// FetchFunc performs the live network fetch for a URL when the cache is
// absent, stale, or expired.
type FetchFunc func(ctx context.Context) (body []byte, headers map[string]string, err error)

// Outcome classifies how Resolve satisfied one lookup, for logging.
type Outcome string

const (
	OutcomeFresh        Outcome = "fresh"
	OutcomeRefreshed    Outcome = "refreshed"
	OutcomeStaleWarning Outcome = "stale"
	OutcomeNetwork      Outcome = "network"
)

// Store is a file-backed, URL-keyed cache. One file holds every cached
// URL's entry (spec.md's `target/keyv-file.msgpack`), matching the
// single-file "keyv"-style store the upstream system uses.
type Store struct {
	path string
	mu   sync.Mutex
}

// NewStore opens (without yet reading) a Store backed by path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Resolve implements the four-branch freshness policy of spec.md §4.7.
func (s *Store) Resolve(ctx context.Context, url string, now time.Time, fetch FetchFunc) (Entry, Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.load()
	if err != nil {
		return Entry{}, "", fmt.Errorf("load manifest cache: %w", err)
	}

	cached, hasCached := entries[url]
	if hasCached {
		age := cached.age(now)
		switch {
		case age <= freshWindow:
			return cached, OutcomeFresh, nil
		case age < staleWindow:
			body, headers, ferr := fetch(ctx)
			if ferr == nil {
				fresh := Entry{Body: body, Headers: headers, CachedAt: now}
				entries[url] = fresh
				if err := s.save(entries); err != nil {
					return Entry{}, "", fmt.Errorf("save refreshed manifest cache: %w", err)
				}
				return fresh, OutcomeRefreshed, nil
			}
			return cached, OutcomeStaleWarning, nil
		default:
			// age >= 30 days: treat as absent.
			hasCached = false
		}
	}

	body, headers, err := fetch(ctx)
	if err != nil {
		return Entry{}, "", fmt.Errorf("fetch manifest: %w", err)
	}
	fresh := Entry{Body: body, Headers: headers, CachedAt: now}
	entries[url] = fresh
	if err := s.save(entries); err != nil {
		return Entry{}, "", fmt.Errorf("save manifest cache: %w", err)
	}
	return fresh, OutcomeNetwork, nil
}

func (s *Store) load() (map[string]Entry, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return make(map[string]Entry), nil
	}
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return make(map[string]Entry), nil
	}
	var entries map[string]Entry
	if err := msgpack.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	if entries == nil {
		entries = make(map[string]Entry)
	}
	return entries, nil
}

func (s *Store) save(entries map[string]Entry) error {
	data, err := msgpack.Marshal(entries)
	if err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}
