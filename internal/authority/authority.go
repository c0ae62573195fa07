// Package authority loads G-NAF's small authority-code tables into
// constant-time code->name lookups, per spec.md §4.3.
package authority

import (
	"context"
	"log/slog"
	"sort"

	"golang.org/x/sync/errgroup"
)

// Table names a single authority-code table. These are the nine tables
// G-NAF publishes; the set is closed because the layout is fixed per
// quarterly release (spec.md Non-goals).
type Table string

const (
	LevelType         Table = "level_type"
	FlatType          Table = "flat_type"
	StreetType        Table = "street_type"
	StreetClass       Table = "street_class"
	LocalityClass     Table = "locality_class"
	StreetSuffix      Table = "street_suffix"
	GeocodeReliability Table = "geocode_reliability"
	GeocodeType       Table = "geocode_type"
	GeocodedLevelType Table = "geocoded_level_type"
)

// AllTables lists every table loaded by an ingestion run.
var AllTables = []Table{
	LevelType, FlatType, StreetType, StreetClass, LocalityClass,
	StreetSuffix, GeocodeReliability, GeocodeType, GeocodedLevelType,
}

// Code is one row of an authority table.
type Code struct {
	Code string
	Name string
}

// Source loads the raw (code, name) rows for one table, typically by
// streaming a pipe-separated authority file. Supplied by the orchestrator.
type Source func(ctx context.Context, table Table) ([]Code, error)

// Index is a constant-time, read-mostly lookup built once per ingestion
// run and passed by reference to the mapper, per the "authority-code
// lazy initialisation" design note in spec.md §9: no global, no lazy
// wiring, built eagerly during orchestration.
type Index struct {
	tables map[Table]map[string]string
	log    *slog.Logger
}

// New builds an empty Index. Call Load before using it.
func New(log *slog.Logger) *Index {
	if log == nil {
		log = slog.Default()
	}
	return &Index{tables: make(map[Table]map[string]string), log: log}
}

// Load populates every table in AllTables from src, fanning the nine
// independent table loads out across goroutines — they touch distinct
// files and distinct maps, so this stays within the "no worker pool
// within a file" rule in spec.md §5: no single file's row stream is ever
// shared across goroutines here.
func (idx *Index) Load(ctx context.Context, src Source) error {
	results := make([]map[string]string, len(AllTables))

	g, gctx := errgroup.WithContext(ctx)
	for i, table := range AllTables {
		i, table := i, table
		g.Go(func() error {
			codes, err := src(gctx, table)
			if err != nil {
				return err
			}
			m := make(map[string]string, len(codes))
			for _, c := range codes {
				m[c.Code] = c.Name
			}
			results[i] = m
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for i, table := range AllTables {
		idx.tables[table] = results[i]
	}
	return nil
}

// Reset clears all loaded tables. Required between ingestion runs because
// a new quarterly release may extend a table (spec.md §4.3).
func (idx *Index) Reset() {
	idx.tables = make(map[Table]map[string]string)
}

// Lookup resolves code against table. ok is false when the code has no
// entry; callers must treat that as non-fatal per spec.md §3.2 and fall
// back to the raw code.
func (idx *Index) Lookup(table Table, code string) (name string, ok bool) {
	if code == "" {
		return "", false
	}
	m, exists := idx.tables[table]
	if !exists {
		return "", false
	}
	name, ok = m[code]
	return name, ok
}

// LookupOrWarn resolves code against table and logs a diagnostic for an
// unrecognised code (spec.md §3.2: non-fatal, logging-resilient). It
// returns the name on a hit, or the raw code itself as the fallback.
func (idx *Index) LookupOrWarn(table Table, code string) string {
	name, ok := idx.Lookup(table, code)
	if ok {
		return name
	}
	if code != "" {
		idx.log.Warn("unrecognised authority code", "table", string(table), "code", code)
	}
	return code
}

// Synonyms produces the flattened, deduplicated {CODE, NAME} synonym list
// for the search backend's synonym-expansion analyser, over street-type,
// flat-type, level-type and street-suffix, per spec.md §4.3.
func (idx *Index) Synonyms() []string {
	tables := []Table{StreetType, FlatType, LevelType, StreetSuffix}
	seen := make(map[string]struct{})
	var out []string
	for _, table := range tables {
		m, ok := idx.tables[table]
		if !ok {
			continue
		}
		for code, name := range m {
			if name == "" {
				continue
			}
			line := code + ", " + name
			if _, dup := seen[line]; dup {
				continue
			}
			seen[line] = struct{}{}
			out = append(out, line)
		}
	}
	sort.Strings(out)
	return out
}
