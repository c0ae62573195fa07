// Package query implements the search query composer of spec.md §4.9
// (C9): turns a user string and page number into a paginated, ranked
// result set against the backend wired in internal/searchindex.
package query

import (
	"context"
	"fmt"

	"github.com/addresskit/addresskit/internal/searchindex"
)

const (
	// MaxPageNumber and MaxPageSize bound pagination, per spec.md §4.9.
	MaxPageNumber = 1000
	MaxPageSize   = 100

	// DefaultPageSize is used when the caller passes zero.
	DefaultPageSize = 8
)

// Hit is one ranked result.
type Hit struct {
	PID   string  `json:"pid"`
	SLA   string  `json:"sla"`
	Score float64 `json:"score"`
}

// Result is a paginated response from Search.
type Result struct {
	Hits  []Hit `json:"hits"`
	Total int   `json:"total"`
	Page  int   `json:"page"`
}

// Composer produces and runs queries against one search index.
type Composer struct {
	client *searchindex.Client
}

// New builds a Composer over client.
func New(client *searchindex.Client) *Composer {
	return &Composer{client: client}
}

// Search implements spec.md §4.9's search(q, page, pageSize) contract.
func (c *Composer) Search(ctx context.Context, q string, page, pageSize int) (*Result, error) {
	page = clamp(page, 1, MaxPageNumber)
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	pageSize = clamp(pageSize, 1, MaxPageSize)
	offset := (page - 1) * pageSize

	body := buildQuery(q, offset, pageSize)
	res, err := c.client.Search(ctx, body)
	if err != nil {
		return nil, fmt.Errorf("search backend: %w", err)
	}

	hits := make([]Hit, 0, len(res.Hits.Hits))
	for _, h := range res.Hits.Hits {
		pid, _ := h.Source["pid"].(string)
		sla, _ := h.Source["sla"].(string)
		hits = append(hits, Hit{PID: pid, SLA: sla, Score: h.Score})
	}

	return &Result{Hits: hits, Total: res.Hits.Total.Value, Page: page}, nil
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// buildQuery composes the bool_prefix/phrase_prefix disjunction and
// tie-breaking sort order of spec.md §4.9.
func buildQuery(q string, from, size int) map[string]any {
	fields := []string{"sla", "ssla"}

	boolPrefix := map[string]any{
		"multi_match": map[string]any{
			"query":     q,
			"type":      "bool_prefix",
			"fields":    fields,
			"fuzziness": "AUTO",
			"operator":  "and",
			"lenient":   true,
			"auto_generate_synonyms_phrase_query": false,
		},
	}
	phrasePrefix := map[string]any{
		"multi_match": map[string]any{
			"query":    q,
			"type":     "phrase_prefix",
			"fields":   fields,
			"operator": "and",
			"lenient":  true,
			"auto_generate_synonyms_phrase_query": false,
		},
	}

	return map[string]any{
		"from": from,
		"size": size,
		"query": map[string]any{
			"bool": map[string]any{
				"should": []map[string]any{boolPrefix, phrasePrefix},
			},
		},
		"sort": []map[string]any{
			{"_score": "desc"},
			{"confidence": "desc"},
			{"ssla.raw": "asc"},
			{"sla.raw": "asc"},
		},
	}
}
