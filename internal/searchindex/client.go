// Package searchindex wraps the external search backend (spec.md §3.3):
// bulk indexing with unbounded backoff retry, document get, fuzzy search,
// and index lifecycle management. The wrapper follows the "thin struct
// embedding a client, one method per domain operation" shape the teacher
// pack uses for its own search client, upgraded from the unmaintained
// elastigo to the actively maintained v8 client.
package searchindex

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

// Client is a thin wrapper around the backend client, narrowed to the
// operations addresskit needs: bulk, get, search, refresh, create/drop
// index (spec.md §3.3 Non-goals exclude anything beyond this set).
type Client struct {
	es        *elasticsearch.Client
	indexName string
	backoff   BackoffSchedule
	log       *slog.Logger
}

// Config configures a new Client.
type Config struct {
	Addresses []string
	Username  string
	Password  string
	IndexName string
	Backoff   BackoffSchedule
	Log       *slog.Logger
}

// NewClient constructs a Client against the given backend addresses.
func NewClient(cfg Config) (*Client, error) {
	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: cfg.Addresses,
		Username:  cfg.Username,
		Password:  cfg.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("construct search client: %w", err)
	}
	log := cfg.Log
	if log == nil {
		log = slog.Default()
	}
	bo := cfg.Backoff
	if bo.Initial <= 0 {
		bo = DefaultBackoff()
	}
	return &Client{es: es, indexName: cfg.IndexName, backoff: bo, log: log}, nil
}

// CreateIndex creates the backend index with the given mapping/settings
// body if it does not already exist. Idempotent.
func (c *Client) CreateIndex(ctx context.Context, body map[string]any) error {
	exists, err := esapi.IndicesExistsRequest{Index: []string{c.indexName}}.Do(ctx, c.es)
	if err != nil {
		return fmt.Errorf("check index existence: %w", err)
	}
	defer exists.Body.Close()
	if exists.StatusCode == 200 {
		return nil
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal index body: %w", err)
	}
	res, err := esapi.IndicesCreateRequest{
		Index: c.indexName,
		Body:  bytes.NewReader(payload),
	}.Do(ctx, c.es)
	if err != nil {
		return fmt.Errorf("create index: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("create index: backend returned %s", res.Status())
	}
	return nil
}

// DropIndex deletes the backend index, used by `--clear` (spec.md §9).
func (c *Client) DropIndex(ctx context.Context) error {
	res, err := esapi.IndicesDeleteRequest{Index: []string{c.indexName}}.Do(ctx, c.es)
	if err != nil {
		return fmt.Errorf("drop index: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() && res.StatusCode != 404 {
		return fmt.Errorf("drop index: backend returned %s", res.Status())
	}
	return nil
}

// Get fetches one document by id. ok is false on a 404.
func (c *Client) Get(ctx context.Context, id string) (doc map[string]any, ok bool, err error) {
	res, err := esapi.GetRequest{Index: c.indexName, DocumentID: id}.Do(ctx, c.es)
	if err != nil {
		return nil, false, fmt.Errorf("get %q: %w", id, err)
	}
	defer res.Body.Close()
	if res.StatusCode == 404 {
		return nil, false, nil
	}
	if res.IsError() {
		return nil, false, fmt.Errorf("get %q: backend returned %s", id, res.Status())
	}

	var envelope struct {
		Source map[string]any `json:"_source"`
	}
	if err := json.NewDecoder(res.Body).Decode(&envelope); err != nil {
		return nil, false, fmt.Errorf("decode get response: %w", err)
	}
	return envelope.Source, true, nil
}

// Refresh makes all operations performed since the last refresh visible
// to search, for use after a load that submitted with refresh=false
// (spec.md §4.6). The ingest orchestrator does not call it.
func (c *Client) Refresh(ctx context.Context) error {
	res, err := esapi.IndicesRefreshRequest{Index: []string{c.indexName}}.Do(ctx, c.es)
	if err != nil {
		return fmt.Errorf("refresh: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("refresh: backend returned %s", res.Status())
	}
	return nil
}

// Search executes a raw query body against the index.
func (c *Client) Search(ctx context.Context, query map[string]any) (*SearchResult, error) {
	payload, err := json.Marshal(query)
	if err != nil {
		return nil, fmt.Errorf("marshal query: %w", err)
	}
	res, err := esapi.SearchRequest{
		Index: []string{c.indexName},
		Body:  bytes.NewReader(payload),
	}.Do(ctx, c.es)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, fmt.Errorf("search: backend returned %s", res.Status())
	}

	var sr SearchResult
	if err := json.NewDecoder(res.Body).Decode(&sr); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}
	return &sr, nil
}

// SearchResult is the subset of the backend's search response shape
// addresskit's query composer needs.
type SearchResult struct {
	Hits struct {
		Total struct {
			Value int `json:"value"`
		} `json:"total"`
		Hits []struct {
			ID     string         `json:"_id"`
			Score  float64        `json:"_score"`
			Source map[string]any `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}
