package searchindex_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/addresskit/addresskit/internal/searchindex"
)

func TestSubmit_RetriesOnTopLevelErrorsThenSucceeds(t *testing.T) {
	var attempts int
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		if attempts == 1 {
			json.NewEncoder(w).Encode(map[string]any{"errors": true, "items": []any{}})
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"errors": false, "items": []any{}})
	}))
	defer ts.Close()

	c, err := searchindex.NewClient(searchindex.Config{
		Addresses: []string{ts.URL},
		IndexName: "addresses",
		Backoff: searchindex.BackoffSchedule{
			Initial:   1 * time.Millisecond,
			Increment: 1 * time.Millisecond,
			Max:       5 * time.Millisecond,
		},
	})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	ops := []searchindex.Operation{{DocumentID: "/addresses/GA1", Document: map[string]any{"sla": "1 MAIN ST"}}}
	if err := c.Submit(context.Background(), ops, false); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if attempts != 2 {
		t.Errorf("expected exactly 2 attempts (fail then succeed), got %d", attempts)
	}
}

func TestSubmit_EmptyBatchIsNoop(t *testing.T) {
	c, err := searchindex.NewClient(searchindex.Config{Addresses: []string{"http://127.0.0.1:9"}, IndexName: "addresses"})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	if err := c.Submit(context.Background(), nil, false); err != nil {
		t.Errorf("Submit(nil) = %v, want nil", err)
	}
}
