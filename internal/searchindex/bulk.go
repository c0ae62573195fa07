package searchindex

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/elastic/go-elasticsearch/v8/esapi"

	"github.com/addresskit/addresskit/internal/metrics"
)

// Operation is one upsert directive for Submit's batch, one document per
// operation (spec.md §4.6).
type Operation struct {
	DocumentID string
	Document   map[string]any
}

// BackoffSchedule is C6's unbounded increment-and-cap retry schedule,
// distinct from C1's exponential-with-jitter schedule: initial delay,
// fixed increment per attempt, capped, and never exhausted (spec.md
// §4.6). Configurable via ADDRESSKIT_INDEX_BACKOFF{,_INCREMENT,_MAX}.
type BackoffSchedule struct {
	Initial   time.Duration
	Increment time.Duration
	Max       time.Duration
}

// DefaultBackoff returns the spec.md §4.6 defaults: 30s initial, +30s
// per attempt, capped at 600s.
func DefaultBackoff() BackoffSchedule {
	return BackoffSchedule{
		Initial:   30 * time.Second,
		Increment: 30 * time.Second,
		Max:       600 * time.Second,
	}
}

func (b BackoffSchedule) delay(attempt int) time.Duration {
	d := b.Initial + time.Duration(attempt)*b.Increment
	if d > b.Max {
		d = b.Max
	}
	return d
}

// Submit builds one bulk request from ops and submits it, retrying the
// entire batch with unbounded backoff on a top-level error or any
// per-item error (spec.md §4.6: dropping records is worse than
// pausing). refresh controls the backend's visibility semantics for this
// request; normal ingestion runs with refresh=false.
func (c *Client) Submit(ctx context.Context, ops []Operation, refresh bool) error {
	if len(ops) == 0 {
		return nil
	}
	body, err := buildBulkBody(c.indexName, ops)
	if err != nil {
		return fmt.Errorf("build bulk body: %w", err)
	}

	attempt := 0
	for {
		metrics.BulkRequests.Inc()
		start := time.Now()
		failed, err := c.submitOnce(ctx, body, refresh)
		metrics.BulkRequestDuration.Observe(time.Since(start).Seconds())
		if err == nil && !failed {
			metrics.DocumentsIndexed.Add(float64(len(ops)))
			return nil
		}
		if err != nil {
			c.log.Warn("bulk submit failed", "attempt", attempt, "error", err)
		} else {
			c.log.Warn("bulk submit reported per-item errors, retrying whole batch", "attempt", attempt)
		}
		metrics.BulkRetries.Inc()

		delay := c.backoff.delay(attempt)
		attempt++
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
}

// submitOnce performs one bulk attempt. failed is true when the backend
// reported a top-level or per-item error; err is non-nil only for
// transport/decode failures.
func (c *Client) submitOnce(ctx context.Context, body []byte, refresh bool) (failed bool, err error) {
	req := esapi.BulkRequest{
		Body: bytes.NewReader(body),
	}
	if refresh {
		req.Refresh = "true"
	}

	res, err := req.Do(ctx, c.es)
	if err != nil {
		return false, fmt.Errorf("bulk request: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return false, fmt.Errorf("bulk request: backend returned %s", res.Status())
	}

	var decoded struct {
		Errors bool `json:"errors"`
		Items  []map[string]struct {
			Status int `json:"status"`
			Error  any `json:"error,omitempty"`
		} `json:"items"`
	}
	if err := json.NewDecoder(res.Body).Decode(&decoded); err != nil {
		return false, fmt.Errorf("decode bulk response: %w", err)
	}
	return decoded.Errors, nil
}

func buildBulkBody(indexName string, ops []Operation) ([]byte, error) {
	var buf bytes.Buffer
	for _, op := range ops {
		directive := map[string]any{
			"index": map[string]any{
				"_index": indexName,
				"_id":    op.DocumentID,
			},
		}
		directiveLine, err := json.Marshal(directive)
		if err != nil {
			return nil, err
		}
		docLine, err := json.Marshal(op.Document)
		if err != nil {
			return nil, fmt.Errorf("marshal document %q: %w", op.DocumentID, err)
		}
		buf.Write(directiveLine)
		buf.WriteByte('\n')
		buf.Write(docLine)
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}
