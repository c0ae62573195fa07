// Package fetch implements the resumable, retrying HTTP file fetcher of
// spec.md §4.1 (C1): it streams a large archive to disk, resumes partial
// downloads by byte range, retries transient failures with exponential
// backoff, and detects corrupted or truncated transfers before they are
// mistaken for a complete file.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/addresskit/addresskit/internal/metrics"
)

const maxRangeRestarts = 3

// Fetcher downloads one artifact at a time. It holds no per-download
// state between calls — Fetch State (spec.md §3.1) is scoped to a single
// attempt and lives entirely on the Go stack of one Fetch call.
type Fetcher struct {
	client *http.Client
}

// New builds a Fetcher. client may be nil to use http.DefaultTransport
// with no client-level timeout — Fetch enforces its own connect/socket
// timeouts instead, since a single client.Timeout can't distinguish
// "slow to connect" from "slow mid-transfer" (spec.md §4.1).
func New(client *http.Client) *Fetcher {
	if client == nil {
		client = &http.Client{}
	}
	return &Fetcher{client: client}
}

// Fetch downloads rawURL to destination, resuming a partial file already
// on disk when possible. Returns a *DownloadError on failure.
func (f *Fetcher) Fetch(ctx context.Context, rawURL, destination string, opts Options) (*Result, error) {
	opts = opts.withDefaults()

	bo := newBackOff(opts)
	retryAttempt := 0
	restarts := 0

	for {
		offset, deleteFirst := resumeOffset(destination, opts.ExpectedSize)
		if deleteFirst {
			_ = os.Remove(destination)
			offset = 0
		}

		n, restartReason, derr := f.attempt(ctx, rawURL, destination, offset, opts, retryAttempt)
		if derr == nil {
			return &Result{BytesWritten: n, Attempts: retryAttempt + 1, Resumed: offset > 0}, nil
		}

		if restartReason != "" {
			// "200 after a resume request" and "416" restart the download
			// from scratch without consuming the retry budget, bounded by
			// their own counter to prevent infinite loops (spec.md §4.1).
			metrics.FetchRestarts.Inc()
			restarts++
			if restarts > maxRangeRestarts {
				return nil, derr
			}
			_ = os.Remove(destination)
			continue
		}

		if !derr.Retryable {
			return nil, derr
		}
		metrics.FetchRetries.WithLabelValues(string(derr.Code)).Inc()
		retryAttempt++
		if retryAttempt > opts.MaxRetries {
			derr.Attempts = retryAttempt
			return nil, derr
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(bo.NextBackOff()):
		}
	}
}

// resumeOffset implements the resume protocol of spec.md §4.1.
func resumeOffset(destination string, expectedSize int64) (offset int64, deleteFirst bool) {
	info, err := os.Stat(destination)
	if err != nil {
		return 0, false
	}
	size := info.Size()
	if size <= 0 {
		return 0, false
	}
	if expectedSize <= 0 {
		// Unknown total: trust the existing size and attempt resume.
		return size, false
	}
	if size < expectedSize {
		return size, false
	}
	// size >= expectedSize: presumed corrupt or complete; restart fresh.
	return 0, true
}

// attempt performs one HTTP request/response cycle. A non-empty
// restartReason signals a 200-after-resume or 416 condition that should
// retry immediately without consuming the backoff budget.
func (f *Fetcher) attempt(ctx context.Context, rawURL, destination string, offset int64, opts Options, retryAttempt int) (written int64, restartReason string, derr *DownloadError) {
	resp, err := f.doRequestWithRedirects(ctx, rawURL, offset, opts, 0)
	if err != nil {
		return 0, "", classifyTransportError(err, 0)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusPartialContent:
		// Server honoured the range request; append starting at offset.
	case http.StatusOK:
		if offset > 0 {
			// Server doesn't support ranges; restart, not counted as a retry.
			return 0, "range-unsupported", newDownloadError(CodeRangeUnsupported, 0, errors.New("server returned 200 to a range request"))
		}
	case http.StatusRequestedRangeNotSatisfiable:
		return 0, "416", newDownloadError(CodeRangeUnsupported, offset, errors.New("requested range not satisfiable"))
	default:
		if retryableHTTPStatus(resp.StatusCode) {
			e := httpStatusError(resp.StatusCode, 0)
			return 0, "", e
		}
		e := httpStatusError(resp.StatusCode, 0)
		e.Retryable = false
		return 0, "", e
	}

	total := opts.ExpectedSize
	if total <= 0 && resp.ContentLength > 0 {
		total = offset + resp.ContentLength
	}

	n, werr := f.copyToFile(ctx, resp, destination, offset, total, opts, retryAttempt)
	if werr != nil {
		return n, "", werr
	}

	if total > 0 {
		if fi, statErr := os.Stat(destination); statErr == nil && fi.Size() != total {
			_ = os.Remove(destination)
			return n, "", newDownloadError(CodeSizeMismatch, n, fmt.Errorf("final size %d != expected %d", fi.Size(), total))
		}
	}

	return n, "", nil
}

func (f *Fetcher) doRequestWithRedirects(ctx context.Context, rawURL string, offset int64, opts Options, depth int) (*http.Response, error) {
	if depth > 10 {
		return nil, errors.New("too many redirects")
	}

	connectCtx, cancel := context.WithTimeout(ctx, opts.ConnectTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(connectCtx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	for k, v := range opts.Headers {
		req.Header.Set(k, v)
	}
	if offset > 0 {
		req.Header.Set("Range", fmt.Sprintf("bytes=%d-", offset))
	}

	transport := f.client
	noRedirectClient := &http.Client{
		Transport:     transport.Transport,
		CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse },
	}

	resp, err := noRedirectClient.Do(req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode >= 300 && resp.StatusCode < 400 {
		loc := resp.Header.Get("Location")
		resp.Body.Close()
		if loc == "" {
			return nil, fmt.Errorf("redirect status %d without Location", resp.StatusCode)
		}
		next, err := url.Parse(loc)
		if err != nil {
			return nil, fmt.Errorf("invalid redirect location: %w", err)
		}
		resolved := next
		if !next.IsAbs() {
			base, err := url.Parse(rawURL)
			if err != nil {
				return nil, err
			}
			resolved = base.ResolveReference(next)
		}
		return f.doRequestWithRedirects(ctx, resolved.String(), offset, opts, depth+1)
	}

	return resp, nil
}

// copyToFile streams resp.Body to destination, enforcing the two
// corruption checks of spec.md §4.1 and emitting throttled progress.
func (f *Fetcher) copyToFile(ctx context.Context, resp *http.Response, destination string, offset, total int64, opts Options, retryAttempt int) (int64, *DownloadError) {
	flag := os.O_CREATE | os.O_WRONLY
	if offset > 0 {
		flag |= os.O_APPEND
	} else {
		flag |= os.O_TRUNC
	}
	out, err := os.OpenFile(destination, flag, 0o644)
	if err != nil {
		return 0, newDownloadError(CodeProto, 0, err)
	}
	defer out.Close()

	overflowCap := int64(0)
	if total > 0 {
		overflowCap = total + 1024
		if scaled := int64(float64(total) * 1.01); scaled > overflowCap {
			overflowCap = scaled
		}
	}

	buf := make([]byte, 256*1024)
	var sessionBytes int64
	lastProgress := time.Now()
	lastProgressBytes := int64(0)

	watchdog := newInactivityWatchdog(opts.SocketTimeout)
	defer watchdog.stop()

	for {
		select {
		case <-ctx.Done():
			return sessionBytes, newDownloadError(CodeSocketTimeout, sessionBytes, ctx.Err())
		case <-watchdog.fired():
			return sessionBytes, newDownloadError(CodeSocketTimeout, sessionBytes, errors.New("socket inactivity timeout"))
		default:
		}

		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			watchdog.reset()
			if _, werr := out.Write(buf[:n]); werr != nil {
				return sessionBytes, newDownloadError(CodePipe, sessionBytes, werr)
			}
			sessionBytes += int64(n)

			if overflowCap > 0 && sessionBytes > overflowCap {
				out.Close()
				_ = os.Remove(destination)
				return sessionBytes, newDownloadError(CodeDataOverflow, sessionBytes, fmt.Errorf("received %d bytes, exceeding cap %d", sessionBytes, overflowCap))
			}

			if opts.OnProgress != nil && time.Since(lastProgress) >= opts.ProgressInterval {
				elapsed := time.Since(lastProgress).Seconds()
				rate := float64(sessionBytes-lastProgressBytes) / elapsedOrOne(elapsed)
				downloaded := offset + sessionBytes
				pct := float64(0)
				eta := float64(0)
				if total > 0 {
					pct = float64(downloaded) / float64(total) * 100
					if rate > 0 {
						eta = float64(total-downloaded) / rate
					}
				}
				opts.OnProgress(Progress{
					BytesDownloaded:  downloaded,
					TotalBytes:       total,
					BytesPerSecond:   rate,
					ETASeconds:       eta,
					Percent:          pct,
					IsResuming:       offset > 0,
					BytesResumedFrom: offset,
					RetryAttempt:     retryAttempt,
				})
				lastProgress = time.Now()
				lastProgressBytes = sessionBytes
			}
		}

		if readErr != nil {
			if readErr == io.EOF {
				return sessionBytes, nil
			}
			if errors.Is(readErr, io.ErrUnexpectedEOF) {
				return sessionBytes, newDownloadError(CodeConnReset, sessionBytes, readErr)
			}
			return sessionBytes, classifyTransportError(readErr, sessionBytes)
		}
	}
}

func elapsedOrOne(seconds float64) float64 {
	if seconds <= 0 {
		return 1
	}
	return seconds
}
