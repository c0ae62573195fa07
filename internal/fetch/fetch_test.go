package fetch_test

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/addresskit/addresskit/internal/fetch"
)

// flakyOnceServer serves data in full on every request except the first,
// where it writes only the first failAt bytes and then hijacks and closes
// the raw connection — the client sees a truncated body exactly as it
// would on a mid-transfer ECONNRESET (spec.md §8 scenario 2).
type flakyOnceServer struct {
	data     []byte
	failAt   int
	attempts int
}

func (s *flakyOnceServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.attempts++

	rangeHeader := r.Header.Get("Range")
	if rangeHeader == "" && s.attempts == 1 {
		w.Header().Set("Content-Length", strconv.Itoa(len(s.data)))
		w.WriteHeader(http.StatusOK)
		w.Write(s.data[:s.failAt])
		hj, ok := w.(http.Hijacker)
		if !ok {
			return
		}
		conn, _, err := hj.Hijack()
		if err == nil {
			conn.Close()
		}
		return
	}

	if rangeHeader == "" {
		w.Header().Set("Content-Length", strconv.Itoa(len(s.data)))
		w.WriteHeader(http.StatusOK)
		w.Write(s.data)
		return
	}

	var start int
	if _, err := fmt.Sscanf(rangeHeader, "bytes=%d-", &start); err != nil || start >= len(s.data) {
		w.WriteHeader(http.StatusRequestedRangeNotSatisfiable)
		return
	}
	w.Header().Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", start, len(s.data)-1, len(s.data)))
	w.WriteHeader(http.StatusPartialContent)
	w.Write(s.data[start:])
}

func testOptions(expectedSize int64) fetch.Options {
	opts := fetch.DefaultOptions()
	opts.ExpectedSize = expectedSize
	opts.InitialBackoff = 5 * time.Millisecond
	opts.MaxBackoff = 20 * time.Millisecond
	opts.ConnectTimeout = 2 * time.Second
	opts.SocketTimeout = 2 * time.Second
	return opts
}

func TestFetch_ResumeAfterMidTransferReset(t *testing.T) {
	data := []byte(strings.Repeat("x", 100_000))
	srv := &flakyOnceServer{data: data, failAt: 40_000}
	ts := httptest.NewServer(srv)
	defer ts.Close()

	dest := filepath.Join(t.TempDir(), "archive.zip")
	f := fetch.New(nil)

	res, err := f.Fetch(context.Background(), ts.URL, dest, testOptions(int64(len(data))))
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if !res.Resumed {
		t.Errorf("expected the second attempt to resume")
	}

	got, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Fatalf("resumed file does not match source byte-for-byte (len %d vs %d)", len(got), len(data))
	}
	if srv.attempts != 2 {
		t.Errorf("expected exactly 2 requests (fail + resume), got %d", srv.attempts)
	}
}

func TestFetch_SeededOverflowFileIsDeletedAndRestarted(t *testing.T) {
	data := []byte(strings.Repeat("A", 5_000))

	handler := func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Range") != "" {
			t.Errorf("expected no Range header on a fresh restart, got %q", r.Header.Get("Range"))
		}
		w.Header().Set("Content-Length", strconv.Itoa(len(data)))
		w.WriteHeader(http.StatusOK)
		w.Write(data)
	}
	ts := httptest.NewServer(http.HandlerFunc(handler))
	defer ts.Close()

	dest := filepath.Join(t.TempDir(), "archive.zip")
	// Seed a file one byte larger than expected: the boundary case of
	// spec.md §8 ("existing >= expected -> 416 -> delete + restart").
	if err := os.WriteFile(dest, bytes.Repeat([]byte{0xff}, len(data)+1), 0o644); err != nil {
		t.Fatalf("seed file: %v", err)
	}

	f := fetch.New(nil)
	res, err := f.Fetch(context.Background(), ts.URL, dest, testOptions(int64(len(data))))
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if res.Resumed {
		t.Errorf("expected a fresh download, not a resume")
	}

	got, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Fatalf("restarted file does not match source")
	}
}

func TestFetch_TwoHundredAfterResumeRestartsWithoutConsumingRetries(t *testing.T) {
	data := []byte(strings.Repeat("B", 2_000))
	var attempts int

	// The server never honours Range — every request gets a full 200.
	// On a partial file this must delete and restart exactly once,
	// per spec.md §8 ("Resume requested, server replies 200 -> delete
	// + restart (once, not counted as retry)").
	handler := func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.Header().Set("Content-Length", strconv.Itoa(len(data)))
		w.WriteHeader(http.StatusOK)
		w.Write(data)
	}
	ts := httptest.NewServer(http.HandlerFunc(handler))
	defer ts.Close()

	dest := filepath.Join(t.TempDir(), "archive.zip")
	if err := os.WriteFile(dest, data[:500], 0o644); err != nil {
		t.Fatalf("seed partial file: %v", err)
	}

	f := fetch.New(nil)
	res, err := f.Fetch(context.Background(), ts.URL, dest, testOptions(int64(len(data))))
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if res.Attempts != 1 {
		t.Errorf("the 200-after-resume restart must not be counted as a retry attempt, got Attempts=%d", res.Attempts)
	}
	if attempts != 2 {
		t.Errorf("expected exactly 2 requests (range request + fresh restart), got %d", attempts)
	}

	got, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Fatalf("file after 200-after-resume restart does not match source")
	}
}

func TestFetch_NonRetryableStatusFailsImmediately(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer ts.Close()

	dest := filepath.Join(t.TempDir(), "archive.zip")
	f := fetch.New(nil)
	opts := testOptions(0)
	opts.MaxRetries = 3

	_, err := f.Fetch(context.Background(), ts.URL, dest, opts)
	if err == nil {
		t.Fatal("expected an error for a 404 response")
	}
	var derr *fetch.DownloadError
	if !asDownloadError(err, &derr) {
		t.Fatalf("expected *fetch.DownloadError, got %T: %v", err, err)
	}
	if derr.Retryable {
		t.Errorf("404 must not be classified retryable")
	}
}

func asDownloadError(err error, target **fetch.DownloadError) bool {
	de, ok := err.(*fetch.DownloadError)
	if !ok {
		return false
	}
	*target = de
	return true
}
