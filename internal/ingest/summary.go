package ingest

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/addresskit/addresskit/internal/gnafcsv"
)

// summaryFileKeyword is the filename substring G-NAF's record-count
// summary file carries, alongside the per-region/per-table data files
// (spec.md §6.1: "a summary file enumerating expected record counts per
// constituent").
const summaryFileKeyword = "TABLE_SUMMARY"

// discoverSummaryFile locates the archive's record-count summary file
// under root, matching by filename substring for the same reason
// discoverRegionFile does (the exact name carries a release date stamp).
func discoverSummaryFile(root string) (string, error) {
	var found string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if strings.Contains(strings.ToUpper(d.Name()), summaryFileKeyword) {
			found = path
			return filepath.SkipAll
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return found, nil
}

// loadSummaryCounts parses the summary file into expected row counts,
// keyed by the constituent file's base name (uppercased, no extension).
// A summary file absent from the archive is not an error: the mismatch
// check it feeds is itself non-fatal (spec.md §4.5/§4.8), so an empty
// map simply disables the check.
func loadSummaryCounts(ctx context.Context, path string) (map[string]int64, error) {
	counts := make(map[string]int64)
	if path == "" {
		return counts, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	opts := gnafcsv.Options{Delimiter: '|'}
	_, err = gnafcsv.Parse(ctx, f, opts, func(h *gnafcsv.Header, rows []gnafcsv.Row, errs []*gnafcsv.RowError) error {
		for _, row := range rows {
			name := h.Get(row, "FILE_NAME")
			if name == "" {
				name = h.Get(row, "TABLE_NAME")
			}
			countStr := h.Get(row, "RECORD_COUNT")
			if countStr == "" {
				countStr = h.Get(row, "ROW_COUNT")
			}
			if name == "" || countStr == "" {
				continue
			}
			n, err := strconv.ParseInt(countStr, 10, 64)
			if err != nil {
				continue
			}
			counts[summaryKey(name)] = n
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return counts, nil
}

// summaryKey normalizes a constituent filename for lookup: uppercased,
// extension stripped, matching however the summary file or the
// discovered data file happens to spell it.
func summaryKey(name string) string {
	base := filepath.Base(name)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return strings.ToUpper(base)
}

// checkRowCount logs a non-fatal warning when rowsParsed disagrees with
// the archive's declared expected count for path, per spec.md §4.5's
// "terminal mismatch ... is logged but non-fatal" (spec.md §4.8 step 7).
func (r *Runner) checkRowCount(summaryCounts map[string]int64, path string, rowsParsed int64) {
	expected, ok := summaryCounts[summaryKey(path)]
	if !ok {
		return
	}
	if expected != rowsParsed {
		r.log.Warn("row count mismatch against archive summary manifest",
			"file", filepath.Base(path), "expected", expected, "parsed", rowsParsed)
	}
}
