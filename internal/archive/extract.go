// Package archive implements the streaming zip extractor of spec.md §4.2
// (C2): it unpacks a G-NAF release archive into a target directory,
// skipping entries whose on-disk size already matches so a re-run after
// an interrupted extraction doesn't redo completed work.
package archive

import (
	"archive/zip"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Result summarises one Extract call.
type Result struct {
	EntriesTotal     int
	EntriesSkipped   int
	EntriesExtracted int
}

// Extract unpacks archivePath into targetDir. Extraction happens into a
// sibling "incomplete" directory and is renamed into place atomically on
// success, so a partially-extracted tree never masquerades as complete
// (spec.md §4.2). If targetDir already exists and looks complete,
// Extract still walks every entry and skips ones whose size already
// matches — callers decide whether to skip the call entirely.
func Extract(archivePath, targetDir string, log *slog.Logger) (*Result, error) {
	if log == nil {
		log = slog.Default()
	}

	zr, err := zip.OpenReader(archivePath)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	defer zr.Close()

	// If targetDir already has content from a prior complete run, extract
	// directly into it so the per-entry size check can skip finished
	// files; only fall back to the incomplete/rename dance when starting
	// fresh, to avoid renaming over a directory with unrelated siblings.
	workDir := targetDir
	usingIncomplete := false
	if _, err := os.Stat(targetDir); os.IsNotExist(err) {
		workDir = incompleteDir(targetDir)
		usingIncomplete = true
		if err := os.MkdirAll(workDir, 0o755); err != nil {
			return nil, fmt.Errorf("create incomplete dir: %w", err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("stat target dir: %w", err)
	}

	res := &Result{EntriesTotal: len(zr.File)}

	for _, entry := range zr.File {
		if err := extractEntry(entry, workDir, res); err != nil {
			if usingIncomplete {
				os.RemoveAll(workDir)
			}
			return nil, fmt.Errorf("extract %q: %w", entry.Name, err)
		}
	}

	if usingIncomplete {
		if err := os.Rename(workDir, targetDir); err != nil {
			return nil, fmt.Errorf("rename incomplete dir into place: %w", err)
		}
	}

	log.Info("extraction complete",
		"archive", archivePath,
		"entries_total", res.EntriesTotal,
		"entries_extracted", res.EntriesExtracted,
		"entries_skipped", res.EntriesSkipped,
	)
	return res, nil
}

func incompleteDir(targetDir string) string {
	return filepath.Clean(targetDir) + ".incomplete"
}

func extractEntry(entry *zip.File, workDir string, res *Result) error {
	cleanName := filepath.Clean(entry.Name)
	if strings.HasPrefix(cleanName, "..") || filepath.IsAbs(cleanName) {
		return fmt.Errorf("entry path escapes target directory: %q", entry.Name)
	}
	outPath := filepath.Join(workDir, cleanName)

	if entry.FileInfo().IsDir() {
		return os.MkdirAll(outPath, 0o755)
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return err
	}

	if info, err := os.Stat(outPath); err == nil && info.Size() == int64(entry.UncompressedSize64) {
		res.EntriesSkipped++
		return nil
	}

	rc, err := entry.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	out, err := os.OpenFile(outPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, entry.Mode().Perm()|0o200)
	if err != nil {
		return err
	}
	defer out.Close()

	// io.Copy streams the entry straight to disk; archives run to tens
	// of gigabytes and must never be buffered whole (spec.md §4.2).
	if _, err := io.Copy(out, rc); err != nil {
		return fmt.Errorf("copy: %w", err)
	}
	res.EntriesExtracted++
	return nil
}
