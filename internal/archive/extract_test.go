package archive_test

import (
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/addresskit/addresskit/internal/archive"
)

func buildZip(t *testing.T, files map[string]string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "release.zip")
	out, err := os.Create(path)
	if err != nil {
		t.Fatalf("create zip: %v", err)
	}
	defer out.Close()

	zw := zip.NewWriter(out)
	for name, content := range files {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("create entry %q: %v", name, err)
		}
		if _, err := w.Write([]byte(content)); err != nil {
			t.Fatalf("write entry %q: %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip writer: %v", err)
	}
	return path
}

func TestExtract_WritesEveryEntry(t *testing.T) {
	files := map[string]string{
		"NSW/NSW_ADDRESS_DETAIL.psv": "PID|DETAIL\nG1|one\n",
		"NSW/NSW_LOCALITY.psv":       "PID|NAME\nL1|Sydney\n",
	}
	zipPath := buildZip(t, files)
	target := filepath.Join(t.TempDir(), "extracted")

	res, err := archive.Extract(zipPath, target, nil)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if res.EntriesExtracted != 2 || res.EntriesSkipped != 0 {
		t.Errorf("unexpected result: %+v", res)
	}

	for name, content := range files {
		got, err := os.ReadFile(filepath.Join(target, name))
		if err != nil {
			t.Fatalf("read extracted %q: %v", name, err)
		}
		if string(got) != content {
			t.Errorf("entry %q: got %q want %q", name, got, content)
		}
	}

	if _, err := os.Stat(target + ".incomplete"); !os.IsNotExist(err) {
		t.Errorf("incomplete staging directory should not survive a successful extract")
	}
}

func TestExtract_SecondPassSkipsMatchingSizes(t *testing.T) {
	files := map[string]string{"NSW/NSW_ADDRESS_DETAIL.psv": "PID|DETAIL\nG1|one\n"}
	zipPath := buildZip(t, files)
	target := filepath.Join(t.TempDir(), "extracted")

	if _, err := archive.Extract(zipPath, target, nil); err != nil {
		t.Fatalf("first Extract: %v", err)
	}

	res, err := archive.Extract(zipPath, target, nil)
	if err != nil {
		t.Fatalf("second Extract: %v", err)
	}
	if res.EntriesSkipped != 1 || res.EntriesExtracted != 0 {
		t.Errorf("second pass should be a no-op via size match, got %+v", res)
	}
}

func TestExtract_ReextractsWhenSizeDiffers(t *testing.T) {
	files := map[string]string{"NSW/NSW_ADDRESS_DETAIL.psv": "PID|DETAIL\nG1|one\n"}
	zipPath := buildZip(t, files)
	target := filepath.Join(t.TempDir(), "extracted")

	if err := os.MkdirAll(filepath.Join(target, "NSW"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	stalePath := filepath.Join(target, "NSW", "NSW_ADDRESS_DETAIL.psv")
	if err := os.WriteFile(stalePath, []byte("stale"), 0o644); err != nil {
		t.Fatalf("seed stale file: %v", err)
	}

	res, err := archive.Extract(zipPath, target, nil)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if res.EntriesExtracted != 1 {
		t.Errorf("expected a mismatched-size entry to be re-extracted, got %+v", res)
	}
	got, err := os.ReadFile(stalePath)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !bytes.Equal(got, []byte(files["NSW/NSW_ADDRESS_DETAIL.psv"])) {
		t.Errorf("stale file was not overwritten: %q", got)
	}
}

func TestExtract_RejectsPathTraversal(t *testing.T) {
	zipPath := buildZip(t, map[string]string{"../escape.psv": "nope"})
	target := filepath.Join(t.TempDir(), "extracted")

	if _, err := archive.Extract(zipPath, target, nil); err == nil {
		t.Fatal("expected an error for a path-traversal entry")
	}
}
