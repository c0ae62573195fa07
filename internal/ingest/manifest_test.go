package ingest

import "testing"

func TestResolveArchiveResource_PicksFirstActiveZip(t *testing.T) {
	body := []byte(`{
		"result": {
			"resources": [
				{"state": "deleted", "mimetype": "application/zip", "url": "https://example.com/old.zip", "size": 1},
				{"state": "active", "mimetype": "text/csv", "url": "https://example.com/notes.csv", "size": 2},
				{"state": "active", "mimetype": "application/zip", "url": "https://example.com/gnaf.zip", "size": 12345}
			]
		}
	}`)

	url, size, err := resolveArchiveResource(body)
	if err != nil {
		t.Fatalf("resolveArchiveResource: %v", err)
	}
	if url != "https://example.com/gnaf.zip" || size != 12345 {
		t.Errorf("resolveArchiveResource() = (%q, %d), want (gnaf.zip, 12345)", url, size)
	}
}

func TestResolveArchiveResource_NoActiveZipIsAnError(t *testing.T) {
	body := []byte(`{"result": {"resources": [{"state": "active", "mimetype": "text/csv", "url": "https://example.com/x.csv", "size": 1}]}}`)

	if _, _, err := resolveArchiveResource(body); err == nil {
		t.Error("resolveArchiveResource() = nil error, want an error when no resource qualifies")
	}
}
