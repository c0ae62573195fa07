package ingest

import (
	"encoding/json"
	"fmt"
)

// packageManifest is the JSON shape of the authority package manifest,
// spec.md §6.1: `{ result: { resources: [{ state, mimetype, url, size }] } }`.
type packageManifest struct {
	Result struct {
		Resources []struct {
			State    string `json:"state"`
			Mimetype string `json:"mimetype"`
			URL      string `json:"url"`
			Size     int64  `json:"size"`
		} `json:"resources"`
	} `json:"result"`
}

// resolveArchiveResource picks the first active zip resource out of a
// package manifest response body.
func resolveArchiveResource(body []byte) (url string, size int64, err error) {
	var manifest packageManifest
	if err := json.Unmarshal(body, &manifest); err != nil {
		return "", 0, fmt.Errorf("decode package manifest: %w", err)
	}
	for _, r := range manifest.Result.Resources {
		if r.State == "active" && r.Mimetype == "application/zip" {
			return r.URL, r.Size, nil
		}
	}
	return "", 0, fmt.Errorf("package manifest has no active application/zip resource")
}
