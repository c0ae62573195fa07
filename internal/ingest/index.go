package ingest

// indexBody builds the backend index-creation request, wiring the
// authority-derived synonym list into a synonym-expansion analyser
// (spec.md §4.3, §4.9).
func indexBody(synonyms []string) map[string]any {
	return map[string]any{
		"settings": map[string]any{
			"analysis": map[string]any{
				"filter": map[string]any{
					"gnaf_synonym_filter": map[string]any{
						"type":     "synonym",
						"synonyms": synonyms,
					},
				},
				"analyzer": map[string]any{
					"gnaf_synonym_analyzer": map[string]any{
						"tokenizer": "standard",
						"filter":    []string{"lowercase", "gnaf_synonym_filter"},
					},
				},
			},
		},
		"mappings": map[string]any{
			"properties": map[string]any{
				"pid":        map[string]any{"type": "keyword"},
				"sla":        map[string]any{"type": "text", "analyzer": "gnaf_synonym_analyzer", "fields": map[string]any{"raw": map[string]any{"type": "keyword"}}},
				"ssla":       map[string]any{"type": "text", "analyzer": "gnaf_synonym_analyzer", "fields": map[string]any{"raw": map[string]any{"type": "keyword"}}},
				"mla":        map[string]any{"type": "text"},
				"confidence": map[string]any{"type": "integer"},
				"geo":        map[string]any{"type": "object", "enabled": true},
			},
		},
	}
}
