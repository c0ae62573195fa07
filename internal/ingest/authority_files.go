package ingest

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/addresskit/addresskit/internal/authority"
	"github.com/addresskit/addresskit/internal/gnafcsv"
)

// authorityFileKeyword maps each authority table to the filename
// substring G-NAF's authority code exports carry, per spec.md §4.3.
var authorityFileKeyword = map[authority.Table]string{
	authority.LevelType:          "LEVEL_TYPE_AUT",
	authority.FlatType:           "FLAT_TYPE_AUT",
	authority.StreetType:         "STREET_TYPE_AUT",
	authority.StreetClass:        "STREET_CLASS_AUT",
	authority.LocalityClass:      "LOCALITY_CLASS_AUT",
	authority.StreetSuffix:       "STREET_SUFFIX_AUT",
	authority.GeocodeReliability: "GEOCODE_RELIABILITY_AUT",
	authority.GeocodeType:        "GEOCODE_TYPE_AUT",
	authority.GeocodedLevelType:  "GEOCODED_LEVEL_TYPE_AUT",
}

func discoverAuthorityFile(root string, t authority.Table) (string, error) {
	keyword, ok := authorityFileKeyword[t]
	if !ok {
		return "", fmt.Errorf("no filename keyword registered for authority table %s", t)
	}

	var found string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if strings.Contains(strings.ToUpper(d.Name()), keyword) {
			found = path
			return filepath.SkipAll
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	if found == "" {
		return "", fmt.Errorf("no file found for authority table %s under %s", t, root)
	}
	return found, nil
}

// csvParseAuthority reads a pipe-separated authority-code file (CODE,
// NAME columns) into codes.
func csvParseAuthority(ctx context.Context, r io.Reader, codes *[]authority.Code) error {
	opts := gnafcsv.Options{Delimiter: '|'}
	_, err := gnafcsv.Parse(ctx, r, opts, func(h *gnafcsv.Header, rows []gnafcsv.Row, errs []*gnafcsv.RowError) error {
		for _, row := range rows {
			code := h.Get(row, "CODE")
			name := h.Get(row, "NAME")
			if code == "" {
				continue
			}
			*codes = append(*codes, authority.Code{Code: code, Name: name})
		}
		return nil
	})
	return err
}
