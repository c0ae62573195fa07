package ingest

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
)

// table names one of the constituent file kinds loaded per region,
// in the fixed dependency order of spec.md §4.8 step 7.
type table string

const (
	tableLocality       table = "LOCALITY"
	tableStreetLocality table = "STREET_LOCALITY"
	tableSiteGeocode    table = "ADDRESS_SITE_GEOCODE"
	tableDefaultGeocode table = "ADDRESS_DEFAULT_GEOCODE"
	tableAddressDetail  table = "ADDRESS_DETAIL"
)

// loadOrder is the fixed per-region dependency order: locality and
// street-locality before geocodes, geocodes before address-detail, so
// the mapper always has its joined satellites in hand (spec.md §4.8/§5).
var loadOrder = []table{tableLocality, tableStreetLocality, tableSiteGeocode, tableDefaultGeocode, tableAddressDetail}

// discoverRegionFile finds the single pipe-separated constituent file for
// region and t under root. G-NAF ships one file per (state, table) pair,
// named with the state and table as substrings (the exact filename
// carries a release date stamp the spec is silent on) — matching by
// substring rather than an exact pattern is the resolution of that open
// question, recorded in DESIGN.md.
func discoverRegionFile(root, region string, t table) (string, error) {
	var found string
	want := strings.ToUpper(region) + "_" + string(t)

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		name := strings.ToUpper(d.Name())
		if !strings.HasSuffix(name, ".PSV") && !strings.Contains(name, "_PSV") {
			return nil
		}
		if strings.Contains(name, want) {
			found = path
			return filepath.SkipAll
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	if found == "" {
		return "", fmt.Errorf("no file found for region %s table %s under %s", region, t, root)
	}
	return found, nil
}
