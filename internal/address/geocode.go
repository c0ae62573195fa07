package address

import (
	"strconv"

	"github.com/addresskit/addresskit/internal/authority"
)

// resolvedGeoName looks up code's display name, logging a diagnostic on a
// miss via LookupOrWarn but never using its raw-code fallback as the
// CodedField's Name (spec.md §4.4; see display() in render.go).
func resolvedGeoName(idx *authority.Index, table authority.Table, code string) string {
	name, ok := idx.Lookup(table, code)
	if !ok {
		idx.LookupOrWarn(table, code)
	}
	return name
}

// mapGeocode builds the Geocode bundle for one address, per spec.md §4.4:
// site-level entries precede default-level entries, at most one entry is
// IsDefault, and the bundle level is the finest-granularity rank seen
// across all entries. An unparsable level-type code is the "unrecognised
// attribute" that fatally halts mapping for the address (spec.md §3.2, §7).
func mapGeocode(pid string, idx *authority.Index, site, def []GeocodeRow) (*Geocode, error) {
	if len(site) == 0 && len(def) == 0 {
		return nil, nil
	}

	var points []GeoPoint
	bestRank := 0

	appendPoints := func(rows []GeocodeRow, markDefault bool) error {
		for i, row := range rows {
			rank, err := strconv.Atoi(row.LevelTypeCode)
			if err != nil || rank < 1 || rank > 7 {
				return fatalf(pid, "geocode has unrecognised level-type code %q", row.LevelTypeCode)
			}
			if rank > bestRank {
				bestRank = rank
			}

			points = append(points, GeoPoint{
				Latitude:  row.Latitude,
				Longitude: row.Longitude,
				IsDefault: markDefault && i == 0,
				Reliability: CodedField{
					Code: row.ReliabilityCode,
					Name: resolvedGeoName(idx, authority.GeocodeReliability, row.ReliabilityCode),
				},
				Type: CodedField{
					Code: row.TypeCode,
					Name: resolvedGeoName(idx, authority.GeocodeType, row.TypeCode),
				},
			})
		}
		return nil
	}

	// Site-level entries appear before default entries (spec.md §4.4).
	if err := appendPoints(site, false); err != nil {
		return nil, err
	}
	if err := appendPoints(def, true); err != nil {
		return nil, err
	}

	return &Geocode{Level: bestRank, Points: points}, nil
}
