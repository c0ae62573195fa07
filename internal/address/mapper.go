package address

import (
	"github.com/addresskit/addresskit/internal/authority"
)

// Mapper transforms joined G-NAF rows into AddressDetail documents. It is
// a pure function of its inputs plus the authority index — no I/O, per
// spec.md §4.4.
type Mapper struct {
	idx       *authority.Index
	geoEnabled bool
}

// NewMapper builds a Mapper bound to idx. geoEnabled mirrors
// ADDRESSKIT_ENABLE_GEO: when false the mapper never reads or emits geo
// data, even if the caller supplies geocode rows (spec.md §4.8).
func NewMapper(idx *authority.Index, geoEnabled bool) *Mapper {
	return &Mapper{idx: idx, geoEnabled: geoEnabled}
}

// Map converts one joined row into an AddressDetail. A returned error is
// always a *MappingError and is fatal for this row only (spec.md §7).
func (m *Mapper) Map(row JoinedRow) (AddressDetail, error) {
	structured := m.structure(row)

	sla := RenderSLA(structured)
	ssla := RenderSSLA(structured)
	mla, err := RenderMLA(row.Detail.PID, structured)
	if err != nil {
		return AddressDetail{}, err
	}

	doc := AddressDetail{
		PID:        row.Detail.PID,
		Structured: structured,
		SLA:        sla,
		SSLA:       ssla,
		MLA:        mla,
		Confidence: row.Detail.Confidence,
	}

	if m.geoEnabled && (len(row.SiteGeocodes) > 0 || len(row.DefaultGeocodes) > 0) {
		geo, err := mapGeocode(row.Detail.PID, m.idx, row.SiteGeocodes, row.DefaultGeocodes)
		if err != nil {
			return AddressDetail{}, err
		}
		doc.Geo = geo
	}

	return doc, nil
}

// resolvedName looks up code's display name, logging a diagnostic on a
// miss via LookupOrWarn but never using its raw-code fallback as the
// CodedField's Name — an unresolved code renders via Code, not a
// duplicated Name (spec.md §4.4; see display() in render.go).
func (m *Mapper) resolvedName(table authority.Table, code string) string {
	name, ok := m.idx.Lookup(table, code)
	if !ok {
		m.idx.LookupOrWarn(table, code)
	}
	return name
}

func (m *Mapper) structure(row JoinedRow) StructuredAddress {
	d := row.Detail

	// Locality and street-locality class codes are resolved purely for
	// the authority-code-miss diagnostic (spec.md §3.2); the class name
	// itself has no place in StructuredAddress's rendered fields.
	m.idx.LookupOrWarn(authority.LocalityClass, row.Locality.ClassCode)
	m.idx.LookupOrWarn(authority.StreetClass, row.StreetLocality.ClassCode)

	s := StructuredAddress{
		BuildingName: d.BuildingName,
		Street: Street{
			Name: row.StreetLocality.StreetName,
			Type: CodedField{
				Code: row.StreetLocality.TypeCode,
				Name: m.resolvedName(authority.StreetType, row.StreetLocality.TypeCode),
			},
			Suffix: CodedField{
				Code: row.StreetLocality.SuffixCode,
				Name: m.resolvedName(authority.StreetSuffix, row.StreetLocality.SuffixCode),
			},
		},
		Locality: row.Locality.Name,
		State:    row.Locality.State,
		Postcode: d.Postcode,
	}

	if d.FlatTypeCode != "" || d.FlatNumber != "" {
		s.Flat = &FlatOrLevel{
			Type: CodedField{
				Code: d.FlatTypeCode,
				Name: m.resolvedName(authority.FlatType, d.FlatTypeCode),
			},
			Prefix: d.FlatPrefix,
			Number: d.FlatNumber,
			Suffix: d.FlatSuffix,
		}
	}

	if d.LevelTypeCode != "" || d.LevelNumber != "" {
		s.Level = &FlatOrLevel{
			Type: CodedField{
				Code: d.LevelTypeCode,
				Name: m.resolvedName(authority.LevelType, d.LevelTypeCode),
			},
			Prefix: d.LevelPrefix,
			Number: d.LevelNumber,
			Suffix: d.LevelSuffix,
		}
	}

	if d.NumberFirst != "" {
		s.Number = &NumberRange{
			FirstPrefix: d.NumberFirstPrefix,
			FirstNumber: d.NumberFirst,
			FirstSuffix: d.NumberFirstSuffix,
			LastPrefix:  d.NumberLastPrefix,
			LastNumber:  d.NumberLast,
			LastSuffix:  d.NumberLastSuffix,
		}
	} else if d.LotNumber != "" {
		s.Lot = &Lot{Number: d.LotNumber}
	}

	return s
}
