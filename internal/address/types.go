// Package address structures raw G-NAF rows into canonical AddressDetail
// documents and renders the three human-readable address forms.
package address

// AddressDetail is the document produced for one G-NAF address record.
type AddressDetail struct {
	PID        string            `json:"-"`
	Structured StructuredAddress `json:"structured"`
	SLA        string            `json:"sla"`
	SSLA       string            `json:"ssla"`
	MLA        []string          `json:"mla"`
	Confidence *int              `json:"confidence,omitempty"`
	Geo        *Geocode          `json:"geo,omitempty"`
}

// DocumentID returns the backend document id for an address, per spec.md §3.2:
// the id is the canonical path "/addresses/" followed by the pid exactly as
// given, with no case change.
func (d AddressDetail) DocumentID() string {
	return "/addresses/" + d.PID
}

// CodedField is an authority-code/name pair. Name is empty when the code
// has no entry in the authority table for its field (see Mapper.resolvedName).
type CodedField struct {
	Code string `json:"code,omitempty"`
	Name string `json:"name,omitempty"`
}

// FlatOrLevel covers both the flat and level sub-structures, which share
// the same shape per spec.md §3.1.
type FlatOrLevel struct {
	Type   CodedField `json:"type"`
	Prefix string     `json:"prefix,omitempty"`
	Number string     `json:"number,omitempty"`
	Suffix string     `json:"suffix,omitempty"`
}

func (f *FlatOrLevel) empty() bool {
	return f == nil || (f.Type.Code == "" && f.Number == "")
}

// NumberRange is the street-number range of an address, e.g. "300" or
// "12-14". A nil Number means the address is lot-only.
type NumberRange struct {
	FirstPrefix string `json:"firstPrefix,omitempty"`
	FirstNumber string `json:"firstNumber,omitempty"`
	FirstSuffix string `json:"firstSuffix,omitempty"`
	LastPrefix  string `json:"lastPrefix,omitempty"`
	LastNumber  string `json:"lastNumber,omitempty"`
	LastSuffix  string `json:"lastSuffix,omitempty"`
}

func (n *NumberRange) empty() bool {
	return n == nil || n.FirstNumber == ""
}

// Street is the street-name/type/suffix triple of an address.
type Street struct {
	Name   string     `json:"name"`
	Type   CodedField `json:"type"`
	Suffix CodedField `json:"suffix,omitempty"`
}

// Lot is the lot-number sub-structure, used instead of Number for
// lot-only addresses.
type Lot struct {
	Number string `json:"number"`
}

func (l *Lot) empty() bool {
	return l == nil || l.Number == ""
}

// StructuredAddress is the canonical structured form of a G-NAF address,
// per spec.md §3.1.
type StructuredAddress struct {
	BuildingName string       `json:"buildingName,omitempty"`
	Flat         *FlatOrLevel `json:"flat,omitempty"`
	Level        *FlatOrLevel `json:"level,omitempty"`
	Number       *NumberRange `json:"number,omitempty"`
	Street       Street       `json:"street"`
	Locality     string       `json:"locality"`
	State        string       `json:"state"`
	Postcode     string       `json:"postcode"`
	Lot          *Lot         `json:"lot,omitempty"`
}

// GeoPoint is one entry of a Geocode bundle.
type GeoPoint struct {
	Latitude    float64    `json:"latitude"`
	Longitude   float64    `json:"longitude"`
	IsDefault   bool       `json:"isDefault"`
	Reliability CodedField `json:"reliability"`
	Type        CodedField `json:"type"`
}

// Geocode is the geocode bundle attached to an AddressDetail, per
// spec.md §3.1. Level is the finest-granularity rank (1..7, higher finer)
// reported across all of Points.
type Geocode struct {
	Level  int        `json:"level"`
	Points []GeoPoint `json:"points"`
}
