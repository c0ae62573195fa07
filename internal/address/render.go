package address

import "strings"

// display resolves a CodedField for rendering: the resolved name if one
// was found, or the raw code as a fallback — the output stays well-formed
// even for an authority-code miss (spec.md §4.4).
func display(f CodedField) string {
	if f.Name != "" {
		return f.Name
	}
	return f.Code
}

func join(parts ...string) string {
	var nonEmpty []string
	for _, p := range parts {
		if p != "" {
			nonEmpty = append(nonEmpty, p)
		}
	}
	return strings.Join(nonEmpty, " ")
}

// flatOrLevelPart renders a FlatOrLevel using its resolved type name
// ("LEVEL", "FLAT"), e.g. "LEVEL 25" or "FLAT 2A".
func flatOrLevelPart(f *FlatOrLevel) string {
	if f.empty() {
		return ""
	}
	num := f.Prefix + f.Number + f.Suffix
	return join(display(f.Type), num)
}

// numberPart renders a NumberRange as a compact number or range,
// e.g. "300" or "12-14".
func numberPart(n *NumberRange) string {
	if n.empty() {
		return ""
	}
	first := n.FirstPrefix + n.FirstNumber + n.FirstSuffix
	if n.LastNumber == "" {
		return first
	}
	last := n.LastPrefix + n.LastNumber + n.LastSuffix
	return first + "-" + last
}

func lotPart(l *Lot) string {
	if l.empty() {
		return ""
	}
	return "LOT " + l.Number
}

// streetPart renders the street segment. Street type and suffix render
// using their raw authority CODE (e.g. "AV"), matching G-NAF's convention
// of using the short form on single-line addresses; the resolved names
// still live in the structured form for callers that want them.
func streetPart(s Street) string {
	return join(strings.ToUpper(s.Name), s.Type.Code, s.Suffix.Code)
}

func upper(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// RenderSLA produces the single-line address, per spec.md §4.4: a
// comma-separated string in canonical G-NAF order, empty components
// omitted with their separator, uppercase throughout.
func RenderSLA(s StructuredAddress) string {
	numberOrLot := numberPart(s.Number)
	if numberOrLot == "" {
		numberOrLot = lotPart(s.Lot)
	}

	lead := []string{
		flatOrLevelPart(s.Level),
		upper(s.BuildingName),
		flatOrLevelPart(s.Flat),
		join(numberOrLot, streetPart(s.Street)),
	}
	var leadNonEmpty []string
	for _, p := range lead {
		if p != "" {
			leadNonEmpty = append(leadNonEmpty, p)
		}
	}

	tail := join(upper(s.Locality), upper(s.State), s.Postcode)

	all := append(leadNonEmpty, tail)
	return strings.ToUpper(strings.Join(all, ", "))
}

// RenderSSLA produces the short single-line address, per spec.md §4.4:
// level/flat compact to "{number}/", the street number compacts to a
// range, and the building name is dropped.
func RenderSSLA(s StructuredAddress) string {
	prefix := ""
	if !s.Flat.empty() {
		prefix = s.Flat.Number + "/"
	} else if !s.Level.empty() {
		prefix = s.Level.Number + "/"
	}

	numberOrLot := numberPart(s.Number)
	if numberOrLot == "" {
		numberOrLot = lotPart(s.Lot)
	}

	head := prefix + numberOrLot
	line := join(head, streetPart(s.Street))

	tail := join(upper(s.Locality), upper(s.State), s.Postcode)
	return strings.ToUpper(line + ", " + tail)
}

// RenderMLA produces the 1-4 line multi-line address, per spec.md §4.4:
// building name / level+flat / number+street / locality+state+postcode,
// with empty lines omitted. Producing a 5th line is a fatal mapping
// error signalling G-NAF malformation.
func RenderMLA(pid string, s StructuredAddress) ([]string, error) {
	numberOrLot := numberPart(s.Number)
	if numberOrLot == "" {
		numberOrLot = lotPart(s.Lot)
	}

	groups := []string{
		upper(s.BuildingName),
		join(flatOrLevelPart(s.Level), flatOrLevelPart(s.Flat)),
		join(numberOrLot, streetPart(s.Street)),
		join(upper(s.Locality), upper(s.State), s.Postcode),
	}

	var lines []string
	for _, g := range groups {
		if g != "" {
			lines = append(lines, strings.ToUpper(g))
		}
	}
	if len(lines) == 0 {
		lines = []string{strings.ToUpper(join(upper(s.Locality), upper(s.State), s.Postcode))}
	}
	if len(lines) > 4 {
		return nil, fatalf(pid, "multi-line address rendered %d lines, maximum is 4", len(lines))
	}
	return lines, nil
}

// RenderShortMLA is the shortened variant of RenderMLA using the same
// compact number/flat/level notation as RenderSSLA.
func RenderShortMLA(pid string, s StructuredAddress) ([]string, error) {
	prefix := ""
	if !s.Flat.empty() {
		prefix = s.Flat.Number + "/"
	} else if !s.Level.empty() {
		prefix = s.Level.Number + "/"
	}

	numberOrLot := numberPart(s.Number)
	if numberOrLot == "" {
		numberOrLot = lotPart(s.Lot)
	}

	groups := []string{
		upper(s.BuildingName),
		join(prefix+numberOrLot, streetPart(s.Street)),
		join(upper(s.Locality), upper(s.State), s.Postcode),
	}

	var lines []string
	for _, g := range groups {
		if g != "" {
			lines = append(lines, strings.ToUpper(g))
		}
	}
	if len(lines) > 4 {
		return nil, fatalf(pid, "short multi-line address rendered %d lines, maximum is 4", len(lines))
	}
	return lines, nil
}
