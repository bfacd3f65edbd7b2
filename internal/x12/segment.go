package x12

import "strings"

// Segment is one record of an X12 interchange: an ordered list of element
// strings where element 0 is the segment identifier (CLP, SVC, DTM, ...).
type Segment struct {
	Elements []string
}

// ID returns the segment identifier, or "" for an empty segment.
func (s Segment) ID() string {
	if len(s.Elements) == 0 {
		return ""
	}
	return s.Elements[0]
}

// Element returns element i, or "" when the segment is too short.
func (s Segment) Element(i int) string {
	if i < 0 || i >= len(s.Elements) {
		return ""
	}
	return s.Elements[i]
}

// Has reports whether element i is present and non-blank.
func (s Segment) Has(i int) bool {
	return strings.TrimSpace(s.Element(i)) != ""
}

// Len returns the number of elements including the identifier.
func (s Segment) Len() int {
	return len(s.Elements)
}

func (s Segment) String() string {
	return strings.Join(s.Elements, string(DefaultElementSeparator))
}

// SplitComposite splits a composite element (e.g. "HC:90837:GT") on sep.
func SplitComposite(elem string, sep byte) []string {
	if elem == "" {
		return nil
	}
	return strings.Split(elem, string(sep))
}
