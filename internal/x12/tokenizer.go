package x12

import "strings"

const (
	DefaultSegmentTerminator  = '~'
	DefaultElementSeparator   = '*'
	DefaultComponentSeparator = ':'
)

// isaLength is the fixed width of an ISA envelope segment including its terminator.
const isaLength = 106

// Delimiters are the separator bytes used by one interchange.
type Delimiters struct {
	Segment   byte
	Element   byte
	Component byte
}

// DefaultDelimiters returns the conventional ~ * : separators.
func DefaultDelimiters() Delimiters {
	return Delimiters{
		Segment:   DefaultSegmentTerminator,
		Element:   DefaultElementSeparator,
		Component: DefaultComponentSeparator,
	}
}

// DetectDelimiters reads the separators from a leading ISA envelope. The ISA
// segment is fixed width, so the element separator sits at byte 3, the
// component separator at byte 104 and the segment terminator at byte 105.
// Input without a complete ISA header gets the defaults.
func DetectDelimiters(raw string) Delimiters {
	s := strings.TrimLeft(raw, " \t\r\n")
	if len(s) < isaLength || !strings.HasPrefix(s, "ISA") {
		return DefaultDelimiters()
	}
	d := Delimiters{
		Element:   s[3],
		Component: s[104],
		Segment:   s[105],
	}
	if d.Element == d.Segment || d.Element == d.Component || isSpace(d.Element) {
		return DefaultDelimiters()
	}
	// Some senders terminate ISA with a bare newline.
	if d.Segment == '\r' || isSpace(d.Segment) {
		d.Segment = '\n'
	}
	return d
}

// Tokenize splits raw text into segments using the default delimiters.
func Tokenize(raw string) []Segment {
	return DefaultDelimiters().Tokenize(raw)
}

// Tokenize splits raw text into segments. Line breaks are always accepted as
// segment terminators in addition to d.Segment, so files that mix "~" and
// newlines parse the same. Segments are trimmed and empty ones dropped;
// nothing else is rejected here.
func (d Delimiters) Tokenize(raw string) []Segment {
	terms := func(r rune) bool {
		return r == rune(d.Segment) || r == '\n' || r == '\r'
	}
	parts := strings.FieldsFunc(raw, terms)

	segments := make([]Segment, 0, len(parts))
	sep := string(d.Element)
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		elems := strings.Split(p, sep)
		for i := range elems {
			elems[i] = strings.TrimSpace(elems[i])
		}
		segments = append(segments, Segment{Elements: elems})
	}
	return segments
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n'
}
