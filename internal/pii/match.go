package pii

import (
	"context"
	"iter"
	"strconv"
	"strings"
)

// FieldPath locates a string leaf inside a document. Record is the index of
// the top-level record (-1 for standalone text); Segments are object keys and
// array indexes ("[3]") from the record down to the leaf.
type FieldPath struct {
	Record   int
	Segments []string
}

// Child returns the path of an object member.
func (p FieldPath) Child(key string) FieldPath {
	segs := make([]string, len(p.Segments), len(p.Segments)+1)
	copy(segs, p.Segments)
	return FieldPath{Record: p.Record, Segments: append(segs, key)}
}

// Index returns the path of an array element.
func (p FieldPath) Index(i int) FieldPath {
	return p.Child("[" + strconv.Itoa(i) + "]")
}

// Field returns the nearest object key on the path. Array elements inherit
// the key of the array that holds them, so ["phones", "[1]"] yields "phones".
func (p FieldPath) Field() string {
	for i := len(p.Segments) - 1; i >= 0; i-- {
		if !strings.HasPrefix(p.Segments[i], "[") {
			return p.Segments[i]
		}
	}
	return ""
}

func (p FieldPath) String() string {
	var b strings.Builder
	if p.Record >= 0 {
		b.WriteString("[" + strconv.Itoa(p.Record) + "]")
	}
	for _, s := range p.Segments {
		if !strings.HasPrefix(s, "[") && b.Len() > 0 {
			b.WriteByte('.')
		}
		b.WriteString(s)
	}
	return b.String()
}

// Match is one detected PII occurrence. Start and End are byte offsets into
// the scanned string, End exclusive.
type Match struct {
	Category   Category  `json:"category"`
	Start      int       `json:"start"`
	End        int       `json:"end"`
	Text       string    `json:"-"`
	Path       FieldPath `json:"-"`
	Confidence float64   `json:"confidence"`
	Detector   string    `json:"detector,omitempty"`
}

// Len is the span length in bytes.
func (m Match) Len() int { return m.End - m.Start }

// Overlaps reports whether the two spans share at least one byte.
func (m Match) Overlaps(o Match) bool {
	return m.Start < o.End && o.Start < m.End
}

// Detector finds PII in one string. Implementations must not retain text.
type Detector interface {
	Name() string
	Detect(ctx context.Context, text string, path FieldPath) ([]Match, error)
}

// Primer is implemented by detectors that learn from a whole document
// before it is scanned. Prime sees every string leaf once and returns the
// detector to use for that document; the receiver is left unchanged.
type Primer interface {
	Prime(fields iter.Seq2[FieldPath, string]) Detector
}

// DetectorFunc adapts a function to the Detector interface.
type DetectorFunc struct {
	Label string
	Fn    func(ctx context.Context, text string, path FieldPath) ([]Match, error)
}

// Name returns the detector label.
func (d DetectorFunc) Name() string { return d.Label }

// Detect calls the wrapped function.
func (d DetectorFunc) Detect(ctx context.Context, text string, path FieldPath) ([]Match, error) {
	return d.Fn(ctx, text, path)
}

// EmailStyle describes how an email local part was built from a name:
// "jane.smith" is {Separator: "."}, "smith_jane" adds FamilyFirst and
// "jsmith" sets GivenInitial.
type EmailStyle struct {
	Separator    string
	FamilyFirst  bool
	GivenInitial bool
}

// Identity is an already-chosen synthetic person passed to the generator as
// a hint. Either name may be empty when only one half is known.
type Identity struct {
	Given  string
	Family string
	Style  EmailStyle
}

// Generator produces synthetic replacement values. When skeleton is not
// zero the output follows its punctuation and character classes. For Email
// with a non-nil hint the local part is derived from the hint's names.
type Generator interface {
	Generate(category Category, skeleton Skeleton, hint *Identity) (string, error)
}
