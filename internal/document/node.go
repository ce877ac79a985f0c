// Package document is the in-memory model of a sanitization input: a JSON
// array of record objects. Objects keep their members in input order
// (duplicates included) and numbers keep their literal text, so a document
// that is parsed and encoded again differs only in whitespace.
package document

// Kind enumerates node types.
type Kind uint8

const (
	KindObject Kind = iota + 1
	KindArray
	KindString
	KindNumber
	KindBool
	KindNull
)

func (k Kind) String() string {
	switch k {
	case KindObject:
		return "object"
	case KindArray:
		return "array"
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBool:
		return "boolean"
	case KindNull:
		return "null"
	}
	return "unknown"
}

// Node is one value of the tree.
type Node interface {
	Kind() Kind
}

// Field is one object member.
type Field struct {
	Key   string
	Value Node
}

// Object is an ordered mapping.
type Object struct {
	Fields []Field
}

// Array is an ordered sequence.
type Array struct {
	Items []Node
}

// String is a decoded JSON string.
type String struct {
	Value string
}

// Number holds the literal exactly as it appeared in the input.
type Number struct {
	Raw string
}

// Bool is true or false.
type Bool struct {
	Value bool
}

// Null is the JSON null.
type Null struct{}

func (*Object) Kind() Kind { return KindObject }
func (*Array) Kind() Kind  { return KindArray }
func (*String) Kind() Kind { return KindString }
func (*Number) Kind() Kind { return KindNumber }
func (*Bool) Kind() Kind   { return KindBool }
func (*Null) Kind() Kind   { return KindNull }

// Get returns the first member named key.
func (o *Object) Get(key string) (Node, bool) {
	for _, f := range o.Fields {
		if f.Key == key {
			return f.Value, true
		}
	}
	return nil, false
}

// Document is the root: an ordered list of records.
type Document struct {
	Records []*Object
}

// Root returns the document as an array node.
func (d *Document) Root() *Array {
	items := make([]Node, len(d.Records))
	for i, r := range d.Records {
		items[i] = r
	}
	return &Array{Items: items}
}
