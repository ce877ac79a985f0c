package sanitizer

import (
	"errors"
	"fmt"
	"iter"

	"github.com/2hard2touch/smart-data-sanitizer/internal/document"
	"github.com/2hard2touch/smart-data-sanitizer/internal/pii"
)

// frame is a source node waiting to be written to dst. member is set for
// the values of object fields.
type frame struct {
	src    document.Node
	dst    *document.Node
	path   pii.FieldPath
	scope  *scope
	member bool
}

// walk rebuilds doc with every string leaf sanitized. Containers are
// rebuilt in input order with an explicit stack; scalars other than strings
// are shared with the input.
//
// Identity scopes follow the record: an object held directly by a field
// joins its parent's scope, while records and array elements each open a
// scope of their own.
func (r *run) walk(doc *document.Document) (*document.Document, error) {
	slots := make([]document.Node, len(doc.Records))
	stack := make([]frame, 0, len(doc.Records))
	for i := len(doc.Records) - 1; i >= 0; i-- {
		stack = append(stack, frame{src: doc.Records[i], dst: &slots[i], path: pii.FieldPath{Record: i}})
	}

	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		switch n := f.src.(type) {
		case *document.Object:
			o := &document.Object{Fields: make([]document.Field, len(n.Fields))}
			sc := f.scope
			if !f.member || sc == nil {
				sc = &scope{}
			}
			for i := len(n.Fields) - 1; i >= 0; i-- {
				o.Fields[i].Key = n.Fields[i].Key
				stack = append(stack, frame{
					src:    n.Fields[i].Value,
					dst:    &o.Fields[i].Value,
					path:   f.path.Child(n.Fields[i].Key),
					scope:  sc,
					member: true,
				})
			}
			*f.dst = o
		case *document.Array:
			a := &document.Array{Items: make([]document.Node, len(n.Items))}
			for i := len(n.Items) - 1; i >= 0; i-- {
				stack = append(stack, frame{src: n.Items[i], dst: &a.Items[i], path: f.path.Index(i), scope: f.scope})
			}
			*f.dst = a
		case *document.String:
			out, err := r.substitute(n, f.path, f.scope)
			if err != nil {
				return nil, err
			}
			*f.dst = out
		default:
			*f.dst = n
		}
	}

	out := &document.Document{Records: make([]*document.Object, len(slots))}
	for i, n := range slots {
		obj, ok := n.(*document.Object)
		if !ok {
			return nil, fmt.Errorf("record %d: expected object, got %T", i, n)
		}
		out.Records[i] = obj
	}
	r.summary.RecordsProcessed = len(out.Records)
	return out, nil
}

// eachString visits the string leaves of doc in document order.
func eachString(doc *document.Document, fn func(path pii.FieldPath, s string) error) error {
	type item struct {
		node document.Node
		path pii.FieldPath
	}
	stack := make([]item, 0, len(doc.Records))
	for i := len(doc.Records) - 1; i >= 0; i-- {
		stack = append(stack, item{node: doc.Records[i], path: pii.FieldPath{Record: i}})
	}
	for len(stack) > 0 {
		it := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		switch n := it.node.(type) {
		case *document.Object:
			for i := len(n.Fields) - 1; i >= 0; i-- {
				stack = append(stack, item{node: n.Fields[i].Value, path: it.path.Child(n.Fields[i].Key)})
			}
		case *document.Array:
			for i := len(n.Items) - 1; i >= 0; i-- {
				stack = append(stack, item{node: n.Items[i], path: it.path.Index(i)})
			}
		case *document.String:
			if err := fn(it.path, n.Value); err != nil {
				return err
			}
		}
	}
	return nil
}

var errStopLeaves = errors.New("stop")

// leaves yields the string leaves of doc in document order.
func leaves(doc *document.Document) iter.Seq2[pii.FieldPath, string] {
	return func(yield func(pii.FieldPath, string) bool) {
		_ = eachString(doc, func(path pii.FieldPath, s string) error {
			if !yield(path, s) {
				return errStopLeaves
			}
			return nil
		})
	}
}
