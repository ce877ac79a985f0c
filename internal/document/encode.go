package document

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/tidwall/pretty"
)

var prettyOptions = &pretty.Options{Width: 80, Prefix: "", Indent: "  ", SortKeys: false}

// Encode renders the document as indented JSON with members in their
// original order and numbers in their original spelling. Non-ASCII text is
// written as UTF-8 and HTML characters are not escaped.
func Encode(doc *Document) ([]byte, error) {
	raw, err := EncodeNode(doc.Root())
	if err != nil {
		return nil, err
	}
	return pretty.PrettyOptions(raw, prettyOptions), nil
}

// step is one pending write: either a node or a literal closing token.
type step struct {
	node  Node
	token string
	comma bool
}

// EncodeNode writes n as compact JSON without recursion.
func EncodeNode(n Node) ([]byte, error) {
	var out, scratch bytes.Buffer
	enc := json.NewEncoder(&scratch)
	enc.SetEscapeHTML(false)
	writeString := func(s string) error {
		scratch.Reset()
		if err := enc.Encode(s); err != nil {
			return err
		}
		out.Write(bytes.TrimSuffix(scratch.Bytes(), []byte("\n")))
		return nil
	}

	stack := []step{{node: n}}
	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if top.comma {
			out.WriteByte(',')
		}
		if top.node == nil {
			out.WriteString(top.token)
			continue
		}
		switch v := top.node.(type) {
		case *Object:
			out.WriteByte('{')
			stack = append(stack, step{token: "}"})
			for i := len(v.Fields) - 1; i >= 0; i-- {
				stack = append(stack, step{node: v.Fields[i].Value}, step{token: key(v.Fields[i].Key), comma: i > 0})
			}
		case *Array:
			out.WriteByte('[')
			stack = append(stack, step{token: "]"})
			for i := len(v.Items) - 1; i >= 0; i-- {
				stack = append(stack, step{node: v.Items[i], comma: i > 0})
			}
		case *String:
			if err := writeString(v.Value); err != nil {
				return nil, fmt.Errorf("encoding string: %w", err)
			}
		case *Number:
			out.WriteString(v.Raw)
		case *Bool:
			if v.Value {
				out.WriteString("true")
			} else {
				out.WriteString("false")
			}
		case *Null:
			out.WriteString("null")
		default:
			return nil, fmt.Errorf("encoding %T: unsupported node", top.node)
		}
	}
	return out.Bytes(), nil
}

// key renders an object key followed by a colon.
func key(k string) string {
	var b bytes.Buffer
	enc := json.NewEncoder(&b)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(k)
	return string(bytes.TrimSuffix(b.Bytes(), []byte("\n"))) + ":"
}
