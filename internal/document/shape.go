package document

import (
	"strconv"
	"strings"
)

// Shape describes n with every string leaf blanked out: container kinds, key
// order, array lengths and non-string scalars are kept verbatim. Two trees
// have the same structure exactly when their shapes are equal.
func Shape(n Node) string {
	var b strings.Builder
	stack := []step{{node: n}}
	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if top.comma {
			b.WriteByte(',')
		}
		if top.node == nil {
			b.WriteString(top.token)
			continue
		}
		switch v := top.node.(type) {
		case *Object:
			b.WriteByte('{')
			stack = append(stack, step{token: "}"})
			for i := len(v.Fields) - 1; i >= 0; i-- {
				stack = append(stack, step{node: v.Fields[i].Value}, step{token: strconv.Quote(v.Fields[i].Key) + ":", comma: i > 0})
			}
		case *Array:
			b.WriteString("[" + strconv.Itoa(len(v.Items)) + ":")
			stack = append(stack, step{token: "]"})
			for i := len(v.Items) - 1; i >= 0; i-- {
				stack = append(stack, step{node: v.Items[i], comma: i > 0})
			}
		case *String:
			b.WriteString("s")
		case *Number:
			b.WriteString(v.Raw)
		case *Bool:
			b.WriteString(strconv.FormatBool(v.Value))
		case *Null:
			b.WriteString("null")
		}
	}
	return b.String()
}

// Strings returns every string leaf in document order.
func Strings(n Node) []string {
	var out []string
	stack := []Node{n}
	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		switch v := top.(type) {
		case *Object:
			for i := len(v.Fields) - 1; i >= 0; i-- {
				stack = append(stack, v.Fields[i].Value)
			}
		case *Array:
			for i := len(v.Items) - 1; i >= 0; i-- {
				stack = append(stack, v.Items[i])
			}
		case *String:
			out = append(out, v.Value)
		}
	}
	return out
}
