package document

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/tidwall/gjson"
	"github.com/xeipuuv/gojsonschema"
)

// recordsSchema is the accepted top-level shape.
const recordsSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "title": "Sanitizer input",
  "type": "array",
  "items": {"type": "object"}
}`

var (
	schemaOnce sync.Once
	schema     *gojsonschema.Schema
	schemaErr  error
)

func compiledSchema() (*gojsonschema.Schema, error) {
	schemaOnce.Do(func() {
		schema, schemaErr = gojsonschema.NewSchema(gojsonschema.NewStringLoader(recordsSchema))
	})
	return schema, schemaErr
}

// Parse decodes a JSON array of objects.
func Parse(data []byte) (*Document, error) {
	if !gjson.ValidBytes(data) {
		return nil, syntaxError(data)
	}
	if err := validateShape(data); err != nil {
		return nil, err
	}

	root := gjson.ParseBytes(data)
	if !root.IsArray() {
		return nil, &FormatError{Path: "$", Msg: "top level must be an array"}
	}
	arr := &Array{}
	if err := build(root, arr); err != nil {
		return nil, err
	}
	doc := &Document{Records: make([]*Object, 0, len(arr.Items))}
	for i, n := range arr.Items {
		obj, ok := n.(*Object)
		if !ok {
			return nil, &FormatError{Path: "[" + strconv.Itoa(i) + "]", Msg: "record must be an object, got " + n.Kind().String()}
		}
		doc.Records = append(doc.Records, obj)
	}
	return doc, nil
}

// validateShape checks the top-level shape against recordsSchema. Only a
// projection of the root is validated, with every element reduced to an
// empty value of its kind, so the check is independent of nesting depth.
func validateShape(data []byte) error {
	s, err := compiledSchema()
	if err != nil {
		return fmt.Errorf("compiling input schema: %w", err)
	}
	result, err := s.Validate(gojsonschema.NewBytesLoader(shallow(gjson.ParseBytes(data))))
	if err != nil {
		return &FormatError{Path: "$", Msg: err.Error()}
	}
	if result.Valid() {
		return nil
	}
	verr := result.Errors()[0]
	path := "$"
	if f := verr.Field(); f != "" && f != "(root)" {
		path = "[" + strings.ReplaceAll(f, ".", "].[") + "]"
	}
	return &FormatError{Path: path, Msg: verr.Description()}
}

// shallow renders v with containers below the root emptied.
func shallow(v gjson.Result) []byte {
	if !v.IsArray() {
		return []byte(stub(v))
	}
	var b strings.Builder
	b.WriteByte('[')
	first := true
	v.ForEach(func(_, item gjson.Result) bool {
		if !first {
			b.WriteByte(',')
		}
		first = false
		b.WriteString(stub(item))
		return true
	})
	b.WriteByte(']')
	return []byte(b.String())
}

func stub(v gjson.Result) string {
	switch {
	case v.IsObject():
		return "{}"
	case v.IsArray():
		return "[]"
	case v.Type == gjson.String:
		return `""`
	case v.Type == gjson.Number:
		return "0"
	}
	return v.Raw
}

// frame is a container whose children still have to be decoded.
type frame struct {
	src gjson.Result
	dst Node
}

// build decodes src into dst without recursion.
func build(src gjson.Result, dst Node) error {
	stack := []frame{{src: src, dst: dst}}
	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		var ferr error
		top.src.ForEach(func(key, value gjson.Result) bool {
			child, container := leaf(value)
			if child == nil {
				ferr = &FormatError{Msg: "unsupported value " + strconv.Quote(value.Raw)}
				return false
			}
			switch d := top.dst.(type) {
			case *Object:
				d.Fields = append(d.Fields, Field{Key: key.String(), Value: child})
			case *Array:
				d.Items = append(d.Items, child)
			}
			if container {
				stack = append(stack, frame{src: value, dst: child})
			}
			return true
		})
		if ferr != nil {
			return ferr
		}
	}
	return nil
}

func leaf(v gjson.Result) (Node, bool) {
	switch v.Type {
	case gjson.String:
		return &String{Value: v.String()}, false
	case gjson.Number:
		return &Number{Raw: v.Raw}, false
	case gjson.True:
		return &Bool{Value: true}, false
	case gjson.False:
		return &Bool{Value: false}, false
	case gjson.Null:
		return &Null{}, false
	case gjson.JSON:
		if v.IsObject() {
			return &Object{}, true
		}
		if v.IsArray() {
			return &Array{}, true
		}
	}
	return nil, false
}

// syntaxError locates the first syntax error. gjson only answers valid or
// not, so the offset comes from encoding/json.
func syntaxError(data []byte) error {
	var v json.RawMessage
	err := json.Unmarshal(data, &v)
	var se *json.SyntaxError
	if !errors.As(err, &se) {
		msg := "malformed JSON"
		if err != nil {
			msg = err.Error()
		}
		return &FormatError{Line: 1, Column: 1, Msg: msg}
	}
	line, col := position(data, int(se.Offset))
	return &FormatError{Line: line, Column: col, Msg: se.Error()}
}

// position converts a byte offset into a 1-based line and rune column.
func position(data []byte, offset int) (int, int) {
	if offset > len(data) {
		offset = len(data)
	}
	if offset > 0 {
		offset--
	}
	line, start := 1, 0
	for i := 0; i < offset; i++ {
		if data[i] == '\n' {
			line++
			start = i + 1
		}
	}
	return line, utf8.RuneCount(data[start:offset]) + 1
}
