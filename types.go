package oai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"reflect"
)

// Type is the conversion contract of a value type T: it documents T in the
// registry and converts T from JSON values, parameter strings and multipart
// fields, and back to JSON.
//
// JSON values are the trees produced by encoding/json with UseNumber:
// nil, bool, json.Number, string, []any and map[string]any.
type Type[T any] interface {
	// Name is the human-readable type name, e.g. "integer(int32)".
	Name() string
	// SchemaRef returns an inline schema or a reference into the registry.
	SchemaRef() MetaSchemaRef
	// Register adds any named schemas T depends on.
	Register(reg *Registry)

	ParseFromJSON(v any) (T, error)
	// ParseFromParameter parses a path, query, header or cookie value. A nil
	// value means the parameter was absent.
	ParseFromParameter(v *string) (T, error)
	// ParseFromMultipartField reads and parses one multipart field. A nil
	// part means the field was absent.
	ParseFromMultipartField(ctx context.Context, p *multipart.Part) (T, error)

	ToJSON(v T) any
}

// codec is the type-erased form of Type used by reflection-driven binding.
type codec interface {
	Name() string
	SchemaRef() MetaSchemaRef
	Register(reg *Registry)

	goType() reflect.Type
	parseJSON(v any) (reflect.Value, error)
	parseParam(v *string) (reflect.Value, error)
	encodeJSON(v reflect.Value) any
	optional() bool
}

// TypeOf returns the conversion contract for T. Primitive types use the
// built-in descriptors; pointers, slices, maps and structs are described by
// reflection over their element and field types. TypeOf panics for types
// that cannot be described, such as channels or functions.
func TypeOf[T any]() Type[T] {
	c := codecFor(reflect.TypeFor[T]())
	if t, ok := c.(Type[T]); ok {
		return t
	}
	return typed[T]{c}
}

// typed adapts an erased codec to Type[T].
type typed[T any] struct {
	c codec
}

func (t typed[T]) Name() string             { return t.c.Name() }
func (t typed[T]) SchemaRef() MetaSchemaRef { return t.c.SchemaRef() }
func (t typed[T]) Register(reg *Registry)   { t.c.Register(reg) }

func (t typed[T]) ParseFromJSON(v any) (T, error) {
	rv, err := t.c.parseJSON(v)
	if err != nil {
		var zero T
		return zero, err
	}
	return rv.Interface().(T), nil
}

func (t typed[T]) ParseFromParameter(v *string) (T, error) {
	rv, err := t.c.parseParam(v)
	if err != nil {
		var zero T
		return zero, err
	}
	return rv.Interface().(T), nil
}

func (t typed[T]) ParseFromMultipartField(ctx context.Context, p *multipart.Part) (T, error) {
	rv, err := parseMultipartField(ctx, t.c, p)
	if err != nil {
		var zero T
		return zero, err
	}
	return rv.Interface().(T), nil
}

func (t typed[T]) ToJSON(v T) any {
	return t.c.encodeJSON(reflect.ValueOf(&v).Elem())
}

// decodeJSON decodes a single JSON document into a value tree.
func decodeJSON(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, errors.New("unexpected data after JSON value")
	}
	return v, nil
}

// parseMultipartField reads p and parses its text with the parameter rule
// of c. Multipart bodies and ParseFromMultipartField both go through here.
func parseMultipartField(ctx context.Context, c codec, p *multipart.Part) (reflect.Value, error) {
	text, err := readPart(ctx, p)
	if err != nil {
		return reflect.Value{}, err
	}
	return c.parseParam(text)
}

// partChunk bounds a single read from a multipart field so cancellation is
// observed between chunks.
const partChunk = 32 << 10

// readPart reads the text of a multipart field. A nil part yields nil.
func readPart(ctx context.Context, p *multipart.Part) (*string, error) {
	if p == nil {
		return nil, nil
	}
	var buf bytes.Buffer
	chunk := make([]byte, partChunk)
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		n, err := p.Read(chunk)
		buf.Write(chunk[:n])
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, customf("read multipart field %q: %v", p.FormName(), err)
		}
	}
	s := buf.String()
	return &s, nil
}

// isJSONNumber reports whether v is a numeric JSON value.
func isJSONNumber(v any) bool {
	switch v.(type) {
	case json.Number, float64, float32, int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64:
		return true
	default:
		return false
	}
}

// numberText returns the canonical text of a numeric JSON value.
func numberText(v any) (string, bool) {
	switch n := v.(type) {
	case json.Number:
		return string(n), true
	case float64, float32, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return fmt.Sprint(n), true
	default:
		return "", false
	}
}
