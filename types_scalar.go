package oai

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"math"
	"mime/multipart"
	"reflect"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// Scalar descriptors.
var (
	Float32  Type[float32]   = floatType[float32]("float", 32)
	Float64  Type[float64]   = floatType[float64]("double", 64)
	String   Type[string]    = stringType()
	Bool     Type[bool]      = boolType()
	DateTime Type[time.Time] = dateTimeType()
	UUID     Type[uuid.UUID] = uuidType()
	Bytes    Type[[]byte]    = bytesType()
)

// builtins maps Go types to their descriptors.
var builtins = builtinCodecs(
	Int8, Int16, Int32, Int64, Int,
	Uint8, Uint16, Uint32, Uint64, Uint,
	Float32, Float64, String, Bool, DateTime, UUID, Bytes,
)

func builtinCodecs(types ...any) map[reflect.Type]codec {
	m := make(map[reflect.Type]codec, len(types))
	for _, t := range types {
		c := t.(codec)
		m[c.goType()] = c
	}
	return m
}

// scalarType is a Type built from a JSON rule and a text rule. Parameters
// and multipart fields share the text rule.
type scalarType[T any] struct {
	name     string
	schema   MetaSchema
	fromJSON func(v any) (T, error)
	fromText func(s string) (T, error)
	toJSON   func(v T) any
}

func (s *scalarType[T]) Name() string             { return s.name }
func (s *scalarType[T]) SchemaRef() MetaSchemaRef { return InlineRef(s.schema) }
func (s *scalarType[T]) Register(*Registry)       {}

func (s *scalarType[T]) ParseFromJSON(v any) (T, error) {
	return s.fromJSON(v)
}

func (s *scalarType[T]) ParseFromParameter(v *string) (T, error) {
	if v == nil {
		var zero T
		return zero, expectedInput()
	}
	return s.fromText(*v)
}

func (s *scalarType[T]) ParseFromMultipartField(ctx context.Context, p *multipart.Part) (T, error) {
	rv, err := parseMultipartField(ctx, s, p)
	if err != nil {
		var zero T
		return zero, err
	}
	return rv.Interface().(T), nil
}

func (s *scalarType[T]) ToJSON(v T) any { return s.toJSON(v) }

func (s *scalarType[T]) goType() reflect.Type { return reflect.TypeFor[T]() }
func (s *scalarType[T]) optional() bool       { return false }

func (s *scalarType[T]) parseJSON(v any) (reflect.Value, error) {
	t, err := s.fromJSON(v)
	if err != nil {
		return reflect.Value{}, err
	}
	return reflect.ValueOf(&t).Elem(), nil
}

func (s *scalarType[T]) parseParam(v *string) (reflect.Value, error) {
	t, err := s.ParseFromParameter(v)
	if err != nil {
		return reflect.Value{}, err
	}
	return reflect.ValueOf(&t).Elem(), nil
}

func (s *scalarType[T]) encodeJSON(v reflect.Value) any {
	return s.toJSON(v.Interface().(T))
}

func floatType[T float32 | float64](format string, bits int) *scalarType[T] {
	name := "number(" + format + ")"
	parse := func(s string) (T, error) {
		f, err := strconv.ParseFloat(s, bits)
		if err != nil {
			if errors.Is(err, strconv.ErrRange) {
				return 0, &ParseError{Kind: KindOutOfRange, Message: "number out of range for " + name}
			}
			return 0, customError(err)
		}
		return T(f), nil
	}
	return &scalarType[T]{
		name:   name,
		schema: NewSchemaWithFormat("number", format),
		fromJSON: func(v any) (T, error) {
			s, ok := numberText(v)
			if !ok {
				return 0, expectedType(name, v)
			}
			return parse(s)
		},
		fromText: parse,
		toJSON: func(v T) any {
			f := float64(v)
			if math.IsNaN(f) || math.IsInf(f, 0) {
				return nil
			}
			return json.Number(strconv.FormatFloat(f, 'g', -1, bits))
		},
	}
}

func stringType() *scalarType[string] {
	const name = "string"
	return &scalarType[string]{
		name:   name,
		schema: NewSchema("string"),
		fromJSON: func(v any) (string, error) {
			s, ok := v.(string)
			if !ok {
				return "", expectedType(name, v)
			}
			return s, nil
		},
		fromText: func(s string) (string, error) { return s, nil },
		toJSON:   func(v string) any { return v },
	}
}

func boolType() *scalarType[bool] {
	const name = "boolean"
	return &scalarType[bool]{
		name:   name,
		schema: NewSchema("boolean"),
		fromJSON: func(v any) (bool, error) {
			b, ok := v.(bool)
			if !ok {
				return false, expectedType(name, v)
			}
			return b, nil
		},
		fromText: func(s string) (bool, error) {
			b, err := strconv.ParseBool(s)
			if err != nil {
				return false, customError(err)
			}
			return b, nil
		},
		toJSON: func(v bool) any { return v },
	}
}

func dateTimeType() *scalarType[time.Time] {
	const name = "string(date-time)"
	parse := func(s string) (time.Time, error) {
		t, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return time.Time{}, customError(err)
		}
		return t, nil
	}
	return &scalarType[time.Time]{
		name:   name,
		schema: NewSchemaWithFormat("string", "date-time"),
		fromJSON: func(v any) (time.Time, error) {
			s, ok := v.(string)
			if !ok {
				return time.Time{}, expectedType(name, v)
			}
			return parse(s)
		},
		fromText: parse,
		toJSON:   func(v time.Time) any { return v.Format(time.RFC3339Nano) },
	}
}

func uuidType() *scalarType[uuid.UUID] {
	const name = "string(uuid)"
	parse := func(s string) (uuid.UUID, error) {
		id, err := uuid.Parse(s)
		if err != nil {
			return uuid.Nil, customError(err)
		}
		return id, nil
	}
	return &scalarType[uuid.UUID]{
		name:   name,
		schema: NewSchemaWithFormat("string", "uuid"),
		fromJSON: func(v any) (uuid.UUID, error) {
			s, ok := v.(string)
			if !ok {
				return uuid.Nil, expectedType(name, v)
			}
			return parse(s)
		},
		fromText: parse,
		toJSON:   func(v uuid.UUID) any { return v.String() },
	}
}

// bytesType is base64 in JSON; parameters and multipart fields carry the
// raw bytes.
func bytesType() *scalarType[[]byte] {
	const name = "string(bytes)"
	return &scalarType[[]byte]{
		name:   name,
		schema: NewSchemaWithFormat("string", "byte"),
		fromJSON: func(v any) ([]byte, error) {
			s, ok := v.(string)
			if !ok {
				return nil, expectedType(name, v)
			}
			b, err := base64.StdEncoding.DecodeString(s)
			if err != nil {
				return nil, customError(err)
			}
			return b, nil
		},
		fromText: func(s string) ([]byte, error) { return []byte(s), nil },
		toJSON:   func(v []byte) any { return base64.StdEncoding.EncodeToString(v) },
	}
}
