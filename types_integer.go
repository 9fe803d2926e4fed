package oai

import (
	"encoding/json"
	"errors"
	"math"
	"strconv"
	"strings"

	"golang.org/x/exp/constraints"
)

// Integer descriptors. Every width shares one implementation parameterised
// by its format tag and native bounds.
var (
	Int8  Type[int8]  = signedType[int8]("int8", math.MinInt8, math.MaxInt8)
	Int16 Type[int16] = signedType[int16]("int16", math.MinInt16, math.MaxInt16)
	Int32 Type[int32] = signedType[int32]("int32", math.MinInt32, math.MaxInt32)
	Int64 Type[int64] = signedType[int64]("int64", math.MinInt64, math.MaxInt64)
	Int   Type[int]   = signedType[int]("int64", math.MinInt, math.MaxInt)

	Uint8  Type[uint8]  = unsignedType[uint8]("uint8", math.MaxUint8)
	Uint16 Type[uint16] = unsignedType[uint16]("uint16", math.MaxUint16)
	Uint32 Type[uint32] = unsignedType[uint32]("uint32", math.MaxUint32)
	Uint64 Type[uint64] = unsignedType[uint64]("uint64", math.MaxUint64)
	Uint   Type[uint]   = unsignedType[uint]("uint64", math.MaxUint)
)

func signedType[T constraints.Signed](format string, lo, hi int64) *scalarType[T] {
	name := "integer(" + format + ")"
	parse := func(s string) (T, error) {
		n, err := parseSigned(s, lo, hi)
		return T(n), err
	}
	return &scalarType[T]{
		name:   name,
		schema: NewSchemaWithFormat("integer", format),
		fromJSON: func(v any) (T, error) {
			s, err := integerJSONText(name, v)
			if err != nil {
				return 0, err
			}
			return parse(s)
		},
		fromText: parse,
		toJSON: func(v T) any {
			return json.Number(strconv.FormatInt(int64(v), 10))
		},
	}
}

func unsignedType[T constraints.Unsigned](format string, hi uint64) *scalarType[T] {
	name := "integer(" + format + ")"
	parse := func(s string) (T, error) {
		n, err := parseUnsigned(s, hi)
		return T(n), err
	}
	return &scalarType[T]{
		name:   name,
		schema: NewSchemaWithFormat("integer", format),
		fromJSON: func(v any) (T, error) {
			s, err := integerJSONText(name, v)
			if err != nil {
				return 0, err
			}
			return parse(s)
		},
		fromText: parse,
		toJSON: func(v T) any {
			return json.Number(strconv.FormatUint(uint64(v), 10))
		},
	}
}

// parseSigned parses s as a base-10 integer within [lo, hi]. Values that do
// not even fit in 64 bits are reported as out of range, not as malformed.
func parseSigned(s string, lo, hi int64) (int64, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		if errors.Is(err, strconv.ErrRange) {
			return 0, outOfRange(lo, hi)
		}
		return 0, customError(err)
	}
	if n < lo || n > hi {
		return 0, outOfRange(lo, hi)
	}
	return n, nil
}

// parseUnsigned parses s as a base-10 integer within [0, hi].
func parseUnsigned(s string, hi uint64) (uint64, error) {
	if strings.HasPrefix(s, "-") {
		n, err := strconv.ParseInt(s, 10, 64)
		switch {
		case err == nil && n == 0:
			return 0, nil
		case err == nil, errors.Is(err, strconv.ErrRange):
			return 0, outOfRange(uint64(0), hi)
		default:
			return 0, customError(err)
		}
	}
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		if errors.Is(err, strconv.ErrRange) {
			return 0, outOfRange(uint64(0), hi)
		}
		return 0, customError(err)
	}
	if n > hi {
		return 0, outOfRange(uint64(0), hi)
	}
	return n, nil
}

// integerJSONText extracts the integral text of a JSON number. Numbers
// written with a fraction or exponent are accepted only when integral.
// Numbers too large for float64 are clamped so they fail the range check.
func integerJSONText(name string, v any) (string, error) {
	s, ok := numberText(v)
	if !ok {
		return "", expectedType(name, v)
	}
	if !strings.ContainsAny(s, ".eE") {
		return s, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if math.IsInf(f, 0) {
		// Beyond float64 is beyond every width; the caller's parse reports
		// the range.
		f = math.Copysign(math.MaxFloat64, f)
	} else if err != nil || f != math.Trunc(f) {
		return "", customf("invalid integer")
	}
	return strconv.FormatFloat(f, 'f', -1, 64), nil
}
