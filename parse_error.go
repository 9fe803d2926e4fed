package oai

import "fmt"

// ParseErrorKind classifies value conversion failures.
type ParseErrorKind int

const (
	KindCustom        ParseErrorKind = iota // malformed text or any other conversion failure
	KindExpectedInput                       // required input missing
	KindExpectedType                        // JSON value of the wrong shape
	KindOutOfRange                          // numeric value outside the native bounds
)

func (k ParseErrorKind) String() string {
	switch k {
	case KindExpectedInput:
		return "expected_input"
	case KindExpectedType:
		return "expected_type"
	case KindOutOfRange:
		return "out_of_range"
	default:
		return "custom"
	}
}

// Sentinels for errors.Is. They match any ParseError of the same kind.
var (
	ErrExpectedInput = &ParseError{Kind: KindExpectedInput}
	ErrExpectedType  = &ParseError{Kind: KindExpectedType}
	ErrOutOfRange    = &ParseError{Kind: KindOutOfRange}
)

// ParseError is returned by the Type conversions.
type ParseError struct {
	Kind    ParseErrorKind
	Message string

	// Min and Max hold the accepted bounds of a KindOutOfRange error.
	Min, Max string
}

func (e *ParseError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	switch e.Kind {
	case KindExpectedInput:
		return "expected input"
	case KindExpectedType:
		return "unexpected type"
	case KindOutOfRange:
		return fmt.Sprintf("value out of range %s..%s", e.Min, e.Max)
	default:
		return "parse error"
	}
}

// Is matches sentinels of the same kind.
func (e *ParseError) Is(target error) bool {
	t, ok := target.(*ParseError)
	if !ok {
		return false
	}
	return t.Message == "" && t.Kind == e.Kind
}

// expectedInput reports a missing value.
func expectedInput() *ParseError {
	return &ParseError{Kind: KindExpectedInput, Message: "expected input"}
}

// expectedType reports a JSON value whose shape does not match typeName.
func expectedType(typeName string, value any) *ParseError {
	return &ParseError{
		Kind:    KindExpectedType,
		Message: fmt.Sprintf("expected type %q, found %s", typeName, jsonKind(value)),
	}
}

// outOfRange reports a numeric value outside [min, max].
func outOfRange[N any](min, max N) *ParseError {
	lo, hi := fmt.Sprint(min), fmt.Sprint(max)
	return &ParseError{
		Kind:    KindOutOfRange,
		Message: fmt.Sprintf("Only integers from %s to %s are accepted.", lo, hi),
		Min:     lo,
		Max:     hi,
	}
}

// customError wraps a lower-level failure.
func customError(err error) *ParseError {
	return &ParseError{Kind: KindCustom, Message: err.Error()}
}

// customf formats a custom failure.
func customf(format string, args ...any) *ParseError {
	return &ParseError{Kind: KindCustom, Message: fmt.Sprintf(format, args...)}
}

// prefixed returns a copy of err with its message prefixed by a location,
// e.g. the JSON field or array index that failed.
func prefixed(err error, location string) error {
	pe, ok := err.(*ParseError)
	if !ok {
		return fmt.Errorf("%s: %w", location, err)
	}
	cp := *pe
	cp.Message = location + ": " + pe.Error()
	return &cp
}

// jsonKind names the JSON variant of a decoded value.
func jsonKind(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "a boolean"
	case string:
		return "a string"
	case []any:
		return "an array"
	case map[string]any:
		return "an object"
	default:
		if isJSONNumber(v) {
			return "a number"
		}
		return fmt.Sprintf("%T", v)
	}
}
