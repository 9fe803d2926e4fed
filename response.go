package oai

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// ApiResponse is the response-boundary contract of an operation output.
// ResponseMeta and Register are called on the zero value during assembly.
type ApiResponse interface {
	ResponseMeta() MetaResponses
	Register(reg *Registry)
	WriteResponse(w http.ResponseWriter)
}

// BadRequestHandler is implemented, with a pointer receiver, by responses
// that convert request parse failures into their own representation
// instead of the default 400 problem response.
type BadRequestHandler interface {
	FromParseRequestError(err *ParseRequestError)
}

// HasBadRequestHandler reports whether R opted into BadRequestHandler.
func HasBadRequestHandler[R any]() bool {
	_, ok := any(new(R)).(BadRequestHandler)
	return ok
}

// FromParseRequestError converts err into R. It panics when R has not
// opted into BadRequestHandler; check HasBadRequestHandler first.
func FromParseRequestError[R any](err *ParseRequestError) R {
	r := new(R)
	h, ok := any(r).(BadRequestHandler)
	if !ok {
		panic(fmt.Sprintf("oai: %T does not handle bad requests", *r))
	}
	h.FromParseRequestError(err)
	return *r
}

// Empty is a 200 response without a body. As an operation input it binds
// nothing.
type Empty struct{}

func (Empty) Register(*Registry) {}

func (Empty) ResponseMeta() MetaResponses {
	return MetaResponses{Responses: []MetaResponse{{Status: http.StatusOK}}}
}

func (Empty) WriteResponse(w http.ResponseWriter) {
	w.WriteHeader(http.StatusOK)
}

// Result holds either a response or an error. It documents itself exactly
// as T; errors are written through the problem details path.
type Result[T ApiResponse] struct {
	Value T
	Err   error
}

// Ok returns a successful Result.
func Ok[T ApiResponse](v T) Result[T] { return Result[T]{Value: v} }

// Fail returns a failed Result.
func Fail[T ApiResponse](err error) Result[T] { return Result[T]{Err: err} }

func (Result[T]) ResponseMeta() MetaResponses {
	var zero T
	return zero.ResponseMeta()
}

func (Result[T]) Register(reg *Registry) {
	var zero T
	zero.Register(reg)
}

func (r Result[T]) WriteResponse(w http.ResponseWriter) {
	if r.Err != nil {
		writeErrorResponse(w, r.Err)
		return
	}
	r.Value.WriteResponse(w)
}

// writeErrorResponse writes an error as an RFC 9457 problem details response.
func writeErrorResponse(w http.ResponseWriter, err error) {
	status := ErrorStatus(err)

	// If the error is already a ProblemDetail, use it directly.
	var pd *ProblemDetail
	if errors.As(err, &pd) {
		w.Header().Set("Content-Type", ContentTypeProblem)
		w.WriteHeader(pd.Status)
		//nolint:errcheck,errchkjson,gosec // best-effort after WriteHeader
		json.NewEncoder(w).Encode(pd)
		return
	}

	problem := &ProblemDetail{
		Type:   "about:blank",
		Title:  http.StatusText(status),
		Status: status,
		Detail: err.Error(),
	}

	w.Header().Set("Content-Type", ContentTypeProblem)
	w.WriteHeader(status)
	//nolint:errcheck,errchkjson,gosec // best-effort after WriteHeader
	json.NewEncoder(w).Encode(problem)
}
