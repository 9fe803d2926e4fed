package oai

import (
	"errors"
	"fmt"
	"net/http"
)

// ParseRequestErrorKind classifies request boundary failures.
type ParseRequestErrorKind int

const (
	ExpectContentType ParseRequestErrorKind = iota + 1
	ContentTypeNotSupported
	ParseRequestBody
	ParseParam
	Authorization
)

func (k ParseRequestErrorKind) String() string {
	switch k {
	case ExpectContentType:
		return "expect_content_type"
	case ContentTypeNotSupported:
		return "content_type_not_supported"
	case ParseRequestBody:
		return "parse_request_body"
	case ParseParam:
		return "parse_param"
	case Authorization:
		return "authorization"
	default:
		return "unknown"
	}
}

// Sentinels for errors.Is on request boundary failures.
var (
	ErrExpectContentType       = &ParseRequestError{Kind: ExpectContentType}
	ErrContentTypeNotSupported = &ParseRequestError{Kind: ContentTypeNotSupported}
	ErrParseRequestBody        = &ParseRequestError{Kind: ParseRequestBody}
	ErrParseParam              = &ParseRequestError{Kind: ParseParam}
	ErrAuthorization           = &ParseRequestError{Kind: Authorization}
)

// ParseRequestError is produced when a request cannot be turned into typed
// operation inputs.
type ParseRequestError struct {
	Kind ParseRequestErrorKind

	// ContentType is the rejected header value of ContentTypeNotSupported.
	ContentType string

	// Name is the parameter or security scheme that failed.
	Name string

	// Reason is a human-readable description of the failure.
	Reason string

	Err error
}

func (e *ParseRequestError) Error() string {
	switch e.Kind {
	case ExpectContentType:
		return "expect a `Content-Type` header"
	case ContentTypeNotSupported:
		return fmt.Sprintf("the `Content-Type` requested by the client is not supported: %s", e.ContentType)
	case ParseRequestBody:
		return "failed to parse request body: " + e.Reason
	case ParseParam:
		return fmt.Sprintf("failed to parse parameter `%s`: %s", e.Name, e.Reason)
	case Authorization:
		if e.Reason == "" {
			return fmt.Sprintf("failed to authorize with `%s`", e.Name)
		}
		return fmt.Sprintf("failed to authorize with `%s`: %s", e.Name, e.Reason)
	default:
		return "failed to parse request"
	}
}

// Unwrap returns the underlying failure.
func (e *ParseRequestError) Unwrap() error { return e.Err }

// Is matches sentinels of the same kind.
func (e *ParseRequestError) Is(target error) bool {
	t, ok := target.(*ParseRequestError)
	if !ok {
		return false
	}
	return t.ContentType == "" && t.Name == "" && t.Reason == "" && t.Err == nil && t.Kind == e.Kind
}

// StatusCode implements StatusCoder.
func (e *ParseRequestError) StatusCode() int {
	if e.Kind == Authorization {
		return http.StatusUnauthorized
	}
	return http.StatusBadRequest
}

// StatusCoder is implemented by errors or responses that carry an HTTP status code.
type StatusCoder interface {
	StatusCode() int
}

// ProblemDetail is an RFC 9457 problem details response.
//
//nolint:errname // RFC 9457 standard name
type ProblemDetail struct {
	Type     string `json:"type,omitempty"`
	Title    string `json:"title,omitempty"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`
}

// Error returns the detail message (or title if detail is empty).
func (p *ProblemDetail) Error() string {
	if p.Detail != "" {
		return p.Detail
	}
	return p.Title
}

// StatusCode returns the HTTP status code.
func (p *ProblemDetail) StatusCode() int { return p.Status }

// HTTPError is an error with an HTTP status code.
type HTTPError struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
}

// Error returns the error message.
func (e *HTTPError) Error() string { return e.Message }

// StatusCode returns the HTTP status code.
func (e *HTTPError) StatusCode() int { return e.Status }

// Error returns an error with the given HTTP status code and message.
func Error(status int, message string) error {
	return &HTTPError{Status: status, Message: message}
}

// Errorf returns a formatted error with the given HTTP status code.
func Errorf(status int, format string, args ...any) error {
	return &HTTPError{Status: status, Message: fmt.Sprintf(format, args...)}
}

// ErrorStatus extracts the HTTP status code from an error. Returns
// http.StatusInternalServerError if the error does not implement StatusCoder.
func ErrorStatus(err error) int {
	var sc StatusCoder
	if errors.As(err, &sc) {
		return sc.StatusCode()
	}
	return http.StatusInternalServerError
}
