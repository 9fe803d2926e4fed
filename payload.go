package oai

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"reflect"
	"unicode/utf8"

	"github.com/gorilla/schema"
)

// Payload is a value tagged with a fixed wire content type.
type Payload interface {
	ContentType() string
	SchemaRef() MetaSchemaRef
	Register(reg *Registry)
}

// ParsePayload is a Payload that can be read from a request body. ParseBody
// has a pointer receiver and is only reached through NegotiatePayload.
type ParsePayload interface {
	Payload
	ParseBody(r *http.Request) error
}

// Content types of the built-in payloads.
const (
	ContentTypeText      = "text/plain"
	ContentTypeJSON      = "application/json"
	ContentTypeBinary    = "application/octet-stream"
	ContentTypeForm      = "application/x-www-form-urlencoded"
	ContentTypeMultipart = "multipart/form-data"
	ContentTypeProblem   = "application/problem+json"
)

// PlainText is a UTF-8 text/plain body.
type PlainText string

func (PlainText) ContentType() string      { return ContentTypeText }
func (PlainText) SchemaRef() MetaSchemaRef { return String.SchemaRef() }
func (PlainText) Register(*Registry)       {}

func (p *PlainText) ParseBody(r *http.Request) error {
	b, err := io.ReadAll(r.Body)
	if err != nil {
		return err
	}
	if !utf8.Valid(b) {
		return errors.New("body is not valid UTF-8")
	}
	*p = PlainText(b)
	return nil
}

func (p PlainText) RequestMeta() MetaRequest          { return PayloadRequestMeta(p) }
func (p *PlainText) FromRequest(r *http.Request) error { return NegotiatePayload(r, p) }
func (p PlainText) ResponseMeta() MetaResponses       { return payloadResponseMeta(p, http.StatusOK) }

func (p PlainText) WriteResponse(w http.ResponseWriter) {
	w.Header().Set("Content-Type", ContentTypeText)
	w.WriteHeader(http.StatusOK)
	//nolint:errcheck,gosec // best-effort after WriteHeader
	io.WriteString(w, string(p))
}

// JSON is an application/json body holding a T.
type JSON[T any] struct {
	Value T
}

func (JSON[T]) ContentType() string        { return ContentTypeJSON }
func (JSON[T]) SchemaRef() MetaSchemaRef   { return TypeOf[T]().SchemaRef() }
func (JSON[T]) Register(reg *Registry)     { TypeOf[T]().Register(reg) }
func (p JSON[T]) RequestMeta() MetaRequest { return PayloadRequestMeta(p) }

func (p *JSON[T]) ParseBody(r *http.Request) error {
	data, err := io.ReadAll(r.Body)
	if err != nil {
		return err
	}
	doc, err := decodeJSON(data)
	if err != nil {
		return err
	}
	v, err := TypeOf[T]().ParseFromJSON(doc)
	if err != nil {
		return err
	}
	p.Value = v
	return nil
}

func (p *JSON[T]) FromRequest(r *http.Request) error { return NegotiatePayload(r, p) }
func (p JSON[T]) ResponseMeta() MetaResponses       { return payloadResponseMeta(p, http.StatusOK) }

func (p JSON[T]) WriteResponse(w http.ResponseWriter) {
	writeJSON(w, http.StatusOK, TypeOf[T]().ToJSON(p.Value))
}

// Created is a JSON body answered with 201 Created.
type Created[T any] struct {
	Value T
}

func (Created[T]) Register(reg *Registry) { TypeOf[T]().Register(reg) }

func (Created[T]) ResponseMeta() MetaResponses {
	return payloadResponseMeta(JSON[T]{}, http.StatusCreated)
}

func (p Created[T]) WriteResponse(w http.ResponseWriter) {
	writeJSON(w, http.StatusCreated, TypeOf[T]().ToJSON(p.Value))
}

// Binary is an application/octet-stream body.
type Binary []byte

func (Binary) ContentType() string { return ContentTypeBinary }
func (Binary) SchemaRef() MetaSchemaRef {
	return InlineRef(NewSchemaWithFormat("string", "binary"))
}
func (Binary) Register(*Registry) {}

func (p *Binary) ParseBody(r *http.Request) error {
	b, err := io.ReadAll(r.Body)
	if err != nil {
		return err
	}
	*p = b
	return nil
}

func (p Binary) RequestMeta() MetaRequest          { return PayloadRequestMeta(p) }
func (p *Binary) FromRequest(r *http.Request) error { return NegotiatePayload(r, p) }
func (p Binary) ResponseMeta() MetaResponses       { return payloadResponseMeta(p, http.StatusOK) }

func (p Binary) WriteResponse(w http.ResponseWriter) {
	w.Header().Set("Content-Type", ContentTypeBinary)
	w.WriteHeader(http.StatusOK)
	//nolint:errcheck,gosec // best-effort after WriteHeader
	w.Write(p)
}

// Form is an application/x-www-form-urlencoded body decoded into the struct
// T. Keys follow T's json tag names.
type Form[T any] struct {
	Value T
}

var formDecoder = newFormDecoder()

func newFormDecoder() *schema.Decoder {
	d := schema.NewDecoder()
	d.SetAliasTag("json")
	d.IgnoreUnknownKeys(true)
	return d
}

func (Form[T]) ContentType() string        { return ContentTypeForm }
func (Form[T]) SchemaRef() MetaSchemaRef   { return TypeOf[T]().SchemaRef() }
func (Form[T]) Register(reg *Registry)     { TypeOf[T]().Register(reg) }
func (p Form[T]) RequestMeta() MetaRequest { return PayloadRequestMeta(p) }

func (p *Form[T]) ParseBody(r *http.Request) error {
	if err := r.ParseForm(); err != nil {
		return err
	}
	var v T
	if err := formDecoder.Decode(&v, r.PostForm); err != nil {
		return err
	}
	if err := validateValue(reflect.ValueOf(&v).Elem()); err != nil {
		return err
	}
	p.Value = v
	return nil
}

func (p *Form[T]) FromRequest(r *http.Request) error { return NegotiatePayload(r, p) }

// payloadResponseMeta documents a single response carrying p.
func payloadResponseMeta(p Payload, status int) MetaResponses {
	return MetaResponses{Responses: []MetaResponse{{
		Status:  status,
		Content: []MetaMediaType{{ContentType: p.ContentType(), Schema: p.SchemaRef()}},
	}}}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", ContentTypeJSON)
	w.WriteHeader(status)
	//nolint:errcheck,errchkjson,gosec // best-effort after WriteHeader
	json.NewEncoder(w).Encode(v)
}
