package oai

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
)

// Multipart is a multipart/form-data body decoded into the struct T. Each
// part is matched to a field by its json tag name and parsed as it arrives
// with the field type's multipart rule; []byte fields receive the raw part
// content. Unknown parts are skipped.
type Multipart[T any] struct {
	Value T
}

func (Multipart[T]) ContentType() string        { return ContentTypeMultipart }
func (Multipart[T]) SchemaRef() MetaSchemaRef   { return multipartCodec[T]().SchemaRef() }
func (Multipart[T]) Register(reg *Registry)     { multipartCodec[T]().Register(reg) }
func (p Multipart[T]) RequestMeta() MetaRequest { return PayloadRequestMeta(p) }

func (p *Multipart[T]) FromRequest(r *http.Request) error { return NegotiatePayload(r, p) }

func (p *Multipart[T]) ParseBody(r *http.Request) error {
	c := multipartCodec[T]()
	mr, err := r.MultipartReader()
	if err != nil {
		return err
	}

	fields := make(map[string]objectField)
	for _, f := range c.objectFields() {
		fields[f.name] = f
	}

	out := reflect.New(c.t).Elem()
	seen := make(map[string]bool)
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}
		f, ok := fields[part.FormName()]
		if !ok {
			continue
		}
		fv, err := parseMultipartField(r.Context(), f.codec, part)
		if err != nil {
			return prefixed(err, f.name)
		}
		out.FieldByIndex(f.index).Set(fv)
		seen[f.name] = true
	}

	for _, f := range c.objectFields() {
		if seen[f.name] || f.codec.optional() || !f.required {
			continue
		}
		fv, err := f.codec.parseParam(nil)
		if err != nil {
			return prefixed(err, f.name)
		}
		out.FieldByIndex(f.index).Set(fv)
	}
	if err := validateValue(out); err != nil {
		return err
	}

	p.Value = out.Interface().(T)
	return nil
}

func multipartCodec[T any]() *objectCodec {
	c, ok := codecFor(reflect.TypeFor[T]()).(*objectCodec)
	if !ok {
		panic(fmt.Sprintf("oai: multipart body %s must be a struct", reflect.TypeFor[T]()))
	}
	return c
}
