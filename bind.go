package oai

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"slices"
)

var (
	apiRequestType     = reflect.TypeFor[ApiRequest]()
	securitySchemeType = reflect.TypeFor[SecurityScheme]()
)

// binder materialises an operation's request struct from an *http.Request.
// It is derived once per operation from the struct's fields:
//
//   - fields tagged `path`, `query`, `header` or `cookie` are parameters,
//     optionally with a `default` and a `doc` description;
//   - a field whose pointer implements SecurityScheme is a credential,
//     optionally with `scopes` for OAuth2 schemes;
//   - a field whose pointer implements ApiRequest is the body. A request
//     type that itself implements ApiRequest is bound as a whole body.
type binder struct {
	t        reflect.Type
	params   []paramField
	security []securityField
	body     *bodyField
	whole    bool
}

type paramField struct {
	index []int
	in    string
	name  string
	codec codec
	def   *string
	doc   string
}

type securityField struct {
	index    []int
	scheme   SecurityScheme
	optional bool
	scopes   []string
}

type bodyField struct {
	index []int
	req   ApiRequest
}

// newBinder analyses t. It panics on request types that cannot be bound.
func newBinder(t reflect.Type, path string) *binder {
	b := &binder{t: t}

	if reflect.PointerTo(t).Implements(apiRequestType) {
		b.whole = true
		b.body = &bodyField{req: reflect.New(t).Interface().(ApiRequest)}
		b.checkPath(path)
		return b
	}
	if t.Kind() != reflect.Struct {
		panic(fmt.Sprintf("oai: request type %s must be a struct", t))
	}

	for i := range t.NumField() {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		ptr := reflect.PointerTo(f.Type)

		if in, name, ok := paramTag(f.Tag); ok {
			p := paramField{
				index: f.Index,
				in:    in,
				name:  name,
				codec: codecFor(f.Type),
				doc:   f.Tag.Get("doc"),
			}
			if def, ok := f.Tag.Lookup("default"); ok {
				p.def = &def
			}
			b.params = append(b.params, p)
			continue
		}

		switch {
		case ptr.Implements(securitySchemeType):
			s := securityField{
				index:  f.Index,
				scheme: reflect.New(f.Type).Interface().(SecurityScheme),
				scopes: tagList(f.Tag.Get("scopes")),
			}
			_, s.optional = s.scheme.(optionalSecurity)
			s.checkScopes()
			b.security = append(b.security, s)
		case ptr.Implements(apiRequestType):
			if b.body != nil {
				panic(fmt.Sprintf("oai: request type %s declares more than one body", t))
			}
			b.body = &bodyField{index: f.Index, req: reflect.New(f.Type).Interface().(ApiRequest)}
		case f.Name == "Body":
			panic(fmt.Sprintf("oai: body field of %s must implement ApiRequest", t))
		}
	}

	b.checkPath(path)
	return b
}

// checkPath ensures every path wildcard is bound to a field.
func (b *binder) checkPath(path string) {
	for _, name := range pathParams(path) {
		if !slices.ContainsFunc(b.params, func(p paramField) bool { return p.in == "path" && p.name == name }) {
			panic(fmt.Sprintf("oai: path parameter %q of %s is not bound by %s", name, path, b.t))
		}
	}
}

func (s securityField) checkScopes() {
	if len(s.scopes) == 0 {
		return
	}
	scoped, ok := s.scheme.(scopedSecurity)
	if !ok {
		panic(fmt.Sprintf("oai: security scheme %s does not declare scopes", s.scheme.SchemeName()))
	}
	known := scoped.scopeNames()
	for _, name := range s.scopes {
		if !known[name] {
			panic(fmt.Sprintf("oai: unknown scope %q for security scheme %s", name, s.scheme.SchemeName()))
		}
	}
}

// register adds every schema and security scheme the request uses.
func (b *binder) register(reg *Registry) {
	for _, p := range b.params {
		p.codec.Register(reg)
	}
	for _, s := range b.security {
		RegisterSecurityScheme(reg, s.scheme)
	}
	if b.body != nil {
		b.body.req.Register(reg)
	}
}

// describe fills the parameters, body and security requirements of op.
func (b *binder) describe(op *MetaOperation) {
	for _, p := range b.params {
		op.Params = append(op.Params, MetaOperationParam{
			Name:        p.name,
			In:          p.in,
			Description: p.doc,
			Required:    p.in == "path" || (p.def == nil && !p.codec.optional()),
			Schema:      p.codec.SchemaRef(),
		})
	}

	if b.body != nil {
		meta := b.body.req.RequestMeta()
		op.Request = &meta
	}

	if len(b.security) == 0 {
		return
	}
	all := MetaSecurityRequirement{}
	required := MetaSecurityRequirement{}
	for _, s := range b.security {
		scopes := append([]string{}, s.scopes...)
		all[s.scheme.SchemeName()] = scopes
		if !s.optional {
			required[s.scheme.SchemeName()] = scopes
		}
	}
	op.Security = append(op.Security, all)
	if len(required) < len(all) {
		op.Security = append(op.Security, required)
	}
}

// bind creates a *Req and fills it from r. Credentials are extracted
// first, then parameters, then the body.
func (b *binder) bind(r *http.Request) (reflect.Value, *ParseRequestError) {
	v := reflect.New(b.t)

	if b.whole {
		if err := v.Interface().(ApiRequest).FromRequest(r); err != nil {
			return reflect.Value{}, asBodyError(err)
		}
		return v, nil
	}

	elem := v.Elem()
	query := r.URL.Query()

	for _, s := range b.security {
		scheme := elem.FieldByIndex(s.index).Addr().Interface().(SecurityScheme)
		if err := scheme.FromRequest(r, query); err != nil {
			return reflect.Value{}, &ParseRequestError{
				Kind:   Authorization,
				Name:   scheme.SchemeName(),
				Reason: err.Error(),
				Err:    err,
			}
		}
	}

	for _, p := range b.params {
		raw := p.lookup(r, query)
		if raw == nil {
			raw = p.def
		}
		fv, err := p.codec.parseParam(raw)
		if err != nil {
			return reflect.Value{}, &ParseRequestError{
				Kind:   ParseParam,
				Name:   p.name,
				Reason: err.Error(),
				Err:    err,
			}
		}
		elem.FieldByIndex(p.index).Set(fv)
	}

	if b.body != nil {
		body := elem.FieldByIndex(b.body.index).Addr().Interface().(ApiRequest)
		if err := body.FromRequest(r); err != nil {
			return reflect.Value{}, asBodyError(err)
		}
	}

	return v, nil
}

// lookup returns the raw parameter text, or nil when it is absent.
func (p paramField) lookup(r *http.Request, query map[string][]string) *string {
	switch p.in {
	case "path":
		v := r.PathValue(p.name)
		return &v
	case "query":
		if vals, ok := query[p.name]; ok && len(vals) > 0 {
			return &vals[0]
		}
	case "header":
		if vals := r.Header.Values(p.name); len(vals) > 0 {
			return &vals[0]
		}
	case "cookie":
		if c, err := r.Cookie(p.name); err == nil {
			return &c.Value
		}
	}
	return nil
}

func asBodyError(err error) *ParseRequestError {
	var perr *ParseRequestError
	if errors.As(err, &perr) {
		return perr
	}
	return &ParseRequestError{Kind: ParseRequestBody, Reason: err.Error(), Err: err}
}
