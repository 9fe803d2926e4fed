package oai

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strconv"

	"gopkg.in/yaml.v3"
)

// openAPIVersion is the OpenAPI version of rendered documents.
const openAPIVersion = "3.0.0"

// Document is a rendered OpenAPI 3.0 document.
type Document struct {
	OpenAPI    string            `json:"openapi" yaml:"openapi"`
	Info       Info              `json:"info" yaml:"info"`
	Servers    []Server          `json:"servers,omitempty" yaml:"servers,omitempty"`
	Tags       []Tag             `json:"tags,omitempty" yaml:"tags,omitempty"`
	Paths      Ordered[PathItem] `json:"paths" yaml:"paths"`
	Components *Components       `json:"components,omitempty" yaml:"components,omitempty"`
}

// Info holds API metadata.
type Info struct {
	Title       string `json:"title" yaml:"title"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	Version     string `json:"version" yaml:"version"`
}

// Server is an entry of the document's servers list.
type Server struct {
	URL         string `json:"url" yaml:"url"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// Tag describes a tag.
type Tag struct {
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// PathItem maps lower-case HTTP methods to operations.
type PathItem = Ordered[*Operation]

// Operation describes a single API operation on a path.
type Operation struct {
	Tags        []string              `json:"tags,omitempty" yaml:"tags,omitempty"`
	Summary     string                `json:"summary,omitempty" yaml:"summary,omitempty"`
	Description string                `json:"description,omitempty" yaml:"description,omitempty"`
	OperationID string                `json:"operationId,omitempty" yaml:"operationId,omitempty"`
	Parameters  []Parameter           `json:"parameters,omitempty" yaml:"parameters,omitempty"`
	RequestBody *RequestBody          `json:"requestBody,omitempty" yaml:"requestBody,omitempty"`
	Responses   Ordered[Response]     `json:"responses" yaml:"responses"`
	Deprecated  bool                  `json:"deprecated,omitempty" yaml:"deprecated,omitempty"`
	Security    []map[string][]string `json:"security,omitempty" yaml:"security,omitempty"`
}

// Parameter describes a single operation parameter.
type Parameter struct {
	Name        string        `json:"name" yaml:"name"`
	In          string        `json:"in" yaml:"in"`
	Description string        `json:"description,omitempty" yaml:"description,omitempty"`
	Required    bool          `json:"required,omitempty" yaml:"required,omitempty"`
	Schema      MetaSchemaRef `json:"schema" yaml:"schema"`
}

// RequestBody describes the request body.
type RequestBody struct {
	Description string             `json:"description,omitempty" yaml:"description,omitempty"`
	Required    bool               `json:"required,omitempty" yaml:"required,omitempty"`
	Content     Ordered[MediaType] `json:"content" yaml:"content"`
}

// MediaType is a media type object.
type MediaType struct {
	Schema MetaSchemaRef `json:"schema" yaml:"schema"`
}

// Response describes a single response.
type Response struct {
	Description string             `json:"description" yaml:"description"`
	Headers     Ordered[Header]    `json:"headers,omitempty" yaml:"headers,omitempty"`
	Content     Ordered[MediaType] `json:"content,omitempty" yaml:"content,omitempty"`
}

// Header describes a response header.
type Header struct {
	Description string        `json:"description,omitempty" yaml:"description,omitempty"`
	Required    bool          `json:"required,omitempty" yaml:"required,omitempty"`
	Schema      MetaSchemaRef `json:"schema" yaml:"schema"`
}

// Components holds the named schemas and security schemes.
type Components struct {
	Schemas         Ordered[MetaSchema]           `json:"schemas,omitempty" yaml:"schemas,omitempty"`
	SecuritySchemes Ordered[SecuritySchemeObject] `json:"securitySchemes,omitempty" yaml:"securitySchemes,omitempty"`
}

// SecuritySchemeObject is a rendered security scheme.
type SecuritySchemeObject struct {
	Type         string      `json:"type" yaml:"type"`
	Description  string      `json:"description,omitempty" yaml:"description,omitempty"`
	Name         string      `json:"name,omitempty" yaml:"name,omitempty"`
	In           string      `json:"in,omitempty" yaml:"in,omitempty"`
	Scheme       string      `json:"scheme,omitempty" yaml:"scheme,omitempty"`
	BearerFormat string      `json:"bearerFormat,omitempty" yaml:"bearerFormat,omitempty"`
	Flows        *OAuthFlows `json:"flows,omitempty" yaml:"flows,omitempty"`
}

// OAuthFlows lists the flows of an oauth2 scheme.
type OAuthFlows struct {
	Implicit          *OAuthFlow `json:"implicit,omitempty" yaml:"implicit,omitempty"`
	Password          *OAuthFlow `json:"password,omitempty" yaml:"password,omitempty"`
	ClientCredentials *OAuthFlow `json:"clientCredentials,omitempty" yaml:"clientCredentials,omitempty"`
	AuthorizationCode *OAuthFlow `json:"authorizationCode,omitempty" yaml:"authorizationCode,omitempty"`
}

// OAuthFlow is one oauth2 flow.
type OAuthFlow struct {
	AuthorizationURL string          `json:"authorizationUrl,omitempty" yaml:"authorizationUrl,omitempty"`
	TokenURL         string          `json:"tokenUrl,omitempty" yaml:"tokenUrl,omitempty"`
	RefreshURL       string          `json:"refreshUrl,omitempty" yaml:"refreshUrl,omitempty"`
	Scopes           Ordered[string] `json:"scopes" yaml:"scopes"`
}

// Entry is one key of an Ordered map.
type Entry[V any] struct {
	Key   string
	Value V
}

// Ordered is a string-keyed map that keeps insertion order when rendered.
type Ordered[V any] []Entry[V]

// Get returns the value stored under key.
func (o Ordered[V]) Get(key string) (V, bool) {
	for _, e := range o {
		if e.Key == key {
			return e.Value, true
		}
	}
	var zero V
	return zero, false
}

// Keys returns the keys in order.
func (o Ordered[V]) Keys() []string {
	keys := make([]string, len(o))
	for i, e := range o {
		keys[i] = e.Key
	}
	return keys
}

// Set stores v under key, keeping the position of an existing key.
func (o *Ordered[V]) Set(key string, v V) {
	for i := range *o {
		if (*o)[i].Key == key {
			(*o)[i].Value = v
			return
		}
	}
	*o = append(*o, Entry[V]{Key: key, Value: v})
}

// MarshalJSON renders the entries as an object in order.
func (o Ordered[V]) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range o {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(e.Key)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(e.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// MarshalYAML renders the entries as a mapping in order.
func (o Ordered[V]) MarshalYAML() (any, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, e := range o {
		var val yaml.Node
		if err := val.Encode(e.Value); err != nil {
			return nil, err
		}
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: e.Key},
			&val,
		)
	}
	return node, nil
}

// buildDocument renders API metadata against a populated registry.
func buildDocument(info Info, servers []Server, metas []MetaApi, reg *Registry) *Document {
	doc := &Document{
		OpenAPI: openAPIVersion,
		Info:    info,
		Servers: servers,
	}

	for _, t := range reg.Tags() {
		doc.Tags = append(doc.Tags, Tag(t))
	}

	for _, meta := range metas {
		for _, p := range meta.Paths {
			item, _ := doc.Paths.Get(p.Path)
			for _, op := range p.Operations {
				item.Set(op.Method, buildOperation(op))
			}
			doc.Paths.Set(p.Path, item)
		}
	}

	comps := &Components{}
	for _, name := range reg.Names() {
		s, _ := reg.Lookup(name)
		comps.Schemas.Set(name, s)
	}
	for _, name := range reg.SecuritySchemeNames() {
		s, _ := reg.SecurityScheme(name)
		comps.SecuritySchemes.Set(name, buildSecurityScheme(s))
	}
	if len(comps.Schemas) > 0 || len(comps.SecuritySchemes) > 0 {
		doc.Components = comps
	}
	return doc
}

func buildOperation(m MetaOperation) *Operation {
	op := &Operation{
		Tags:        m.Tags,
		Summary:     m.Summary,
		Description: m.Description,
		OperationID: m.OperationID,
		Deprecated:  m.Deprecated,
	}

	for _, p := range m.Params {
		op.Parameters = append(op.Parameters, Parameter(p))
	}

	if m.Request != nil {
		op.RequestBody = &RequestBody{
			Description: m.Request.Description,
			Required:    m.Request.Required,
			Content:     buildContent(m.Request.Content),
		}
	}

	for _, r := range m.Responses.Responses {
		key := "default"
		if r.Status != 0 {
			key = strconv.Itoa(r.Status)
		}
		resp := Response{
			Description: responseDescription(r),
			Content:     buildContent(r.Content),
		}
		for _, h := range r.Headers {
			resp.Headers.Set(h.Name, Header{Description: h.Description, Required: h.Required, Schema: h.Schema})
		}
		op.Responses.Set(key, resp)
	}
	if len(op.Responses) == 0 {
		op.Responses.Set("default", Response{Description: "Default response"})
	}

	for _, req := range m.Security {
		sec := make(map[string][]string, len(req))
		for name, scopes := range req {
			if scopes == nil {
				scopes = []string{}
			}
			sec[name] = scopes
		}
		op.Security = append(op.Security, sec)
	}
	return op
}

func buildContent(media []MetaMediaType) Ordered[MediaType] {
	var content Ordered[MediaType]
	for _, m := range media {
		content.Set(m.ContentType, MediaType{Schema: m.Schema})
	}
	return content
}

func responseDescription(r MetaResponse) string {
	if r.Description != "" {
		return r.Description
	}
	if text := http.StatusText(r.Status); text != "" {
		return text
	}
	return "Default response"
}

func buildSecurityScheme(s MetaSecurityScheme) SecuritySchemeObject {
	out := SecuritySchemeObject{
		Type:         s.Type,
		Description:  s.Description,
		Name:         s.Name,
		In:           s.In,
		Scheme:       s.Scheme,
		BearerFormat: s.BearerFormat,
	}
	if s.Flows != nil {
		out.Flows = &OAuthFlows{
			Implicit:          buildFlow(s.Flows.Implicit),
			Password:          buildFlow(s.Flows.Password),
			ClientCredentials: buildFlow(s.Flows.ClientCredentials),
			AuthorizationCode: buildFlow(s.Flows.AuthorizationCode),
		}
	}
	return out
}

func buildFlow(f *MetaOAuthFlow) *OAuthFlow {
	if f == nil {
		return nil
	}
	out := &OAuthFlow{
		AuthorizationURL: f.AuthorizationURL,
		TokenURL:         f.TokenURL,
		RefreshURL:       f.RefreshURL,
		Scopes:           Ordered[string]{},
	}
	for _, s := range f.Scopes {
		out.Scopes.Set(s.Name, s.Description)
	}
	return out
}
