package oai

import (
	"bytes"
	"encoding/json"

	"gopkg.in/yaml.v3"
)

// MetaMediaType pairs a content type with the schema of its body.
type MetaMediaType struct {
	ContentType string
	Schema      MetaSchemaRef
}

// MetaRequest describes an operation's request body.
type MetaRequest struct {
	Description string
	Content     []MetaMediaType
	Required    bool
}

// MetaHeader describes a response header.
type MetaHeader struct {
	Name        string
	Description string
	Required    bool
	Schema      MetaSchemaRef
}

// MetaResponse describes one possible response. A zero Status renders as
// the "default" response.
type MetaResponse struct {
	Description string
	Status      int
	Content     []MetaMediaType
	Headers     []MetaHeader
}

// MetaResponses lists the possible responses of an operation.
type MetaResponses struct {
	Responses []MetaResponse
}

// MetaOperationParam describes a path, query, header or cookie parameter.
type MetaOperationParam struct {
	Name        string
	In          string
	Description string
	Required    bool
	Schema      MetaSchemaRef
}

// MetaSecurityRequirement maps scheme names to required scopes. An empty
// requirement makes authentication optional.
type MetaSecurityRequirement map[string][]string

// MetaOperation describes one method on a path.
type MetaOperation struct {
	Method      string
	Summary     string
	Description string
	Tags        []string
	OperationID string
	Deprecated  bool
	Params      []MetaOperationParam
	Request     *MetaRequest
	Responses   MetaResponses
	Security    []MetaSecurityRequirement
}

// MetaPath groups the operations declared on one path.
type MetaPath struct {
	Path       string
	Operations []MetaOperation
}

// MetaApi is the metadata of one API object.
type MetaApi struct {
	Paths []MetaPath
}

// MetaOAuthScope names an OAuth scope.
type MetaOAuthScope struct {
	Name        string
	Description string
}

// MetaOAuthFlow describes one OAuth flow.
type MetaOAuthFlow struct {
	AuthorizationURL string
	TokenURL         string
	RefreshURL       string
	Scopes           []MetaOAuthScope
}

// MetaOAuthFlows lists the supported OAuth flows.
type MetaOAuthFlows struct {
	Implicit          *MetaOAuthFlow
	Password          *MetaOAuthFlow
	ClientCredentials *MetaOAuthFlow
	AuthorizationCode *MetaOAuthFlow
}

// MetaSecurityScheme describes a security scheme in the catalog.
type MetaSecurityScheme struct {
	Type         string
	Description  string
	Name         string
	In           string
	Scheme       string
	BearerFormat string
	Flows        *MetaOAuthFlows
}

// MetaTag describes a tag.
type MetaTag struct {
	Name        string
	Description string
}

// MarshalJSON renders an inline schema or a $ref object.
func (r MetaSchemaRef) MarshalJSON() ([]byte, error) {
	if r.Inline != nil {
		return json.Marshal(r.Inline)
	}
	return json.Marshal(map[string]string{"$ref": r.Pointer()})
}

// MarshalYAML renders an inline schema or a $ref object.
func (r MetaSchemaRef) MarshalYAML() (any, error) {
	if r.Inline != nil {
		return r.Inline, nil
	}
	return map[string]string{"$ref": r.Pointer()}, nil
}

// MarshalJSON renders properties as an object in declaration order.
func (p MetaProperties) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, prop := range p {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(prop.Name)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(prop.Schema)
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

// MarshalYAML renders properties as a mapping in declaration order.
func (p MetaProperties) MarshalYAML() (any, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, prop := range p {
		var val yaml.Node
		if err := val.Encode(prop.Schema); err != nil {
			return nil, err
		}
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Value: prop.Name},
			&val,
		)
	}
	return node, nil
}
