package oai

import (
	"fmt"
	"reflect"
	"slices"
)

// componentsPrefix is the JSON pointer prefix for named schemas.
const componentsPrefix = "#/components/schemas/"

// MetaSchema is a structural description of a value's shape.
type MetaSchema struct {
	Type                 string         `json:"type,omitempty" yaml:"type,omitempty"`
	Format               string         `json:"format,omitempty" yaml:"format,omitempty"`
	Title                string         `json:"title,omitempty" yaml:"title,omitempty"`
	Description          string         `json:"description,omitempty" yaml:"description,omitempty"`
	Nullable             bool           `json:"nullable,omitempty" yaml:"nullable,omitempty"`
	Properties           MetaProperties `json:"properties,omitempty" yaml:"properties,omitempty"`
	Required             []string       `json:"required,omitempty" yaml:"required,omitempty"`
	Items                *MetaSchemaRef `json:"items,omitempty" yaml:"items,omitempty"`
	AdditionalProperties *MetaSchemaRef `json:"additionalProperties,omitempty" yaml:"additionalProperties,omitempty"`
	Enum                 []any          `json:"enum,omitempty" yaml:"enum,omitempty"`
}

// NewSchema returns a schema of the given primitive kind.
func NewSchema(kind string) MetaSchema {
	return MetaSchema{Type: kind}
}

// NewSchemaWithFormat returns a schema of the given primitive kind and format.
func NewSchemaWithFormat(kind, format string) MetaSchema {
	return MetaSchema{Type: kind, Format: format}
}

// MetaProperty is a single named object property. Properties keep their
// declaration order in the rendered document.
type MetaProperty struct {
	Name   string
	Schema MetaSchemaRef
}

// MetaProperties is an ordered list of object properties.
type MetaProperties []MetaProperty

// Get returns the property with the given name.
func (p MetaProperties) Get(name string) (MetaSchemaRef, bool) {
	for _, prop := range p {
		if prop.Name == name {
			return prop.Schema, true
		}
	}
	return MetaSchemaRef{}, false
}

// MetaSchemaRef is either an inline schema or a reference to a schema
// registered under a name.
type MetaSchemaRef struct {
	Inline    *MetaSchema
	Reference string
}

// InlineRef wraps a schema as an inline reference.
func InlineRef(s MetaSchema) MetaSchemaRef {
	return MetaSchemaRef{Inline: &s}
}

// NamedRef refers to a schema registered under name.
func NamedRef(name string) MetaSchemaRef {
	return MetaSchemaRef{Reference: name}
}

// IsReference reports whether the ref points into the registry.
func (r MetaSchemaRef) IsReference() bool { return r.Reference != "" }

// Pointer returns the JSON pointer of a named reference.
func (r MetaSchemaRef) Pointer() string {
	if r.Reference == "" {
		return ""
	}
	return componentsPrefix + r.Reference
}

// Registry stores the named schemas, security schemes and tags of one
// service. It is populated during assembly and frozen before requests are
// served.
type Registry struct {
	schemas map[string]MetaSchema
	owners  map[string]reflect.Type
	order   []string

	schemes     map[string]MetaSecurityScheme
	schemeOrder []string

	tags []MetaTag

	frozen bool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		schemas: make(map[string]MetaSchema),
		owners:  make(map[string]reflect.Type),
		schemes: make(map[string]MetaSecurityScheme),
	}
}

// CreateSchema registers the schema produced by build under name. Calling it
// again for the same name is a no-op, including while build is still running
// for that name, so self-referencing types terminate. Registering a different
// owner type under an existing name panics.
func (r *Registry) CreateSchema(name string, owner reflect.Type, build func(*Registry) MetaSchema) {
	r.mustBeOpen()

	if prev, ok := r.owners[name]; ok {
		if owner != nil && prev != nil && prev != owner {
			panic(fmt.Sprintf("oai: schema name %q used by both %s and %s", name, prev, owner))
		}
		return
	}

	// The owner is recorded before build runs; nested calls for name return
	// early and only the outer call stores the schema.
	r.owners[name] = owner
	r.order = append(r.order, name)
	r.schemas[name] = build(r)
}

// Lookup returns the schema registered under name.
func (r *Registry) Lookup(name string) (MetaSchema, bool) {
	s, ok := r.schemas[name]
	return s, ok
}

// Resolve returns the schema a ref describes. Resolving a name that was never
// registered is a programming error and panics.
func (r *Registry) Resolve(ref MetaSchemaRef) MetaSchema {
	if ref.Inline != nil {
		return *ref.Inline
	}
	s, ok := r.schemas[ref.Reference]
	if !ok {
		panic(fmt.Sprintf("oai: schema %q resolved before registration", ref.Reference))
	}
	return s
}

// Names returns registered schema names in registration order.
func (r *Registry) Names() []string {
	return slices.Clone(r.order)
}

// Len returns the number of registered schemas.
func (r *Registry) Len() int { return len(r.order) }

// CreateSecurityScheme adds a security scheme to the catalog. The first
// registration of a name wins.
func (r *Registry) CreateSecurityScheme(name string, scheme MetaSecurityScheme) {
	r.mustBeOpen()
	if _, ok := r.schemes[name]; ok {
		return
	}
	r.schemes[name] = scheme
	r.schemeOrder = append(r.schemeOrder, name)
}

// SecurityScheme returns the scheme registered under name.
func (r *Registry) SecurityScheme(name string) (MetaSecurityScheme, bool) {
	s, ok := r.schemes[name]
	return s, ok
}

// SecuritySchemeNames returns scheme names in registration order.
func (r *Registry) SecuritySchemeNames() []string {
	return slices.Clone(r.schemeOrder)
}

// CreateTag adds a tag. Tags are deduplicated by name.
func (r *Registry) CreateTag(tag MetaTag) {
	r.mustBeOpen()
	for _, t := range r.tags {
		if t.Name == tag.Name {
			return
		}
	}
	r.tags = append(r.tags, tag)
}

// Tags returns registered tags in registration order.
func (r *Registry) Tags() []MetaTag {
	return slices.Clone(r.tags)
}

// Freeze makes the registry read-only.
func (r *Registry) Freeze() { r.frozen = true }

// Frozen reports whether Freeze was called.
func (r *Registry) Frozen() bool { return r.frozen }

func (r *Registry) mustBeOpen() {
	if r.frozen {
		panic("oai: registry modified after freeze")
	}
}
