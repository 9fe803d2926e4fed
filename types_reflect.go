package oai

import (
	"fmt"
	"reflect"
	"regexp"
	"strconv"
	"sync"
)

// codecs caches reflection-derived codecs. Entries are pure functions of
// their Go type, so sharing them across services is safe.
var codecs sync.Map // reflect.Type -> codec

// codecFor returns the codec describing t.
func codecFor(t reflect.Type) codec {
	if c, ok := builtins[t]; ok {
		return c
	}
	if c, ok := codecs.Load(t); ok {
		return c.(codec)
	}
	c, _ := codecs.LoadOrStore(t, newCodec(t))
	return c.(codec)
}

func newCodec(t reflect.Type) codec {
	//exhaustive:ignore
	switch t.Kind() {
	case reflect.Pointer:
		return &optionalCodec{t: t, elem: codecFor(t.Elem())}
	case reflect.Slice, reflect.Array:
		return &arrayCodec{t: t, elem: codecFor(t.Elem())}
	case reflect.Map:
		if t.Key().Kind() != reflect.String {
			panic(fmt.Sprintf("oai: map key of %s must be a string", t))
		}
		return &mapCodec{t: t, elem: codecFor(t.Elem())}
	case reflect.Struct:
		return &objectCodec{t: t, name: schemaName(t)}
	case reflect.Interface:
		if t.NumMethod() != 0 {
			panic(fmt.Sprintf("oai: interface type %s cannot be described", t))
		}
		return anyCodec{t: t}
	case reflect.String, reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return &convertCodec{t: t, base: builtinForKind(t.Kind())}
	default:
		panic(fmt.Sprintf("oai: type %s cannot be described", t))
	}
}

func builtinForKind(k reflect.Kind) codec {
	//exhaustive:ignore
	switch k {
	case reflect.String:
		return String.(codec)
	case reflect.Bool:
		return Bool.(codec)
	case reflect.Int:
		return Int.(codec)
	case reflect.Int8:
		return Int8.(codec)
	case reflect.Int16:
		return Int16.(codec)
	case reflect.Int32:
		return Int32.(codec)
	case reflect.Int64:
		return Int64.(codec)
	case reflect.Uint:
		return Uint.(codec)
	case reflect.Uint8:
		return Uint8.(codec)
	case reflect.Uint16:
		return Uint16.(codec)
	case reflect.Uint32:
		return Uint32.(codec)
	case reflect.Uint64:
		return Uint64.(codec)
	case reflect.Float32:
		return Float32.(codec)
	default:
		return Float64.(codec)
	}
}

var (
	pkgPathRE  = regexp.MustCompile(`[A-Za-z0-9_.\-]*/`)
	invalidRE  = regexp.MustCompile(`[^A-Za-z0-9._\-]+`)
	trimNameRE = regexp.MustCompile(`^_+|_+$`)
)

// schemaName derives a component name from a Go type name. Generic
// instantiations drop package paths: Page[example.com/x.User] -> Page_x.User.
func schemaName(t reflect.Type) string {
	name := t.Name()
	if name == "" {
		return ""
	}
	name = pkgPathRE.ReplaceAllString(name, "")
	name = invalidRE.ReplaceAllString(name, "_")
	return trimNameRE.ReplaceAllString(name, "")
}

// textAsJSON parses a parameter's text as a JSON document. Composite values
// in parameters and multipart fields are carried as JSON text.
func textAsJSON(c codec, v *string) (reflect.Value, error) {
	if v == nil {
		if c.optional() {
			return reflect.Zero(c.goType()), nil
		}
		return reflect.Value{}, expectedInput()
	}
	doc, err := decodeJSON([]byte(*v))
	if err != nil {
		return reflect.Value{}, customError(err)
	}
	return c.parseJSON(doc)
}

// optionalCodec describes pointers: absent or null input yields nil.
type optionalCodec struct {
	t    reflect.Type
	elem codec
}

func (c *optionalCodec) Name() string           { return c.elem.Name() }
func (c *optionalCodec) Register(reg *Registry) { c.elem.Register(reg) }
func (c *optionalCodec) goType() reflect.Type   { return c.t }
func (c *optionalCodec) optional() bool         { return true }

func (c *optionalCodec) SchemaRef() MetaSchemaRef {
	ref := c.elem.SchemaRef()
	if ref.Inline != nil {
		s := *ref.Inline
		s.Nullable = true
		return InlineRef(s)
	}
	return ref
}

func (c *optionalCodec) parseJSON(v any) (reflect.Value, error) {
	if v == nil {
		return reflect.Zero(c.t), nil
	}
	ev, err := c.elem.parseJSON(v)
	if err != nil {
		return reflect.Value{}, err
	}
	return c.wrap(ev), nil
}

func (c *optionalCodec) parseParam(v *string) (reflect.Value, error) {
	if v == nil {
		return reflect.Zero(c.t), nil
	}
	ev, err := c.elem.parseParam(v)
	if err != nil {
		return reflect.Value{}, err
	}
	return c.wrap(ev), nil
}

func (c *optionalCodec) wrap(ev reflect.Value) reflect.Value {
	p := reflect.New(c.t.Elem())
	p.Elem().Set(ev)
	return p
}

func (c *optionalCodec) encodeJSON(v reflect.Value) any {
	if v.IsNil() {
		return nil
	}
	return c.elem.encodeJSON(v.Elem())
}

// arrayCodec describes slices and arrays.
type arrayCodec struct {
	t    reflect.Type
	elem codec
}

func (c *arrayCodec) Name() string           { return "[" + c.elem.Name() + "]" }
func (c *arrayCodec) Register(reg *Registry) { c.elem.Register(reg) }
func (c *arrayCodec) goType() reflect.Type   { return c.t }
func (c *arrayCodec) optional() bool         { return false }

func (c *arrayCodec) SchemaRef() MetaSchemaRef {
	items := c.elem.SchemaRef()
	return InlineRef(MetaSchema{Type: "array", Items: &items})
}

func (c *arrayCodec) parseJSON(v any) (reflect.Value, error) {
	if v == nil && c.t.Kind() == reflect.Slice {
		return reflect.Zero(c.t), nil
	}
	items, ok := v.([]any)
	if !ok {
		return reflect.Value{}, expectedType(c.Name(), v)
	}

	var out reflect.Value
	if c.t.Kind() == reflect.Array {
		if len(items) != c.t.Len() {
			return reflect.Value{}, customf("expected %d items, found %d", c.t.Len(), len(items))
		}
		out = reflect.New(c.t).Elem()
	} else {
		out = reflect.MakeSlice(c.t, len(items), len(items))
	}

	for i, item := range items {
		ev, err := c.elem.parseJSON(item)
		if err != nil {
			return reflect.Value{}, prefixed(err, "["+strconv.Itoa(i)+"]")
		}
		out.Index(i).Set(ev)
	}
	return out, nil
}

func (c *arrayCodec) parseParam(v *string) (reflect.Value, error) {
	return textAsJSON(c, v)
}

func (c *arrayCodec) encodeJSON(v reflect.Value) any {
	if v.Kind() == reflect.Slice && v.IsNil() {
		return nil
	}
	out := make([]any, v.Len())
	for i := range out {
		out[i] = c.elem.encodeJSON(v.Index(i))
	}
	return out
}

// mapCodec describes map[string]V.
type mapCodec struct {
	t    reflect.Type
	elem codec
}

func (c *mapCodec) Name() string           { return "map<" + c.elem.Name() + ">" }
func (c *mapCodec) Register(reg *Registry) { c.elem.Register(reg) }
func (c *mapCodec) goType() reflect.Type   { return c.t }
func (c *mapCodec) optional() bool         { return false }

func (c *mapCodec) SchemaRef() MetaSchemaRef {
	values := c.elem.SchemaRef()
	return InlineRef(MetaSchema{Type: "object", AdditionalProperties: &values})
}

func (c *mapCodec) parseJSON(v any) (reflect.Value, error) {
	if v == nil {
		return reflect.Zero(c.t), nil
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return reflect.Value{}, expectedType(c.Name(), v)
	}
	out := reflect.MakeMapWithSize(c.t, len(obj))
	for k, item := range obj {
		ev, err := c.elem.parseJSON(item)
		if err != nil {
			return reflect.Value{}, prefixed(err, k)
		}
		out.SetMapIndex(reflect.ValueOf(k).Convert(c.t.Key()), ev)
	}
	return out, nil
}

func (c *mapCodec) parseParam(v *string) (reflect.Value, error) {
	return textAsJSON(c, v)
}

func (c *mapCodec) encodeJSON(v reflect.Value) any {
	if v.IsNil() {
		return nil
	}
	out := make(map[string]any, v.Len())
	iter := v.MapRange()
	for iter.Next() {
		out[iter.Key().String()] = c.elem.encodeJSON(iter.Value())
	}
	return out
}

// convertCodec describes named types over a primitive kind, e.g.
// `type Role string`.
type convertCodec struct {
	t    reflect.Type
	base codec
}

func (c *convertCodec) Name() string             { return c.base.Name() }
func (c *convertCodec) SchemaRef() MetaSchemaRef { return c.base.SchemaRef() }
func (c *convertCodec) Register(reg *Registry)   { c.base.Register(reg) }
func (c *convertCodec) goType() reflect.Type     { return c.t }
func (c *convertCodec) optional() bool           { return false }

func (c *convertCodec) parseJSON(v any) (reflect.Value, error) {
	bv, err := c.base.parseJSON(v)
	if err != nil {
		return reflect.Value{}, err
	}
	return bv.Convert(c.t), nil
}

func (c *convertCodec) parseParam(v *string) (reflect.Value, error) {
	bv, err := c.base.parseParam(v)
	if err != nil {
		return reflect.Value{}, err
	}
	return bv.Convert(c.t), nil
}

func (c *convertCodec) encodeJSON(v reflect.Value) any {
	return c.base.encodeJSON(v.Convert(c.base.goType()))
}

// anyCodec describes the empty interface: any JSON value is accepted as is.
type anyCodec struct {
	t reflect.Type
}

func (c anyCodec) Name() string             { return "any" }
func (c anyCodec) SchemaRef() MetaSchemaRef { return InlineRef(MetaSchema{}) }
func (c anyCodec) Register(*Registry)       {}
func (c anyCodec) goType() reflect.Type     { return c.t }
func (c anyCodec) optional() bool           { return true }

func (c anyCodec) parseJSON(v any) (reflect.Value, error) {
	out := reflect.New(c.t).Elem()
	if v != nil {
		out.Set(reflect.ValueOf(v))
	}
	return out, nil
}

func (c anyCodec) parseParam(v *string) (reflect.Value, error) {
	out := reflect.New(c.t).Elem()
	if v != nil {
		out.Set(reflect.ValueOf(*v))
	}
	return out, nil
}

func (c anyCodec) encodeJSON(v reflect.Value) any {
	if v.IsNil() {
		return nil
	}
	return v.Interface()
}

// objectField is one JSON property of a struct.
type objectField struct {
	name      string
	index     []int
	codec     codec
	required  bool
	omitEmpty bool
	doc       string
}

// objectCodec describes structs. Named structs are registered in the
// registry under their Go type name and referenced by $ref.
type objectCodec struct {
	t    reflect.Type
	name string

	once   sync.Once
	fields []objectField
}

func (c *objectCodec) Name() string {
	if c.name == "" {
		return "object"
	}
	return c.name
}

func (c *objectCodec) goType() reflect.Type { return c.t }
func (c *objectCodec) optional() bool       { return false }

func (c *objectCodec) SchemaRef() MetaSchemaRef {
	if c.name == "" {
		return InlineRef(c.schema())
	}
	return NamedRef(c.name)
}

func (c *objectCodec) Register(reg *Registry) {
	if c.name == "" {
		for _, f := range c.objectFields() {
			f.codec.Register(reg)
		}
		return
	}
	reg.CreateSchema(c.name, c.t, func(reg *Registry) MetaSchema {
		for _, f := range c.objectFields() {
			f.codec.Register(reg)
		}
		return c.schema()
	})
}

func (c *objectCodec) schema() MetaSchema {
	s := MetaSchema{Type: "object", Title: c.name}
	for _, f := range c.objectFields() {
		ref := f.codec.SchemaRef()
		if f.doc != "" && ref.Inline != nil {
			inline := *ref.Inline
			inline.Description = f.doc
			ref = InlineRef(inline)
		}
		s.Properties = append(s.Properties, MetaProperty{Name: f.name, Schema: ref})
		if f.required {
			s.Required = append(s.Required, f.name)
		}
	}
	return s
}

func (c *objectCodec) objectFields() []objectField {
	c.once.Do(func() {
		c.fields = collectFields(c.t, nil)
	})
	return c.fields
}

func (c *objectCodec) parseJSON(v any) (reflect.Value, error) {
	obj, ok := v.(map[string]any)
	if !ok {
		return reflect.Value{}, expectedType(c.Name(), v)
	}

	out := reflect.New(c.t).Elem()
	for _, f := range c.objectFields() {
		raw, present := obj[f.name]
		if !present || raw == nil {
			if f.required && !f.codec.optional() {
				return reflect.Value{}, prefixed(expectedInput(), f.name)
			}
			continue
		}
		fv, err := f.codec.parseJSON(raw)
		if err != nil {
			return reflect.Value{}, prefixed(err, f.name)
		}
		out.FieldByIndex(f.index).Set(fv)
	}

	if err := validateValue(out); err != nil {
		return reflect.Value{}, err
	}
	return out, nil
}

func (c *objectCodec) parseParam(v *string) (reflect.Value, error) {
	return textAsJSON(c, v)
}

func (c *objectCodec) encodeJSON(v reflect.Value) any {
	out := make(map[string]any)
	for _, f := range c.objectFields() {
		fv := v.FieldByIndex(f.index)
		if f.omitEmpty && fv.IsZero() {
			continue
		}
		out[f.name] = f.codec.encodeJSON(fv)
	}
	return out
}

// collectFields lists the JSON properties of a struct, flattening untagged
// embedded structs the way encoding/json does.
func collectFields(t reflect.Type, index []int) []objectField {
	var fields []objectField
	for i := range t.NumField() {
		f := t.Field(i)
		idx := append(append([]int(nil), index...), i)
		tag := f.Tag.Get("json")

		if f.Anonymous && tag == "" && f.Type.Kind() == reflect.Struct {
			if _, builtin := builtins[f.Type]; !builtin {
				fields = append(fields, collectFields(f.Type, idx)...)
				continue
			}
		}
		if !f.IsExported() {
			continue
		}

		name, opts := tagOptions(tag)
		if name == "-" && opts == "" {
			continue
		}
		if name == "" {
			name = f.Name
		}

		fields = append(fields, objectField{
			name:      name,
			index:     idx,
			codec:     codecFor(f.Type),
			required:  isRequiredField(f),
			omitEmpty: tagContains(opts, "omitempty"),
			doc:       f.Tag.Get("doc"),
		})
	}
	return fields
}

// isRequiredField reports whether a struct field must be present in input.
func isRequiredField(f reflect.StructField) bool {
	if f.Tag.Get("required") == "true" {
		return true
	}
	return tagContains(f.Tag.Get("validate"), "required")
}
