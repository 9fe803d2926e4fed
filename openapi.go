package oai

// OpenApi is a unit of API declaration: it describes its operations,
// registers the schemas they use and adds their handlers to a route table.
type OpenApi interface {
	Meta() []MetaApi
	Register(reg *Registry)
	AddRoutes(route *Route) *Route
}

// CombinedAPI pairs two API objects into one.
type CombinedAPI[A, B OpenApi] struct {
	First  A
	Second B
}

// Combine merges a and b. Operations are described in declaration order, a
// before b; when both declare the same method and path, b's handler wins.
// Nested combinations flatten to left-to-right order.
func Combine[A, B OpenApi](a A, b B) CombinedAPI[A, B] {
	return CombinedAPI[A, B]{First: a, Second: b}
}

// Meta returns the first API's metadata followed by the second's.
func (c CombinedAPI[A, B]) Meta() []MetaApi {
	first := c.First.Meta()
	out := make([]MetaApi, 0, len(first))
	out = append(out, first...)
	return append(out, c.Second.Meta()...)
}

// Register registers both APIs into the same registry.
func (c CombinedAPI[A, B]) Register(reg *Registry) {
	c.First.Register(reg)
	c.Second.Register(reg)
}

// AddRoutes applies the first API's routes, then the second's.
func (c CombinedAPI[A, B]) AddRoutes(route *Route) *Route {
	return c.Second.AddRoutes(c.First.AddRoutes(route))
}
