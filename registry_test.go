package oai_test

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bjaus/oai"
)

func TestRegistryCreateSchema(t *testing.T) {
	t.Parallel()

	reg := oai.NewRegistry()
	owner := reflect.TypeFor[Pet]()
	calls := 0
	build := func(*oai.Registry) oai.MetaSchema {
		calls++
		return oai.NewSchema("object")
	}

	reg.CreateSchema("Pet", owner, build)
	reg.CreateSchema("Pet", owner, build)

	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, reg.Len())
	assert.Equal(t, []string{"Pet"}, reg.Names())
}

func TestRegistryReentrant(t *testing.T) {
	t.Parallel()

	reg := oai.NewRegistry()
	owner := reflect.TypeFor[TreeNode]()

	var build func(*oai.Registry) oai.MetaSchema
	build = func(r *oai.Registry) oai.MetaSchema {
		r.CreateSchema("TreeNode", owner, build)
		items := oai.NamedRef("TreeNode")
		return oai.MetaSchema{Type: "array", Items: &items}
	}
	reg.CreateSchema("TreeNode", owner, build)

	s, ok := reg.Lookup("TreeNode")
	require.True(t, ok)
	assert.Equal(t, "TreeNode", s.Items.Reference)
}

func TestRegistryCollision(t *testing.T) {
	t.Parallel()

	reg := oai.NewRegistry()
	build := func(*oai.Registry) oai.MetaSchema { return oai.NewSchema("object") }
	reg.CreateSchema("Thing", reflect.TypeFor[Pet](), build)

	assert.Panics(t, func() {
		reg.CreateSchema("Thing", reflect.TypeFor[TreeNode](), build)
	})
}

func TestRegistryResolve(t *testing.T) {
	t.Parallel()

	reg := oai.NewRegistry()
	reg.CreateSchema("Name", nil, func(*oai.Registry) oai.MetaSchema { return oai.NewSchema("string") })

	assert.Equal(t, oai.NewSchema("string"), reg.Resolve(oai.NamedRef("Name")))
	assert.Equal(t, oai.NewSchema("boolean"), reg.Resolve(oai.InlineRef(oai.NewSchema("boolean"))))
	assert.Panics(t, func() { reg.Resolve(oai.NamedRef("Missing")) })
}

func TestRegistryFreeze(t *testing.T) {
	t.Parallel()

	reg := oai.NewRegistry()
	reg.Freeze()
	assert.True(t, reg.Frozen())

	tests := map[string]func(){
		"schema": func() {
			reg.CreateSchema("X", nil, func(*oai.Registry) oai.MetaSchema { return oai.MetaSchema{} })
		},
		"security scheme": func() {
			reg.CreateSecurityScheme("BasicAuth", oai.MetaSecurityScheme{Type: "http", Scheme: "basic"})
		},
		"tag": func() {
			reg.CreateTag(oai.MetaTag{Name: "users"})
		},
	}

	for name, fn := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			assert.Panics(t, fn)
		})
	}
}

func TestRegistryCatalogs(t *testing.T) {
	t.Parallel()

	reg := oai.NewRegistry()
	reg.CreateTag(oai.MetaTag{Name: "users", Description: "first"})
	reg.CreateTag(oai.MetaTag{Name: "auth"})
	reg.CreateTag(oai.MetaTag{Name: "users", Description: "second"})

	assert.Equal(t, []oai.MetaTag{{Name: "users", Description: "first"}, {Name: "auth"}}, reg.Tags())

	reg.CreateSecurityScheme("BearerAuth", oai.MetaSecurityScheme{Type: "http", Scheme: "bearer"})
	reg.CreateSecurityScheme("BasicAuth", oai.MetaSecurityScheme{Type: "http", Scheme: "basic"})
	reg.CreateSecurityScheme("BearerAuth", oai.MetaSecurityScheme{Type: "apiKey"})

	assert.Equal(t, []string{"BearerAuth", "BasicAuth"}, reg.SecuritySchemeNames())
	s, ok := reg.SecurityScheme("BearerAuth")
	require.True(t, ok)
	assert.Equal(t, "bearer", s.Scheme)
}
