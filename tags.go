package oai

import (
	"reflect"
	"regexp"
	"strings"
)

// paramTags are the struct tags used for binding request parameters, in
// the order they are checked.
var paramTags = []string{"path", "query", "header", "cookie"}

// paramTag returns the location and name of a parameter field.
func paramTag(tag reflect.StructTag) (string, string, bool) {
	for _, in := range paramTags {
		if name := tag.Get(in); name != "" {
			return in, name, true
		}
	}
	return "", "", false
}

// tagOptions splits a struct tag value on comma and returns
// the name and remaining options.
func tagOptions(tag string) (string, string) {
	name, opts, _ := strings.Cut(tag, ",")
	return name, opts
}

// tagContains reports whether a comma-separated list of options
// contains a particular option.
func tagContains(opts string, name string) bool {
	for opts != "" {
		var opt string
		opt, opts, _ = strings.Cut(opts, ",")
		if opt == name {
			return true
		}
	}
	return false
}

// tagList splits a comma-separated tag value, dropping empty items.
func tagList(tag string) []string {
	var out []string
	for _, item := range strings.Split(tag, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

var pathWildcardRE = regexp.MustCompile(`\{([^}]*)\}`)

// pathParams lists the wildcard names of a ServeMux path.
func pathParams(path string) []string {
	var names []string
	for _, m := range pathWildcardRE.FindAllStringSubmatch(path, -1) {
		name := strings.TrimSuffix(m[1], "...")
		if name != "$" {
			names = append(names, name)
		}
	}
	return names
}

// openAPIPath converts a ServeMux path to its OpenAPI form:
// "{rest...}" becomes "{rest}" and a trailing "{$}" is dropped.
func openAPIPath(path string) string {
	path = strings.ReplaceAll(path, "{$}", "")
	path = strings.ReplaceAll(path, "...}", "}")
	if path == "" {
		return "/"
	}
	return path
}
