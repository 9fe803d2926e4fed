package oai

import (
	"encoding/json"
	"io"
	"net/http"

	"gopkg.in/yaml.v3"
)

// SpecHandler serves the OpenAPI document as JSON.
func (s *Service) SpecHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", ContentTypeJSON)
		//nolint:errcheck,gosec // best-effort after WriteHeader
		json.NewEncoder(w).Encode(s.doc)
	})
}

// SpecYAMLHandler serves the OpenAPI document as YAML.
func (s *Service) SpecYAMLHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/yaml")
		//nolint:errcheck,gosec // best-effort after WriteHeader
		yaml.NewEncoder(w).Encode(s.doc)
	})
}

// WriteSpec writes the OpenAPI spec as indented JSON to w.
func (s *Service) WriteSpec(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(s.doc)
}

// WriteSpecYAML writes the OpenAPI spec as YAML to w.
func (s *Service) WriteSpecYAML(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(s.doc); err != nil {
		return err
	}
	return enc.Close()
}
