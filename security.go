package oai

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// SecurityScheme extracts credentials from a request and describes how in
// the security scheme catalog. FromRequest has a pointer receiver;
// SchemeName and SchemeMeta are called on the zero value.
//
// Custom schemes usually embed a built-in one and override SchemeName:
//
//	type AdminAuth struct{ oai.Basic }
//
//	func (AdminAuth) SchemeName() string { return "admin" }
type SecurityScheme interface {
	SchemeName() string
	SchemeMeta() MetaSecurityScheme
	FromRequest(r *http.Request, query url.Values) error
}

// RegisterSecurityScheme adds s to the registry's scheme catalog.
func RegisterSecurityScheme(reg *Registry, s SecurityScheme) {
	reg.CreateSecurityScheme(s.SchemeName(), s.SchemeMeta())
}

// Credential extraction failures.
var (
	ErrMissingCredentials   = errors.New("missing credentials")
	ErrMalformedCredentials = errors.New("malformed credentials")
)

// Basic is HTTP Basic authentication.
type Basic struct {
	Username string
	Password string
}

func (Basic) SchemeName() string { return "BasicAuth" }

func (Basic) SchemeMeta() MetaSecurityScheme {
	return MetaSecurityScheme{Type: "http", Scheme: "basic"}
}

func (b *Basic) FromRequest(r *http.Request, _ url.Values) error {
	if r.Header.Get("Authorization") == "" {
		return ErrMissingCredentials
	}
	user, pass, ok := r.BasicAuth()
	if !ok {
		return ErrMalformedCredentials
	}
	b.Username, b.Password = user, pass
	return nil
}

// Bearer is HTTP Bearer authentication.
type Bearer struct {
	Token string
}

func (Bearer) SchemeName() string { return "BearerAuth" }

func (Bearer) SchemeMeta() MetaSecurityScheme {
	return MetaSecurityScheme{Type: "http", Scheme: "bearer"}
}

func (b *Bearer) FromRequest(r *http.Request, _ url.Values) error {
	token, err := bearerToken(r)
	if err != nil {
		return err
	}
	b.Token = token
	return nil
}

func bearerToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", ErrMissingCredentials
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", ErrMalformedCredentials
	}
	return strings.TrimSpace(token), nil
}

// APIKey is an API key passed in the X-API-Key header. Keys in other
// locations are read with LookupAPIKey.
type APIKey struct {
	Key string
}

func (APIKey) SchemeName() string { return "ApiKeyAuth" }

func (APIKey) SchemeMeta() MetaSecurityScheme {
	return MetaSecurityScheme{Type: "apiKey", In: "header", Name: "X-API-Key"}
}

func (k *APIKey) FromRequest(r *http.Request, query url.Values) error {
	key, err := LookupAPIKey(r, query, k.SchemeMeta())
	if err != nil {
		return err
	}
	k.Key = key
	return nil
}

// LookupAPIKey reads an apiKey scheme's value from the header, query
// parameter or cookie named by meta.
func LookupAPIKey(r *http.Request, query url.Values, meta MetaSecurityScheme) (string, error) {
	var key string
	switch meta.In {
	case "header":
		key = r.Header.Get(meta.Name)
	case "query":
		key = query.Get(meta.Name)
	case "cookie":
		if c, err := r.Cookie(meta.Name); err == nil {
			key = c.Value
		}
	default:
		return "", fmt.Errorf("unsupported api key location %q", meta.In)
	}
	if key == "" {
		return "", ErrMissingCredentials
	}
	return key, nil
}

// Optional makes any scheme optional: extraction never fails, and a missing
// or malformed credential leaves Value nil.
type Optional[S any] struct {
	Value *S
}

func (Optional[S]) SchemeName() string             { return schemeOf[S]().SchemeName() }
func (Optional[S]) SchemeMeta() MetaSecurityScheme { return schemeOf[S]().SchemeMeta() }
func (Optional[S]) optionalScheme()                {}

func (o *Optional[S]) FromRequest(r *http.Request, query url.Values) error {
	s := new(S)
	if err := any(s).(SecurityScheme).FromRequest(r, query); err != nil {
		o.Value = nil
		return nil
	}
	o.Value = s
	return nil
}

// schemeOf returns a zero *S as a SecurityScheme, panicking when *S does
// not implement it.
func schemeOf[S any]() SecurityScheme {
	s, ok := any(new(S)).(SecurityScheme)
	if !ok {
		panic(fmt.Sprintf("oai: %T is not a security scheme", new(S)))
	}
	return s
}

// OAuthScopes enumerates OAuth scopes. It describes scopes only and is not
// a SecurityScheme by itself.
type OAuthScopes interface {
	ScopesMeta() []MetaOAuthScope
	ScopeName() string
}

// OAuthProvider is the scope set of an OAuth2 scheme together with its
// flows. Scopes of the returned flows are filled from ScopesMeta.
type OAuthProvider interface {
	OAuthScopes
	OAuthFlows() MetaOAuthFlows
}

// OAuth2 is an OAuth2 bearer token scheme whose scopes and flows come from P.
// Operations name the scopes they require with a `scopes` tag on the field.
type OAuth2[P OAuthProvider] struct {
	Token string
}

func (OAuth2[P]) SchemeName() string { return "OAuth2" }

func (OAuth2[P]) SchemeMeta() MetaSecurityScheme {
	var p P
	flows := p.OAuthFlows()
	scopes := p.ScopesMeta()
	for _, f := range []*MetaOAuthFlow{flows.Implicit, flows.Password, flows.ClientCredentials, flows.AuthorizationCode} {
		if f != nil && f.Scopes == nil {
			f.Scopes = scopes
		}
	}
	return MetaSecurityScheme{Type: "oauth2", Flows: &flows}
}

func (o *OAuth2[P]) FromRequest(r *http.Request, _ url.Values) error {
	token, err := bearerToken(r)
	if err != nil {
		return err
	}
	o.Token = token
	return nil
}

func (OAuth2[P]) scopeNames() map[string]bool {
	var p P
	names := make(map[string]bool)
	for _, s := range p.ScopesMeta() {
		names[s.Name] = true
	}
	return names
}

// optionalSecurity marks schemes whose absence is not an error.
type optionalSecurity interface {
	optionalScheme()
}

// scopedSecurity is implemented by schemes that declare OAuth scopes.
type scopedSecurity interface {
	scopeNames() map[string]bool
}
