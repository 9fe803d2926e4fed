package oai

import (
	"mime"
	"net/http"
)

// ApiRequest is the request-boundary contract of an operation input, such
// as a request body. FromRequest has a pointer receiver and fills the
// value from the request; RequestMeta and Register are called on the zero
// value during assembly.
type ApiRequest interface {
	RequestMeta() MetaRequest
	Register(reg *Registry)
	FromRequest(r *http.Request) error
}

// PayloadRequestMeta describes a payload as a required request body with a
// single media type.
func PayloadRequestMeta(p Payload) MetaRequest {
	return MetaRequest{
		Content:  []MetaMediaType{{ContentType: p.ContentType(), Schema: p.SchemaRef()}},
		Required: true,
	}
}

// NegotiatePayload checks the request's Content-Type against the payload's
// declared content type and parses the body on a match. The comparison is
// exact on the MIME essence; parameters such as charset are ignored.
func NegotiatePayload(r *http.Request, p ParsePayload) error {
	header := r.Header.Get("Content-Type")
	if header == "" {
		return &ParseRequestError{Kind: ExpectContentType}
	}

	essence, _, err := mime.ParseMediaType(header)
	if err != nil || essence != p.ContentType() {
		return &ParseRequestError{Kind: ContentTypeNotSupported, ContentType: header}
	}

	if err := p.ParseBody(r); err != nil {
		return &ParseRequestError{Kind: ParseRequestBody, Reason: err.Error(), Err: err}
	}
	return nil
}
