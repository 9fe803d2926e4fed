// Package oai derives OpenAPI 3.0 documents and request/response
// conversion from typed Go operations. Operation types are the source of
// truth: the same declarations drive the rendered document and the runtime
// parsing, so the two cannot drift apart.
//
// Operations take a request struct and return an ApiResponse:
//
//	type GetUser struct {
//	    ID   int32       `path:"id"`
//	    Auth oai.Basic
//	}
//
//	a := oai.NewAPI(oai.WithPrefix("/v1"))
//	oai.Get(a, "/users/{id}", func(ctx context.Context, req *GetUser) (oai.JSON[User], error) {
//	    ...
//	})
//
// Request fields tagged path, query, header or cookie are parameters, a
// field whose pointer implements SecurityScheme carries credentials, and a
// field whose pointer implements ApiRequest (PlainText, JSON[T], Binary,
// Form[T], Multipart[T]) is the body. Bodies are accepted only when the
// request's Content-Type essence equals the payload's declared type.
//
// Value types convert through Type[T]; TypeOf derives one for any Go type,
// registering named structs as components in the Registry.
//
// API objects compose with Combine, and a Service assembles the result:
//
//	svc := oai.NewService(oai.Combine(users, orders), oai.WithTitle("Shop"))
//	http.Handle("/", svc)
package oai
