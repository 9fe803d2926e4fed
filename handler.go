package oai

import (
	"context"
	"net/http"
	"time"
)

// Handler is the typed operation signature. Req is a struct whose fields
// are bound from the request; Resp writes itself to the wire. A non-nil
// error is written as a problem details response.
type Handler[Req any, Resp ApiResponse] func(ctx context.Context, req *Req) (Resp, error)

// buildHandler wraps a typed Handler into an http.Handler.
func buildHandler[Req any, Resp ApiResponse](op *operation, b *binder, h Handler[Req, Resp]) http.Handler {
	customBadRequest := HasBadRequestHandler[Resp]()

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		obs := observerFrom(r.Context())
		rec := &responseRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		defer func() {
			obs.requestDone(op.name(), r.Method, rec.status, time.Since(start))
		}()

		req, perr := b.bind(r)
		if perr != nil {
			obs.parseFailed(r.Context(), op.name(), perr)
			if customBadRequest {
				FromParseRequestError[Resp](perr).WriteResponse(rec)
				return
			}
			writeErrorResponse(rec, perr)
			return
		}

		resp, err := h(r.Context(), req.Interface().(*Req))
		if err != nil {
			writeErrorResponse(rec, err)
			return
		}
		resp.WriteResponse(rec)
	})
}
