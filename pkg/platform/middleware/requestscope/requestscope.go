// Package requestscope stamps each HTTP request with the values every
// handler and log line expects to find in its context.
package requestscope

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"formcheck/pkg/requestcontext"
)

// HeaderRequestID carries a caller-supplied request ID.
const HeaderRequestID = "X-Request-ID"

// Middleware captures the time at the start of the request and a request ID
// (the caller's, or a fresh one), and echoes the ID back.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(HeaderRequestID)
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		w.Header().Set(HeaderRequestID, id)

		ctx := requestcontext.WithTime(r.Context(), time.Now())
		ctx = requestcontext.WithRequestID(ctx, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
