// Package requesttime pins "now" for the lifetime of a request so every
// activity record written while handling it shares one timestamp source.
package requesttime

import (
	"net/http"
	"time"

	"vowly/pkg/requestcontext"
)

func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithTime(r.Context(), time.Now())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
