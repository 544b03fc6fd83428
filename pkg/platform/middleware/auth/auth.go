// Package auth resolves the bearer token into the acting principal.
package auth

import (
	"log/slog"
	"net/http"
	"strings"

	dErrors "vowly/pkg/domain-errors"
	"vowly/pkg/platform/httputil"
	"vowly/pkg/requestcontext"
)

// TokenValidator turns a bearer token into a principal.
type TokenValidator interface {
	Principal(token string) (requestcontext.Principal, error)
}

// RequireActor rejects requests without a valid bearer token and stores the
// principal with requestcontext.WithActor.
func RequireActor(validator TokenValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || token == "" {
				logger.WarnContext(ctx, "unauthorized access - missing token",
					"request_id", requestcontext.RequestID(ctx),
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "missing or invalid Authorization header"))
				return
			}

			principal, err := validator.Principal(token)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - invalid token",
					"error", err,
					"request_id", requestcontext.RequestID(ctx),
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "invalid or expired token"))
				return
			}

			next.ServeHTTP(w, r.WithContext(requestcontext.WithActor(ctx, principal)))
		})
	}
}

// OptionalActor attaches the principal when a valid token is present and
// lets anonymous requests through.
func OptionalActor(validator TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok && token != "" {
				if principal, err := validator.Principal(token); err == nil {
					r = r.WithContext(requestcontext.WithActor(r.Context(), principal))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
