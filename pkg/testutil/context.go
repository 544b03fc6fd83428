// Package testutil holds shared helpers for handler, BDD-style and
// container-backed tests.
package testutil

import (
	"context"
	"net/http"

	"vowly/pkg/requestcontext"
)

// WithActor attaches a principal to the request as the auth middleware would.
func WithActor(req *http.Request, actorType, actorID string, roles ...string) *http.Request {
	ctx := requestcontext.WithActor(req.Context(), requestcontext.Principal{
		Type:  actorType,
		ID:    actorID,
		Roles: roles,
	})
	return req.WithContext(ctx)
}

// RequestContext builds a context carrying the metadata the activity
// pipeline reads from an HTTP request.
func RequestContext(actor requestcontext.Principal, ip, userAgent, url, method string) context.Context {
	ctx := context.Background()
	if actor.ID != "" {
		ctx = requestcontext.WithActor(ctx, actor)
	}
	ctx = requestcontext.WithClientIP(ctx, ip)
	ctx = requestcontext.WithUserAgent(ctx, userAgent)
	ctx = requestcontext.WithURL(ctx, url)
	ctx = requestcontext.WithMethod(ctx, method)
	return ctx
}

// WithContextValue adds an arbitrary key-value pair to the request context.
func WithContextValue(req *http.Request, key, value any) *http.Request {
	return req.WithContext(context.WithValue(req.Context(), key, value))
}
