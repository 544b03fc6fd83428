// Package requestcontext provides HTTP-independent context accessors for
// request-scoped values.
//
// Middleware sets the values; services and the activity pipeline read them
// without importing net/http:
//
//	actor, ok := requestcontext.Actor(ctx)
//	ip := requestcontext.ClientIP(ctx)
//
// Tests inject values directly:
//
//	ctx = requestcontext.WithActor(ctx, requestcontext.Principal{Type: "user", ID: "42"})
//	ctx = requestcontext.WithTime(ctx, fixedTime)
package requestcontext

import (
	"context"
	"slices"
	"time"
)

type (
	actorKey       struct{}
	clientIPKey    struct{}
	userAgentKey   struct{}
	urlKey         struct{}
	methodKey      struct{}
	requestIDKey   struct{}
	requestTimeKey struct{}
)

// Exported keys for tests that need context.WithValue.
var (
	ContextKeyActor       = actorKey{}
	ContextKeyClientIP    = clientIPKey{}
	ContextKeyUserAgent   = userAgentKey{}
	ContextKeyURL         = urlKey{}
	ContextKeyMethod      = methodKey{}
	ContextKeyRequestID   = requestIDKey{}
	ContextKeyRequestTime = requestTimeKey{}
)

// Principal is the authenticated party behind a request.
type Principal struct {
	Type  string
	ID    string
	Roles []string
}

// HasRole reports whether the principal carries role.
func (p Principal) HasRole(role string) bool {
	return slices.Contains(p.Roles, role)
}

// -----------------------------------------------------------------------------
// Actor
// -----------------------------------------------------------------------------

// Actor returns the authenticated principal. ok is false for anonymous and
// system-initiated work.
func Actor(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(ContextKeyActor).(Principal)
	if !ok || p.ID == "" {
		return Principal{}, false
	}
	return p, true
}

func WithActor(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, ContextKeyActor, p)
}

// -----------------------------------------------------------------------------
// Client metadata
// -----------------------------------------------------------------------------

func ClientIP(ctx context.Context) string {
	if ip, ok := ctx.Value(ContextKeyClientIP).(string); ok {
		return ip
	}
	return ""
}

func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, ContextKeyClientIP, ip)
}

func UserAgent(ctx context.Context) string {
	if ua, ok := ctx.Value(ContextKeyUserAgent).(string); ok {
		return ua
	}
	return ""
}

func WithUserAgent(ctx context.Context, ua string) context.Context {
	return context.WithValue(ctx, ContextKeyUserAgent, ua)
}

// URL is the full request URL as seen by the server.
func URL(ctx context.Context) string {
	if u, ok := ctx.Value(ContextKeyURL).(string); ok {
		return u
	}
	return ""
}

func WithURL(ctx context.Context, u string) context.Context {
	return context.WithValue(ctx, ContextKeyURL, u)
}

func Method(ctx context.Context) string {
	if m, ok := ctx.Value(ContextKeyMethod).(string); ok {
		return m
	}
	return ""
}

func WithMethod(ctx context.Context, method string) context.Context {
	return context.WithValue(ctx, ContextKeyMethod, method)
}

// -----------------------------------------------------------------------------
// Request correlation and time
// -----------------------------------------------------------------------------

func RequestID(ctx context.Context) string {
	if id, ok := ctx.Value(ContextKeyRequestID).(string); ok {
		return id
	}
	return ""
}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ContextKeyRequestID, requestID)
}

// Now returns the request's start time, or time.Now when none was recorded.
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(ContextKeyRequestTime).(time.Time); ok {
		return t
	}
	return time.Now()
}

func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, ContextKeyRequestTime, t)
}

// Detach copies request-scoped values onto a context that is not cancelled
// with the request, for work that outlives the handler.
func Detach(ctx context.Context) context.Context {
	return context.WithoutCancel(ctx)
}
