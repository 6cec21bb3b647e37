package web

import (
	"context"
	"net/http"

	"github.com/JonMunkholm/csvdash/internal/core"
)

// WithRequestMetadata adds IP and User-Agent to context for the activity trail.
func WithRequestMetadata(ctx context.Context, r *http.Request) context.Context {
	ctx = core.ContextWithIPAddress(ctx, clientIP(r))
	ctx = core.ContextWithUserAgent(ctx, r.UserAgent())
	return ctx
}

// sessionID returns the id the session middleware attached.
func sessionID(r *http.Request) string {
	return core.SessionIDFromContext(r.Context())
}
