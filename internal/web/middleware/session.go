package middleware

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/csvdash/internal/core"
)

// SessionOptions configures the session cookie.
type SessionOptions struct {
	CookieName string
	Secure     bool
	MaxAge     time.Duration
}

// Session attaches the browser's session id to the request context. A fresh
// UUID is issued when the request has no valid one, and the cookie is sent
// back on every response so its lifetime slides with use.
func Session(opts SessionOptions) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := ""
			if c, err := r.Cookie(opts.CookieName); err == nil {
				if parsed, err := uuid.Parse(c.Value); err == nil {
					id = parsed.String()
				}
			}
			if id == "" {
				id = uuid.NewString()
			}
			http.SetCookie(w, &http.Cookie{
				Name:     opts.CookieName,
				Value:    id,
				Path:     "/",
				MaxAge:   int(opts.MaxAge.Seconds()),
				HttpOnly: true,
				Secure:   opts.Secure,
				SameSite: http.SameSiteLaxMode,
			})

			next.ServeHTTP(w, r.WithContext(core.ContextWithSessionID(r.Context(), id)))
		})
	}
}
