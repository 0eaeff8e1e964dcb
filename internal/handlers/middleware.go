package handlers

import (
	"context"
	"log"
	"net/http"
	"time"

	"ecoquest/internal/logging"
	"ecoquest/internal/models"
	"ecoquest/internal/security"
	"ecoquest/internal/session"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const (
	SessionIDContextKey ContextKey = "session_id"
	IdentityContextKey  ContextKey = "identity"
)

// Middleware holds dependencies for middleware functions
type Middleware struct {
	cookie   security.SessionCookie
	sessions *session.Store
	csrf     *security.CSRFGenerator
	limiter  *security.RateLimiter
	logger   logging.Logger
}

// NewMiddleware creates a new middleware instance
func NewMiddleware(cookie security.SessionCookie, sessions *session.Store, csrf *security.CSRFGenerator, limiter *security.RateLimiter, logger logging.Logger) *Middleware {
	return &Middleware{
		cookie:   cookie,
		sessions: sessions,
		csrf:     csrf,
		limiter:  limiter,
		logger:   logger,
	}
}

// Sessions makes sure every request carries a browser session id
func (m *Middleware) Sessions(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sid := m.cookie.Ensure(w, r)
		ctx := context.WithValue(r.Context(), SessionIDContextKey, sid)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Identity returns the signed-in identity of the request's session, nil when there is none
func (m *Middleware) Identity(r *http.Request) (*models.Identity, error) {
	if identity := IdentityFromContext(r.Context()); identity != nil {
		return identity, nil
	}
	sid := SessionIDFromContext(r.Context())
	if sid == "" {
		return nil, nil
	}
	return m.sessions.Scope(sid).GetIdentity(r.Context())
}

// RequireRole sends visitors without the role to that role's login page
func (m *Middleware) RequireRole(role models.Role, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, err := m.Identity(r)
		if err != nil {
			respondWithError(w, http.StatusInternalServerError, ErrInternalServerError, "Error loading session", err)
			return
		}
		if !identity.Is(role) {
			http.Redirect(w, r, LoginPathFor(role), http.StatusSeeOther)
			return
		}

		ctx := context.WithValue(r.Context(), IdentityContextKey, identity)
		next(w, r.WithContext(ctx))
	}
}

// CSRFProtect rejects state-changing requests without a valid token in the
// form or in the X-CSRF-Token header
func (m *Middleware) CSRFProtect(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := r.Header.Get("X-CSRF-Token")
		if token == "" {
			token = r.FormValue(security.CSRFFormField)
		}
		if !m.csrf.ValidateToken(SessionIDFromContext(r.Context()), token) {
			http.Error(w, "Invalid or expired form. Reload the page and try again.", http.StatusForbidden)
			return
		}
		next(w, r)
	}
}

// RateLimit limits login attempts per client
func (m *Middleware) RateLimit(next http.HandlerFunc) http.HandlerFunc {
	return m.limiter.Middleware(next)
}

// Logging middleware logs HTTP requests
func Logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Call next handler
		next.ServeHTTP(w, r)

		// Log request
		log.Printf("%s %s %s", r.Method, r.URL.Path, time.Since(start))
	})
}

// SessionIDFromContext retrieves the browser session id from the request context
func SessionIDFromContext(ctx context.Context) string {
	sid, _ := ctx.Value(SessionIDContextKey).(string)
	return sid
}

// IdentityFromContext retrieves the identity placed by RequireRole
func IdentityFromContext(ctx context.Context) *models.Identity {
	identity, ok := ctx.Value(IdentityContextKey).(*models.Identity)
	if !ok {
		return nil
	}
	return identity
}
