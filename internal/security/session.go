package security

import (
	"net/http"
	"time"

	"github.com/google/uuid"
)

// SessionCookie issues and reads the browser session id cookie.
// The cookie carries only an opaque uuid; identity lives in the state store.
type SessionCookie struct {
	Name string
	TTL  time.Duration
}

// GenerateSessionID creates a new browser session id
func GenerateSessionID() string {
	return uuid.New().String()
}

// IsSecureRequest determines if the request is over HTTPS, directly or behind a proxy
func IsSecureRequest(r *http.Request) bool {
	if r.TLS != nil {
		return true
	}
	if r.Header.Get("X-Forwarded-Proto") == "https" {
		return true
	}
	return r.URL.Scheme == "https"
}

// Read returns the session id of the request, or "" when absent or malformed
func (c SessionCookie) Read(r *http.Request) string {
	cookie, err := r.Cookie(c.Name)
	if err != nil {
		return ""
	}
	id, err := uuid.Parse(cookie.Value)
	if err != nil {
		return ""
	}
	return id.String()
}

// Ensure returns the request's session id, issuing a new cookie when there is none.
// The expiry is renewed on every call.
func (c SessionCookie) Ensure(w http.ResponseWriter, r *http.Request) string {
	id := c.Read(r)
	if id == "" {
		id = GenerateSessionID()
	}
	http.SetCookie(w, c.cookie(r, id, time.Now().Add(c.TTL)))
	return id
}

// Clear expires the session cookie
func (c SessionCookie) Clear(w http.ResponseWriter, r *http.Request) {
	cookie := c.cookie(r, "", time.Time{})
	cookie.MaxAge = -1
	http.SetCookie(w, cookie)
}

func (c SessionCookie) cookie(r *http.Request, value string, expires time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     c.Name,
		Value:    value,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   IsSecureRequest(r),
		SameSite: http.SameSiteLaxMode,
	}
}
