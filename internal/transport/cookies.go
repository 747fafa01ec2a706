package transport

import (
	"net/http"
	"time"
)

const (
	SessionCookie   = "jwt"
	loggedOutValue  = "loggedout"
	loggedOutExpiry = 10 * time.Second
)

type CookieSettings struct {
	TTL    time.Duration
	Secure bool
	now    func() time.Time
}

func NewCookieSettings(ttl time.Duration, secure bool) *CookieSettings {
	return &CookieSettings{TTL: ttl, Secure: secure, now: time.Now}
}

// Set writes a session cookie that lives for the configured TTL.
func (c *CookieSettings) Set(w http.ResponseWriter, token string) {
	c.SetUntil(w, token, c.now().Add(c.TTL))
}

// SetUntil writes a session cookie that expires with its token.
func (c *CookieSettings) SetUntil(w http.ResponseWriter, token string, expires time.Time) {
	http.SetCookie(w, c.cookie(token, expires))
}

// Clear overwrites the session cookie with a short-lived placeholder.
func (c *CookieSettings) Clear(w http.ResponseWriter) {
	http.SetCookie(w, c.cookie(loggedOutValue, c.now().Add(loggedOutExpiry)))
}

func (c *CookieSettings) cookie(value string, expires time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     SessionCookie,
		Value:    value,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// SessionToken reads the token from the Authorization header, falling back
// to the session cookie.
func SessionToken(r *http.Request) string {
	if t := BearerToken(r); t != "" {
		return t
	}
	if c, err := r.Cookie(SessionCookie); err == nil {
		return c.Value
	}
	return ""
}
