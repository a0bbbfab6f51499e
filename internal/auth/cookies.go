package auth

import (
	"net/http"
	"time"
)

// Cookie names shared with the browser client. The names and
// attributes are a wire contract: changing them strands sessions.
const (
	AccessTokenCookie  = "access_token"
	RefreshTokenCookie = "refresh_token"
)

// CookieWriter binds a session to HTTP transport. Production flips
// SameSite=None + Secure for the cross-site frontend; development
// stays on Lax without Secure so plain-HTTP localhost works.
type CookieWriter struct {
	production bool
	now        func() time.Time
}

// NewCookieWriter constructs a CookieWriter.
func NewCookieWriter(production bool) *CookieWriter {
	return &CookieWriter{production: production, now: time.Now}
}

// Attach sets both session cookies. Each Max-Age is the remaining
// lifetime of its own token, clamped to zero.
func (c *CookieWriter) Attach(w http.ResponseWriter, session *Session) {
	http.SetCookie(w, c.cookie(AccessTokenCookie, session.Access.Value, session.Access.ExpiresAt))
	http.SetCookie(w, c.cookie(RefreshTokenCookie, session.Refresh.Value, session.Refresh.ExpiresAt))
}

// Clear deletes both cookies with matching attributes so browsers
// actually drop them.
func (c *CookieWriter) Clear(w http.ResponseWriter) {
	for _, name := range []string{AccessTokenCookie, RefreshTokenCookie} {
		cookie := c.base(name)
		cookie.Value = ""
		cookie.MaxAge = -1
		http.SetCookie(w, cookie)
	}
}

func (c *CookieWriter) cookie(name, value string, expiresAt time.Time) *http.Cookie {
	cookie := c.base(name)
	cookie.Value = value
	cookie.MaxAge = c.maxAge(expiresAt)
	return cookie
}

func (c *CookieWriter) base(name string) *http.Cookie {
	cookie := &http.Cookie{
		Name:     name,
		Path:     "/",
		HttpOnly: true,
	}
	if c.production {
		cookie.SameSite = http.SameSiteNoneMode
		cookie.Secure = true
	} else {
		cookie.SameSite = http.SameSiteLaxMode
		cookie.Secure = false
	}
	return cookie
}

// maxAge never goes negative: an already expired token serializes as
// Max-Age=0 (net/http encodes any negative MaxAge that way).
func (c *CookieWriter) maxAge(expiresAt time.Time) int {
	secs := int(expiresAt.Sub(c.now()).Seconds())
	if secs <= 0 {
		return -1
	}
	return secs
}
