package session

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/securecookie"
)

// CookieName is the name of the session cookie
const CookieName = "session_id"

// Cookies signs and verifies session cookies
type Cookies struct {
	codec  *securecookie.SecureCookie
	secure bool
	maxAge time.Duration
}

// NewCookies creates a cookie codec. An empty hashKey generates a random one,
// which invalidates all cookies on restart.
func NewCookies(hashKey []byte, secure bool, maxAge time.Duration) (*Cookies, error) {
	if len(hashKey) == 0 {
		hashKey = securecookie.GenerateRandomKey(32)
		if hashKey == nil {
			return nil, errors.New("failed to generate cookie hash key")
		}
	}
	codec := securecookie.New(hashKey, nil)
	codec.MaxAge(int(maxAge.Seconds()))
	return &Cookies{codec: codec, secure: secure, maxAge: maxAge}, nil
}

// Set writes the signed session cookie
func (c *Cookies) Set(w http.ResponseWriter, sessionID string) error {
	encoded, err := c.codec.Encode(CookieName, sessionID)
	if err != nil {
		return fmt.Errorf("encode session cookie: %w", err)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    encoded,
		Path:     "/",
		MaxAge:   int(c.maxAge.Seconds()),
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteStrictMode,
	})
	return nil
}

// SessionID returns the verified session ID from r, or "" when the cookie
// is absent or its signature does not match
func (c *Cookies) SessionID(r *http.Request) string {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return ""
	}
	var id string
	if err := c.codec.Decode(CookieName, cookie.Value, &id); err != nil {
		return ""
	}
	return id
}
