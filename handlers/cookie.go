package handlers

import (
	"fmt"
	"time"
)

// bakeCookie renders the Set-Cookie header value carrying the token. The
// exact attribute layout is part of the external contract with older
// clients, so it is assembled by hand rather than via http.Cookie.
func (h *AuthHandler) bakeCookie(token string, age time.Duration) string {
	expires := time.Now().Add(age).UTC().Format(time.RFC1123)
	s := fmt.Sprintf("%s=%s;path=/;expires=%s;", h.cfg.Cookie.Name, token, expires)
	if h.cfg.Cookie.HTTPOnly {
		s += "HttpOnly;"
	}
	if h.cfg.Cookie.Domain != "" {
		s += "domain=" + h.cfg.Cookie.Domain + ";"
	}
	return s
}

// expiredCookie is the logout tombstone: same name and attributes, expiry in
// the past so browsers drop the token.
func (h *AuthHandler) expiredCookie() string {
	s := fmt.Sprintf("%s=delete; path=/; expires=Thu, 01 Jan 1970 00:00:00 GMT; ", h.cfg.Cookie.Name)
	if h.cfg.Cookie.HTTPOnly {
		s += "HttpOnly;"
	}
	if h.cfg.Cookie.Domain != "" {
		s += "domain=" + h.cfg.Cookie.Domain + ";"
	}
	return s
}
