package handler

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
)

// safeNextPath sanitizes a post-login redirect target. Only same-site
// absolute paths survive; anything that could leave the site (full URLs,
// scheme-relative //host paths) falls back to the index.
func safeNextPath(next string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") {
		return "/"
	}
	if strings.ContainsAny(next, "\r\n\\") {
		return "/"
	}
	return next
}

// setSessionCookie issues the session cookie. HttpOnly always; Secure in
// production (the gateway sits behind the TLS-terminating proxy, so local
// development runs plain HTTP). The cookie expires a minute before the
// session record does, so the browser never offers a cookie the server
// already considers dead.
func setSessionCookie(c *fiber.Ctx, name, token string, ttl time.Duration, secure bool) {
	c.Cookie(&fiber.Cookie{
		Name:     name,
		Value:    token,
		Path:     "/",
		HTTPOnly: true,
		Secure:   secure,
		SameSite: fiber.CookieSameSiteLaxMode,
		Expires:  time.Now().Add(ttl - time.Minute),
	})
}

// clearSessionCookie overwrites the session cookie with an already-expired
// empty value.
func clearSessionCookie(c *fiber.Ctx, name string, secure bool) {
	c.Cookie(&fiber.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		HTTPOnly: true,
		Secure:   secure,
		SameSite: fiber.CookieSameSiteLaxMode,
		Expires:  time.Now().Add(-time.Hour),
	})
}
