package api

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/merchforge/merchauth/session"
)

// Guard is a request-time gate over path and user-id cookie presence.
//
// It is advisory routing only: it never validates that the cookie belongs
// to a real session, so protected handlers must still resolve the actual
// identity before doing anything privileged.
type Guard struct {
	// ProtectedPrefixes require a cookie; without one the request is
	// redirected to LoginPath with the original path and query preserved
	// in a "next" parameter.
	ProtectedPrefixes []string

	// GuestPaths redirect to HomePath when a cookie is present.
	GuestPaths []string

	LoginPath string
	HomePath  string
}

func NewGuard() *Guard {
	return &Guard{
		ProtectedPrefixes: []string{"/dashboard", "/onboarding"},
		GuestPaths:        []string{"/login", "/register"},
		LoginPath:         "/login",
		HomePath:          "/dashboard",
	}
}

func (g *Guard) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			path := req.URL.Path

			authed := false
			if cookie, err := c.Cookie(session.UserIDCookie); err == nil && cookie.Value != "" {
				authed = true
			}

			if !authed && g.isProtected(path) {
				target := path
				if req.URL.RawQuery != "" {
					target += "?" + req.URL.RawQuery
				}
				return c.Redirect(http.StatusFound, g.LoginPath+"?next="+url.QueryEscape(target))
			}

			if authed && g.isGuest(path) {
				return c.Redirect(http.StatusFound, g.HomePath)
			}

			return next(c)
		}
	}
}

func (g *Guard) isProtected(path string) bool {
	for _, prefix := range g.ProtectedPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

func (g *Guard) isGuest(path string) bool {
	for _, p := range g.GuestPaths {
		if path == p {
			return true
		}
	}
	return false
}
