package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/merchforge/merchauth/session"
)

func newGuardedServer() *echo.Echo {
	e := echo.New()
	e.Use(NewGuard().Middleware())
	e.Any("/*", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	return e
}

func get(e *echo.Echo, target string, withCookie bool) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	if withCookie {
		req.AddCookie(&http.Cookie{Name: session.UserIDCookie, Value: "user-1"})
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestGuardRedirectsAnonymousFromProtectedPaths(t *testing.T) {
	e := newGuardedServer()

	rec := get(e, "/dashboard", false)
	if rec.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "/login?next=%2Fdashboard" {
		t.Errorf("location = %q", loc)
	}

	rec = get(e, "/dashboard/orders?page=2", false)
	if loc := rec.Header().Get("Location"); loc != "/login?next=%2Fdashboard%2Forders%3Fpage%3D2" {
		t.Errorf("original path and query not preserved: %q", loc)
	}

	rec = get(e, "/onboarding", false)
	if rec.Code != http.StatusFound {
		t.Errorf("onboarding should be protected, got %d", rec.Code)
	}
}

func TestGuardRedirectsAuthenticatedFromGuestPaths(t *testing.T) {
	e := newGuardedServer()

	for _, path := range []string{"/login", "/register"} {
		rec := get(e, path, true)
		if rec.Code != http.StatusFound {
			t.Fatalf("expected 302 for %s, got %d", path, rec.Code)
		}
		if loc := rec.Header().Get("Location"); loc != "/dashboard" {
			t.Errorf("location for %s = %q", path, loc)
		}
	}
}

func TestGuardPassesEverythingElse(t *testing.T) {
	e := newGuardedServer()

	cases := []struct {
		path   string
		cookie bool
	}{
		{"/", false},
		{"/", true},
		{"/about", false},
		{"/login", false},     // guest path without cookie
		{"/dashboard", true},  // protected path with cookie
		{"/onboarding", true}, // protected path with cookie
	}
	for _, tc := range cases {
		rec := get(e, tc.path, tc.cookie)
		if rec.Code != http.StatusOK {
			t.Errorf("GET %s (cookie=%v) = %d, want 200", tc.path, tc.cookie, rec.Code)
		}
	}
}
