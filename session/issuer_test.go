package session

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/merchforge/merchauth/identity"
)

func cookieByName(cookies []*http.Cookie, name string) *http.Cookie {
	for _, c := range cookies {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestIssueProviderSession(t *testing.T) {
	rec := httptest.NewRecorder()
	issuer := NewIssuer(true)
	user := &identity.User{ID: "user-1"}
	expiry := time.Now().Add(time.Hour)

	issuer.Issue(rec, Provider{AccessToken: "at", RefreshToken: "rt", Expiry: expiry}, user)

	cookies := rec.Result().Cookies()
	if len(cookies) != 3 {
		t.Fatalf("expected 3 cookies, got %d", len(cookies))
	}

	at := cookieByName(cookies, AccessTokenCookie)
	if at == nil || at.Value != "at" {
		t.Fatal("access token cookie missing or wrong")
	}
	uid := cookieByName(cookies, UserIDCookie)
	if uid == nil || uid.Value != "user-1" {
		t.Fatal("user id cookie missing or wrong")
	}

	for _, c := range cookies {
		if !c.HttpOnly {
			t.Errorf("cookie %s not httponly", c.Name)
		}
		if c.SameSite != http.SameSiteLaxMode {
			t.Errorf("cookie %s not samesite=lax", c.Name)
		}
		if c.Path != "/" {
			t.Errorf("cookie %s path = %q", c.Name, c.Path)
		}
		if !c.Secure {
			t.Errorf("cookie %s not secure", c.Name)
		}
		if d := c.Expires.Sub(expiry); d > time.Minute || d < -time.Minute {
			t.Errorf("cookie %s expiry = %v, want %v", c.Name, c.Expires, expiry)
		}
	}
}

func TestIssueLocalSessionSetsOnlyUserID(t *testing.T) {
	rec := httptest.NewRecorder()
	issuer := NewIssuer(false)
	user := &identity.User{ID: "user-2"}

	issuer.Issue(rec, NewLocal(user.ID), user)

	cookies := rec.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("expected 1 cookie, got %d", len(cookies))
	}
	if cookies[0].Name != UserIDCookie || cookies[0].Value != "user-2" {
		t.Fatalf("unexpected cookie %s=%s", cookies[0].Name, cookies[0].Value)
	}
	if cookies[0].Secure {
		t.Error("secure flag should follow issuer configuration")
	}
}

func TestClearExpiresAllCookies(t *testing.T) {
	rec := httptest.NewRecorder()
	issuer := NewIssuer(true)

	issuer.Clear(rec)

	cookies := rec.Result().Cookies()
	if len(cookies) != 3 {
		t.Fatalf("expected 3 cookies, got %d", len(cookies))
	}
	for _, c := range cookies {
		if c.Value != "" {
			t.Errorf("cookie %s not emptied", c.Name)
		}
		if !c.Expires.Equal(time.Unix(0, 0)) {
			t.Errorf("cookie %s expiry = %v, want epoch", c.Name, c.Expires)
		}
	}
}
