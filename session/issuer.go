package session

import (
	"net/http"
	"time"

	"github.com/merchforge/merchauth/identity"
)

// Cookie names.
const (
	AccessTokenCookie  = "mf_access_token"
	RefreshTokenCookie = "mf_refresh_token"
	UserIDCookie       = "mf_uid"
)

// Issuer writes and clears the auth cookie set. All cookies are HttpOnly,
// SameSite=Lax, scoped to /; Secure is on everywhere except local
// development.
type Issuer struct {
	Secure bool
}

func NewIssuer(secure bool) *Issuer {
	return &Issuer{Secure: secure}
}

// Issue writes the cookies for s. Provider sessions set access, refresh,
// and user-id cookies with the session expiry; local sessions set only the
// user-id cookie. The user-id cookie is written in both modes so the route
// guard has a uniform signal.
//
// Switching an existing provider session to local mode does not implicitly
// drop the old token cookies; clear first when changing modes.
func (i *Issuer) Issue(w http.ResponseWriter, s Session, user *identity.User) {
	switch s := s.(type) {
	case Provider:
		i.set(w, AccessTokenCookie, s.AccessToken, s.Expiry)
		i.set(w, RefreshTokenCookie, s.RefreshToken, s.Expiry)
		i.set(w, UserIDCookie, user.ID, s.Expiry)
	case Local:
		i.set(w, UserIDCookie, user.ID, s.Expiry)
	}
}

// Clear expires all three cookies unconditionally.
func (i *Issuer) Clear(w http.ResponseWriter) {
	for _, name := range []string{AccessTokenCookie, RefreshTokenCookie, UserIDCookie} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			Expires:  time.Unix(0, 0),
			MaxAge:   -1,
			HttpOnly: true,
			Secure:   i.Secure,
			SameSite: http.SameSiteLaxMode,
		})
	}
}

func (i *Issuer) set(w http.ResponseWriter, name, value string, expires time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   i.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}
