// Package session models authenticated sessions and writes them to the
// response as cookies.
//
// A session is either provider-backed (access and refresh tokens issued by
// the external identity provider) or a local fallback (just the internal
// user id, used when no provider is configured). Both variants are consumed
// uniformly by the Issuer.
package session

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
)

// Session lifetimes.
const (
	DefaultProviderTTL = 24 * time.Hour
	LocalTTL           = 7 * 24 * time.Hour
)

// Session is a tagged variant: either Provider or Local.
type Session interface {
	ExpiresAt() time.Time
	kind() string
}

// Provider is a session whose tokens are issued by the external identity
// provider.
type Provider struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	Expiry       time.Time `json:"expires_at"`
}

func (p Provider) ExpiresAt() time.Time { return p.Expiry }
func (p Provider) kind() string         { return "provider" }

// Local is a fallback session represented only by the internal user id.
type Local struct {
	UserID string    `json:"user_id"`
	Expiry time.Time `json:"expires_at"`
}

func (l Local) ExpiresAt() time.Time { return l.Expiry }
func (l Local) kind() string         { return "local" }

// NewProvider builds a provider session from the provider's token. When the
// token carries no expiry of its own, the access token's exp claim is used
// if it parses as a JWT, and now+24h otherwise.
func NewProvider(tok *oauth2.Token) Provider {
	expiry := tok.Expiry
	if expiry.IsZero() {
		expiry = accessTokenExpiry(tok.AccessToken)
	}
	if expiry.IsZero() {
		expiry = time.Now().Add(DefaultProviderTTL)
	}
	return Provider{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		Expiry:       expiry,
	}
}

// NewLocal builds a local fallback session with a fixed 7-day validity.
func NewLocal(userID string) Local {
	return Local{
		UserID: userID,
		Expiry: time.Now().Add(LocalTTL),
	}
}

// accessTokenExpiry recovers the exp claim from a JWT access token. The
// signature is deliberately not checked here: the expiry only shapes cookie
// lifetime, the token itself stays opaque to this service.
func accessTokenExpiry(raw string) time.Time {
	token, _, err := jwt.NewParser().ParseUnverified(raw, jwt.MapClaims{})
	if err != nil {
		return time.Time{}
	}
	exp, err := token.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.Time
}
