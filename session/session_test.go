package session

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
)

func TestNewProviderUsesReportedExpiry(t *testing.T) {
	expiry := time.Now().Add(time.Hour).Truncate(time.Second)
	s := NewProvider(&oauth2.Token{
		AccessToken:  "at",
		RefreshToken: "rt",
		Expiry:       expiry,
	})

	if !s.Expiry.Equal(expiry) {
		t.Errorf("expiry = %v, want %v", s.Expiry, expiry)
	}
	if s.AccessToken != "at" || s.RefreshToken != "rt" {
		t.Error("tokens not carried over")
	}
}

func TestNewProviderRecoversExpiryFromJWT(t *testing.T) {
	exp := time.Now().Add(30 * time.Minute).Truncate(time.Second)
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "user-1",
		"exp": exp.Unix(),
	}).SignedString([]byte("secret"))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}

	s := NewProvider(&oauth2.Token{AccessToken: raw})
	if !s.Expiry.Equal(exp) {
		t.Errorf("expiry = %v, want exp claim %v", s.Expiry, exp)
	}
}

func TestNewProviderDefaultsExpiry(t *testing.T) {
	before := time.Now()
	s := NewProvider(&oauth2.Token{AccessToken: "opaque-token"})
	after := time.Now()

	if s.Expiry.Before(before.Add(DefaultProviderTTL)) || s.Expiry.After(after.Add(DefaultProviderTTL)) {
		t.Errorf("expiry = %v, want roughly now+%v", s.Expiry, DefaultProviderTTL)
	}
}

func TestNewLocalValidity(t *testing.T) {
	s := NewLocal("user-1")
	want := time.Now().Add(LocalTTL)

	if s.UserID != "user-1" {
		t.Errorf("user id = %q", s.UserID)
	}
	if d := want.Sub(s.Expiry); d > time.Minute || d < -time.Minute {
		t.Errorf("expiry = %v, want roughly %v", s.Expiry, want)
	}
}
