// Package provider is the boundary to the external identity provider.
//
// The provider is an opaque collaborator that owns credential checks and
// token issuance in provider mode. When it is deliberately unconfigured the
// rest of the service falls back to local-only identity; a partially or
// placeholder-configured provider is a hard configuration error, never a
// silent fallback.
package provider

import (
	"context"
	"strings"

	"github.com/samber/oops"
	"golang.org/x/oauth2"
)

// Error codes surfaced from this package.
const (
	CodeMisconfigured      = "AUTH_PROVIDER_MISCONFIGURED"
	CodeInvalidCredentials = "AUTH_INVALID_CREDENTIALS"
	CodeEmailTaken         = "AUTH_EMAIL_TAKEN"
	CodeProviderFailure    = "AUTH_PROVIDER"
)

// SignUpResult is the provider's answer to an account creation request.
// Token is nil when the provider requires email confirmation before issuing
// a session.
type SignUpResult struct {
	ExternalID           string
	Token                *oauth2.Token
	ConfirmationRequired bool
}

// SignInResult is the provider's answer to a credential check.
type SignInResult struct {
	ExternalID string
	Token      *oauth2.Token
}

// Client is the external identity provider boundary.
type Client interface {
	SignUp(ctx context.Context, email, password string) (*SignUpResult, error)
	SignIn(ctx context.Context, email, password string) (*SignInResult, error)
}

// Placeholder values that ship in env templates. Finding one at startup
// means the operator forgot to fill in real credentials.
var placeholders = []string{
	"your-project-url",
	"your-anon-key",
	"changeme",
	"todo",
}

// FromConfig builds a Client from the configured endpoint and key.
// Both empty means local-only mode: (nil, nil). Anything in between is a
// configuration error.
func FromConfig(url, key string) (Client, error) {
	if url == "" && key == "" {
		return nil, nil
	}
	if url == "" || key == "" {
		return nil, oops.Code(CodeMisconfigured).
			Errorf("identity provider partially configured: set both PROVIDER_URL and PROVIDER_KEY, or neither")
	}
	if isPlaceholder(url) || isPlaceholder(key) {
		return nil, oops.Code(CodeMisconfigured).
			Errorf("identity provider configured with placeholder credentials")
	}
	return NewHTTPClient(url, key), nil
}

func isPlaceholder(v string) bool {
	v = strings.ToLower(strings.TrimSpace(v))
	for _, p := range placeholders {
		if strings.Contains(v, p) {
			return true
		}
	}
	return false
}
