// Package flow orchestrates login and registration.
//
// The manager validates input, delegates credential handling to the
// external identity provider when one is configured or to the local
// password hasher when not, provisions the persisted user record, and
// hands a session back to the HTTP boundary.
package flow

import (
	"github.com/merchforge/merchauth/identity"
	"github.com/merchforge/merchauth/session"
)

// Error codes carried on oops errors from this package. The HTTP layer
// maps them onto status codes.
const (
	CodeValidation         = "AUTH_VALIDATION"          // 400
	CodeInvalidCredentials = "AUTH_INVALID_CREDENTIALS" // 401
	CodeEmailTaken         = "AUTH_EMAIL_TAKEN"         // 409
	CodeMisconfigured      = "AUTH_PROVIDER_MISCONFIGURED"
	CodeStorage            = "STORAGE"
)

type RegistrationRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
	Username string `json:"username"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Result is what a completed login or registration hands to the boundary.
// Session is nil only when the provider still requires email confirmation.
type Result struct {
	User                      *identity.User
	Session                   session.Session
	RequiresEmailConfirmation bool
}
