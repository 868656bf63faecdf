// Package identity defines the persisted user model and the provisioning
// logic that allocates globally-unique usernames and referral codes.
package identity

import (
	"context"
	"errors"
	"time"
)

// Roles assigned to provisioned users.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User represents a platform user identity.
type User struct {
	ID                  string    `gorm:"primaryKey" json:"id"`
	ExternalID          *string   `gorm:"uniqueIndex" json:"external_id,omitempty"`
	Email               string    `gorm:"uniqueIndex" json:"email"`
	Username            string    `gorm:"uniqueIndex" json:"username"`
	FullName            string    `json:"full_name,omitempty"`
	AvatarURL           string    `json:"avatar_url,omitempty"`
	Role                string    `json:"role"`
	OnboardingCompleted bool      `json:"onboarding_completed"`
	ReferralCode        string    `gorm:"uniqueIndex" json:"referral_code"`
	LastLoginAt         time.Time `json:"last_login_at"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

func (User) TableName() string { return "users" }

// Credential holds a local password secret for a user. Provider-backed
// users have no row here; their credentials live with the provider.
type Credential struct {
	ID        string    `gorm:"primaryKey" json:"id"`
	UserID    string    `gorm:"index" json:"user_id"`
	Type      string    `gorm:"index" json:"type"`
	Secret    string    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Credential) TableName() string { return "credentials" }

// CredentialTypePassword is the credential type for local password logins.
const CredentialTypePassword = "password"

// Sentinel errors returned by Repository implementations.
var (
	ErrNotFound  = errors.New("identity: not found")
	ErrDuplicate = errors.New("identity: unique constraint violation")
)

// ErrEmailTaken marks an insert collision on the email itself. Unlike a
// username or referral collision it cannot be resolved by re-rolling a
// candidate.
var ErrEmailTaken = errors.New("identity: email already registered")

// Repository defines the persistence operations the identity subsystem
// needs. Uniqueness of email, username, external id, and referral code is
// enforced by the store; Create reports a violation as ErrDuplicate.
type Repository interface {
	FindByID(ctx context.Context, id string) (*User, error)
	FindByExternalID(ctx context.Context, externalID string) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByUsername(ctx context.Context, username string) (*User, error)
	FindByReferralCode(ctx context.Context, code string) (*User, error)
	Create(ctx context.Context, u *User) error
	Update(ctx context.Context, u *User) error
	Delete(ctx context.Context, id string) error

	CreateCredential(ctx context.Context, c *Credential) error
	GetCredential(ctx context.Context, userID, credType string) (*Credential, error)
}
