// Package persistence implements the identity repository on GORM.
package persistence

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/merchforge/merchauth/identity"
)

// Repository implements identity.Repository on a gorm.DB handle. The
// handle is constructed once at startup and shared; pooling is owned by
// the underlying driver.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) DB() *gorm.DB { return r.db }

func (r *Repository) AutoMigrate() error {
	return r.db.AutoMigrate(&identity.User{}, &identity.Credential{})
}

func (r *Repository) FindByID(ctx context.Context, id string) (*identity.User, error) {
	return r.findUser(ctx, "id = ?", id)
}

func (r *Repository) FindByExternalID(ctx context.Context, externalID string) (*identity.User, error) {
	return r.findUser(ctx, "external_id = ?", externalID)
}

func (r *Repository) FindByEmail(ctx context.Context, email string) (*identity.User, error) {
	return r.findUser(ctx, "email = ?", email)
}

func (r *Repository) FindByUsername(ctx context.Context, username string) (*identity.User, error) {
	return r.findUser(ctx, "username = ?", username)
}

func (r *Repository) FindByReferralCode(ctx context.Context, code string) (*identity.User, error) {
	return r.findUser(ctx, "referral_code = ?", code)
}

func (r *Repository) findUser(ctx context.Context, query string, arg any) (*identity.User, error) {
	var u identity.User
	if err := r.db.WithContext(ctx).First(&u, query, arg).Error; err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

func (r *Repository) Create(ctx context.Context, u *identity.User) error {
	return translate(r.db.WithContext(ctx).Create(u).Error)
}

func (r *Repository) Update(ctx context.Context, u *identity.User) error {
	return translate(r.db.WithContext(ctx).Save(u).Error)
}

func (r *Repository) Delete(ctx context.Context, id string) error {
	return translate(r.db.WithContext(ctx).Delete(&identity.User{}, "id = ?", id).Error)
}

func (r *Repository) CreateCredential(ctx context.Context, c *identity.Credential) error {
	return translate(r.db.WithContext(ctx).Create(c).Error)
}

func (r *Repository) GetCredential(ctx context.Context, userID, credType string) (*identity.Credential, error) {
	var c identity.Credential
	err := r.db.WithContext(ctx).
		First(&c, "user_id = ? AND type = ?", userID, credType).Error
	if err != nil {
		return nil, translate(err)
	}
	return &c, nil
}

// translate maps driver errors onto the identity sentinel errors. The
// string checks cover drivers that predate GORM's error translation.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return identity.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return identity.ErrDuplicate
	case strings.Contains(err.Error(), "UNIQUE constraint failed"),
		strings.Contains(err.Error(), "duplicate key value"):
		return identity.ErrDuplicate
	default:
		return err
	}
}
