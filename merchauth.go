package merchauth

import (
	"gorm.io/gorm"

	"github.com/merchforge/merchauth/flow"
	"github.com/merchforge/merchauth/identity"
	"github.com/merchforge/merchauth/password"
	"github.com/merchforge/merchauth/persistence"
	"github.com/merchforge/merchauth/provider"
)

// NewDefaultManager wires a flow.Manager over an open database handle with
// the default scrypt hasher. Pass a nil client for local-only mode.
func NewDefaultManager(db *gorm.DB, client provider.Client) *flow.Manager {
	repo := persistence.NewRepository(db)
	return flow.NewManager(client, password.NewScryptHasher(), identity.NewProvisioner(repo), repo)
}

// NewDefaultProvisioner creates a Provisioner backed by db.
func NewDefaultProvisioner(db *gorm.DB) *identity.Provisioner {
	return identity.NewProvisioner(persistence.NewRepository(db))
}
