package flow

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/samber/oops"
	"go.uber.org/zap"

	"github.com/merchforge/merchauth/identity"
	"github.com/merchforge/merchauth/logger"
	"github.com/merchforge/merchauth/password"
	"github.com/merchforge/merchauth/provider"
	"github.com/merchforge/merchauth/session"
)

// dummyHash is verified when a login targets an unknown email so that the
// response time matches a real verification. It can never match any
// password.
const dummyHash = "$scrypt$n=16384,r=8,p=1$AAAAAAAAAAAAAAAAAAAAAA$AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"

// Manager coordinates registration and login end to end.
type Manager struct {
	provider    provider.Client // nil in local-only mode
	hasher      password.Hasher
	provisioner *identity.Provisioner
	users       identity.Repository
}

func NewManager(p provider.Client, h password.Hasher, prov *identity.Provisioner, users identity.Repository) *Manager {
	return &Manager{provider: p, hasher: h, provisioner: prov, users: users}
}

// Register creates an account. With a provider configured, account
// creation is delegated and the provider decides whether email
// confirmation is required first; in local-only mode the password is
// hashed here and the account is confirmed immediately.
func (m *Manager) Register(ctx context.Context, req RegistrationRequest) (*Result, error) {
	if !strings.Contains(req.Email, "@") {
		return nil, oops.Code(CodeValidation).Errorf("invalid email address")
	}
	if len([]rune(req.Password)) < password.MinPasswordLen {
		return nil, oops.Code(CodeValidation).Errorf("password must be at least %d characters", password.MinPasswordLen)
	}

	if m.provider != nil {
		return m.registerWithProvider(ctx, req)
	}
	return m.registerLocal(ctx, req)
}

func (m *Manager) registerWithProvider(ctx context.Context, req RegistrationRequest) (*Result, error) {
	res, err := m.provider.SignUp(ctx, req.Email, req.Password)
	if err != nil {
		return nil, err
	}

	user, err := m.provisioner.Ensure(ctx, identity.Input{
		ExternalID:   res.ExternalID,
		Email:        req.Email,
		FullName:     req.FullName,
		UsernameHint: req.Username,
	})
	if err != nil {
		return nil, err
	}

	result := &Result{User: user, RequiresEmailConfirmation: res.ConfirmationRequired}
	if res.Token != nil {
		result.Session = session.NewProvider(res.Token)
	}
	return result, nil
}

func (m *Manager) registerLocal(ctx context.Context, req RegistrationRequest) (*Result, error) {
	if _, err := m.users.FindByEmail(ctx, req.Email); err == nil {
		return nil, oops.Code(CodeEmailTaken).Errorf("email already registered")
	} else if !errors.Is(err, identity.ErrNotFound) {
		return nil, oops.Code(CodeStorage).With("operation", "find user by email").Wrap(err)
	}

	hash, err := m.hasher.Hash(req.Password)
	if err != nil {
		return nil, err
	}

	user, err := m.provisioner.Ensure(ctx, identity.Input{
		Email:        req.Email,
		FullName:     req.FullName,
		UsernameHint: req.Username,
	})
	if err != nil {
		return nil, err
	}

	cred := &identity.Credential{
		ID:     uuid.NewString(),
		UserID: user.ID,
		Type:   identity.CredentialTypePassword,
		Secret: hash,
	}
	if err := m.users.CreateCredential(ctx, cred); err != nil {
		// Roll the freshly provisioned user back; a user row without a
		// credential would block this email from ever registering again.
		if delErr := m.users.Delete(ctx, user.ID); delErr != nil {
			logger.Log.Error("failed to roll back user after credential insert failure",
				zap.String("user_id", user.ID),
				zap.Error(delErr),
			)
		}
		return nil, oops.Code(CodeStorage).With("operation", "create credential").Wrap(err)
	}

	return &Result{
		User:    user,
		Session: session.NewLocal(user.ID),
	}, nil
}

// Login checks credentials and reconciles the user record. Unknown emails
// and wrong passwords are indistinguishable to the caller.
func (m *Manager) Login(ctx context.Context, req LoginRequest) (*Result, error) {
	if !strings.Contains(req.Email, "@") {
		return nil, oops.Code(CodeValidation).Errorf("invalid email address")
	}
	if req.Password == "" {
		return nil, oops.Code(CodeValidation).Errorf("password is required")
	}

	if m.provider != nil {
		return m.loginWithProvider(ctx, req)
	}
	return m.loginLocal(ctx, req)
}

func (m *Manager) loginWithProvider(ctx context.Context, req LoginRequest) (*Result, error) {
	res, err := m.provider.SignIn(ctx, req.Email, req.Password)
	if err != nil {
		return nil, err
	}

	user, err := m.provisioner.Ensure(ctx, identity.Input{
		ExternalID: res.ExternalID,
		Email:      req.Email,
	})
	if err != nil {
		return nil, err
	}

	return &Result{
		User:    user,
		Session: session.NewProvider(res.Token),
	}, nil
}

func (m *Manager) loginLocal(ctx context.Context, req LoginRequest) (*Result, error) {
	invalid := oops.Code(CodeInvalidCredentials).Errorf("invalid credentials")

	user, err := m.users.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, identity.ErrNotFound) {
			// Burn a verification anyway to keep response time flat.
			m.hasher.Compare(req.Password, dummyHash)
			return nil, invalid
		}
		return nil, oops.Code(CodeStorage).With("operation", "find user by email").Wrap(err)
	}

	cred, err := m.users.GetCredential(ctx, user.ID, identity.CredentialTypePassword)
	if err != nil {
		if errors.Is(err, identity.ErrNotFound) {
			m.hasher.Compare(req.Password, dummyHash)
			return nil, invalid
		}
		return nil, oops.Code(CodeStorage).With("operation", "get credential").Wrap(err)
	}

	if !m.hasher.Compare(req.Password, cred.Secret) {
		return nil, invalid
	}

	user, err = m.provisioner.Ensure(ctx, identity.Input{Email: req.Email})
	if err != nil {
		return nil, err
	}

	return &Result{
		User:    user,
		Session: session.NewLocal(user.ID),
	}, nil
}
