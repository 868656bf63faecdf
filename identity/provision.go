package identity

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"

	"github.com/merchforge/merchauth/logger"
)

// Allocation bounds. The attempt caps are a hard ceiling on storage
// round-trips under contention; when they are exhausted the allocation is
// escalated as an error rather than looping forever.
const (
	usernameMaxLen            = 24
	usernameFallback          = "creator"
	usernameAllocAttempts     = 12
	usernameSuffixLen         = 3
	usernameFallbackSuffixLen = 6

	referralSeedMaxLen     = 6
	referralSeedFallback   = "MERCH"
	referralAllocAttempts  = 12
	referralFallbackPrefix = "MF"

	insertAttempts = 12
)

var (
	usernameInvalidChars = regexp.MustCompile(`[^a-z0-9_]`)
	usernameUnderscores  = regexp.MustCompile(`_+`)
	referralInvalidChars = regexp.MustCompile(`[^A-Z0-9]`)
)

// Provisioner materializes user records, allocating unique usernames and
// referral codes against the store. Uniqueness constraints in the store are
// the source of truth; every check-then-act race is treated as a retryable
// collision.
type Provisioner struct {
	users Repository
	now   func() time.Time
}

func NewProvisioner(users Repository) *Provisioner {
	return &Provisioner{users: users, now: time.Now}
}

// Input describes the identity to materialize. ExternalID is empty for
// local-only users; UsernameHint, FullName, and AvatarURL are optional.
type Input struct {
	ExternalID   string
	Email        string
	FullName     string
	AvatarURL    string
	UsernameHint string
}

// Ensure creates the user for in if none exists, or reconciles the existing
// record: email, full name and avatar (only when newly provided), and the
// last-login timestamp are updated; the allocated username and referral
// code are never altered.
func (p *Provisioner) Ensure(ctx context.Context, in Input) (*User, error) {
	existing, err := p.lookup(ctx, in)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, oops.Code("STORAGE").With("operation", "lookup user").Wrap(err)
	}
	if existing != nil {
		return p.reconcile(ctx, existing, in)
	}
	return p.create(ctx, in)
}

func (p *Provisioner) lookup(ctx context.Context, in Input) (*User, error) {
	if in.ExternalID != "" {
		u, err := p.users.FindByExternalID(ctx, in.ExternalID)
		if err == nil || !errors.Is(err, ErrNotFound) {
			return u, err
		}
		// A local-only record may predate the first provider login for
		// this email; adopt it instead of colliding on the email index.
	}
	return p.users.FindByEmail(ctx, in.Email)
}

func (p *Provisioner) reconcile(ctx context.Context, u *User, in Input) (*User, error) {
	u.Email = in.Email
	if in.ExternalID != "" && u.ExternalID == nil {
		ext := in.ExternalID
		u.ExternalID = &ext
	}
	if in.FullName != "" {
		u.FullName = in.FullName
	}
	if in.AvatarURL != "" {
		u.AvatarURL = in.AvatarURL
	}
	u.LastLoginAt = p.now()

	if err := p.users.Update(ctx, u); err != nil {
		return nil, oops.Code("STORAGE").With("operation", "update user").Wrap(err)
	}
	return u, nil
}

func (p *Provisioner) create(ctx context.Context, in Input) (*User, error) {
	var created *User

	backoff := retry.WithMaxRetries(insertAttempts-1, retry.NewConstant(5*time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		username, err := p.allocateUsername(ctx, in)
		if err != nil {
			return err
		}
		code, err := p.allocateReferralCode(ctx, username)
		if err != nil {
			return err
		}

		u := &User{
			ID:           uuid.NewString(),
			Email:        in.Email,
			Username:     username,
			FullName:     in.FullName,
			AvatarURL:    in.AvatarURL,
			Role:         RoleUser,
			ReferralCode: code,
			LastLoginAt:  p.now(),
		}
		if in.ExternalID != "" {
			ext := in.ExternalID
			u.ExternalID = &ext
		}

		if err := p.users.Create(ctx, u); err != nil {
			if !errors.Is(err, ErrDuplicate) {
				return err
			}
			// A colliding email can never clear, so re-rolling candidates
			// against it would only burn the retry budget.
			if _, probeErr := p.users.FindByEmail(ctx, in.Email); probeErr == nil {
				return ErrEmailTaken
			}
			// Lost a race between the existence probe and the insert;
			// reallocate and try again.
			return retry.RetryableError(err)
		}
		created = u
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrEmailTaken) {
			return nil, oops.Code("AUTH_EMAIL_TAKEN").Errorf("email already registered")
		}
		return nil, oops.Code("STORAGE").With("operation", "create user").Wrap(err)
	}
	return created, nil
}

// allocateUsername probes the store for a free username: the normalized
// base first, then randomized suffixes. The returned fallback candidate is
// not guaranteed free; the guarded insert in create has the final word.
func (p *Provisioner) allocateUsername(ctx context.Context, in Input) (string, error) {
	base := usernameBase(in)

	for attempt := 0; attempt < usernameAllocAttempts; attempt++ {
		candidate := base
		if attempt > 0 {
			candidate = base + "_" + randomSuffix(usernameSuffixLen)
		}

		_, err := p.users.FindByUsername(ctx, candidate)
		if errors.Is(err, ErrNotFound) {
			return candidate, nil
		}
		if err != nil {
			return "", err
		}
	}

	fallback := base + "_" + randomSuffix(usernameFallbackSuffixLen)
	logger.Log.Warn("username allocation exhausted, using long random suffix",
		zap.String("base", base),
		zap.String("candidate", fallback),
	)
	return fallback, nil
}

// allocateReferralCode allocates a referral code seeded from the username.
func (p *Provisioner) allocateReferralCode(ctx context.Context, username string) (string, error) {
	seed := referralInvalidChars.ReplaceAllString(strings.ToUpper(username), "")
	if len(seed) > referralSeedMaxLen {
		seed = seed[:referralSeedMaxLen]
	}
	if seed == "" {
		seed = referralSeedFallback
	}

	for attempt := 0; attempt < referralAllocAttempts; attempt++ {
		candidate := fmt.Sprintf("%s%04d", seed, rand.Intn(10000))

		_, err := p.users.FindByReferralCode(ctx, candidate)
		if errors.Is(err, ErrNotFound) {
			return candidate, nil
		}
		if err != nil {
			return "", err
		}
	}

	ts := fmt.Sprintf("%d", p.now().UnixNano())
	fallback := referralFallbackPrefix + ts[len(ts)-8:]
	logger.Log.Warn("referral code allocation exhausted, using timestamp fallback",
		zap.String("seed", seed),
		zap.String("candidate", fallback),
	)
	return fallback, nil
}

// usernameBase picks the highest-priority non-empty source and normalizes
// it.
func usernameBase(in Input) string {
	for _, source := range []string{in.UsernameHint, in.FullName, emailLocalPart(in.Email), in.ExternalID} {
		if source == "" {
			continue
		}
		return NormalizeUsername(source)
	}
	return usernameFallback
}

// NormalizeUsername maps arbitrary input onto the constrained username
// alphabet: lowercase, [a-z0-9_] only, no repeated or dangling
// underscores, at most 24 characters. An input that normalizes to nothing
// yields "creator".
func NormalizeUsername(s string) string {
	s = strings.ToLower(s)
	s = usernameInvalidChars.ReplaceAllString(s, "_")
	s = usernameUnderscores.ReplaceAllString(s, "_")
	s = strings.Trim(s, "_")
	if len(s) > usernameMaxLen {
		s = strings.TrimRight(s[:usernameMaxLen], "_")
	}
	if s == "" {
		return usernameFallback
	}
	return s
}

func emailLocalPart(email string) string {
	if at := strings.Index(email, "@"); at > 0 {
		return email[:at]
	}
	return ""
}

const suffixAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

func randomSuffix(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = suffixAlphabet[rand.Intn(len(suffixAlphabet))]
	}
	return string(b)
}
