package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/aussiebroadwan/habitauth/internal/auth/audit"
	"github.com/aussiebroadwan/habitauth/internal/auth/domain"
	"github.com/aussiebroadwan/habitauth/internal/auth/metrics"
	"github.com/aussiebroadwan/habitauth/internal/auth/store"
	"github.com/aussiebroadwan/habitauth/internal/auth/throttle"
	"github.com/aussiebroadwan/habitauth/pkg/cryptox"
	"github.com/aussiebroadwan/habitauth/pkg/idx"
	"github.com/aussiebroadwan/habitauth/pkg/slogx"
)

const (
	minPasswordLength = 8
	maxPasswordLength = 128
)

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_.-]{3,32}$`)

// LoginThrottle counts failed logins. *throttle.LoginLimiter implements it.
type LoginThrottle interface {
	Check(ctx context.Context, identifier, ip string) error
	RecordFailure(ctx context.Context, identifier, ip string) error
	Reset(ctx context.Context, identifier string) error
}

// PasswordHasher hashes new passwords and verifies stored ones, flagging
// legacy formats for an upgrade. cryptox.MultiHasher implements it.
type PasswordHasher interface {
	Hash(secret string) (string, error)
	Verify(secret, encoded string) error
	NeedsRehash(encoded string) bool
}

type UserService struct {
	Store    store.Store
	Tokens   *TokenService
	Hasher   PasswordHasher
	Throttle LoginThrottle // optional
	Now      func() time.Time
	Metrics  *metrics.Metrics
	Audit    audit.Emitter

	dummyOnce sync.Once
	dummyHash string
}

type RegisterInput struct {
	Username string
	Email    string
	Password string
	Role     string
}

func (s *UserService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

func (s *UserService) emit(ctx context.Context, e audit.Event) {
	if s.Audit == nil {
		return
	}
	e.Timestamp = s.now()
	s.Audit.Emit(ctx, e)
}

// Login authenticates identifier (username or email) and password and
// issues a new session. Unknown users and wrong passwords are
// indistinguishable to the caller.
func (s *UserService) Login(ctx context.Context, identifier, password, ip string) (domain.TokenPair, error) {
	l := slogx.FromContext(ctx)
	identifier = strings.TrimSpace(identifier)
	if identifier == "" || password == "" {
		s.Metrics.Login(metrics.OutcomeFailure)
		return domain.TokenPair{}, domain.ErrInvalidCredentials
	}

	if s.Throttle != nil {
		err := s.Throttle.Check(ctx, identifier, ip)
		switch {
		case errors.Is(err, throttle.ErrRateLimited):
			l.Warn("login throttled", slog.String("ip", ip))
			s.Metrics.Login(metrics.OutcomeRateLimited)
			return domain.TokenPair{}, domain.ErrRateLimited
		case err != nil:
			l.Warn("login throttle unavailable, continuing", slog.String("error", err.Error()))
		}
	}

	user, err := s.lookup(ctx, identifier)
	if errors.Is(err, store.ErrNotFound) {
		// Burn the same hashing cost as a real verification.
		_ = s.Hasher.Verify(password, s.dummy())
		return domain.TokenPair{}, s.loginFailed(ctx, "", identifier, ip)
	}
	if err != nil {
		return domain.TokenPair{}, fmt.Errorf("lookup user: %w", err)
	}

	if err := s.Hasher.Verify(password, user.PasswordHash); err != nil {
		if !errors.Is(err, cryptox.ErrPasswordMismatch) {
			l.Error("password verification failed", slog.String("user_id", user.ID), slog.String("error", err.Error()))
		}
		return domain.TokenPair{}, s.loginFailed(ctx, user.ID, identifier, ip)
	}

	now := s.now()
	if s.Hasher.NeedsRehash(user.PasswordHash) {
		if upgraded, err := s.Hasher.Hash(password); err == nil {
			if err := s.Store.Users().UpdatePasswordHash(ctx, user.ID, upgraded, now); err != nil {
				l.Warn("password rehash failed", slog.String("user_id", user.ID), slog.String("error", err.Error()))
			}
		}
	}

	if s.Throttle != nil {
		if err := s.Throttle.Reset(ctx, identifier); err != nil {
			l.Warn("login throttle reset failed", slog.String("error", err.Error()))
		}
	}

	var pair domain.TokenPair
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		roles, err := tx.Roles().ListUserRoles(ctx, user.ID)
		if err != nil {
			return err
		}
		pair, _, err = s.Tokens.issuePair(ctx, tx, user.Principal(roles), now)
		return err
	})
	if err != nil {
		s.Metrics.Login(metrics.OutcomeFailure)
		return domain.TokenPair{}, err
	}

	s.Metrics.Login(metrics.OutcomeSuccess)
	s.emit(ctx, audit.Event{EventType: audit.EventLoginSuccess, UserID: user.ID, IP: ip, Success: true})
	return pair, nil
}

func (s *UserService) loginFailed(ctx context.Context, userID, identifier, ip string) error {
	slogx.FromContext(ctx).Warn("login failed", slog.String("user_id", userID), slog.String("ip", ip))
	if s.Throttle != nil {
		if err := s.Throttle.RecordFailure(ctx, identifier, ip); err != nil {
			slogx.FromContext(ctx).Warn("login throttle record failed", slog.String("error", err.Error()))
		}
	}
	s.Metrics.Login(metrics.OutcomeFailure)
	s.emit(ctx, audit.Event{EventType: audit.EventLoginFailure, UserID: userID, IP: ip})
	return domain.ErrInvalidCredentials
}

func (s *UserService) lookup(ctx context.Context, identifier string) (domain.User, error) {
	if strings.Contains(identifier, "@") {
		return s.Store.Users().GetUserByEmail(ctx, strings.ToLower(identifier))
	}
	return s.Store.Users().GetUserByUsername(ctx, identifier)
}

func (s *UserService) dummy() string {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = s.Hasher.Hash("habitauth-timing-equaliser")
	})
	return s.dummyHash
}

// Register creates a user with a single role and issues its first session,
// all in one transaction.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (domain.TokenPair, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if in.Role == "" {
		in.Role = domain.RoleUser
	}

	if err := validateRegistration(in); err != nil {
		s.Metrics.Registration(metrics.OutcomeFailure)
		return domain.TokenPair{}, err
	}

	hash, err := s.Hasher.Hash(in.Password)
	if err != nil {
		return domain.TokenPair{}, fmt.Errorf("hash password: %w", err)
	}

	now := s.now()
	user := domain.User{
		ID:           idx.NewAt(now).String(),
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	var pair domain.TokenPair
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Users().CreateUser(ctx, user); err != nil {
			if errors.Is(err, store.ErrAlreadyExists) {
				return domain.ErrDuplicateIdentity
			}
			return err
		}
		role, err := tx.Roles().GetRoleByName(ctx, in.Role)
		if err != nil {
			return fmt.Errorf("load role %q: %w", in.Role, err)
		}
		if err := tx.Roles().AssignRole(ctx, user.ID, role.ID); err != nil {
			return err
		}
		pair, _, err = s.Tokens.issuePair(ctx, tx, user.Principal([]string{role.Name}), now)
		return err
	})
	if errors.Is(err, domain.ErrDuplicateIdentity) {
		s.Metrics.Registration(metrics.OutcomeDuplicate)
		return domain.TokenPair{}, err
	}
	if err != nil {
		s.Metrics.Registration(metrics.OutcomeFailure)
		return domain.TokenPair{}, err
	}

	s.Metrics.Registration(metrics.OutcomeSuccess)
	s.emit(ctx, audit.Event{EventType: audit.EventRegister, UserID: user.ID, Success: true})
	slogx.FromContext(ctx).Info("user registered", slog.String("user_id", user.ID))
	return pair, nil
}

func validateRegistration(in RegisterInput) error {
	if !usernamePattern.MatchString(in.Username) {
		return fmt.Errorf("%w: username must be 3-32 letters, digits, '.', '_' or '-'", domain.ErrInvalidInput)
	}
	if addr, err := mail.ParseAddress(in.Email); err != nil || addr.Address != in.Email {
		return fmt.Errorf("%w: email is not valid", domain.ErrInvalidInput)
	}
	if err := validatePassword(in.Password); err != nil {
		return err
	}
	// Elevated roles are granted by an administrator, never self-assigned.
	if in.Role != domain.RoleUser {
		return fmt.Errorf("%w: role %q cannot be requested at registration", domain.ErrInvalidInput, in.Role)
	}
	return nil
}

func validatePassword(p string) error {
	if len(p) < minPasswordLength || len(p) > maxPasswordLength {
		return fmt.Errorf("%w: password must be %d-%d characters", domain.ErrInvalidInput, minPasswordLength, maxPasswordLength)
	}
	return nil
}
