package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/habitauth/internal/auth/audit"
	"github.com/aussiebroadwan/habitauth/internal/auth/domain"
	"github.com/aussiebroadwan/habitauth/internal/auth/store"
	"github.com/aussiebroadwan/habitauth/pkg/cryptox"
	"github.com/aussiebroadwan/habitauth/pkg/idx"
	"github.com/aussiebroadwan/habitauth/pkg/slogx"
)

const DefaultResetTTL = time.Hour

// ResetNotifier delivers a password reset token to the account owner.
type ResetNotifier interface {
	NotifyPasswordReset(ctx context.Context, user domain.User, token string) error
}

// LogNotifier writes reset tokens to the log. It is only suitable for
// development; with Reveal unset it logs that a reset was issued and nothing
// else.
type LogNotifier struct {
	Reveal bool
}

func (n LogNotifier) NotifyPasswordReset(ctx context.Context, user domain.User, token string) error {
	l := slogx.FromContext(ctx).With(slog.String("user_id", user.ID))
	if n.Reveal {
		l.Info("password reset issued", slog.String("reset_token", token))
		return nil
	}
	l.Info("password reset issued")
	return nil
}

type PasswordResetService struct {
	Store    store.Store
	Tokens   *TokenService
	Hasher   PasswordHasher
	Notifier ResetNotifier
	TTL      time.Duration
	Now      func() time.Time
	Audit    audit.Emitter
}

func (s *PasswordResetService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

// RequestReset issues a reset token for the account with email. An unknown
// email is not an error so the endpoint cannot be used to probe accounts.
func (s *PasswordResetService) RequestReset(ctx context.Context, email string) error {
	user, err := s.Store.Users().GetUserByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("lookup user: %w", err)
	}

	token, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return err
	}

	ttl := s.TTL
	if ttl <= 0 {
		ttl = DefaultResetTTL
	}
	now := s.now()
	if err := s.Store.PasswordResets().CreatePasswordReset(ctx, domain.PasswordReset{
		ID:        idx.NewAt(now).String(),
		UserID:    user.ID,
		TokenHash: cryptox.FingerprintToken(token),
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}); err != nil {
		return fmt.Errorf("store reset: %w", err)
	}

	if s.Audit != nil {
		s.Audit.Emit(ctx, audit.Event{Timestamp: now, EventType: audit.EventPasswordResetReq, UserID: user.ID, Success: true})
	}
	return s.Notifier.NotifyPasswordReset(ctx, user, token)
}

// ResetPassword consumes a reset token, sets the new password and revokes
// every refresh record of the user in one transaction.
func (s *PasswordResetService) ResetPassword(ctx context.Context, token, password string) error {
	if !cryptox.WellFormedToken(token, cryptox.TokenSize256) {
		return domain.ErrInvalidResetToken
	}
	if err := validatePassword(password); err != nil {
		return err
	}

	hash, err := s.Hasher.Hash(password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	now := s.now()
	var (
		userID  string
		revoked int64
	)
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		reset, err := tx.PasswordResets().ConsumePasswordReset(ctx, cryptox.FingerprintToken(token), now)
		if errors.Is(err, store.ErrNotFound) {
			return domain.ErrInvalidResetToken
		}
		if err != nil {
			return err
		}
		if err := tx.Users().UpdatePasswordHash(ctx, reset.UserID, hash, now); err != nil {
			return err
		}
		userID = reset.UserID
		revoked, err = tx.RefreshTokens().RevokeAllForUser(ctx, reset.UserID, now)
		return err
	})
	if err != nil {
		return err
	}

	s.Tokens.Metrics.Revoked(revoked)
	if s.Audit != nil {
		s.Audit.Emit(ctx, audit.Event{Timestamp: now, EventType: audit.EventPasswordReset, UserID: userID, Success: true})
	}
	slogx.FromContext(ctx).Info("password reset", slog.String("user_id", userID), slog.Int64("revoked", revoked))
	return nil
}
