package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/aussiebroadwan/habitauth/internal/auth/audit"
	"github.com/aussiebroadwan/habitauth/internal/auth/domain"
	"github.com/aussiebroadwan/habitauth/internal/auth/metrics"
	"github.com/aussiebroadwan/habitauth/internal/auth/store"
	"github.com/aussiebroadwan/habitauth/pkg/cryptox"
	"github.com/aussiebroadwan/habitauth/pkg/idx"
	"github.com/aussiebroadwan/habitauth/pkg/jwtx"
	"github.com/aussiebroadwan/habitauth/pkg/slogx"
)

const tokenTypeBearer = "Bearer"

// TokenService issues, rotates and revokes session credentials.
type TokenService struct {
	Store      store.Store
	KeyManager *jwtx.KeyManager
	Issuer     string
	Audience   []string
	AccessTTL  time.Duration
	RefreshTTL time.Duration

	// ReplayWindow is how long after a rotation a second presentation of
	// the consumed credential revokes every session of its owner. Zero
	// disables replay handling.
	ReplayWindow time.Duration

	Now     func() time.Time
	Metrics *metrics.Metrics
	Audit   audit.Emitter
}

func (s *TokenService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

func (s *TokenService) emit(ctx context.Context, e audit.Event) {
	if s.Audit == nil {
		return
	}
	e.Timestamp = s.now()
	s.Audit.Emit(ctx, e)
}

// IssueAccessCredential signs a short-lived JWT for p and returns it with
// its expiry.
func (s *TokenService) IssueAccessCredential(p domain.Principal) (string, time.Time, error) {
	return s.issueAccess(p, s.now())
}

func (s *TokenService) issueAccess(p domain.Principal, now time.Time) (string, time.Time, error) {
	signer, err := s.KeyManager.CurrentSigner()
	if err != nil {
		return "", time.Time{}, fmt.Errorf("%w: %v", domain.ErrSigningUnavailable, err)
	}

	claims := jwtx.NewAccessClaims(jwtx.Principal{
		ID:    p.ID,
		Name:  p.Username,
		Email: p.Email,
		Roles: p.Roles,
	}, s.Issuer, s.Audience, s.AccessTTL, now)

	token, err := signer.Sign(claims)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("%w: %v", domain.ErrSigningUnavailable, err)
	}
	return token, claims.ExpiresAt.Time, nil
}

// IssueRefreshCredential returns a fresh opaque refresh credential. It only
// fails when the system random source does.
func (s *TokenService) IssueRefreshCredential() (string, error) {
	token, err := cryptox.GenerateToken(cryptox.TokenSize512)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrSigningUnavailable, err)
	}
	return token, nil
}

// IssuePair mints an access and refresh credential for p and persists the
// refresh record through tx, which the caller commits.
func (s *TokenService) IssuePair(ctx context.Context, tx store.Store, p domain.Principal) (domain.TokenPair, error) {
	pair, _, err := s.issuePair(ctx, tx, p, s.now())
	return pair, err
}

func (s *TokenService) issuePair(ctx context.Context, tx store.Store, p domain.Principal, now time.Time) (domain.TokenPair, string, error) {
	start := time.Now()
	defer func() { s.Metrics.ObserveIssue(time.Since(start)) }()

	access, accessExp, err := s.issueAccess(p, now)
	if err != nil {
		return domain.TokenPair{}, "", err
	}
	refresh, err := s.IssueRefreshCredential()
	if err != nil {
		return domain.TokenPair{}, "", err
	}

	rec := domain.RefreshToken{
		ID:        idx.NewAt(now).String(),
		UserID:    p.ID,
		TokenHash: cryptox.FingerprintToken(refresh),
		CreatedAt: now,
		ExpiresAt: now.Add(s.RefreshTTL),
	}
	if err := tx.RefreshTokens().CreateRefreshToken(ctx, rec); err != nil {
		return domain.TokenPair{}, "", fmt.Errorf("store refresh token: %w", err)
	}

	return domain.TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		TokenType:        tokenTypeBearer,
		ExpiresAt:        accessExp,
		RefreshExpiresAt: rec.ExpiresAt,
	}, rec.ID, nil
}

// Rotate exchanges a refresh credential for a new pair. The credential is
// consumed with a compare-and-swap inside one transaction together with
// the new record, so of any number of concurrent callers presenting the
// same credential exactly one succeeds. Losers, expired and revoked
// credentials all yield ErrRefreshExpiredOrRevoked.
func (s *TokenService) Rotate(ctx context.Context, presented string) (domain.TokenPair, error) {
	l := slogx.FromContext(ctx)

	if !cryptox.WellFormedToken(presented, cryptox.TokenSize512) {
		s.Metrics.Rotation(metrics.OutcomeMalformed)
		return domain.TokenPair{}, domain.ErrMalformedRefreshToken
	}

	hash := cryptox.FingerprintToken(presented)
	now := s.now()

	var (
		pair     domain.TokenPair
		userID   string
		outcome  error
		replayed bool
		revoked  int64
	)

	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		consumed, err := tx.RefreshTokens().ConsumeRefreshToken(ctx, hash, now)
		if errors.Is(err, store.ErrNotFound) {
			rec, err := tx.RefreshTokens().GetRefreshTokenByHash(ctx, hash)
			if errors.Is(err, store.ErrNotFound) {
				return domain.ErrRefreshNotFound
			}
			if err != nil {
				return err
			}
			if !rec.RotatedWithin(now, s.ReplayWindow) {
				return domain.ErrRefreshExpiredOrRevoked
			}

			// Commit the family revocation but still fail the caller.
			n, err := tx.RefreshTokens().RevokeAllForUser(ctx, rec.UserID, now)
			if err != nil {
				return err
			}
			userID, replayed, revoked = rec.UserID, true, n
			outcome = domain.ErrRefreshExpiredOrRevoked
			return nil
		}
		if err != nil {
			return err
		}

		user, err := tx.Users().GetUserByID(ctx, consumed.UserID)
		if errors.Is(err, store.ErrNotFound) {
			// Keep the consumed record revoked.
			outcome = domain.ErrRefreshNotFound
			return nil
		}
		if err != nil {
			return err
		}
		roles, err := tx.Roles().ListUserRoles(ctx, user.ID)
		if err != nil {
			return err
		}

		var next string
		pair, next, err = s.issuePair(ctx, tx, user.Principal(roles), now)
		if err != nil {
			return err
		}
		userID = user.ID
		return tx.RefreshTokens().SetReplacedBy(ctx, consumed.ID, next)
	})
	if err == nil {
		err = outcome
	}

	switch {
	case replayed:
		l.Warn("refresh token replay detected, revoked all sessions",
			slog.String("user_id", userID), slog.Int64("revoked", revoked))
		s.Metrics.ReplayDetected()
		s.Metrics.Revoked(revoked)
		s.Metrics.Rotation(metrics.OutcomeExpiredRevoked)
		s.emit(ctx, audit.Event{
			EventType: audit.EventReplayDetected,
			UserID:    userID,
			Metadata:  map[string]string{"revoked": strconv.FormatInt(revoked, 10)},
		})
	case errors.Is(err, domain.ErrRefreshNotFound):
		s.Metrics.Rotation(metrics.OutcomeNotFound)
	case errors.Is(err, domain.ErrRefreshExpiredOrRevoked):
		s.Metrics.Rotation(metrics.OutcomeExpiredRevoked)
	case err != nil:
		s.Metrics.Rotation(metrics.OutcomeFailure)
	default:
		s.Metrics.Rotation(metrics.OutcomeSuccess)
		s.emit(ctx, audit.Event{EventType: audit.EventRefreshRotated, UserID: userID, Success: true})
	}

	if err != nil {
		return domain.TokenPair{}, err
	}
	return pair, nil
}

// RevokeAll revokes every live refresh record of userID and reports how
// many changed. Calling it again returns zero.
func (s *TokenService) RevokeAll(ctx context.Context, userID string) (int64, error) {
	n, err := s.Store.RefreshTokens().RevokeAllForUser(ctx, userID, s.now())
	if err != nil {
		return 0, fmt.Errorf("revoke all: %w", err)
	}

	s.Metrics.Revoked(n)
	s.emit(ctx, audit.Event{
		EventType: audit.EventRevokeAll,
		UserID:    userID,
		Success:   true,
		Metadata:  map[string]string{"revoked": strconv.FormatInt(n, 10)},
	})
	slogx.FromContext(ctx).Info("revoked refresh tokens", slog.String("user_id", userID), slog.Int64("revoked", n))
	return n, nil
}

// RevokeOne revokes a single presented refresh credential. Unknown or
// already revoked credentials are not an error.
func (s *TokenService) RevokeOne(ctx context.Context, presented string) error {
	if !cryptox.WellFormedToken(presented, cryptox.TokenSize512) {
		return domain.ErrMalformedRefreshToken
	}
	if err := s.Store.RefreshTokens().RevokeRefreshToken(ctx, cryptox.FingerprintToken(presented), s.now()); err != nil {
		return fmt.Errorf("revoke: %w", err)
	}
	s.emit(ctx, audit.Event{EventType: audit.EventRevokeOne, Success: true})
	return nil
}
