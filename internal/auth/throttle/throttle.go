// Package throttle counts failed logins in Redis so lockouts hold across
// replicas of the auth service.
package throttle

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	ErrRateLimited      = errors.New("throttle: rate limited")
	ErrRedisUnavailable = errors.New("throttle: redis unavailable")
)

type Config struct {
	// MaxAttempts failed logins are allowed per window before Check fails.
	MaxAttempts int
	// Cooldown is the fixed window length, started by the first failure.
	Cooldown time.Duration
	// PerIP also counts failures per client IP.
	PerIP bool
}

// LoginLimiter implements fixed-window failed-login counting.
type LoginLimiter struct {
	redis  redis.UniversalClient
	config Config
}

func NewLoginLimiter(client redis.UniversalClient, cfg Config) *LoginLimiter {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 15 * time.Minute
	}
	return &LoginLimiter{redis: client, config: cfg}
}

// Check fails with ErrRateLimited when identifier or ip has used up its
// budget in the current window.
func (l *LoginLimiter) Check(ctx context.Context, identifier, ip string) error {
	for _, key := range l.keys(identifier, ip) {
		count, err := l.redis.Get(ctx, key).Int64()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
		if count >= int64(l.config.MaxAttempts) {
			return ErrRateLimited
		}
	}
	return nil
}

// RecordFailure counts one failed attempt.
func (l *LoginLimiter) RecordFailure(ctx context.Context, identifier, ip string) error {
	for _, key := range l.keys(identifier, ip) {
		count, err := l.redis.Incr(ctx, key).Result()
		if err != nil {
			return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
		// Fixed window: the TTL is set by the first hit only.
		if count == 1 {
			if err := l.redis.Expire(ctx, key, l.config.Cooldown).Err(); err != nil {
				return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
			}
		}
	}
	return nil
}

// Reset clears the identifier counter after a successful login. The IP
// counter is left alone so one valid account cannot launder attempts
// against others.
func (l *LoginLimiter) Reset(ctx context.Context, identifier string) error {
	if err := l.redis.Del(ctx, identifierKey(identifier)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

func (l *LoginLimiter) keys(identifier, ip string) []string {
	keys := []string{identifierKey(identifier)}
	if l.config.PerIP && ip != "" {
		keys = append(keys, "habitauth:login:ip:"+ip)
	}
	return keys
}

func identifierKey(identifier string) string {
	return "habitauth:login:id:" + strings.ToLower(strings.TrimSpace(identifier))
}
