package service

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/aussiebroadwan/habitauth/internal/auth/domain"
	"github.com/aussiebroadwan/habitauth/internal/auth/metrics"
	"github.com/aussiebroadwan/habitauth/internal/auth/store/drivers/sqlite"
	"github.com/aussiebroadwan/habitauth/pkg/cryptox"
	"github.com/aussiebroadwan/habitauth/pkg/jwtx"
)

const (
	testIssuer   = "habitauth-test"
	testPassword = "correct horse battery"
)

var testAudience = []string{"habit-app"}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type captureNotifier struct {
	mu     sync.Mutex
	tokens map[string]string
}

func (n *captureNotifier) NotifyPasswordReset(_ context.Context, user domain.User, token string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.tokens == nil {
		n.tokens = map[string]string{}
	}
	n.tokens[user.Email] = token
	return nil
}

func (n *captureNotifier) token(email string) string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.tokens[email]
}

type fixture struct {
	store    *sqlite.Store
	clock    *fakeClock
	keys     *jwtx.KeyManager
	metrics  *metrics.Metrics
	tokens   *TokenService
	users    *UserService
	resets   *PasswordResetService
	notifier *captureNotifier
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	s, err := sqlite.NewStore(filepath.Join(t.TempDir(), "auth.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.ApplyMigrations())

	clock := &fakeClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	keys, err := jwtx.NewEphemeralKeyManager(jwtx.KeyManagerOptions{
		Algorithm: jwtx.AlgorithmEdDSA,
		Issuer:    testIssuer,
		Audience:  testAudience,
		NumKeys:   1,
		Now:       clock.Now,
	})
	require.NoError(t, err)

	m := metrics.New()
	hasher := cryptox.MultiHasher{
		Primary: cryptox.Argon2Hasher{Pepper: "test-pepper"},
		Legacy:  []cryptox.SecretHasher{cryptox.BcryptHasher{Cost: bcrypt.MinCost}},
	}

	tokens := &TokenService{
		Store:        s,
		KeyManager:   keys,
		Issuer:       testIssuer,
		Audience:     testAudience,
		AccessTTL:    jwtx.DefaultAccessTokenTTL,
		RefreshTTL:   jwtx.DefaultRefreshTokenTTL,
		ReplayWindow: time.Hour,
		Now:          clock.Now,
		Metrics:      m,
	}
	notifier := &captureNotifier{}

	return &fixture{
		store:   s,
		clock:   clock,
		keys:    keys,
		metrics: m,
		tokens:  tokens,
		users: &UserService{
			Store:   s,
			Tokens:  tokens,
			Hasher:  hasher,
			Now:     clock.Now,
			Metrics: m,
		},
		resets: &PasswordResetService{
			Store:    s,
			Tokens:   tokens,
			Hasher:   hasher,
			Notifier: notifier,
			Now:      clock.Now,
		},
		notifier: notifier,
	}
}

func (f *fixture) register(t *testing.T, username string) domain.TokenPair {
	t.Helper()
	pair, err := f.users.Register(context.Background(), RegisterInput{
		Username: username,
		Email:    username + "@example.com",
		Password: testPassword,
	})
	require.NoError(t, err)
	return pair
}

// counterValue reads a counter from the registry. labelValue selects the
// series of a single-label vector; empty matches the first series.
func counterValue(t *testing.T, m *metrics.Metrics, name, labelValue string) float64 {
	t.Helper()
	families, err := m.Gatherer().Gather()
	require.NoError(t, err)

	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, metric := range mf.GetMetric() {
			labels := metric.GetLabel()
			if labelValue == "" || (len(labels) > 0 && labels[0].GetValue() == labelValue) {
				return metric.GetCounter().GetValue()
			}
		}
	}
	return 0
}
