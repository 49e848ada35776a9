package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aussiebroadwan/habitauth/internal/auth/store"
	"github.com/aussiebroadwan/habitauth/pkg/cryptox"
	"github.com/aussiebroadwan/habitauth/pkg/jwtx"
)

// InitAuthKeys creates the KeyManager for the configured algorithm and key
// mode.
//
// Key modes:
//   - "ephemeral": keys live in memory only. Every issued access token
//     becomes unverifiable when the service restarts.
//   - "persistent": keys are sealed with AUTH_MASTER_KEY and stored in the
//     database, so access tokens survive restarts and rotation keeps retired
//     keys verifying.
func InitAuthKeys(ctx context.Context, cfg Config, db store.Store, logger *slog.Logger) (*jwtx.KeyManager, error) {
	opts := jwtx.KeyManagerOptions{
		Algorithm: cfg.Algorithm,
		Issuer:    cfg.Issuer,
		Audience:  cfg.Audience,
		NumKeys:   cfg.NumKeys,
	}

	var (
		keyManager *jwtx.KeyManager
		err        error
	)

	switch cfg.KeyMode {
	case KeyModePersistent:
		sealer, err := cryptox.NewKeySealer([]byte(cfg.MasterKey))
		if err != nil {
			return nil, fmt.Errorf("master key: %w", err)
		}

		keyManager, err = jwtx.NewPersistentKeyManager(ctx, jwtx.PersistentKeyManagerOptions{
			KeyManagerOptions: opts,
			Store:             store.NewKeyStoreAdapter(db),
			Sealer:            sealer,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize persistent key manager: %w", err)
		}

		logger.Info("persistent signing keys loaded",
			"algorithm", keyManager.Algorithm(),
			"num_keys", keyManager.NumSigners(),
			"issuer", cfg.Issuer,
		)

	default:
		keyManager, err = jwtx.NewEphemeralKeyManager(opts)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize ephemeral key manager: %w", err)
		}

		logger.Info("generated ephemeral signing keys",
			"algorithm", keyManager.Algorithm(),
			"num_keys", keyManager.NumSigners(),
			"issuer", cfg.Issuer,
		)
		logger.Warn("access tokens issued before this start are no longer verifiable")
	}

	return keyManager, nil
}

// InitPasswordHasher loads (or creates) the pepper and returns the hasher
// used for account passwords. Argon2id is primary; bcrypt hashes imported
// from the previous tracker are verified and upgraded on login.
func InitPasswordHasher(cfg Config) (cryptox.MultiHasher, error) {
	pepper, err := cryptox.LoadOrCreatePepper(cfg.PepperFile)
	if err != nil {
		return cryptox.MultiHasher{}, err
	}
	return cryptox.MultiHasher{
		Primary: cryptox.Argon2Hasher{Pepper: pepper},
		Legacy:  []cryptox.SecretHasher{cryptox.BcryptHasher{}},
	}, nil
}
