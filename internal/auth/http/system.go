package http

import (
	"net/http"
	"time"

	"github.com/aussiebroadwan/habitauth/internal/auth/store"
	"github.com/aussiebroadwan/habitauth/pkg/authsdk"
	"github.com/aussiebroadwan/habitauth/pkg/httpx"
	"github.com/aussiebroadwan/habitauth/pkg/jwtx"
	"github.com/aussiebroadwan/habitauth/pkg/slogx"
)

// jwksMaxAge lets resource servers cache the key set. Rotated keys are added
// before they sign, so a cached set only misses keys younger than this.
const jwksMaxAge = 5 * time.Minute

// LivezHandler godoc
//
//	@Summary		Liveness probe
//	@Description	Returns 200 while the process is running.
//	@Tags			Health
//	@Produce		json
//	@Success		200	{object}	authsdk.HealthResponse
//	@Router			/livez [get].
func LivezHandler(startTime time.Time, version string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, authsdk.HealthResponse{
			Status:  "ok",
			Uptime:  time.Since(startTime).Round(time.Second).String(),
			Version: version,
		})
	}
}

// ReadyzHandler godoc
//
//	@Summary		Readiness probe
//	@Description	Reports whether credentials can be issued: the refresh store answers and at least one signing key is active.
//	@Tags			Health
//	@Produce		json
//	@Success		200	{object}	authsdk.HealthResponse
//	@Failure		503	{object}	authsdk.HealthResponse	"degraded"
//	@Router			/readyz [get].
func ReadyzHandler(startTime time.Time, version string, st store.Store, keys *jwtx.KeyManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := authsdk.HealthResponse{
			Status:  "ok",
			Uptime:  time.Since(startTime).Round(time.Second).String(),
			Version: version,
			Checks: &authsdk.HealthChecks{
				Database:   "ok",
				Signer:     "ok",
				ActiveKeys: keys.NumSigners(),
			},
		}

		if err := st.Ping(r.Context()); err != nil {
			slogx.FromContext(r.Context()).Warn("readiness: database ping failed", "error", err)
			resp.Checks.Database = "unreachable"
			resp.Status = "degraded"
		}
		if !keys.IsReady() {
			resp.Checks.Signer = "no active signing key"
			resp.Status = "degraded"
		}

		code := http.StatusOK
		if resp.Status != "ok" {
			code = http.StatusServiceUnavailable
		}
		httpx.WriteJSON(w, code, resp)
	}
}

// JWKSHandler godoc
//
//	@Summary		JSON Web Key Set
//	@Description	Public keys for verifying access tokens. Retired keys stay listed until the tokens they signed expire.
//	@Tags			Health
//	@Produce		json
//	@Success		200	{object}	authsdk.JWKSResponse
//	@Router			/.well-known/jwks.json [get].
func JWKSHandler(keys *jwtx.KeySet) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteCachedJSON(w, http.StatusOK, jwksMaxAge, authsdk.JWKSResponse(keys.PublicJWKS()))
	}
}
