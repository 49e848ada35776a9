package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/aussiebroadwan/habitauth/internal/auth/domain"
	"github.com/aussiebroadwan/habitauth/internal/auth/metrics"
	"github.com/aussiebroadwan/habitauth/internal/auth/service"
	"github.com/aussiebroadwan/habitauth/internal/auth/store"
	"github.com/aussiebroadwan/habitauth/pkg/httpx"
	"github.com/aussiebroadwan/habitauth/pkg/jwtx"
	"github.com/aussiebroadwan/habitauth/pkg/slogx"

	_ "github.com/aussiebroadwan/habitauth/api/auth" // Swagger docs
	httpSwagger "github.com/swaggo/http-swagger"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	keys         *jwtx.KeyManager
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	store                store.Store
	Metrics              *metrics.Metrics
	TokenService         *service.TokenService
	UserService          *service.UserService
	PasswordResetService *service.PasswordResetService
	KeyRotationService   *service.KeyRotationService
}

func NewRouter(
	keys *jwtx.KeyManager,
	buildVersion string,
	st store.Store,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		keys:         keys,
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		logger:       logger,
	}

	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerSession()
	r.registerPasswordReset()
	r.registerAdmin()
	r.registerSystem()

	r.Mux.Handle("/swagger/", httpSwagger.Handler())
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title			habitauth Session Service API
//	@version		0.1.0
//	@description	Session token lifecycle for the habit tracker: short-lived JWT access tokens and single-use rotating refresh tokens.
//	@description
//	@description				Access tokens are signed with EdDSA (or HS256) and can be verified using the JWKS endpoint.
//
//	@contact.name				AussieBroadWAN Team
//	@contact.url				https://github.com/aussiebroadwan/habitauth
//
//	@license.name				MIT
//	@license.url				https://opensource.org/licenses/MIT
//
//	@host						localhost:8080
//	@BasePath					/
//
//	@schemes					http https
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				JWT access token. Format: "Bearer {token}".
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerSession() {
	verifier := r.keys.Verifier

	// Credential endpoints - strict rate limit by IP
	r.Mux.Handle("POST /auth/login",
		httpx.Chain(&LoginHandler{UserService: r.UserService},
			httpx.RateLimitByIP(httpx.RateLimitFromEnv("LOGIN", httpx.StrictLimit)),
		),
	)
	r.Mux.Handle("POST /auth/register",
		httpx.Chain(&RegisterHandler{UserService: r.UserService},
			httpx.RateLimitByIP(httpx.RateLimitFromEnv("REGISTER", httpx.StrictLimit)),
		),
	)

	r.Mux.Handle("POST /auth/refresh-token",
		httpx.Chain(&RefreshHandler{TokenService: r.TokenService},
			httpx.RateLimitByIP(httpx.RateLimitFromEnv("REFRESH", httpx.RefreshLimit)),
		),
	)

	revoke := &RevokeHandler{TokenService: r.TokenService}
	r.Mux.Handle("POST /auth/revoke-refresh-token",
		httpx.Chain(http.HandlerFunc(revoke.HandleRevokeAll),
			httpx.AuthnMiddleware(verifier),
			httpx.RateLimitByUser(httpx.ModerateLimit),
		),
	)
	r.Mux.Handle("POST /auth/logout",
		httpx.Chain(http.HandlerFunc(revoke.HandleLogout),
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)

	r.Mux.Handle("GET /auth/me",
		httpx.Chain(MeHandler(),
			httpx.AuthnMiddleware(verifier),
			httpx.RateLimitByUser(httpx.ModerateLimit),
		),
	)

	r.Mux.Handle("GET /.well-known/jwks.json",
		httpx.Chain(JWKSHandler(r.keys.KeySet),
			httpx.RateLimitByIP(httpx.PublicLimit),
		),
	)
}

func (r *Router) registerPasswordReset() {
	h := &PasswordResetHandler{PasswordResetService: r.PasswordResetService}

	r.Mux.Handle("POST /auth/forgot-password",
		httpx.Chain(http.HandlerFunc(h.HandleForgot),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
	r.Mux.Handle("POST /auth/reset-password",
		httpx.Chain(http.HandlerFunc(h.HandleReset),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
}

func (r *Router) registerAdmin() {
	verifier := r.keys.Verifier
	revoke := &RevokeHandler{TokenService: r.TokenService}

	r.Mux.Handle("POST /auth/admin/users/{id}/revoke",
		httpx.Chain(http.HandlerFunc(revoke.HandleAdminRevokeUser),
			httpx.AuthnMiddleware(verifier),
			httpx.RequireAnyRole(domain.RoleAdmin),
			httpx.RateLimitByUser(httpx.ModerateLimit),
		),
	)

	if r.KeyRotationService != nil {
		h := &KeyRotationHandler{KeyRotationService: r.KeyRotationService}
		r.Mux.Handle("POST /auth/admin/keys/rotate",
			httpx.Chain(http.HandlerFunc(h.HandleRotate),
				httpx.AuthnMiddleware(verifier),
				httpx.RequireAnyRole(domain.RoleAdmin),
				httpx.RateLimitByUser(httpx.ModerateLimit),
			),
		)
	}
}

func (r *Router) registerSystem() {
	// Health check endpoints - monitoring systems may poll frequently
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			httpx.RateLimitByIP(httpx.PublicLimit),
		),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.store, r.keys),
			httpx.RateLimitByIP(httpx.PublicLimit),
		),
	)

	if r.Metrics != nil {
		r.Mux.Handle("GET /metrics", r.Metrics.Handler())
	}
}
