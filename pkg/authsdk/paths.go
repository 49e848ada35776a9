package authsdk

import (
	"net/url"
	"strings"
)

// Service endpoints.
const (
	PathLogin              = "/auth/login"
	PathRegister           = "/auth/register"
	PathRefreshToken       = "/auth/refresh-token"
	PathRevokeRefreshToken = "/auth/revoke-refresh-token"
	PathLogout             = "/auth/logout"
	PathForgotPassword     = "/auth/forgot-password"
	PathResetPassword      = "/auth/reset-password"
	PathMe                 = "/auth/me"
	PathAdminRotateKeys    = "/auth/admin/keys/rotate"

	PathLivez  = "/livez"
	PathReadyz = "/readyz"
	PathJWKS   = "/.well-known/jwks.json"
)

// anonymousPaths never carry an Authorization header and never trigger a
// refresh, even when they answer 401.
var anonymousPaths = []string{
	PathLogin,
	PathRegister,
	PathForgotPassword,
	PathResetPassword,
	PathRefreshToken,
	PathLogout,
}

// IsAnonymous reports whether path is an endpoint that must be called
// without an access token. Trailing slashes are ignored.
func IsAnonymous(path string) bool {
	path = strings.TrimSuffix(path, "/")
	for _, p := range anonymousPaths {
		if strings.EqualFold(path, p) {
			return true
		}
	}
	return false
}

func adminRevokeUserPath(userID string) string {
	return "/auth/admin/users/" + url.PathEscape(userID) + "/revoke"
}
