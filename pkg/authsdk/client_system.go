package authsdk

import (
	"context"
	"net/http"
)

// GetLiveness reports whether the service process is up.
func (c *Client) GetLiveness(ctx context.Context) (*HealthResponse, error) {
	return c.health(ctx, PathLivez)
}

// GetReadiness reports whether the service can issue and rotate tokens. A
// degraded service answers 503, which is returned as an *APIError.
func (c *Client) GetReadiness(ctx context.Context) (*HealthResponse, error) {
	return c.health(ctx, PathReadyz)
}

func (c *Client) health(ctx context.Context, path string) (*HealthResponse, error) {
	var health HealthResponse
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &health, http.StatusOK); err != nil {
		return nil, err
	}
	return &health, nil
}

// GetJWKS fetches the public keys resource servers verify access tokens
// with. Keys of HS256 deployments are never published.
func (c *Client) GetJWKS(ctx context.Context) (*JWKSResponse, error) {
	var jwks JWKSResponse
	if err := c.doJSON(ctx, http.MethodGet, PathJWKS, nil, &jwks, http.StatusOK); err != nil {
		return nil, err
	}
	return &jwks, nil
}
