package httpx

import (
	"context"

	"github.com/aussiebroadwan/habitauth/pkg/jwtx"
)

type ctxKey string

const ctxKeyPrincipal ctxKey = "principal"

// ContextWithPrincipal stores the verified principal for downstream handlers.
func ContextWithPrincipal(ctx context.Context, p jwtx.Principal) context.Context {
	return context.WithValue(ctx, ctxKeyPrincipal, p)
}

// PrincipalFromContext returns the principal set by AuthnMiddleware.
func PrincipalFromContext(ctx context.Context) (jwtx.Principal, bool) {
	p, ok := ctx.Value(ctxKeyPrincipal).(jwtx.Principal)
	return p, ok
}
