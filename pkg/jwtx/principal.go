package jwtx

import (
	"slices"
	"strings"
)

// Principal is the typed identity carried by a verified access token.
type Principal struct {
	ID    string
	Name  string
	Email string
	Roles []string
}

// PrincipalFromClaims converts verified claims into a Principal. It performs
// no signature checks and must only be given claims returned by a Verifier.
func PrincipalFromClaims(c Claims) (Principal, error) {
	if strings.TrimSpace(c.Subject) == "" {
		return Principal{}, ErrInvalidClaim
	}

	roles := make([]string, 0, len(c.Roles))
	for _, r := range c.Roles {
		if r = strings.TrimSpace(r); r != "" && !slices.Contains(roles, r) {
			roles = append(roles, r)
		}
	}

	return Principal{
		ID:    c.Subject,
		Name:  c.Name,
		Email: c.Email,
		Roles: roles,
	}, nil
}

// HasAnyRole reports whether p holds at least one of roles.
func (p Principal) HasAnyRole(roles ...string) bool {
	for _, r := range roles {
		if slices.Contains(p.Roles, r) {
			return true
		}
	}
	return false
}
