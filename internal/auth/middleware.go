package auth

import (
	"context"
	"net/http"
	"slices"
	"strings"

	"github.com/bimerz/portal-service/internal/customer/entity"
	"github.com/bimerz/portal-service/internal/httpx"
	"github.com/bimerz/portal-service/internal/principal"
)

// Role sets per area of the API. admin is in every set.
var (
	CustomerAreaRoles    = []string{entity.RoleAdmin, entity.RoleAdmin2}
	PolicyAreaRoles      = []string{entity.RoleAdmin, entity.RoleAdmin2}
	InstallmentAreaRoles = []string{entity.RoleAdmin, entity.RoleAdmin2}
	BlogAreaRoles        = []string{entity.RoleAdmin, entity.RoleAdmin3}
	AdminOnlyRoles       = []string{entity.RoleAdmin}
	SelfServiceRoles     = []string{entity.RoleCustomer, entity.RoleAdmin}
	StaffRoles           = []string{entity.RoleAdmin, entity.RoleAdmin2, entity.RoleAdmin3}
)

// Verifier checks a bearer token; *AuthService implements it.
type Verifier interface {
	Verify(ctx context.Context, token string) (principal.Principal, error)
}

// BearerToken extracts the token of an "Authorization: Bearer" header.
func BearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) < 7 || !strings.EqualFold(h[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(h[7:])
}

// Require admits requests with a valid token whose role is in roles; no roles
// admits any signed-in caller. It answers 401 for a missing, invalid or
// revoked token and 403 for a role outside the set.
func Require(v Verifier, roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tok := BearerToken(r)
			if tok == "" {
				httpx.WriteError(w, http.StatusUnauthorized, "missing token")
				return
			}
			p, err := v.Verify(r.Context(), tok)
			if err != nil {
				httpx.WriteError(w, http.StatusUnauthorized, "invalid token")
				return
			}
			if len(roles) > 0 && !slices.Contains(roles, p.Role) {
				httpx.WriteError(w, http.StatusForbidden, "forbidden")
				return
			}
			next.ServeHTTP(w, r.WithContext(principal.WithContext(r.Context(), p)))
		})
	}
}
