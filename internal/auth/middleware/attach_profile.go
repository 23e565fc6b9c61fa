package auth

import (
	"database/sql"
	"errors"
	"net/http"
	"strings"

	"github.com/ujianhub/ujianhub/internal/rbac"
)

// AttachProfileFromDB overrides the claim role and tier with the users
// table. Tier upgrades and role changes then take effect on the next
// request instead of waiting for the token to expire.
// allowClaimFallback=true in offline/dev setups where the users table
// may not exist yet.
func AttachProfileFromDB(db *sql.DB, allowClaimFallback bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			sub := SubjectFromContext(ctx)
			claimRole := rbac.RoleFromContext(ctx)

			var role, tier string
			err := db.QueryRowContext(ctx,
				`SELECT role, tier FROM users WHERE id=$1 OR username=$1`,
				sub,
			).Scan(&role, &tier)

			switch {
			case err == nil && role != "":
				ctx = rbac.WithRole(ctx, role)
				ctx = WithTier(ctx, tier)
				next.ServeHTTP(w, r.WithContext(ctx))
				return

			case errors.Is(err, sql.ErrNoRows) || isUsersTableMissing(err):
				if allowClaimFallback && claimRole != "" {
					next.ServeHTTP(w, r) // keep whatever JWTMiddleware set
					return
				}
				http.Error(w, "forbidden", http.StatusForbidden)
				return

			default:
				if allowClaimFallback && claimRole != "" {
					next.ServeHTTP(w, r)
					return
				}
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}
		})
	}
}

func isUsersTableMissing(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "no such table: users") || // sqlite
		strings.Contains(msg, `relation "users" does not exist`) // postgres
}
