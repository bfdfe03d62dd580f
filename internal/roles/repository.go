package roles

import (
	"context"
	"errors"

	"dinescout_backend/platform/apperr"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository reads the role-administration service's tables. This worker
// deployment shares the platform database, so the lookup is a direct query
// rather than an HTTP call.
type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// GetUserRoles resolves the platform user ID and current role names for an
// identity-provider ID.
func (r *Repository) GetUserRoles(ctx context.Context, identityID string) (UserRoles, error) {
	var out UserRoles
	err := r.pool.QueryRow(ctx, `
		SELECT u.id::text,
		       COALESCE(array_agg(ro.name) FILTER (WHERE ro.name IS NOT NULL), '{}')
		FROM users u
		LEFT JOIN user_roles ur ON ur.user_id = u.id
		LEFT JOIN roles ro ON ro.id = ur.role_id
		WHERE u.identity_id = $1
		GROUP BY u.id
	`, identityID).Scan(&out.SystemUserID, &out.Roles)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return UserRoles{}, apperr.NotFound("user not found").WithOp("GetUserRoles")
		}
		return UserRoles{}, apperr.Wrap(apperr.KindUnavailable, "role lookup failed", err).WithOp("GetUserRoles")
	}
	return out, nil
}

// Compile-time check that Repository implements Lookup
var _ Lookup = (*Repository)(nil)
