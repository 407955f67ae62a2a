package permissions

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/tsdip/backend/internal/models"
	"github.com/tsdip/backend/pkg/database"
)

// Repository resolves roles through the user_roles join.
type Repository struct {
	db database.Querier
}

// NewRepository creates a permissions repository.
func NewRepository(db database.Querier) *Repository {
	return &Repository{db: db}
}

// FindActiveRole returns the user's non-deleted role for the organization,
// or nil when none exists.
func (r *Repository) FindActiveRole(ctx context.Context, userID, orgID uuid.UUID) (*models.Role, error) {
	const q = `SELECT ro.id, ro.name, ro.org_id, ro.permission_id, ro.created_at, ro.updated_at
		FROM user_roles ur
		INNER JOIN roles ro ON ro.id = ur.role_id
		WHERE ur.user_id = $1 AND ro.org_id = $2
			AND ur.deleted_at IS NULL AND ro.deleted_at IS NULL
		ORDER BY ro.created_at
		LIMIT 1`
	var role models.Role
	err := r.db.QueryRow(ctx, q, userID, orgID).
		Scan(&role.ID, &role.Name, &role.OrgID, &role.PermissionID, &role.CreatedAt, &role.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &role, nil
}
