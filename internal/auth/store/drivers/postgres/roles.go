package postgres

import (
	"context"
	"time"

	"github.com/aussiebroadwan/habitauth/internal/auth/domain"
)

type rolesRepo struct {
	db dbtx
}

type roleRow struct {
	ID        string    `db:"id"`
	Name      string    `db:"name"`
	CreatedAt time.Time `db:"created_at"`
}

func (r *rolesRepo) GetRoleByName(ctx context.Context, name string) (domain.Role, error) {
	var row roleRow
	if err := get(ctx, r.db, &row, `SELECT id, name, created_at FROM roles WHERE name = $1`, name); err != nil {
		return domain.Role{}, err
	}
	return domain.Role{ID: row.ID, Name: row.Name, CreatedAt: row.CreatedAt.UTC()}, nil
}

func (r *rolesRepo) CreateRole(ctx context.Context, role domain.Role) error {
	_, err := exec(ctx, r.db,
		`INSERT INTO roles (id, name, created_at) VALUES ($1, $2, $3)`, role.ID, role.Name, role.CreatedAt)
	return err
}

func (r *rolesRepo) AssignRole(ctx context.Context, userID, roleID string) error {
	_, err := exec(ctx, r.db,
		`INSERT INTO user_roles (user_id, role_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`, userID, roleID)
	return err
}

func (r *rolesRepo) ListUserRoles(ctx context.Context, userID string) ([]string, error) {
	var names []string
	err := selectAll(ctx, r.db, &names, `
		SELECT r.name FROM roles r
		JOIN user_roles ur ON ur.role_id = r.id
		WHERE ur.user_id = $1
		ORDER BY r.name`, userID)
	return names, err
}
