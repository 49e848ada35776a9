package postgres

import (
	"context"
	"time"

	"github.com/aussiebroadwan/habitauth/internal/auth/domain"
	"github.com/aussiebroadwan/habitauth/internal/auth/store"
)

type usersRepo struct {
	db dbtx
}

type userRow struct {
	ID           string    `db:"id"`
	Username     string    `db:"username"`
	Email        string    `db:"email"`
	PasswordHash string    `db:"password_hash"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

func (r userRow) domain() domain.User {
	return domain.User{
		ID:           r.ID,
		Username:     r.Username,
		Email:        r.Email,
		PasswordHash: r.PasswordHash,
		CreatedAt:    r.CreatedAt.UTC(),
		UpdatedAt:    r.UpdatedAt.UTC(),
	}
}

const selectUser = `SELECT id, username, email, password_hash, created_at, updated_at FROM users `

func (r *usersRepo) GetUserByID(ctx context.Context, id string) (domain.User, error) {
	var row userRow
	if err := get(ctx, r.db, &row, selectUser+`WHERE id = $1`, id); err != nil {
		return domain.User{}, err
	}
	return row.domain(), nil
}

func (r *usersRepo) GetUserByUsername(ctx context.Context, username string) (domain.User, error) {
	var row userRow
	if err := get(ctx, r.db, &row, selectUser+`WHERE lower(username) = lower($1)`, username); err != nil {
		return domain.User{}, err
	}
	return row.domain(), nil
}

func (r *usersRepo) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	var row userRow
	if err := get(ctx, r.db, &row, selectUser+`WHERE lower(email) = lower($1)`, email); err != nil {
		return domain.User{}, err
	}
	return row.domain(), nil
}

func (r *usersRepo) CreateUser(ctx context.Context, u domain.User) error {
	_, err := exec(ctx, r.db, `
		INSERT INTO users (id, username, email, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		u.ID, u.Username, u.Email, u.PasswordHash, u.CreatedAt, u.UpdatedAt)
	return err
}

func (r *usersRepo) UpdatePasswordHash(ctx context.Context, userID, hash string, now time.Time) error {
	n, err := exec(ctx, r.db,
		`UPDATE users SET password_hash = $1, updated_at = $2 WHERE id = $3`, hash, now, userID)
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}
