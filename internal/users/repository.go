package users

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/tsdip/backend/internal/apperr"
	"github.com/tsdip/backend/internal/models"
	"github.com/tsdip/backend/pkg/database"
)

const pgUniqueViolation = "23505"

// Repository handles user persistence.
type Repository struct {
	db database.Querier
}

// NewRepository creates a users repository.
func NewRepository(db database.Querier) *Repository {
	return &Repository{db: db}
}

// Create inserts a user row. Email, username, and phone collisions with
// active rows surface as a duplicate-field error.
func (r *Repository) Create(ctx context.Context, u *models.User) error {
	const q = `INSERT INTO users (username, email, phone, password_hash)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at`
	err := r.db.QueryRow(ctx, q, u.Username, u.Email, u.Phone, u.Password).
		Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return apperr.DuplicateField("USER_DATA_USED", "email, username, or phone has been used")
	}
	return err
}

// FindByID returns an active user, or nil when absent.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	const q = `SELECT id, username, email, phone, password_hash, created_at, updated_at
		FROM users WHERE id = $1 AND deleted_at IS NULL`
	return r.scanOne(r.db.QueryRow(ctx, q, id))
}

// FindByEmail returns an active user by lower-cased email, or nil.
func (r *Repository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	const q = `SELECT id, username, email, phone, password_hash, created_at, updated_at
		FROM users WHERE email = $1 AND deleted_at IS NULL`
	return r.scanOne(r.db.QueryRow(ctx, q, email))
}

// Update persists mutable profile fields.
func (r *Repository) Update(ctx context.Context, u *models.User) error {
	const q = `UPDATE users SET username = $2, email = $3, phone = $4, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL`
	_, err := r.db.Exec(ctx, q, u.ID, u.Username, u.Email, u.Phone)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return apperr.DuplicateField("USER_DATA_USED", "email, username, or phone has been used")
	}
	return err
}

func (r *Repository) scanOne(row pgx.Row) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.Phone, &u.Password, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}
