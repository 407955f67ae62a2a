package managers

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

// Repository handles manager persistence.
type Repository struct {
	db database.Querier
}

// NewRepository creates a managers repository.
func NewRepository(db database.Querier) *Repository {
	return &Repository{db: db}
}

// Create inserts a manager row.
func (r *Repository) Create(ctx context.Context, m *models.Manager) error {
	const q = `INSERT INTO managers (username, email, phone, password_hash)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at`
	err := r.db.QueryRow(ctx, q, m.Username, m.Email, m.Phone, m.Password).
		Scan(&m.ID, &m.CreatedAt, &m.UpdatedAt)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return apperr.DuplicateField("MANAGER_DATA_USED", "email, username, or phone has been used")
	}
	return err
}

// FindByID returns an active manager, or nil when absent.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Manager, error) {
	const q = `SELECT id, username, email, phone, password_hash, created_at, updated_at
		FROM managers WHERE id = $1 AND deleted_at IS NULL`
	return r.scanOne(r.db.QueryRow(ctx, q, id))
}

// FindByEmail returns an active manager by lower-cased email, or nil.
func (r *Repository) FindByEmail(ctx context.Context, email string) (*models.Manager, error) {
	const q = `SELECT id, username, email, phone, password_hash, created_at, updated_at
		FROM managers WHERE email = $1 AND deleted_at IS NULL`
	return r.scanOne(r.db.QueryRow(ctx, q, email))
}

func (r *Repository) scanOne(row pgx.Row) (*models.Manager, error) {
	var m models.Manager
	err := row.Scan(&m.ID, &m.Username, &m.Email, &m.Phone, &m.Password, &m.CreatedAt, &m.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}
