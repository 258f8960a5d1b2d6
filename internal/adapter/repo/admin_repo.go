package repo

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"draftdesk/internal/domain"
)

// AdminRepositoryPG implements domain.AdminRepository.
type AdminRepositoryPG struct {
	pool *pgxpool.Pool
}

// NewAdminRepository creates a new admin repository.
func NewAdminRepository(pool *pgxpool.Pool) *AdminRepositoryPG {
	return &AdminRepositoryPG{pool: pool}
}

// Create inserts a new operator account. A username collision surfaces as
// domain.ErrDuplicate.
func (r *AdminRepositoryPG) Create(ctx context.Context, admin *domain.Admin) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO admins (id, username, password_hash, role) VALUES ($1, $2, $3, $4);`,
		admin.ID,
		admin.Username,
		admin.PasswordHash,
		admin.Role,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.ErrDuplicate
		}
		return err
	}
	return nil
}

// GetByID fetches one operator account.
func (r *AdminRepositoryPG) GetByID(ctx context.Context, id string) (*domain.Admin, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, username, password_hash, role, created_at FROM admins WHERE id = $1;`,
		id,
	)
	return scanAdmin(row)
}

// GetByUsername fetches an operator account by its login name.
func (r *AdminRepositoryPG) GetByUsername(ctx context.Context, username string) (*domain.Admin, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, username, password_hash, role, created_at FROM admins WHERE username = $1;`,
		strings.TrimSpace(username),
	)
	return scanAdmin(row)
}

// List returns all operator accounts.
func (r *AdminRepositoryPG) List(ctx context.Context) ([]domain.Admin, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, username, password_hash, role, created_at FROM admins ORDER BY created_at ASC;`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Admin
	for rows.Next() {
		var a domain.Admin
		if err := rows.Scan(&a.ID, &a.Username, &a.PasswordHash, &a.Role, &a.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// Count reports how many operator accounts exist. Zero means initial setup
// has not run yet.
func (r *AdminRepositoryPG) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM admins;`).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func scanAdmin(row pgx.Row) (*domain.Admin, error) {
	var a domain.Admin
	if err := row.Scan(&a.ID, &a.Username, &a.PasswordHash, &a.Role, &a.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &a, nil
}
