package repo

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"draftdesk/internal/domain"
)

// ClientRepositoryPG implements domain.ClientRepository.
type ClientRepositoryPG struct {
	pool *pgxpool.Pool
}

// NewClientRepository creates a new client repository.
func NewClientRepository(pool *pgxpool.Pool) *ClientRepositoryPG {
	return &ClientRepositoryPG{pool: pool}
}

const clientColumns = `id, name, place_url, category, base_guide, keywords, default_style_id, memo, requires_confirmation, created_at`

// Create inserts a new client profile.
func (r *ClientRepositoryPG) Create(ctx context.Context, client *domain.Client) error {
	query := `
INSERT INTO clients (id, name, place_url, category, base_guide, keywords, default_style_id, memo, requires_confirmation)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9);
`
	_, err := r.pool.Exec(ctx, query,
		client.ID,
		client.Name,
		client.PlaceURL,
		client.Category,
		client.BaseGuide,
		client.Keywords,
		client.DefaultStyleID,
		client.Memo,
		client.RequiresConfirmation,
	)
	return err
}

// GetByID fetches one client.
func (r *ClientRepositoryPG) GetByID(ctx context.Context, id string) (*domain.Client, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+clientColumns+` FROM clients WHERE id = $1;`, id)
	client, err := scanClient(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return client, nil
}

// List returns all clients ordered by name.
func (r *ClientRepositoryPG) List(ctx context.Context) ([]domain.Client, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+clientColumns+` FROM clients ORDER BY name ASC;`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Client
	for rows.Next() {
		client, err := scanClient(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *client)
	}
	return out, rows.Err()
}

// Update overwrites the mutable client fields.
func (r *ClientRepositoryPG) Update(ctx context.Context, client *domain.Client) error {
	query := `
UPDATE clients
SET name = $2,
    place_url = $3,
    category = $4,
    base_guide = $5,
    keywords = $6,
    default_style_id = $7,
    memo = $8,
    requires_confirmation = $9
WHERE id = $1;
`
	tag, err := r.pool.Exec(ctx, query,
		client.ID,
		client.Name,
		client.PlaceURL,
		client.Category,
		client.BaseGuide,
		client.Keywords,
		client.DefaultStyleID,
		client.Memo,
		client.RequiresConfirmation,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Delete removes a client.
func (r *ClientRepositoryPG) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM clients WHERE id = $1;`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func scanClient(row pgx.Row) (*domain.Client, error) {
	var c domain.Client
	if err := row.Scan(
		&c.ID,
		&c.Name,
		&c.PlaceURL,
		&c.Category,
		&c.BaseGuide,
		&c.Keywords,
		&c.DefaultStyleID,
		&c.Memo,
		&c.RequiresConfirmation,
		&c.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &c, nil
}
