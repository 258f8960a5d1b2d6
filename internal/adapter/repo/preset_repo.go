package repo

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"draftdesk/internal/domain"
)

// StylePresetRepositoryPG implements domain.StylePresetRepository.
type StylePresetRepositoryPG struct {
	pool *pgxpool.Pool
}

// NewStylePresetRepository creates a new style preset repository.
func NewStylePresetRepository(pool *pgxpool.Pool) *StylePresetRepositoryPG {
	return &StylePresetRepositoryPG{pool: pool}
}

// Create inserts a new preset.
func (r *StylePresetRepositoryPG) Create(ctx context.Context, preset *domain.StylePreset) error {
	query := `
INSERT INTO style_presets (id, client_id, tone, length_hint, platform, extra_rules)
VALUES ($1, $2, $3, $4, $5, $6);
`
	_, err := r.pool.Exec(ctx, query,
		preset.ID,
		preset.ClientID,
		preset.Tone,
		preset.LengthHint,
		preset.Platform,
		preset.ExtraRules,
	)
	return err
}

// GetByID fetches one preset.
func (r *StylePresetRepositoryPG) GetByID(ctx context.Context, id string) (*domain.StylePreset, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, client_id, tone, length_hint, platform, extra_rules, created_at FROM style_presets WHERE id = $1;`,
		id,
	)
	var p domain.StylePreset
	if err := row.Scan(&p.ID, &p.ClientID, &p.Tone, &p.LengthHint, &p.Platform, &p.ExtraRules, &p.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

// List returns presets, optionally restricted to one client. Global presets
// (no client) are always included.
func (r *StylePresetRepositoryPG) List(ctx context.Context, clientID string) ([]domain.StylePreset, error) {
	query := `
SELECT id, client_id, tone, length_hint, platform, extra_rules, created_at
FROM style_presets
WHERE $1 = '' OR client_id IS NULL OR client_id = $1
ORDER BY created_at DESC;
`
	rows, err := r.pool.Query(ctx, query, clientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.StylePreset
	for rows.Next() {
		var p domain.StylePreset
		if err := rows.Scan(&p.ID, &p.ClientID, &p.Tone, &p.LengthHint, &p.Platform, &p.ExtraRules, &p.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
