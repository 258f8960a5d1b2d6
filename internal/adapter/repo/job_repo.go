package repo

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"draftdesk/internal/domain"
)

// JobRepositoryPG implements domain.JobRepository.
type JobRepositoryPG struct {
	pool *pgxpool.Pool
}

// NewJobRepository creates a new job repository backed by PostgreSQL.
func NewJobRepository(pool *pgxpool.Pool) *JobRepositoryPG {
	return &JobRepositoryPG{pool: pool}
}

const jobColumns = `id, client_id, style_preset_id, guide_text, extra_prompt, content_type, length_hint,
status, error_message, created_by, batch_id, downloaded_by, downloaded_at, created_at, completed_at`

// Create inserts a new job record in the pending state.
func (r *JobRepositoryPG) Create(ctx context.Context, job *domain.Job) error {
	query := `
INSERT INTO jobs (id, client_id, style_preset_id, guide_text, extra_prompt, content_type, length_hint, status, created_by, batch_id)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10);
`
	_, err := r.pool.Exec(ctx, query,
		job.ID,
		job.ClientID,
		job.StylePresetID,
		job.GuideText,
		job.ExtraPrompt,
		job.ContentType,
		job.LengthHint,
		job.Status,
		job.CreatedBy,
		job.BatchID,
	)
	return err
}

// GetByID fetches a job by its identifier.
func (r *JobRepositoryPG) GetByID(ctx context.Context, id string) (*domain.Job, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = $1;`, id)
	job, err := scanJob(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return job, nil
}

// List returns jobs newest first, optionally filtered by client, each joined
// with the owning client's display fields.
func (r *JobRepositoryPG) List(ctx context.Context, clientID string) ([]domain.JobWithClient, error) {
	query := `
SELECT j.id, j.client_id, j.style_preset_id, j.guide_text, j.extra_prompt, j.content_type, j.length_hint,
       j.status, j.error_message, j.created_by, j.batch_id, j.downloaded_by, j.downloaded_at, j.created_at, j.completed_at,
       c.name, COALESCE(c.requires_confirmation, FALSE)
FROM jobs j
LEFT JOIN clients c ON c.id = j.client_id
WHERE ($1 = '' OR j.client_id = $1)
ORDER BY j.created_at DESC;
`
	rows, err := r.pool.Query(ctx, query, clientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanJobsWithClient(rows)
}

// ListByBatch returns the jobs created together under one batch submission.
func (r *JobRepositoryPG) ListByBatch(ctx context.Context, batchID string) ([]domain.JobWithClient, error) {
	query := `
SELECT j.id, j.client_id, j.style_preset_id, j.guide_text, j.extra_prompt, j.content_type, j.length_hint,
       j.status, j.error_message, j.created_by, j.batch_id, j.downloaded_by, j.downloaded_at, j.created_at, j.completed_at,
       c.name, COALESCE(c.requires_confirmation, FALSE)
FROM jobs j
LEFT JOIN clients c ON c.id = j.client_id
WHERE j.batch_id = $1
ORDER BY j.created_at ASC;
`
	rows, err := r.pool.Query(ctx, query, batchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanJobsWithClient(rows)
}

// SetProcessing moves a job into the processing state.
func (r *JobRepositoryPG) SetProcessing(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `UPDATE jobs SET status = 'processing' WHERE id = $1;`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// MarkDone records successful completion.
func (r *JobRepositoryPG) MarkDone(ctx context.Context, id string, completedAt time.Time) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE jobs SET status = 'done', error_message = NULL, completed_at = $2 WHERE id = $1;`,
		id, completedAt,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// MarkFailed records the failure message and moves the job to error.
func (r *JobRepositoryPG) MarkFailed(ctx context.Context, id string, message string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE jobs SET status = 'error', error_message = $2 WHERE id = $1;`,
		id, message,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ResetForRetry returns a failed job to pending and clears its error.
func (r *JobRepositoryPG) ResetForRetry(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE jobs SET status = 'pending', error_message = NULL, completed_at = NULL WHERE id = $1;`,
		id,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// MarkDownloaded stamps who exported the article and when, then returns the
// updated row.
func (r *JobRepositoryPG) MarkDownloaded(ctx context.Context, id, downloadedBy string, at time.Time) (*domain.Job, error) {
	query := `
UPDATE jobs SET downloaded_by = $2, downloaded_at = $3
WHERE id = $1
RETURNING ` + jobColumns + `;`
	row := r.pool.QueryRow(ctx, query, id, downloadedBy, at)
	job, err := scanJob(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return job, nil
}

// Delete removes the job row. Articles and images cascade via foreign keys.
func (r *JobRepositoryPG) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM jobs WHERE id = $1;`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func scanJob(row pgx.Row) (*domain.Job, error) {
	var job domain.Job
	if err := row.Scan(
		&job.ID,
		&job.ClientID,
		&job.StylePresetID,
		&job.GuideText,
		&job.ExtraPrompt,
		&job.ContentType,
		&job.LengthHint,
		&job.Status,
		&job.ErrorMessage,
		&job.CreatedBy,
		&job.BatchID,
		&job.DownloadedBy,
		&job.DownloadedAt,
		&job.CreatedAt,
		&job.CompletedAt,
	); err != nil {
		return nil, err
	}
	return &job, nil
}

func scanJobsWithClient(rows pgx.Rows) ([]domain.JobWithClient, error) {
	var out []domain.JobWithClient
	for rows.Next() {
		var item domain.JobWithClient
		if err := rows.Scan(
			&item.ID,
			&item.ClientID,
			&item.StylePresetID,
			&item.GuideText,
			&item.ExtraPrompt,
			&item.ContentType,
			&item.LengthHint,
			&item.Status,
			&item.ErrorMessage,
			&item.CreatedBy,
			&item.BatchID,
			&item.DownloadedBy,
			&item.DownloadedAt,
			&item.CreatedAt,
			&item.CompletedAt,
			&item.ClientName,
			&item.RequiresConfirmation,
		); err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, rows.Err()
}
