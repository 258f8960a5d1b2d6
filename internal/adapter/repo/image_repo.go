package repo

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"draftdesk/internal/domain"
)

// JobImageRepositoryPG implements domain.JobImageRepository.
type JobImageRepositoryPG struct {
	pool *pgxpool.Pool
}

// NewJobImageRepository creates a new job image repository.
func NewJobImageRepository(pool *pgxpool.Pool) *JobImageRepositoryPG {
	return &JobImageRepositoryPG{pool: pool}
}

// Create inserts one uploaded image record.
func (r *JobImageRepositoryPG) Create(ctx context.Context, image *domain.JobImage) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO job_images (id, job_id, storage_path) VALUES ($1, $2, $3);`,
		image.ID, image.JobID, image.StoragePath,
	)
	return err
}

// ListByJob returns the images of one job in upload order.
func (r *JobImageRepositoryPG) ListByJob(ctx context.Context, jobID string) ([]domain.JobImage, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, job_id, storage_path, created_at FROM job_images WHERE job_id = $1 ORDER BY created_at ASC;`,
		jobID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.JobImage
	for rows.Next() {
		var img domain.JobImage
		if err := rows.Scan(&img.ID, &img.JobID, &img.StoragePath, &img.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, img)
	}
	return out, rows.Err()
}

// ListOlderThan returns image records created before the cutoff. The sweeper
// uses this to remove the files before deleting the rows.
func (r *JobImageRepositoryPG) ListOlderThan(ctx context.Context, cutoff time.Time) ([]domain.JobImage, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, job_id, storage_path, created_at FROM job_images WHERE created_at < $1;`,
		cutoff,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.JobImage
	for rows.Next() {
		var img domain.JobImage
		if err := rows.Scan(&img.ID, &img.JobID, &img.StoragePath, &img.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, img)
	}
	return out, rows.Err()
}

// DeleteOlderThan removes image rows created before the cutoff and reports
// how many were deleted.
func (r *JobImageRepositoryPG) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM job_images WHERE created_at < $1;`, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
