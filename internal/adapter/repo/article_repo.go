package repo

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"draftdesk/internal/domain"
)

// ArticleRepositoryPG implements domain.ArticleRepository.
type ArticleRepositoryPG struct {
	pool *pgxpool.Pool
}

// NewArticleRepository creates a new article repository.
func NewArticleRepository(pool *pgxpool.Pool) *ArticleRepositoryPG {
	return &ArticleRepositoryPG{pool: pool}
}

// Upsert writes the article for a job. The job_id unique constraint makes a
// rerun replace the previous output instead of accumulating rows.
func (r *ArticleRepositoryPG) Upsert(ctx context.Context, article *domain.Article) error {
	query := `
INSERT INTO articles (id, job_id, client_id, content, raw_prompt, model_name)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (job_id) DO UPDATE
SET content = EXCLUDED.content,
    raw_prompt = EXCLUDED.raw_prompt,
    model_name = EXCLUDED.model_name,
    created_at = NOW();
`
	_, err := r.pool.Exec(ctx, query,
		article.ID,
		article.JobID,
		article.ClientID,
		article.Content,
		article.RawPrompt,
		article.ModelName,
	)
	return err
}

// GetByJob fetches the article generated for a job.
func (r *ArticleRepositoryPG) GetByJob(ctx context.Context, jobID string) (*domain.Article, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, job_id, client_id, content, raw_prompt, model_name, created_at FROM articles WHERE job_id = $1;`,
		jobID,
	)
	var a domain.Article
	if err := row.Scan(&a.ID, &a.JobID, &a.ClientID, &a.Content, &a.RawPrompt, &a.ModelName, &a.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &a, nil
}

// DeleteByJob removes the article of a job, if any.
func (r *ArticleRepositoryPG) DeleteByJob(ctx context.Context, jobID string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM articles WHERE job_id = $1;`, jobID)
	return err
}

// ContentByJobs returns article text keyed by job id for list views that
// inline the generated content.
func (r *ArticleRepositoryPG) ContentByJobs(ctx context.Context, jobIDs []string) (map[string]string, error) {
	if len(jobIDs) == 0 {
		return map[string]string{}, nil
	}
	rows, err := r.pool.Query(ctx,
		`SELECT job_id, content FROM articles WHERE job_id = ANY($1);`,
		jobIDs,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]string, len(jobIDs))
	for rows.Next() {
		var jobID, content string
		if err := rows.Scan(&jobID, &content); err != nil {
			return nil, err
		}
		out[jobID] = content
	}
	return out, rows.Err()
}
