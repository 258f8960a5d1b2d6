package domain

import (
	"context"
	"time"
)

// JobWithClient is a job row joined with the owning client's display fields.
type JobWithClient struct {
	Job
	ClientName           *string
	RequiresConfirmation bool
}

// JobRepository defines persistence for job entities.
type JobRepository interface {
	Create(ctx context.Context, job *Job) error
	GetByID(ctx context.Context, id string) (*Job, error)
	List(ctx context.Context, clientID string) ([]JobWithClient, error)
	ListByBatch(ctx context.Context, batchID string) ([]JobWithClient, error)
	SetProcessing(ctx context.Context, id string) error
	MarkDone(ctx context.Context, id string, completedAt time.Time) error
	MarkFailed(ctx context.Context, id string, message string) error
	ResetForRetry(ctx context.Context, id string) error
	MarkDownloaded(ctx context.Context, id, downloadedBy string, at time.Time) (*Job, error)
	Delete(ctx context.Context, id string) error
}

// JobImageRepository handles persistence for uploaded job photos.
type JobImageRepository interface {
	Create(ctx context.Context, image *JobImage) error
	ListByJob(ctx context.Context, jobID string) ([]JobImage, error)
	ListOlderThan(ctx context.Context, cutoff time.Time) ([]JobImage, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// ArticleRepository handles persistence for generated articles. Upsert keeps
// the article strictly one-per-job.
type ArticleRepository interface {
	Upsert(ctx context.Context, article *Article) error
	GetByJob(ctx context.Context, jobID string) (*Article, error)
	DeleteByJob(ctx context.Context, jobID string) error
	ContentByJobs(ctx context.Context, jobIDs []string) (map[string]string, error)
}

// ClientRepository defines access methods for client businesses.
type ClientRepository interface {
	Create(ctx context.Context, client *Client) error
	GetByID(ctx context.Context, id string) (*Client, error)
	List(ctx context.Context) ([]Client, error)
	Update(ctx context.Context, client *Client) error
	Delete(ctx context.Context, id string) error
}

// StylePresetRepository defines access methods for style presets.
type StylePresetRepository interface {
	Create(ctx context.Context, preset *StylePreset) error
	GetByID(ctx context.Context, id string) (*StylePreset, error)
	List(ctx context.Context, clientID string) ([]StylePreset, error)
}

// AdminRepository defines access methods for operator accounts.
type AdminRepository interface {
	Create(ctx context.Context, admin *Admin) error
	GetByID(ctx context.Context, id string) (*Admin, error)
	GetByUsername(ctx context.Context, username string) (*Admin, error)
	List(ctx context.Context) ([]Admin, error)
	Count(ctx context.Context) (int, error)
}
