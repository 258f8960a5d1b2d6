package pipeline

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"draftdesk/internal/domain"
	"draftdesk/internal/infra"
)

// BlobStore is the slice of the storage layer the pipeline needs.
type BlobStore interface {
	Read(ctx context.Context, key string) ([]byte, error)
}

// ImageDescriber produces impression notes for a set of normalized images.
type ImageDescriber interface {
	Describe(ctx context.Context, images [][]byte) []string
}

// ArticleGenerator produces the final article text from an assembled prompt.
type ArticleGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Handle tracks one dispatched job. Done is closed when the job reaches a
// terminal state; Err reports the processing error, if any, after that.
type Handle struct {
	done chan struct{}
	err  error
}

func (h *Handle) Done() <-chan struct{} { return h.done }

// Err must only be called after Done is closed.
func (h *Handle) Err() error { return h.err }

// Runner drives jobs through the generation pipeline. Concurrency is bounded
// by a weighted semaphore and each job runs at most once at a time.
type Runner struct {
	jobs     domain.JobRepository
	images   domain.JobImageRepository
	articles domain.ArticleRepository
	clients  domain.ClientRepository
	presets  domain.StylePresetRepository

	store     BlobStore
	describer ImageDescriber
	generator ArticleGenerator
	model     string

	sem     *semaphore.Weighted
	newRand func() *rand.Rand
	logger  infra.Logger

	inflight sync.Map // job id -> *Handle
}

// RunnerOptions configures a Runner. MaxConcurrent defaults to 4 and NewRand
// to a time-seeded source when unset.
type RunnerOptions struct {
	Jobs          domain.JobRepository
	Images        domain.JobImageRepository
	Articles      domain.ArticleRepository
	Clients       domain.ClientRepository
	Presets       domain.StylePresetRepository
	Store         BlobStore
	Describer     ImageDescriber
	Generator     ArticleGenerator
	Model         string
	MaxConcurrent int
	NewRand       func() *rand.Rand
	Logger        infra.Logger
}

func NewRunner(opts RunnerOptions) *Runner {
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = 4
	}
	if opts.NewRand == nil {
		opts.NewRand = func() *rand.Rand {
			return rand.New(rand.NewSource(time.Now().UnixNano()))
		}
	}
	return &Runner{
		jobs:      opts.Jobs,
		images:    opts.Images,
		articles:  opts.Articles,
		clients:   opts.Clients,
		presets:   opts.Presets,
		store:     opts.Store,
		describer: opts.Describer,
		generator: opts.Generator,
		model:     opts.Model,
		sem:       semaphore.NewWeighted(int64(opts.MaxConcurrent)),
		newRand:   opts.NewRand,
		logger:    opts.Logger,
	}
}

// Dispatch schedules the job for background processing and returns a handle
// the caller can wait on. Dispatching a job that is already in flight
// returns the existing handle with domain.ErrAlreadyRunning.
func (r *Runner) Dispatch(jobID string) (*Handle, error) {
	h := &Handle{done: make(chan struct{})}
	if prev, loaded := r.inflight.LoadOrStore(jobID, h); loaded {
		return prev.(*Handle), domain.ErrAlreadyRunning
	}

	go func() {
		defer r.inflight.Delete(jobID)
		defer close(h.done)

		ctx := context.Background()
		if err := r.sem.Acquire(ctx, 1); err != nil {
			h.err = err
			return
		}
		defer r.sem.Release(1)

		h.err = r.run(ctx, jobID)
	}()
	return h, nil
}

// Retry re-queues a failed job. Only jobs in the error state are eligible;
// the previous article and error message are cleared before re-dispatch.
func (r *Runner) Retry(ctx context.Context, jobID string) (*Handle, error) {
	job, err := r.jobs.GetByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.Status != domain.JobStatusError {
		return nil, domain.ErrNotRetryable
	}
	if _, running := r.inflight.Load(jobID); running {
		return nil, domain.ErrAlreadyRunning
	}
	if err := r.articles.DeleteByJob(ctx, jobID); err != nil {
		return nil, err
	}
	if err := r.jobs.ResetForRetry(ctx, jobID); err != nil {
		return nil, err
	}
	return r.Dispatch(jobID)
}

// run executes the pipeline and writes exactly one terminal status. The
// processing outcome is computed first; status persistence uses a fresh
// context so cancellation cannot strand a job in processing.
func (r *Runner) run(ctx context.Context, jobID string) error {
	if err := r.jobs.SetProcessing(ctx, jobID); err != nil {
		return err
	}

	procErr := r.process(ctx, jobID)

	writeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if procErr != nil {
		r.logger.Error().Err(procErr).Str("job_id", jobID).Msg("job failed")
		if err := r.jobs.MarkFailed(writeCtx, jobID, procErr.Error()); err != nil {
			r.logger.Error().Err(err).Str("job_id", jobID).Msg("mark failed did not persist")
		}
		return procErr
	}
	if err := r.jobs.MarkDone(writeCtx, jobID, time.Now().UTC()); err != nil {
		r.logger.Error().Err(err).Str("job_id", jobID).Msg("mark done did not persist")
		return err
	}
	r.logger.Info().Str("job_id", jobID).Msg("job completed")
	return nil
}

func (r *Runner) process(ctx context.Context, jobID string) error {
	job, err := r.jobs.GetByID(ctx, jobID)
	if err != nil {
		return err
	}
	client, err := r.clients.GetByID(ctx, job.ClientID)
	if err != nil {
		return err
	}

	var preset *domain.StylePreset
	if job.StylePresetID != nil {
		preset, err = r.presets.GetByID(ctx, *job.StylePresetID)
		if err != nil {
			// Preset lookup failures fall back to category styling.
			r.logger.Warn().Err(err).Str("job_id", jobID).Msg("style preset unavailable")
			preset = nil
		}
	}

	descriptions := r.describer.Describe(ctx, r.loadImages(ctx, jobID))

	prompt := BuildPrompt(r.newRand(), PromptInput{
		ClientName:        client.Name,
		PlaceURL:          deref(client.PlaceURL),
		Category:          deref(client.Category),
		GuideText:         job.GuideText,
		Keywords:          client.KeywordList(),
		ContentType:       job.ContentType,
		LengthHint:        job.LengthHint,
		ImageDescriptions: descriptions,
		ExtraPrompt:       deref(job.ExtraPrompt),
		StylePreset:       preset,
	})

	content, err := r.generator.Generate(ctx, prompt)
	if err != nil {
		return err
	}

	return r.articles.Upsert(ctx, &domain.Article{
		ID:        uuid.NewString(),
		JobID:     jobID,
		ClientID:  job.ClientID,
		Content:   content,
		RawPrompt: prompt,
		ModelName: r.model,
		CreatedAt: time.Now().UTC(),
	})
}

// loadImages reads and normalizes job images. Unreadable or oversized images
// are skipped so a bad upload never blocks the whole job.
func (r *Runner) loadImages(ctx context.Context, jobID string) [][]byte {
	records, err := r.images.ListByJob(ctx, jobID)
	if err != nil {
		r.logger.Warn().Err(err).Str("job_id", jobID).Msg("listing job images failed")
		return nil
	}
	var normalized [][]byte
	for _, rec := range records {
		raw, err := r.store.Read(ctx, rec.StoragePath)
		if err != nil {
			r.logger.Warn().Err(err).Str("path", rec.StoragePath).Msg("reading image failed, skipping")
			continue
		}
		data, ok := NormalizeImage(raw, r.logger)
		if !ok {
			r.logger.Warn().Str("path", rec.StoragePath).Msg("image exceeds size ceiling, skipping")
			continue
		}
		normalized = append(normalized, data)
	}
	return normalized
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
