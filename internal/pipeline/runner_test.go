package pipeline

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"draftdesk/internal/domain"
)

type fakeJobRepo struct {
	mu          sync.Mutex
	jobs        map[string]*domain.Job
	transitions []string
}

func (f *fakeJobRepo) record(status string) { f.transitions = append(f.transitions, status) }

func (f *fakeJobRepo) Create(ctx context.Context, job *domain.Job) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.jobs[job.ID] = job
	return nil
}

func (f *fakeJobRepo) GetByID(ctx context.Context, id string) (*domain.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.jobs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *job
	return &cp, nil
}

func (f *fakeJobRepo) List(ctx context.Context, clientID string) ([]domain.JobWithClient, error) {
	return nil, nil
}

func (f *fakeJobRepo) ListByBatch(ctx context.Context, batchID string) ([]domain.JobWithClient, error) {
	return nil, nil
}

func (f *fakeJobRepo) SetProcessing(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.jobs[id]
	if !ok {
		return domain.ErrNotFound
	}
	job.Status = domain.JobStatusProcessing
	f.record("processing")
	return nil
}

func (f *fakeJobRepo) MarkDone(ctx context.Context, id string, completedAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.jobs[id]
	if !ok {
		return domain.ErrNotFound
	}
	job.Status = domain.JobStatusDone
	job.CompletedAt = &completedAt
	f.record("done")
	return nil
}

func (f *fakeJobRepo) MarkFailed(ctx context.Context, id string, message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.jobs[id]
	if !ok {
		return domain.ErrNotFound
	}
	job.Status = domain.JobStatusError
	job.ErrorMessage = &message
	f.record("error")
	return nil
}

func (f *fakeJobRepo) ResetForRetry(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.jobs[id]
	if !ok {
		return domain.ErrNotFound
	}
	job.Status = domain.JobStatusPending
	job.ErrorMessage = nil
	f.record("pending")
	return nil
}

func (f *fakeJobRepo) MarkDownloaded(ctx context.Context, id, by string, at time.Time) (*domain.Job, error) {
	return nil, domain.ErrNotFound
}

func (f *fakeJobRepo) Delete(ctx context.Context, id string) error { return nil }

type fakeImageRepo struct {
	images []domain.JobImage
}

func (f *fakeImageRepo) Create(ctx context.Context, image *domain.JobImage) error { return nil }

func (f *fakeImageRepo) ListByJob(ctx context.Context, jobID string) ([]domain.JobImage, error) {
	return f.images, nil
}

func (f *fakeImageRepo) ListOlderThan(ctx context.Context, cutoff time.Time) ([]domain.JobImage, error) {
	return nil, nil
}

func (f *fakeImageRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	return 0, nil
}

type fakeArticleRepo struct {
	mu       sync.Mutex
	upserts  []*domain.Article
	deleted  []string
	upsertFn func(*domain.Article) error
}

func (f *fakeArticleRepo) Upsert(ctx context.Context, article *domain.Article) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.upsertFn != nil {
		if err := f.upsertFn(article); err != nil {
			return err
		}
	}
	f.upserts = append(f.upserts, article)
	return nil
}

func (f *fakeArticleRepo) GetByJob(ctx context.Context, jobID string) (*domain.Article, error) {
	return nil, domain.ErrNotFound
}

func (f *fakeArticleRepo) DeleteByJob(ctx context.Context, jobID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, jobID)
	return nil
}

func (f *fakeArticleRepo) ContentByJobs(ctx context.Context, jobIDs []string) (map[string]string, error) {
	return nil, nil
}

type fakeClientRepo struct {
	clients map[string]*domain.Client
}

func (f *fakeClientRepo) Create(ctx context.Context, c *domain.Client) error { return nil }

func (f *fakeClientRepo) GetByID(ctx context.Context, id string) (*domain.Client, error) {
	c, ok := f.clients[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return c, nil
}

func (f *fakeClientRepo) List(ctx context.Context) ([]domain.Client, error)  { return nil, nil }
func (f *fakeClientRepo) Update(ctx context.Context, c *domain.Client) error { return nil }
func (f *fakeClientRepo) Delete(ctx context.Context, id string) error        { return nil }

type fakePresetRepo struct {
	presets map[string]*domain.StylePreset
}

func (f *fakePresetRepo) Create(ctx context.Context, p *domain.StylePreset) error { return nil }

func (f *fakePresetRepo) GetByID(ctx context.Context, id string) (*domain.StylePreset, error) {
	p, ok := f.presets[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return p, nil
}

func (f *fakePresetRepo) List(ctx context.Context, clientID string) ([]domain.StylePreset, error) {
	return nil, nil
}

type fakeStore struct {
	files map[string][]byte
}

func (f *fakeStore) Read(ctx context.Context, key string) ([]byte, error) {
	data, ok := f.files[key]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return data, nil
}

type stubDescriber struct {
	descriptions []string
	gotImages    int
}

func (s *stubDescriber) Describe(ctx context.Context, images [][]byte) []string {
	s.gotImages = len(images)
	return s.descriptions
}

type stubGenerator struct {
	mu      sync.Mutex
	content string
	err     error
	prompts []string
	started chan struct{} // optional, signaled once on first call
	release chan struct{} // optional, blocks until closed
	calls   int
}

func (s *stubGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	s.mu.Lock()
	s.prompts = append(s.prompts, prompt)
	s.calls++
	first := s.calls == 1
	s.mu.Unlock()
	if s.started != nil && first {
		close(s.started)
	}
	if s.release != nil {
		<-s.release
	}
	if s.err != nil {
		return "", s.err
	}
	return s.content, nil
}

type runnerFixture struct {
	runner   *Runner
	jobs     *fakeJobRepo
	articles *fakeArticleRepo
	gen      *stubGenerator
}

func newRunnerFixture(gen *stubGenerator) *runnerFixture {
	guide := "신메뉴 위주로"
	jobs := &fakeJobRepo{jobs: map[string]*domain.Job{
		"job-1": {
			ID:          "job-1",
			ClientID:    "client-1",
			GuideText:   guide,
			ContentType: domain.ContentTypeReview,
			LengthHint:  1000,
			Status:      domain.JobStatusPending,
		},
	}}
	articles := &fakeArticleRepo{}
	clients := &fakeClientRepo{clients: map[string]*domain.Client{
		"client-1": {ID: "client-1", Name: "소소카페"},
	}}
	runner := NewRunner(RunnerOptions{
		Jobs:      jobs,
		Images:    &fakeImageRepo{},
		Articles:  articles,
		Clients:   clients,
		Presets:   &fakePresetRepo{},
		Store:     &fakeStore{},
		Describer: &stubDescriber{},
		Generator: gen,
		Model:     "claude-sonnet-4-5-20250929",
		NewRand:   func() *rand.Rand { return rand.New(rand.NewSource(7)) },
		Logger:    zerolog.Nop(),
	})
	return &runnerFixture{runner: runner, jobs: jobs, articles: articles, gen: gen}
}

func waitDone(t *testing.T, h *Handle) {
	t.Helper()
	select {
	case <-h.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("job did not finish in time")
	}
}

func TestDispatchHappyPath(t *testing.T) {
	fix := newRunnerFixture(&stubGenerator{content: "완성된 원고"})

	h, err := fix.runner.Dispatch("job-1")
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	waitDone(t, h)

	if h.Err() != nil {
		t.Fatalf("job error: %v", h.Err())
	}
	job := fix.jobs.jobs["job-1"]
	if job.Status != domain.JobStatusDone {
		t.Fatalf("status = %q, want done", job.Status)
	}
	if job.CompletedAt == nil {
		t.Fatal("completed_at not set")
	}
	if len(fix.articles.upserts) != 1 {
		t.Fatalf("article upserts = %d, want 1", len(fix.articles.upserts))
	}
	article := fix.articles.upserts[0]
	if article.Content != "완성된 원고" {
		t.Fatalf("article content = %q", article.Content)
	}
	if article.RawPrompt == "" || article.ModelName != "claude-sonnet-4-5-20250929" {
		t.Fatal("article must carry the raw prompt and model name")
	}
	want := []string{"processing", "done"}
	if len(fix.jobs.transitions) != len(want) {
		t.Fatalf("transitions = %v, want %v", fix.jobs.transitions, want)
	}
	for i, tr := range want {
		if fix.jobs.transitions[i] != tr {
			t.Fatalf("transitions = %v, want %v", fix.jobs.transitions, want)
		}
	}
}

func TestDispatchGenerationFailureMarksError(t *testing.T) {
	genErr := errors.New("article generation failed after 10 attempts")
	fix := newRunnerFixture(&stubGenerator{err: genErr})

	h, err := fix.runner.Dispatch("job-1")
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	waitDone(t, h)

	if !errors.Is(h.Err(), genErr) {
		t.Fatalf("handle err = %v, want generation error", h.Err())
	}
	job := fix.jobs.jobs["job-1"]
	if job.Status != domain.JobStatusError {
		t.Fatalf("status = %q, want error", job.Status)
	}
	if job.ErrorMessage == nil || *job.ErrorMessage == "" {
		t.Fatal("error message not recorded")
	}
	if len(fix.articles.upserts) != 0 {
		t.Fatal("no article should be written on failure")
	}
}

func TestDispatchUpsertFailureMarksError(t *testing.T) {
	fix := newRunnerFixture(&stubGenerator{content: "원고"})
	fix.articles.upsertFn = func(*domain.Article) error { return errors.New("db down") }

	h, err := fix.runner.Dispatch("job-1")
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	waitDone(t, h)

	if h.Err() == nil {
		t.Fatal("expected upsert failure to surface")
	}
	if fix.jobs.jobs["job-1"].Status != domain.JobStatusError {
		t.Fatal("persistence failure must end in error state")
	}
}

func TestDispatchSingleFlight(t *testing.T) {
	gen := &stubGenerator{
		content: "원고",
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	fix := newRunnerFixture(gen)

	first, err := fix.runner.Dispatch("job-1")
	if err != nil {
		t.Fatalf("first dispatch: %v", err)
	}
	<-gen.started

	second, err := fix.runner.Dispatch("job-1")
	if !errors.Is(err, domain.ErrAlreadyRunning) {
		t.Fatalf("second dispatch err = %v, want ErrAlreadyRunning", err)
	}
	if second != first {
		t.Fatal("second dispatch must return the in-flight handle")
	}

	close(gen.release)
	waitDone(t, first)
	if gen.calls != 1 {
		t.Fatalf("generator ran %d times, want 1", gen.calls)
	}
}

func TestRetryOnlyFromErrorState(t *testing.T) {
	fix := newRunnerFixture(&stubGenerator{content: "원고"})

	if _, err := fix.runner.Retry(context.Background(), "job-1"); !errors.Is(err, domain.ErrNotRetryable) {
		t.Fatalf("retry of pending job err = %v, want ErrNotRetryable", err)
	}

	msg := "boom"
	fix.jobs.jobs["job-1"].Status = domain.JobStatusError
	fix.jobs.jobs["job-1"].ErrorMessage = &msg

	h, err := fix.runner.Retry(context.Background(), "job-1")
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	waitDone(t, h)

	if got := fix.jobs.jobs["job-1"].Status; got != domain.JobStatusDone {
		t.Fatalf("status after retry = %q, want done", got)
	}
	if len(fix.articles.deleted) != 1 || fix.articles.deleted[0] != "job-1" {
		t.Fatal("stale article must be deleted before retry")
	}
}
