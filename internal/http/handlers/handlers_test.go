package handlers

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"draftdesk/internal/domain"
	"draftdesk/internal/pipeline"
)

// In-memory doubles for the repositories, shared by the handler tests.

type memJobs struct {
	mu   sync.Mutex
	rows map[string]*domain.Job
}

func newMemJobs() *memJobs { return &memJobs{rows: map[string]*domain.Job{}} }

func (m *memJobs) Create(ctx context.Context, job *domain.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *job
	cp.CreatedAt = time.Now().UTC()
	m.rows[job.ID] = &cp
	return nil
}

func (m *memJobs) GetByID(ctx context.Context, id string) (*domain.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.rows[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *job
	return &cp, nil
}

func (m *memJobs) List(ctx context.Context, clientID string) ([]domain.JobWithClient, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.JobWithClient
	for _, job := range m.rows {
		if clientID != "" && job.ClientID != clientID {
			continue
		}
		out = append(out, domain.JobWithClient{Job: *job})
	}
	return out, nil
}

func (m *memJobs) ListByBatch(ctx context.Context, batchID string) ([]domain.JobWithClient, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.JobWithClient
	for _, job := range m.rows {
		if job.BatchID != nil && *job.BatchID == batchID {
			out = append(out, domain.JobWithClient{Job: *job})
		}
	}
	return out, nil
}

func (m *memJobs) SetProcessing(ctx context.Context, id string) error {
	return m.setStatus(id, domain.JobStatusProcessing)
}

func (m *memJobs) MarkDone(ctx context.Context, id string, completedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.rows[id]
	if !ok {
		return domain.ErrNotFound
	}
	job.Status = domain.JobStatusDone
	job.CompletedAt = &completedAt
	return nil
}

func (m *memJobs) MarkFailed(ctx context.Context, id string, message string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.rows[id]
	if !ok {
		return domain.ErrNotFound
	}
	job.Status = domain.JobStatusError
	job.ErrorMessage = &message
	return nil
}

func (m *memJobs) ResetForRetry(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.rows[id]
	if !ok {
		return domain.ErrNotFound
	}
	job.Status = domain.JobStatusPending
	job.ErrorMessage = nil
	return nil
}

func (m *memJobs) MarkDownloaded(ctx context.Context, id, downloadedBy string, at time.Time) (*domain.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.rows[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	job.DownloadedBy = &downloadedBy
	job.DownloadedAt = &at
	cp := *job
	return &cp, nil
}

func (m *memJobs) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.rows, id)
	return nil
}

func (m *memJobs) setStatus(id string, status domain.JobStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.rows[id]
	if !ok {
		return domain.ErrNotFound
	}
	job.Status = status
	return nil
}

type memImages struct {
	mu   sync.Mutex
	rows []domain.JobImage
}

func (m *memImages) Create(ctx context.Context, image *domain.JobImage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	img := *image
	img.CreatedAt = time.Now().UTC()
	m.rows = append(m.rows, img)
	return nil
}

func (m *memImages) ListByJob(ctx context.Context, jobID string) ([]domain.JobImage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.JobImage
	for _, img := range m.rows {
		if img.JobID == jobID {
			out = append(out, img)
		}
	}
	return out, nil
}

func (m *memImages) ListOlderThan(ctx context.Context, cutoff time.Time) ([]domain.JobImage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.JobImage
	for _, img := range m.rows {
		if img.CreatedAt.Before(cutoff) {
			out = append(out, img)
		}
	}
	return out, nil
}

func (m *memImages) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var kept []domain.JobImage
	var removed int64
	for _, img := range m.rows {
		if img.CreatedAt.Before(cutoff) {
			removed++
			continue
		}
		kept = append(kept, img)
	}
	m.rows = kept
	return removed, nil
}

type memArticles struct {
	mu   sync.Mutex
	rows map[string]*domain.Article // keyed by job id
}

func newMemArticles() *memArticles { return &memArticles{rows: map[string]*domain.Article{}} }

func (m *memArticles) Upsert(ctx context.Context, article *domain.Article) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *article
	m.rows[article.JobID] = &cp
	return nil
}

func (m *memArticles) GetByJob(ctx context.Context, jobID string) (*domain.Article, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.rows[jobID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *memArticles) DeleteByJob(ctx context.Context, jobID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rows, jobID)
	return nil
}

func (m *memArticles) ContentByJobs(ctx context.Context, jobIDs []string) (map[string]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := map[string]string{}
	for _, id := range jobIDs {
		if a, ok := m.rows[id]; ok {
			out[id] = a.Content
		}
	}
	return out, nil
}

type memClients struct {
	rows map[string]*domain.Client
}

func (m *memClients) Create(ctx context.Context, c *domain.Client) error {
	m.rows[c.ID] = c
	return nil
}

func (m *memClients) GetByID(ctx context.Context, id string) (*domain.Client, error) {
	c, ok := m.rows[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return c, nil
}

func (m *memClients) List(ctx context.Context) ([]domain.Client, error) {
	var out []domain.Client
	for _, c := range m.rows {
		out = append(out, *c)
	}
	return out, nil
}

func (m *memClients) Update(ctx context.Context, c *domain.Client) error {
	if _, ok := m.rows[c.ID]; !ok {
		return domain.ErrNotFound
	}
	m.rows[c.ID] = c
	return nil
}

func (m *memClients) Delete(ctx context.Context, id string) error {
	if _, ok := m.rows[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.rows, id)
	return nil
}

type memPresets struct {
	rows map[string]*domain.StylePreset
}

func (m *memPresets) Create(ctx context.Context, p *domain.StylePreset) error {
	m.rows[p.ID] = p
	return nil
}

func (m *memPresets) GetByID(ctx context.Context, id string) (*domain.StylePreset, error) {
	p, ok := m.rows[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return p, nil
}

func (m *memPresets) List(ctx context.Context, clientID string) ([]domain.StylePreset, error) {
	var out []domain.StylePreset
	for _, p := range m.rows {
		out = append(out, *p)
	}
	return out, nil
}

type memAdmins struct {
	rows map[string]*domain.Admin
}

func (m *memAdmins) Create(ctx context.Context, a *domain.Admin) error {
	for _, existing := range m.rows {
		if existing.Username == a.Username {
			return domain.ErrDuplicate
		}
	}
	m.rows[a.ID] = a
	return nil
}

func (m *memAdmins) GetByID(ctx context.Context, id string) (*domain.Admin, error) {
	a, ok := m.rows[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return a, nil
}

func (m *memAdmins) GetByUsername(ctx context.Context, username string) (*domain.Admin, error) {
	for _, a := range m.rows {
		if a.Username == username {
			return a, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memAdmins) List(ctx context.Context) ([]domain.Admin, error) {
	var out []domain.Admin
	for _, a := range m.rows {
		out = append(out, *a)
	}
	return out, nil
}

func (m *memAdmins) Count(ctx context.Context) (int, error) { return len(m.rows), nil }

type memStore struct {
	mu    sync.Mutex
	files map[string][]byte
}

func newMemStore() *memStore { return &memStore{files: map[string][]byte{}} }

func (m *memStore) Write(ctx context.Context, key string, data []byte) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[key] = data
	return key, nil
}

func (m *memStore) Read(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.files[key]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return data, nil
}

func (m *memStore) Remove(ctx context.Context, keys []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		delete(m.files, key)
	}
	return nil
}

// stubDispatcher records dispatch calls without running the pipeline.
type stubDispatcher struct {
	mu         sync.Mutex
	dispatched []string
	retried    []string
	retryErr   error
}

func (s *stubDispatcher) Dispatch(jobID string) (*pipeline.Handle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dispatched = append(s.dispatched, jobID)
	return nil, nil
}

func (s *stubDispatcher) Retry(ctx context.Context, jobID string) (*pipeline.Handle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.retried = append(s.retried, jobID)
	return nil, s.retryErr
}

type appFixture struct {
	app        *App
	jobs       *memJobs
	images     *memImages
	articles   *memArticles
	clients    *memClients
	admins     *memAdmins
	store      *memStore
	dispatcher *stubDispatcher
}

func newAppFixture() *appFixture {
	fix := &appFixture{
		jobs:       newMemJobs(),
		images:     &memImages{},
		articles:   newMemArticles(),
		clients:    &memClients{rows: map[string]*domain.Client{}},
		admins:     &memAdmins{rows: map[string]*domain.Admin{}},
		store:      newMemStore(),
		dispatcher: &stubDispatcher{},
	}
	fix.app = &App{
		Jobs:           fix.jobs,
		Images:         fix.images,
		Articles:       fix.articles,
		Clients:        fix.clients,
		Presets:        &memPresets{rows: map[string]*domain.StylePreset{}},
		Admins:         fix.admins,
		Runner:         fix.dispatcher,
		Store:          fix.store,
		Logger:         zerolog.Nop(),
		SessionTTL:     24 * time.Hour,
		ImageRetention: 240 * time.Hour,
	}
	return fix
}
