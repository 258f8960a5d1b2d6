package handlers

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"draftdesk/internal/domain"
	zipkit "draftdesk/pkg/zip"
)

type createJobRequest struct {
	ClientID      string   `json:"client_id"`
	StylePresetID *string  `json:"style_preset_id"`
	GuideText     string   `json:"guide_text"`
	ExtraPrompt   *string  `json:"extra_prompt"`
	ContentType   string   `json:"content_type"`
	LengthHint    int      `json:"length_hint"`
	ImageFiles    []string `json:"image_files"`
	CreatedBy     *string  `json:"created_by"`
	BatchID       *string  `json:"batch_id"`
}

type jobDTO struct {
	ID                   string     `json:"id"`
	ClientID             string     `json:"client_id"`
	ClientName           *string    `json:"client_name,omitempty"`
	RequiresConfirmation bool       `json:"client_requires_confirmation"`
	StylePresetID        *string    `json:"style_preset_id"`
	GuideText            string     `json:"guide_text"`
	ExtraPrompt          *string    `json:"extra_prompt"`
	ContentType          string     `json:"content_type"`
	LengthHint           int        `json:"length_hint"`
	Status               string     `json:"status"`
	ErrorMessage         *string    `json:"error_message"`
	CreatedBy            *string    `json:"created_by"`
	BatchID              *string    `json:"batch_id"`
	DownloadedBy         *string    `json:"downloaded_by"`
	DownloadedAt         *time.Time `json:"downloaded_at"`
	CreatedAt            time.Time  `json:"created_at"`
	CompletedAt          *time.Time `json:"completed_at"`
	ArticleContent       *string    `json:"article_content,omitempty"`
}

func toJobDTO(job domain.Job) jobDTO {
	return jobDTO{
		ID:            job.ID,
		ClientID:      job.ClientID,
		StylePresetID: job.StylePresetID,
		GuideText:     job.GuideText,
		ExtraPrompt:   job.ExtraPrompt,
		ContentType:   string(job.ContentType),
		LengthHint:    job.LengthHint,
		Status:        string(job.Status),
		ErrorMessage:  job.ErrorMessage,
		CreatedBy:     job.CreatedBy,
		BatchID:       job.BatchID,
		DownloadedBy:  job.DownloadedBy,
		DownloadedAt:  job.DownloadedAt,
		CreatedAt:     job.CreatedAt,
		CompletedAt:   job.CompletedAt,
	}
}

func toJobWithClientDTO(item domain.JobWithClient) jobDTO {
	dto := toJobDTO(item.Job)
	dto.ClientName = item.ClientName
	dto.RequiresConfirmation = item.RequiresConfirmation
	return dto
}

// CreateJob validates the request, persists the job and its images, and
// hands the job to the runner. The response returns immediately; generation
// continues in the background.
func (a *App) CreateJob(w http.ResponseWriter, r *http.Request) {
	var req createJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if req.ClientID == "" || strings.TrimSpace(req.GuideText) == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "client_id and guide_text required")
		return
	}
	if !domain.ValidContentType(req.ContentType) {
		a.error(w, http.StatusBadRequest, "bad_request", "content_type must be review or info")
		return
	}
	if !domain.ValidLengthHint(req.LengthHint) {
		a.error(w, http.StatusBadRequest, "bad_request", "length_hint must be 1000 or 1500")
		return
	}
	if _, err := a.Clients.GetByID(r.Context(), req.ClientID); err != nil {
		a.notFoundOr(w, err, "client")
		return
	}

	job := &domain.Job{
		ID:            uuid.NewString(),
		ClientID:      req.ClientID,
		StylePresetID: req.StylePresetID,
		GuideText:     req.GuideText,
		ExtraPrompt:   req.ExtraPrompt,
		ContentType:   domain.ContentType(req.ContentType),
		LengthHint:    req.LengthHint,
		Status:        domain.JobStatusPending,
		CreatedBy:     req.CreatedBy,
		BatchID:       req.BatchID,
	}
	if err := a.Jobs.Create(r.Context(), job); err != nil {
		a.Logger.Error().Err(err).Msg("job create failed")
		a.error(w, http.StatusInternalServerError, "internal", "internal error")
		return
	}

	a.storeJobImages(r, job.ID, req.ImageFiles)

	if _, err := a.Runner.Dispatch(job.ID); err != nil && !errors.Is(err, domain.ErrAlreadyRunning) {
		a.Logger.Error().Err(err).Str("job_id", job.ID).Msg("dispatch failed")
	}

	a.json(w, http.StatusCreated, map[string]string{"job_id": job.ID, "status": string(job.Status)})
}

// storeJobImages decodes and stores uploaded images. A single bad upload is
// logged and skipped, never failing the whole submission.
func (a *App) storeJobImages(r *http.Request, jobID string, files []string) {
	for _, file := range files {
		payload := file
		// Accept both data URLs and bare base64.
		if i := strings.IndexByte(payload, ','); i >= 0 {
			payload = payload[i+1:]
		}
		data, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			a.Logger.Warn().Err(err).Str("job_id", jobID).Msg("image decode failed, skipping")
			continue
		}
		key := fmt.Sprintf("%s/%d-%06d.jpg", jobID, time.Now().UnixMilli(), rand.Intn(1000000))
		storedKey, err := a.Store.Write(r.Context(), key, data)
		if err != nil {
			a.Logger.Warn().Err(err).Str("job_id", jobID).Msg("image store failed, skipping")
			continue
		}
		img := &domain.JobImage{ID: uuid.NewString(), JobID: jobID, StoragePath: storedKey}
		if err := a.Images.Create(r.Context(), img); err != nil {
			a.Logger.Warn().Err(err).Str("job_id", jobID).Msg("image record failed")
		}
	}
}

// ListJobs returns jobs newest first, optionally filtered by ?client_id= and
// inlining article text when ?include_content=true.
func (a *App) ListJobs(w http.ResponseWriter, r *http.Request) {
	jobs, err := a.Jobs.List(r.Context(), r.URL.Query().Get("client_id"))
	if err != nil {
		a.Logger.Error().Err(err).Msg("job list failed")
		a.error(w, http.StatusInternalServerError, "internal", "internal error")
		return
	}
	out := make([]jobDTO, 0, len(jobs))
	for _, item := range jobs {
		out = append(out, toJobWithClientDTO(item))
	}
	if r.URL.Query().Get("include_content") == "true" {
		ids := make([]string, 0, len(jobs))
		for _, item := range jobs {
			ids = append(ids, item.ID)
		}
		contents, err := a.Articles.ContentByJobs(r.Context(), ids)
		if err == nil {
			for i := range out {
				if content, ok := contents[out[i].ID]; ok {
					c := content
					out[i].ArticleContent = &c
				}
			}
		}
	}
	a.json(w, http.StatusOK, map[string]any{"jobs": out})
}

type jobDetailResponse struct {
	Job     jobDTO             `json:"job"`
	Article *articleDTO        `json:"article"`
	Images  []jobImageResponse `json:"images"`
}

type articleDTO struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	ModelName string    `json:"model_name"`
	CreatedAt time.Time `json:"created_at"`
}

type jobImageResponse struct {
	ID          string    `json:"id"`
	StoragePath string    `json:"storage_path"`
	CreatedAt   time.Time `json:"created_at"`
}

// GetJob returns one job with its article and image records. Reads are
// always fresh so a polling UI sees status transitions promptly.
func (a *App) GetJob(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	job, err := a.Jobs.GetByID(r.Context(), id)
	if err != nil {
		a.notFoundOr(w, err, "job")
		return
	}

	resp := jobDetailResponse{Job: toJobDTO(*job), Images: []jobImageResponse{}}

	if article, err := a.Articles.GetByJob(r.Context(), id); err == nil {
		resp.Article = &articleDTO{
			ID:        article.ID,
			Content:   article.Content,
			ModelName: article.ModelName,
			CreatedAt: article.CreatedAt,
		}
	}
	if images, err := a.Images.ListByJob(r.Context(), id); err == nil {
		for _, img := range images {
			resp.Images = append(resp.Images, jobImageResponse{ID: img.ID, StoragePath: img.StoragePath, CreatedAt: img.CreatedAt})
		}
	}
	a.json(w, http.StatusOK, resp)
}

// DeleteJob removes a job, its stored images, and its article.
func (a *App) DeleteJob(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if images, err := a.Images.ListByJob(r.Context(), id); err == nil && len(images) > 0 {
		keys := make([]string, 0, len(images))
		for _, img := range images {
			keys = append(keys, img.StoragePath)
		}
		if err := a.Store.Remove(r.Context(), keys); err != nil {
			a.Logger.Warn().Err(err).Str("job_id", id).Msg("image file cleanup failed")
		}
	}
	if err := a.Jobs.Delete(r.Context(), id); err != nil {
		a.notFoundOr(w, err, "job")
		return
	}
	a.json(w, http.StatusOK, map[string]bool{"ok": true})
}

// RetryJob re-runs a failed job. Jobs in any other state get a 409.
func (a *App) RetryJob(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := a.Runner.Retry(r.Context(), id); err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			a.error(w, http.StatusNotFound, "not_found", "job not found")
		case errors.Is(err, domain.ErrNotRetryable):
			a.error(w, http.StatusConflict, "conflict", "job is not in error state")
		case errors.Is(err, domain.ErrAlreadyRunning):
			a.error(w, http.StatusConflict, "conflict", "job is already running")
		default:
			a.Logger.Error().Err(err).Str("job_id", id).Msg("retry failed")
			a.error(w, http.StatusInternalServerError, "internal", "internal error")
		}
		return
	}
	a.json(w, http.StatusOK, map[string]string{"job_id": id, "status": string(domain.JobStatusPending)})
}

type markDownloadedRequest struct {
	DownloadedBy string `json:"downloaded_by"`
}

// MarkDownloaded records who exported the article and when.
func (a *App) MarkDownloaded(w http.ResponseWriter, r *http.Request) {
	var req markDownloadedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if strings.TrimSpace(req.DownloadedBy) == "" {
		if admin := currentAdminName(r); admin != "" {
			req.DownloadedBy = admin
		} else {
			a.error(w, http.StatusBadRequest, "bad_request", "downloaded_by required")
			return
		}
	}
	job, err := a.Jobs.MarkDownloaded(r.Context(), chi.URLParam(r, "id"), req.DownloadedBy, time.Now().UTC())
	if err != nil {
		a.notFoundOr(w, err, "job")
		return
	}
	a.json(w, http.StatusOK, toJobDTO(*job))
}

// ArchiveJob streams a zip with the article text and original photos.
func (a *App) ArchiveJob(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	job, err := a.Jobs.GetByID(r.Context(), id)
	if err != nil {
		a.notFoundOr(w, err, "job")
		return
	}
	article, err := a.Articles.GetByJob(r.Context(), id)
	if err != nil {
		a.error(w, http.StatusConflict, "conflict", "job has no article yet")
		return
	}

	assets := []zipkit.Asset{{
		Filename: "article.txt",
		MIME:     "text/plain; charset=utf-8",
		Data:     []byte(article.Content),
	}}
	if images, err := a.Images.ListByJob(r.Context(), id); err == nil {
		for i, img := range images {
			data, err := a.Store.Read(r.Context(), img.StoragePath)
			if err != nil {
				a.Logger.Warn().Err(err).Str("path", img.StoragePath).Msg("archive image read failed")
				continue
			}
			assets = append(assets, zipkit.Asset{
				Filename: fmt.Sprintf("images/%02d.jpg", i+1),
				MIME:     "image/jpeg",
				Data:     data,
			})
		}
	}

	archive := zipkit.ArchiveAssets(assets)
	if archive == nil {
		a.error(w, http.StatusInternalServerError, "internal", "archive build failed")
		return
	}
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "job-"+job.ID+".zip"))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(archive)
}

// GetBatch returns all jobs submitted together under one batch id, with
// article contents inlined.
func (a *App) GetBatch(w http.ResponseWriter, r *http.Request) {
	batchID := chi.URLParam(r, "id")
	jobs, err := a.Jobs.ListByBatch(r.Context(), batchID)
	if err != nil {
		a.Logger.Error().Err(err).Msg("batch list failed")
		a.error(w, http.StatusInternalServerError, "internal", "internal error")
		return
	}
	ids := make([]string, 0, len(jobs))
	for _, item := range jobs {
		ids = append(ids, item.ID)
	}
	contents, _ := a.Articles.ContentByJobs(r.Context(), ids)

	out := make([]jobDTO, 0, len(jobs))
	for _, item := range jobs {
		dto := toJobWithClientDTO(item)
		if content, ok := contents[item.ID]; ok {
			c := content
			dto.ArticleContent = &c
		}
		out = append(out, dto)
	}
	a.json(w, http.StatusOK, map[string]any{"batch_id": batchID, "jobs": out})
}
