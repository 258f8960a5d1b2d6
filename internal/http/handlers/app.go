package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"draftdesk/internal/domain"
	"draftdesk/internal/infra"
	"draftdesk/internal/infra/geoip"
	"draftdesk/internal/middleware"
	"draftdesk/internal/pipeline"
)

// Dispatcher is the slice of the job runner the HTTP layer needs.
type Dispatcher interface {
	Dispatch(jobID string) (*pipeline.Handle, error)
	Retry(ctx context.Context, jobID string) (*pipeline.Handle, error)
}

// BlobStore abstracts the asset store used for uploaded photos.
type BlobStore interface {
	Write(ctx context.Context, key string, data []byte) (string, error)
	Read(ctx context.Context, key string) ([]byte, error)
	Remove(ctx context.Context, keys []string) error
}

// App bundles the dependencies shared by all HTTP handlers.
type App struct {
	Jobs     domain.JobRepository
	Images   domain.JobImageRepository
	Articles domain.ArticleRepository
	Clients  domain.ClientRepository
	Presets  domain.StylePresetRepository
	Admins   domain.AdminRepository

	Runner Dispatcher
	Store  BlobStore
	GeoIP  geoip.CountryResolver
	Logger infra.Logger

	SessionTTL     time.Duration
	ImageRetention time.Duration
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, code int, kind, message string) {
	a.json(w, code, errorResponse{Error: kind, Message: message})
}

// currentAdminName returns the authenticated operator's username, or "".
func currentAdminName(r *http.Request) string {
	if admin := middleware.AdminFromContext(r.Context()); admin != nil {
		return admin.Username
	}
	return ""
}

// notFoundOr maps domain.ErrNotFound to 404 and everything else to 500.
func (a *App) notFoundOr(w http.ResponseWriter, err error, resource string) {
	if errors.Is(err, domain.ErrNotFound) {
		a.error(w, http.StatusNotFound, "not_found", resource+" not found")
		return
	}
	a.Logger.Error().Err(err).Str("resource", resource).Msg("repository error")
	a.error(w, http.StatusInternalServerError, "internal", "internal error")
}
