package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"draftdesk/internal/domain"
)

type clientPayload struct {
	Name                 string  `json:"name"`
	PlaceURL             *string `json:"place_url"`
	Category             *string `json:"category"`
	BaseGuide            *string `json:"base_guide"`
	Keywords             *string `json:"keywords"`
	DefaultStyleID       *string `json:"default_style_id"`
	Memo                 *string `json:"memo"`
	RequiresConfirmation bool    `json:"requires_confirmation"`
}

type clientDTO struct {
	clientPayload
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
}

func toClientDTO(c domain.Client) clientDTO {
	return clientDTO{
		clientPayload: clientPayload{
			Name:                 c.Name,
			PlaceURL:             c.PlaceURL,
			Category:             c.Category,
			BaseGuide:            c.BaseGuide,
			Keywords:             c.Keywords,
			DefaultStyleID:       c.DefaultStyleID,
			Memo:                 c.Memo,
			RequiresConfirmation: c.RequiresConfirmation,
		},
		ID:        c.ID,
		CreatedAt: c.CreatedAt,
	}
}

// CreateClient registers a new business profile.
func (a *App) CreateClient(w http.ResponseWriter, r *http.Request) {
	var req clientPayload
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "name required")
		return
	}
	client := &domain.Client{
		ID:                   uuid.NewString(),
		Name:                 strings.TrimSpace(req.Name),
		PlaceURL:             req.PlaceURL,
		Category:             req.Category,
		BaseGuide:            req.BaseGuide,
		Keywords:             req.Keywords,
		DefaultStyleID:       req.DefaultStyleID,
		Memo:                 req.Memo,
		RequiresConfirmation: req.RequiresConfirmation,
	}
	if err := a.Clients.Create(r.Context(), client); err != nil {
		a.Logger.Error().Err(err).Msg("client create failed")
		a.error(w, http.StatusInternalServerError, "internal", "internal error")
		return
	}
	a.json(w, http.StatusCreated, toClientDTO(*client))
}

// ListClients returns every client profile.
func (a *App) ListClients(w http.ResponseWriter, r *http.Request) {
	clients, err := a.Clients.List(r.Context())
	if err != nil {
		a.Logger.Error().Err(err).Msg("client list failed")
		a.error(w, http.StatusInternalServerError, "internal", "internal error")
		return
	}
	out := make([]clientDTO, 0, len(clients))
	for _, c := range clients {
		out = append(out, toClientDTO(c))
	}
	a.json(w, http.StatusOK, map[string]any{"clients": out})
}

// GetClient returns one client profile.
func (a *App) GetClient(w http.ResponseWriter, r *http.Request) {
	client, err := a.Clients.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.notFoundOr(w, err, "client")
		return
	}
	a.json(w, http.StatusOK, toClientDTO(*client))
}

// UpdateClient overwrites a client profile.
func (a *App) UpdateClient(w http.ResponseWriter, r *http.Request) {
	var req clientPayload
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "name required")
		return
	}
	client := &domain.Client{
		ID:                   chi.URLParam(r, "id"),
		Name:                 strings.TrimSpace(req.Name),
		PlaceURL:             req.PlaceURL,
		Category:             req.Category,
		BaseGuide:            req.BaseGuide,
		Keywords:             req.Keywords,
		DefaultStyleID:       req.DefaultStyleID,
		Memo:                 req.Memo,
		RequiresConfirmation: req.RequiresConfirmation,
	}
	if err := a.Clients.Update(r.Context(), client); err != nil {
		a.notFoundOr(w, err, "client")
		return
	}
	a.json(w, http.StatusOK, toClientDTO(*client))
}

// DeleteClient removes a client profile. Jobs and articles cascade via
// foreign keys; stored image files are removed here because the cascade also
// drops the job_images rows the retention sweeper would otherwise use to
// find them.
func (a *App) DeleteClient(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if jobs, err := a.Jobs.List(r.Context(), id); err == nil {
		var keys []string
		for _, job := range jobs {
			images, err := a.Images.ListByJob(r.Context(), job.ID)
			if err != nil {
				continue
			}
			for _, img := range images {
				keys = append(keys, img.StoragePath)
			}
		}
		if len(keys) > 0 {
			if err := a.Store.Remove(r.Context(), keys); err != nil {
				a.Logger.Warn().Err(err).Str("client_id", id).Msg("image file cleanup failed")
			}
		}
	}

	if err := a.Clients.Delete(r.Context(), id); err != nil {
		a.notFoundOr(w, err, "client")
		return
	}
	a.json(w, http.StatusOK, map[string]bool{"ok": true})
}
