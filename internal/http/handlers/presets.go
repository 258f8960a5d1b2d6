package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"draftdesk/internal/domain"
)

type presetPayload struct {
	ClientID   *string `json:"client_id"`
	Tone       *string `json:"tone"`
	LengthHint *string `json:"length_hint"`
	Platform   *string `json:"platform"`
	ExtraRules *string `json:"extra_rules"`
}

type presetDTO struct {
	presetPayload
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
}

func toPresetDTO(p domain.StylePreset) presetDTO {
	return presetDTO{
		presetPayload: presetPayload{
			ClientID:   p.ClientID,
			Tone:       p.Tone,
			LengthHint: p.LengthHint,
			Platform:   p.Platform,
			ExtraRules: p.ExtraRules,
		},
		ID:        p.ID,
		CreatedAt: p.CreatedAt,
	}
}

// CreateStylePreset stores a tone/length/platform override, global or bound
// to one client.
func (a *App) CreateStylePreset(w http.ResponseWriter, r *http.Request) {
	var req presetPayload
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	preset := &domain.StylePreset{
		ID:         uuid.NewString(),
		ClientID:   req.ClientID,
		Tone:       req.Tone,
		LengthHint: req.LengthHint,
		Platform:   req.Platform,
		ExtraRules: req.ExtraRules,
	}
	if err := a.Presets.Create(r.Context(), preset); err != nil {
		a.Logger.Error().Err(err).Msg("preset create failed")
		a.error(w, http.StatusInternalServerError, "internal", "internal error")
		return
	}
	a.json(w, http.StatusCreated, toPresetDTO(*preset))
}

// ListStylePresets returns presets, filtered by ?client_id= when given.
func (a *App) ListStylePresets(w http.ResponseWriter, r *http.Request) {
	presets, err := a.Presets.List(r.Context(), r.URL.Query().Get("client_id"))
	if err != nil {
		a.Logger.Error().Err(err).Msg("preset list failed")
		a.error(w, http.StatusInternalServerError, "internal", "internal error")
		return
	}
	out := make([]presetDTO, 0, len(presets))
	for _, p := range presets {
		out = append(out, toPresetDTO(p))
	}
	a.json(w, http.StatusOK, map[string]any{"style_presets": out})
}

// GetStylePreset returns one preset.
func (a *App) GetStylePreset(w http.ResponseWriter, r *http.Request) {
	preset, err := a.Presets.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.notFoundOr(w, err, "style preset")
		return
	}
	a.json(w, http.StatusOK, toPresetDTO(*preset))
}
