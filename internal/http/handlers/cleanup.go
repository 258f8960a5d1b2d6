package handlers

import (
	"net/http"
	"time"
)

// CleanupImages removes images past the retention window, files first, then
// the database rows. The worker runs the same sweep on a schedule; this
// endpoint exists for manual runs.
func (a *App) CleanupImages(w http.ResponseWriter, r *http.Request) {
	cutoff := time.Now().UTC().Add(-a.ImageRetention)

	old, err := a.Images.ListOlderThan(r.Context(), cutoff)
	if err != nil {
		a.Logger.Error().Err(err).Msg("cleanup listing failed")
		a.error(w, http.StatusInternalServerError, "internal", "internal error")
		return
	}
	if len(old) > 0 {
		keys := make([]string, 0, len(old))
		for _, img := range old {
			keys = append(keys, img.StoragePath)
		}
		if err := a.Store.Remove(r.Context(), keys); err != nil {
			a.Logger.Warn().Err(err).Msg("cleanup file removal partially failed")
		}
	}

	removed, err := a.Images.DeleteOlderThan(r.Context(), cutoff)
	if err != nil {
		a.Logger.Error().Err(err).Msg("cleanup delete failed")
		a.error(w, http.StatusInternalServerError, "internal", "internal error")
		return
	}
	a.Logger.Info().Int64("removed", removed).Time("cutoff", cutoff).Msg("image cleanup")
	a.json(w, http.StatusOK, map[string]any{"removed": removed, "cutoff": cutoff})
}
