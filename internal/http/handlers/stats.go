package handlers

import (
	"net/http"
	"sort"
)

type creatorStats struct {
	Creator    string `json:"creator"`
	Total      int    `json:"total"`
	Done       int    `json:"done"`
	Failed     int    `json:"failed"`
	InFlight   int    `json:"in_flight"`
	Downloaded int    `json:"downloaded"`
}

// CreatorStats aggregates job counts per submitting operator. Jobs without a
// creator are grouped under "unknown".
func (a *App) CreatorStats(w http.ResponseWriter, r *http.Request) {
	jobs, err := a.Jobs.List(r.Context(), "")
	if err != nil {
		a.Logger.Error().Err(err).Msg("stats list failed")
		a.error(w, http.StatusInternalServerError, "internal", "internal error")
		return
	}

	byCreator := make(map[string]*creatorStats)
	for _, job := range jobs {
		creator := "unknown"
		if job.CreatedBy != nil && *job.CreatedBy != "" {
			creator = *job.CreatedBy
		}
		stats, ok := byCreator[creator]
		if !ok {
			stats = &creatorStats{Creator: creator}
			byCreator[creator] = stats
		}
		stats.Total++
		switch job.Status {
		case "done":
			stats.Done++
		case "error":
			stats.Failed++
		default:
			stats.InFlight++
		}
		if job.DownloadedAt != nil {
			stats.Downloaded++
		}
	}

	out := make([]creatorStats, 0, len(byCreator))
	for _, stats := range byCreator {
		out = append(out, *stats)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Total > out[j].Total })
	a.json(w, http.StatusOK, map[string]any{"creators": out})
}
