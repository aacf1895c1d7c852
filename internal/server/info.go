package server

import (
	"net/http"

	"burnlink/internal/lifecycle"
)

// infoResp mirrors the share page's needs; remaining is null when the
// quota is unlimited.
type infoResp struct {
	Filename      string `json:"filename"`
	Downloads     int    `json:"downloads"`
	Remaining     *int   `json:"remaining"`
	RemainingTime int64  `json:"remaining_time"`
	Protected     bool   `json:"protected"`
	Encrypted     bool   `json:"encrypted"`
}

// infoHandler handles GET /api/file/{id}?password=. Same Decision
// mapping as the download path, without touching payload or quota.
func (cfg Config) infoHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		password := r.URL.Query().Get("password")

		info, ev, err := cfg.Service.Describe(r.Context(), id, password)
		if err != nil {
			cfg.writeRetrieveError(w, r, err)
			return
		}
		if ev.Decision == lifecycle.PasswordRequired {
			writeError(w, http.StatusForbidden, "password required")
			return
		}

		resp := infoResp{
			Filename:      info.Filename,
			Downloads:     info.Downloads,
			RemainingTime: info.RemainingSeconds,
			Protected:     info.Protected,
			Encrypted:     true,
		}
		if info.RemainingDownloads >= 0 {
			remaining := info.RemainingDownloads
			resp.Remaining = &remaining
		}
		writeJSON(w, http.StatusOK, resp)
	})
}
