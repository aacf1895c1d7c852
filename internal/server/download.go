package server

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"

	"burnlink/internal/cryptox"
	"burnlink/internal/lifecycle"
)

// downloadHandler handles GET /d/{id}?password=. Decision mapping:
// not-found, expired and quota-exhausted are all 404 (deliberately
// indistinguishable); a password gate is 403; a failed integrity check
// is 500 and never retried.
func (cfg Config) downloadHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		password := r.URL.Query().Get("password")

		dl, ev, err := cfg.Service.Retrieve(r.Context(), id, password)
		if err != nil {
			cfg.writeRetrieveError(w, r, err)
			return
		}
		if ev.Decision == lifecycle.PasswordRequired {
			writeError(w, http.StatusForbidden, "password required")
			return
		}

		w.Header().Set("Content-Type", "application/octet-stream")
		w.Header().Set("Content-Length", strconv.Itoa(len(dl.Data)))
		// Encourage safe download behavior in browsers.
		w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, dl.Filename))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(dl.Data)
	})
}

func (cfg Config) writeRetrieveError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, lifecycle.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	rid := RequestIDFromContext(r.Context())
	if errors.Is(err, cryptox.ErrIntegrity) {
		log.Printf("rid=%s msg=integrity_failure err=%v", rid, err)
		writeError(w, http.StatusInternalServerError, "decryption failed")
		return
	}
	log.Printf("rid=%s msg=retrieve_failed err=%v", rid, err)
	writeError(w, http.StatusInternalServerError, "internal error")
}
