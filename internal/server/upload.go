package server

import (
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"burnlink/internal/lifecycle"
)

// uploadResp is the JSON response for a successful upload.
type uploadResp struct {
	ID   string `json:"id"`
	Link string `json:"link"`
}

// uploadHandler handles POST /api/upload. Multipart form fields:
//
//	file            the payload (required)
//	password        optional download password
//	expire_seconds  optional TTL in seconds, must be positive; defaults to 24h
//	max_downloads   optional download quota, 0 = unlimited
func (cfg Config) uploadHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, cfg.MaxUploadBytes)

		file, header, err := r.FormFile("file")
		if err != nil {
			if isTooLarge(err) {
				writeError(w, http.StatusRequestEntityTooLarge, "file too large")
				return
			}
			writeError(w, http.StatusBadRequest, "no file")
			return
		}
		defer func() { _ = file.Close() }()

		data, err := io.ReadAll(file)
		if err != nil {
			if isTooLarge(err) {
				writeError(w, http.StatusRequestEntityTooLarge, "file too large")
				return
			}
			writeError(w, http.StatusBadRequest, "read failed")
			return
		}

		ttl, err := formSeconds(r, "expire_seconds")
		if err != nil {
			writeError(w, http.StatusBadRequest, "bad expire_seconds")
			return
		}
		maxDownloads, err := formInt(r, "max_downloads")
		if err != nil {
			writeError(w, http.StatusBadRequest, "bad max_downloads")
			return
		}

		id, err := cfg.Service.Ingest(r.Context(), lifecycle.IngestRequest{
			Data:         data,
			Filename:     header.Filename,
			Password:     r.FormValue("password"),
			TTL:          ttl,
			MaxDownloads: maxDownloads,
		})
		if err != nil {
			var verr *lifecycle.ValidationError
			if errors.As(err, &verr) {
				writeError(w, http.StatusBadRequest, verr.Error())
				return
			}
			rid := RequestIDFromContext(r.Context())
			log.Printf("rid=%s msg=ingest_failed err=%v", rid, err)
			writeError(w, http.StatusInternalServerError, "upload failed")
			return
		}

		writeJSON(w, http.StatusOK, uploadResp{ID: id, Link: cfg.link(id)})
	})
}

// isTooLarge detects a tripped MaxBytesReader. The multipart reader does
// not always preserve the error chain, so the message is checked too.
func isTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr) || strings.Contains(err.Error(), "request body too large")
}

// formSeconds parses an optional duration field given in whole seconds.
// An absent field means "use the default" and returns zero; a present
// field must be a positive integer, so an explicit "0" is rejected
// rather than silently remapped to the default.
func formSeconds(r *http.Request, field string) (time.Duration, error) {
	raw := r.FormValue(field)
	if raw == "" {
		return 0, nil
	}
	secs, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, err
	}
	if secs <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %d", field, secs)
	}
	return time.Duration(secs) * time.Second, nil
}

func formInt(r *http.Request, field string) (int, error) {
	raw := r.FormValue(field)
	if raw == "" {
		return 0, nil
	}
	return strconv.Atoi(raw)
}
