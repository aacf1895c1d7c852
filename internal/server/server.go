// Package server is the thin HTTP surface over the lifecycle core:
// routing, request decoding and Decision-to-status mapping. Correctness
// lives in internal/lifecycle, not here.
package server

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strings"
	"time"

	"burnlink/internal/lifecycle"
)

// DefaultMaxUploadBytes caps uploads when no explicit limit is configured.
const DefaultMaxUploadBytes = 500 << 20 // 500 MiB

type Config struct {
	Addr string // e.g. ":8080"
	// BaseURL is the externally visible origin used for share links and
	// QR codes, e.g. "https://drop.example.com".
	BaseURL string
	// MaxUploadBytes rejects oversized uploads outright; 0 means
	// DefaultMaxUploadBytes.
	MaxUploadBytes int64

	Service *lifecycle.Service
}

type Server struct {
	httpServer *http.Server
}

func New(cfg Config) *Server {
	if cfg.MaxUploadBytes == 0 {
		cfg.MaxUploadBytes = DefaultMaxUploadBytes
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
	})

	mux.Handle("/api/upload", cfg.uploadHandler())
	mux.Handle("GET /api/file/{id}", cfg.infoHandler())
	mux.Handle("GET /api/qr/{id}", cfg.qrHandler())
	mux.Handle("GET /d/{id}", cfg.downloadHandler())

	// Wrap middleware: requestID -> logging -> mux
	var handler http.Handler = mux
	handler = loggingMiddleware(handler)
	handler = requestIDMiddleware(handler)

	s := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	return &Server{httpServer: s}
}

// Handler exposes the routed handler for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return err
	}
	return s.httpServer.Serve(ln)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// link builds the public download URL for an object id.
func (cfg Config) link(id string) string {
	return cfg.BaseURL + "/d/" + id
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
