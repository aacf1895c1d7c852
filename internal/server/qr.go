package server

import (
	"log"
	"net/http"

	qrcode "github.com/skip2/go-qrcode"
)

// qrHandler handles GET /api/qr/{id}, rendering the download link as a
// PNG QR code. It does not check deliverability; scanning the code runs
// the full policy on the download path anyway.
func (cfg Config) qrHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")

		png, err := qrcode.Encode(cfg.link(id), qrcode.Low, 256)
		if err != nil {
			rid := RequestIDFromContext(r.Context())
			log.Printf("rid=%s msg=qr_encode_failed err=%v", rid, err)
			writeError(w, http.StatusInternalServerError, "qr generation failed")
			return
		}

		w.Header().Set("Content-Type", "image/png")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(png)
	})
}
