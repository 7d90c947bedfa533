package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/starford/ehwaz/internal/apperr"
)

// StartArchive handles POST /archive: it kicks off an asynchronous zip
// build addressed by the caller-supplied token and returns 202.
//
//	@Summary		Start a batch-export archive build
//	@Tags			archive
//	@Accept			json
//	@Produce		json
//	@Success		202	{object}	envelope
//	@Failure		400	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/archive [post]
func (h *Handler) StartArchive(w http.ResponseWriter, r *http.Request) {
	var req ArchiveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if err := h.svc.BuildArchive(req.Token, req.Items); err != nil {
		if errors.Is(err, apperr.ErrInvalidPayload) {
			writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
			return
		}
		slog.Error("archive start failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusAccepted, okBody(map[string]string{"token": req.Token}))
}

// FetchArchive handles GET /archive/{token}: it streams the finished zip.
// While the build is still running it answers 409 so the OS download
// layer retries rather than saving an empty file.
func (h *Handler) FetchArchive(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")
	path, err := h.svc.ArchivePath(token)
	if err != nil {
		switch {
		case errors.Is(err, apperr.ErrArchiveNotReady):
			w.Header().Set("Retry-After", "1")
			writeJSON(w, http.StatusConflict, errorBody("archive not ready"))
		case errors.Is(err, apperr.ErrNotFound):
			writeJSON(w, http.StatusNotFound, errorBody("unknown archive token"))
		default:
			slog.Error("archive fetch failed",
				slog.String("token", token), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("archive build failed"))
		}
		return
	}
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", `attachment; filename="assets-`+token+`.zip"`)
	http.ServeFile(w, r, path)
}
