package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/starford/ehwaz/internal/apperr"
	"github.com/starford/ehwaz/internal/assetsvc"
	"github.com/starford/ehwaz/internal/models"
)

// Handler holds API route handlers.
type Handler struct {
	svc *assetsvc.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *assetsvc.Service) *Handler {
	return &Handler{svc: svc}
}

// assetRef reads the common asset-addressing query parameters.
func assetRef(r *http.Request) (scope models.Scope, rootID, subfolder, filename string) {
	q := r.URL.Query()
	return models.Scope(q.Get("type")), q.Get("root_id"), q.Get("subfolder"), q.Get("filename")
}

// Stage handles POST /stage.
//
//	@Summary		Copy assets into the input root
//	@Tags			assets
//	@Accept			json
//	@Produce		json
//	@Success		200	{object}	envelope
//	@Failure		400	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/stage [post]
func (h *Handler) Stage(w http.ResponseWriter, r *http.Request) {
	var req StageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}

	files := make([]assetsvc.StageFile, len(req.Files))
	for i, f := range req.Files {
		files[i] = assetsvc.StageFile{
			Filename:      f.Filename,
			Subfolder:     f.Subfolder,
			DestSubfolder: f.DestSubfolder,
			Scope:         models.Scope(f.Scope),
			RootID:        f.RootID,
		}
	}

	staged, err := h.svc.Stage(files, req.Index, req.Purpose)
	if err != nil {
		switch {
		case errors.Is(err, apperr.ErrInvalidPayload):
			writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		case errors.Is(err, apperr.ErrNotFound):
			writeJSON(w, http.StatusNotFound, errorBody("source file not found"))
		default:
			slog.Error("stage failed", slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}

	out := make([]StagedFileResponse, len(staged))
	for i, sf := range staged {
		out[i] = StagedFileResponse{Name: sf.Name, Subfolder: sf.Subfolder, Path: sf.AbsPath}
	}
	writeJSON(w, http.StatusOK, okBody(StageResponse{Staged: out}))
}

// QuickWorkflow handles GET /workflow/quick.
//
// Absence is a definitive answer here: the response is 200 with ok=false
// so clients can cache the negative result.
//
//	@Summary		Fast embedded-workflow lookup for one asset
//	@Tags			workflow
//	@Produce		json
//	@Param			type		query		string	true	"Scope (input, output, custom)"
//	@Param			filename	query		string	true	"Filename"
//	@Param			subfolder	query		string	false	"Subfolder"
//	@Param			root_id		query		string	false	"Custom root id"
//	@Success		200	{object}	map[string]any
//	@Security		BearerAuth
//	@Router			/workflow/quick [get]
func (h *Handler) QuickWorkflow(w http.ResponseWriter, r *http.Request) {
	scope, rootID, subfolder, filename := assetRef(r)
	if filename == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("filename is required"))
		return
	}

	wf, err := h.svc.Workflow(scope, rootID, subfolder, filename)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusOK, map[string]any{"ok": false})
			return
		}
		if errors.Is(err, apperr.ErrInvalidPayload) {
			writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
			return
		}
		slog.Error("quick workflow lookup failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "workflow": json.RawMessage(wf)})
}

// Metadata handles GET /metadata.
//
//	@Summary		Asset metadata, optionally workflow only
//	@Tags			assets
//	@Produce		json
//	@Param			workflow_only	query	string	false	"Return only the embedded workflow"
//	@Success		200	{object}	envelope
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/metadata [get]
func (h *Handler) Metadata(w http.ResponseWriter, r *http.Request) {
	scope, rootID, subfolder, filename := assetRef(r)
	if filename == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("filename is required"))
		return
	}
	workflowOnly := r.URL.Query().Get("workflow_only") == "1"

	info, err := h.svc.Metadata(scope, rootID, subfolder, filename, workflowOnly)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			if workflowOnly {
				// Definitive absence, cacheable by the caller.
				writeJSON(w, http.StatusOK, map[string]any{"ok": false})
				return
			}
			writeJSON(w, http.StatusNotFound, errorBody("asset not found"))
			return
		}
		slog.Error("metadata lookup failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, okBody(info))
}

// ListAssets handles GET /assets.
//
//	@Summary		List indexed assets with pagination and filters
//	@Tags			assets
//	@Produce		json
//	@Param			limit	query		int		false	"Page size"
//	@Param			offset	query		int		false	"Page offset"
//	@Param			type	query		string	false	"Filter by scope"
//	@Param			kind	query		string	false	"Filter by kind"	Enums(video, audio, image)
//	@Success		200		{object}	AssetListResponse
//	@Security		BearerAuth
//	@Router			/assets [get]
func (h *Handler) ListAssets(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))
	scope := models.Scope(q.Get("type"))
	kind := models.Kind(q.Get("kind"))

	rows, total, err := h.svc.List(limit, offset, scope, kind)
	if err != nil {
		slog.Error("list assets failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	items := make([]AssetListItem, len(rows))
	for i, row := range rows {
		items[i] = AssetListItem{
			Filename:  row.Filename,
			Subfolder: row.Subfolder,
			Scope:     row.Scope,
			Kind:      row.Kind,
			Size:      row.Size,
			Checksum:  row.Checksum,
		}
	}
	writeJSON(w, http.StatusOK, AssetListResponse{Assets: items, Total: total})
}

// SearchAssets handles GET /assets/search.
//
//	@Summary		Search indexed assets by filename or subfolder
//	@Tags			assets
//	@Produce		json
//	@Param			q		query		string	true	"Search term"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	AssetListResponse
//	@Security		BearerAuth
//	@Router			/assets/search [get]
func (h *Handler) SearchAssets(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	term := q.Get("q")
	if term == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("q is required"))
		return
	}
	limit, _ := strconv.Atoi(q.Get("limit"))

	rows, err := h.svc.Search(term, limit)
	if err != nil {
		slog.Error("search assets failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	items := make([]AssetListItem, len(rows))
	for i, row := range rows {
		items[i] = AssetListItem{
			Filename:  row.Filename,
			Subfolder: row.Subfolder,
			Scope:     row.Scope,
			Kind:      row.Kind,
			Size:      row.Size,
			Checksum:  row.Checksum,
		}
	}
	writeJSON(w, http.StatusOK, AssetListResponse{Assets: items, Total: len(items)})
}

// View handles GET /view/{scope}/*: it streams the asset file itself.
func (h *Handler) View(w http.ResponseWriter, r *http.Request) {
	scope := models.Scope(chi.URLParam(r, "scope"))
	rel := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	if decoded, err := url.PathUnescape(rel); err == nil {
		rel = decoded
	}
	if rel == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}

	abs, err := h.svc.ViewPath(scope, r.URL.Query().Get("root_id"), rel)
	if err != nil {
		switch {
		case errors.Is(err, apperr.ErrInvalidPayload):
			writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		case errors.Is(err, apperr.ErrNotFound):
			http.NotFound(w, r)
		default:
			writeJSON(w, http.StatusBadRequest, errorBody("invalid path"))
		}
		return
	}
	http.ServeFile(w, r, abs)
}
