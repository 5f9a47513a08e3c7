package api

import (
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/landgrid/geoaudit/internal/lifecycle"
	"github.com/landgrid/geoaudit/internal/model"
	"github.com/landgrid/geoaudit/internal/pipeline"
	"github.com/landgrid/geoaudit/internal/store"
)

// maxScanUploadBytes bounds one scan request (two satellite-scale images).
const maxScanUploadBytes = 64 << 20

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) handleScan(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxScanUploadBytes)
	if err := r.ParseMultipartForm(maxScanUploadBytes); err != nil {
		writeError(w, r, eris.Wrap(model.ErrValidation, "multipart form required"))
		return
	}

	satPath, err := saveUpload(r, "satelliteImage")
	if err != nil {
		writeError(w, r, err)
		return
	}
	mapPath, err := saveUpload(r, "plannedImage")
	if err != nil {
		// The satellite temp file is still on disk; the pipeline only cleans
		// up inputs it was handed.
		removeQuiet(satPath)
		writeError(w, r, err)
		return
	}

	area, err := h.pipeline.Run(r.Context(), pipeline.ScanRequest{
		AreaID:        r.FormValue("areaId"),
		AreaName:      r.FormValue("areaName"),
		SatellitePath: satPath,
		PlotMapPath:   mapPath,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, area)
}

func (h *Handler) handleListAreas(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.AreaFilter{
		Page:         atoiDefault(q.Get("page"), 0),
		Limit:        atoiDefault(q.Get("limit"), 0),
		Encroached:   q.Get("encroached") == "true",
		ManualReview: q.Get("manual_review") == "true",
	}

	page, err := h.store.ListAreas(r.Context(), filter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (h *Handler) handleGetArea(w http.ResponseWriter, r *http.Request) {
	area, err := h.store.GetArea(r.Context(), chi.URLParam(r, "areaID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, area)
}

func (h *Handler) handleGetSummary(w http.ResponseWriter, r *http.Request) {
	area, err := h.store.GetArea(r.Context(), chi.URLParam(r, "areaID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pipeline.Intelligence(area))
}

func (h *Handler) handleDeleteArea(w http.ResponseWriter, r *http.Request) {
	areaID := chi.URLParam(r, "areaID")
	if err := h.pipeline.DeleteArea(r.Context(), areaID); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"deleted": areaID})
}

func (h *Handler) handlePatchFlags(w http.ResponseWriter, r *http.Request) {
	var patch lifecycle.FlagPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeError(w, r, eris.Wrap(model.ErrValidation, "invalid request body"))
		return
	}

	plot, err := h.lifecycle.ToggleFlags(r.Context(), chi.URLParam(r, "areaID"), chi.URLParam(r, "plotID"), patch)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, plot)
}

func (h *Handler) handleAssignOwner(w http.ResponseWriter, r *http.Request) {
	var req struct {
		OwnerName  string `json:"owner_name"`
		OwnerEmail string `json:"owner_email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, eris.Wrap(model.ErrValidation, "invalid request body"))
		return
	}

	plot, err := h.lifecycle.AssignOwner(r.Context(), chi.URLParam(r, "areaID"), chi.URLParam(r, "plotID"), req.OwnerName, req.OwnerEmail)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, plot)
}

func (h *Handler) handleExecuteAction(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AreaID     string           `json:"area_id"`
		PlotID     string           `json:"plot_id"`
		ActionType model.ActionType `json:"action_type"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, eris.Wrap(model.ErrValidation, "invalid request body"))
		return
	}
	if req.AreaID == "" || req.PlotID == "" {
		writeError(w, r, eris.Wrap(model.ErrValidation, "area_id and plot_id are required"))
		return
	}

	result, err := h.lifecycle.ExecuteAction(r.Context(), req.AreaID, req.PlotID, req.ActionType, r.Header.Get(adminHeader))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.store.Stats(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// saveUpload copies the named multipart file onto disk and returns its path.
// The pipeline owns the file from then on and removes it when the scan ends.
func saveUpload(r *http.Request, field string) (string, error) {
	file, header, err := r.FormFile(field)
	if err != nil {
		return "", eris.Wrapf(model.ErrValidation, "missing %s upload", field)
	}
	defer file.Close()
	return spoolToTemp(file, header)
}

func spoolToTemp(file multipart.File, header *multipart.FileHeader) (string, error) {
	tmp, err := os.CreateTemp("", "geoaudit-upload-*")
	if err != nil {
		return "", eris.Wrap(err, "api: create temp upload")
	}
	if _, err := io.Copy(tmp, file); err != nil {
		tmp.Close()
		removeQuiet(tmp.Name())
		return "", eris.Wrapf(err, "api: spool upload %s", header.Filename)
	}
	if err := tmp.Close(); err != nil {
		removeQuiet(tmp.Name())
		return "", eris.Wrap(err, "api: close temp upload")
	}
	return tmp.Name(), nil
}

func removeQuiet(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		zap.L().Warn("api: remove temp upload", zap.String("path", path), zap.Error(err))
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("api: encode response", zap.Error(err))
	}
}

func atoiDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
