package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path"
	"strconv"

	"github.com/go-chi/chi/v5"

	"printforge/internal/domain"
	"printforge/pkg/zip"
)

type jobCreateRequest struct {
	Description string  `json:"description"`
	Style       string  `json:"style"`
	SizeMM      float64 `json:"size_mm"`
}

type jobResponse struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"`
}

// JobsCreate submits a full-pipeline job (image + mesh in one pass).
func (a *App) JobsCreate(w http.ResponseWriter, r *http.Request) {
	var req jobCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if req.Description == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "description required")
		return
	}
	jobID, err := a.Svc.SubmitJob(r.Context(), req.Description, req.Style, req.SizeMM)
	if err != nil {
		a.error(w, http.StatusInternalServerError, "internal", "failed to create job")
		return
	}
	if err := a.Worker.Enqueue(jobID); err != nil {
		a.Logger.Error().Err(err).Str("job_id", jobID).Msg("handlers: enqueue failed")
		a.error(w, http.StatusServiceUnavailable, "queue_full", "try again later")
		return
	}
	a.json(w, http.StatusAccepted, jobResponse{JobID: jobID, Status: string(domain.JobStatusPending)})
}

// ConceptsCreate submits a concept-only job; mesh generation waits for payment.
func (a *App) ConceptsCreate(w http.ResponseWriter, r *http.Request) {
	var req jobCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if req.Description == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "description required")
		return
	}
	jobID, err := a.Svc.SubmitConceptJob(r.Context(), req.Description, req.Style)
	if err != nil {
		a.error(w, http.StatusInternalServerError, "internal", "failed to create job")
		return
	}
	if err := a.Worker.Enqueue(jobID); err != nil {
		a.Logger.Error().Err(err).Str("job_id", jobID).Msg("handlers: enqueue failed")
		a.error(w, http.StatusServiceUnavailable, "queue_full", "try again later")
		return
	}
	a.json(w, http.StatusAccepted, jobResponse{JobID: jobID, Status: string(domain.JobStatusPending)})
}

// JobStatus returns the stored job fields, or 404 for an unknown id.
func (a *App) JobStatus(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "job_id")
	if jobID == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "job_id required")
		return
	}
	job, err := a.Svc.GetJobStatus(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			a.error(w, http.StatusNotFound, "not_found", "job not found")
			return
		}
		a.error(w, http.StatusInternalServerError, "internal", "failed to load job")
		return
	}
	a.json(w, http.StatusOK, jobJSON(job))
}

// JobsList returns recent jobs, newest first.
func (a *App) JobsList(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}
	jobs, err := a.Svc.ListJobs(r.Context(), limit)
	if err != nil {
		a.error(w, http.StatusInternalServerError, "internal", "failed to list jobs")
		return
	}
	items := make([]map[string]any, 0, len(jobs))
	for i := range jobs {
		items = append(items, jobJSON(&jobs[i]))
	}
	a.json(w, http.StatusOK, map[string]any{"jobs": items})
}

// JobBundle zips the job's locally stored artifacts (concept image plus the
// downloaded mesh) into one download.
func (a *App) JobBundle(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "job_id")
	job, err := a.Svc.GetJobStatus(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			a.error(w, http.StatusNotFound, "not_found", "job not found")
			return
		}
		a.error(w, http.StatusInternalServerError, "internal", "failed to load job")
		return
	}

	var assets []zip.Asset
	for _, key := range []string{job.ImagePath, job.MeshPath} {
		if key == "" {
			continue
		}
		data, err := a.Store.Read(r.Context(), key)
		if err != nil {
			a.Logger.Warn().Err(err).Str("job_id", jobID).Str("key", key).Msg("handlers: bundle asset missing")
			continue
		}
		assets = append(assets, zip.Asset{Filename: path.Base(key), Data: data})
	}
	if len(assets) == 0 {
		a.error(w, http.StatusNotFound, "not_found", "no artifacts stored yet")
		return
	}

	archive := zip.ArchiveAssets(assets)
	if archive == nil {
		a.error(w, http.StatusInternalServerError, "internal", "failed to build archive")
		return
	}
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", jobID+".zip"))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(archive)
}

func jobJSON(job *domain.Job) map[string]any {
	return map[string]any{
		"id":            job.ID,
		"description":   job.Description,
		"style":         job.Style,
		"size_mm":       job.SizeMM,
		"concept_only":  job.ConceptOnly,
		"status":        job.Status,
		"progress":      job.Progress,
		"image_path":    job.ImagePath,
		"image_url":     job.ImageURL,
		"mesh_path":     job.MeshPath,
		"mesh_url":      job.MeshURL,
		"mesh_urls":     job.MeshURLs,
		"error_message": job.ErrorMessage,
		"created_at":    job.CreatedAt,
		"updated_at":    job.UpdatedAt,
	}
}
