package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"printforge/internal/domain"
	"printforge/internal/providers/fulfill"
)

type paymentWebhookRequest struct {
	JobID       string `json:"job_id"`
	MeshStyle   string `json:"mesh_style"`
	MaterialKey string `json:"material_key"`
	Email       string `json:"email"`
	Shipping    struct {
		Name    string `json:"name"`
		Street  string `json:"street"`
		City    string `json:"city"`
		State   string `json:"state"`
		Zip     string `json:"zip"`
		Country string `json:"country"`
	} `json:"shipping"`
}

// PaymentWebhook is the deferred-3D trigger: invoked once per confirmed
// payment, it queues mesh generation for a concept job and returns without
// waiting for the generation itself.
func (a *App) PaymentWebhook(w http.ResponseWriter, r *http.Request) {
	var req paymentWebhookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if req.JobID == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "job_id required")
		return
	}
	if req.MeshStyle == "" {
		req.MeshStyle = "detailed"
	}
	if req.MaterialKey == "" {
		req.MaterialKey = "plastic_white"
	}

	job, err := a.Svc.GetJobStatus(r.Context(), req.JobID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			a.error(w, http.StatusNotFound, "not_found", "job not found")
			return
		}
		a.error(w, http.StatusInternalServerError, "internal", "failed to load job")
		return
	}
	if job.ImagePath == "" {
		a.error(w, http.StatusConflict, "no_concept_image", "concept generation has not finished")
		return
	}

	address := fulfill.ShippingAddress{
		Name:    req.Shipping.Name,
		Street:  req.Shipping.Street,
		City:    req.Shipping.City,
		State:   req.Shipping.State,
		Zip:     req.Shipping.Zip,
		Country: req.Shipping.Country,
	}
	if err := a.Trigger.Fire(req.JobID, req.MeshStyle, req.MaterialKey, req.Email, address); err != nil {
		a.Logger.Error().Err(err).Str("job_id", req.JobID).Msg("handlers: deferred trigger dispatch failed")
		a.error(w, http.StatusServiceUnavailable, "queue_full", "try again later")
		return
	}
	a.json(w, http.StatusOK, map[string]string{"status": "accepted", "job_id": req.JobID})
}
