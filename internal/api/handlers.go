// Package api exposes the thin HTTP surface over the pipeline: signal
// ingestion, prospect lookup, and on-demand cycle triggering. The surface
// is deliberately small; transport and workflow orchestration live in the
// external collaborator.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/blueteamalpha/prospector/internal/normalizer"
	"github.com/blueteamalpha/prospector/internal/pipeline"
	"github.com/blueteamalpha/prospector/internal/registry"
)

// Handlers contains all HTTP handlers.
type Handlers struct {
	ingest    *normalizer.Service
	registry  *registry.Service
	prospects pipeline.ProspectStore
	pipeline  *pipeline.Pipeline
	started   time.Time
}

// NewHandlers creates a Handlers instance.
func NewHandlers(ingest *normalizer.Service, reg *registry.Service, prospects pipeline.ProspectStore, pl *pipeline.Pipeline) *Handlers {
	return &Handlers{
		ingest:    ingest,
		registry:  reg,
		prospects: prospects,
		pipeline:  pl,
		started:   time.Now().UTC(),
	}
}

// HealthCheck reports liveness and uptime.
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"uptime": time.Since(h.started).String(),
	})
}

// IngestSignals accepts a batch of producer events and reports per-item
// outcomes. A malformed item never aborts the batch.
func (h *Handlers) IngestSignals(w http.ResponseWriter, r *http.Request) {
	var events []normalizer.InboundEvent
	if err := json.NewDecoder(r.Body).Decode(&events); err != nil {
		writeJSONError(w, "invalid request body: expected a JSON array of signal events", http.StatusBadRequest)
		return
	}

	result, err := h.ingest.IngestBatch(r.Context(), events)
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// GetOrganization returns the canonical organization record.
func (h *Handlers) GetOrganization(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	org, err := h.registry.Get(r.Context(), key)
	if errors.Is(err, registry.ErrNotFound) {
		writeJSONError(w, "organization not found", http.StatusNotFound)
		return
	}
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, org)
}

// GetProspect returns the latest score for an organization.
func (h *Handlers) GetProspect(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	p, err := h.prospects.GetProspect(r.Context(), key)
	if errors.Is(err, registry.ErrNotFound) {
		writeJSONError(w, "prospect not scored yet", http.StatusNotFound)
		return
	}
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// RunPipeline triggers an on-demand scoring cycle and returns its report.
func (h *Handlers) RunPipeline(w http.ResponseWriter, r *http.Request) {
	report, err := h.pipeline.RunCycle(r.Context())
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

func writeJSONError(w http.ResponseWriter, message string, statusCode int) {
	writeJSON(w, statusCode, map[string]string{"error": message})
}
