package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/xavierca1/agency-pipeline/internal/infra/http/middleware"
	"github.com/xavierca1/agency-pipeline/internal/usecase"
)

type StatusHandler struct {
	Catalog *usecase.StatusCatalogUseCase
}

func NewStatusHandler(catalog *usecase.StatusCatalogUseCase) *StatusHandler {
	return &StatusHandler{Catalog: catalog}
}

// List (GET /statuses)
func (h *StatusHandler) List(w http.ResponseWriter, r *http.Request) {
	statuses, err := h.Catalog.List(r.Context(), middleware.TenantID(r.Context()))
	if err != nil {
		writeUseCaseError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"statuses": statuses})
}

// Create (POST /statuses)
func (h *StatusHandler) Create(w http.ResponseWriter, r *http.Request) {
	var input usecase.CreateStatusInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "INVALID_JSON", "invalid JSON")
		return
	}
	input.TenantID = middleware.TenantID(r.Context())

	entry, err := h.Catalog.Create(r.Context(), input)
	if err != nil {
		writeUseCaseError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

// Deactivate (DELETE /statuses/{id})
func (h *StatusHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	err := h.Catalog.Deactivate(r.Context(), middleware.TenantID(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeUseCaseError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
