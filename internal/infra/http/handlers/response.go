package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	log "github.com/sirupsen/logrus"

	"github.com/xavierca1/agency-pipeline/internal/pipeline"
	"github.com/xavierca1/agency-pipeline/internal/usecase"
)

type ErrorResponse struct {
	Code   string                    `json:"code"`
	Error  string                    `json:"error"`
	Fields []usecase.ValidationError `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

func writeErrorResponse(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Code: code, Error: message})
}

// domainStatus maps business rule codes to HTTP statuses. Unlisted codes are 422.
var domainStatus = map[string]int{
	"VALIDATION_ERROR":        http.StatusBadRequest,
	"LEAD_NOT_FOUND":          http.StatusNotFound,
	"STATUS_NOT_FOUND":        http.StatusNotFound,
	"LEAD_ALREADY_CONVERTED":  http.StatusConflict,
	"STATUS_EXISTS":           http.StatusConflict,
	"EMAIL_IN_USE":            http.StatusConflict,
	"DEFAULT_STATUS":          http.StatusConflict,
	"PIPELINE_NOT_CONFIGURED": http.StatusConflict,
}

func errorStatus(err error) (int, ErrorResponse) {
	var de *usecase.DomainError
	if errors.As(err, &de) {
		status, ok := domainStatus[de.Code]
		if !ok {
			status = http.StatusUnprocessableEntity
		}
		return status, ErrorResponse{Code: de.Code, Error: de.Message, Fields: de.Fields}
	}

	switch {
	case errors.Is(err, pipeline.ErrUnknownLead):
		return http.StatusNotFound, ErrorResponse{Code: "LEAD_NOT_FOUND", Error: err.Error()}
	case errors.Is(err, pipeline.ErrUnknownColumn), errors.Is(err, pipeline.ErrLeadNotInColumn):
		return http.StatusConflict, ErrorResponse{Code: "STALE_BOARD", Error: err.Error()}
	case errors.Is(err, pipeline.ErrNotLoaded):
		return http.StatusServiceUnavailable, ErrorResponse{Code: "BOARD_NOT_LOADED", Error: err.Error()}
	}

	var te *usecase.TechnicalError
	if errors.As(err, &te) {
		return http.StatusInternalServerError, ErrorResponse{Code: te.Code, Error: te.Message}
	}
	return http.StatusInternalServerError, ErrorResponse{Code: "INTERNAL_ERROR", Error: "internal error"}
}

func writeUseCaseError(w http.ResponseWriter, r *http.Request, err error) {
	status, body := errorStatus(err)
	if status >= http.StatusInternalServerError {
		log.WithError(err).WithField("path", r.URL.Path).Error("request failed")
	}
	writeJSON(w, status, body)
}
