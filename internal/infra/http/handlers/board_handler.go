package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/xavierca1/agency-pipeline/internal/entity"
	"github.com/xavierca1/agency-pipeline/internal/infra/http/middleware"
	"github.com/xavierca1/agency-pipeline/internal/pipeline"
)

const dateLayout = "2006-01-02"

type BoardHandler struct {
	Registry *pipeline.Registry
	Location *time.Location
}

func NewBoardHandler(registry *pipeline.Registry, loc *time.Location) *BoardHandler {
	if loc == nil {
		loc = time.Local
	}
	return &BoardHandler{Registry: registry, Location: loc}
}

type BoardResponse struct {
	pipeline.Board
	NeedsConfiguration bool `json:"needs_configuration"`
}

type MoveResponse struct {
	Move  *pipeline.Move  `json:"move"`
	Board *pipeline.Board `json:"board,omitempty"`
	Error *ErrorResponse  `json:"error,omitempty"`
}

// GetBoard (GET /board?q=&date=&start=&end=&status=)
func (h *BoardHandler) GetBoard(w http.ResponseWriter, r *http.Request) {
	f, ok := h.parseFilter(w, r)
	if !ok {
		return
	}
	c, err := h.Registry.Controller(r.Context(), middleware.TenantID(r.Context()))
	if err != nil {
		writeErrorResponse(w, http.StatusServiceUnavailable, "BOARD_UNAVAILABLE", "could not load the pipeline")
		return
	}

	board := c.View(f)
	writeJSON(w, http.StatusOK, BoardResponse{Board: board, NeedsConfiguration: board.NeedsConfiguration()})
}

// ListLeads (GET /leads) is the table view with the same filters as the board.
func (h *BoardHandler) ListLeads(w http.ResponseWriter, r *http.Request) {
	f, ok := h.parseFilter(w, r)
	if !ok {
		return
	}
	c, err := h.Registry.Controller(r.Context(), middleware.TenantID(r.Context()))
	if err != nil {
		writeErrorResponse(w, http.StatusServiceUnavailable, "BOARD_UNAVAILABLE", "could not load the pipeline")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"leads": c.Leads(f)})
}

// Move (POST /board/moves). The board filters (q, date, start, end, status)
// may be repeated in the query string; Drop.Index then counts positions in
// that filtered board, as returned by GET /board with the same query.
func (h *BoardHandler) Move(w http.ResponseWriter, r *http.Request) {
	f, ok := h.parseFilter(w, r)
	if !ok {
		return
	}
	var drop pipeline.Drop
	if err := json.NewDecoder(r.Body).Decode(&drop); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "INVALID_JSON", "invalid JSON")
		return
	}
	if drop.LeadID == "" || drop.Source == "" || drop.Destination == "" {
		writeErrorResponse(w, http.StatusBadRequest, "MISSING_FIELDS", "lead_id, source and destination are required")
		return
	}
	drop.ActorID = middleware.ActorID(r.Context())

	c, err := h.Registry.Controller(r.Context(), middleware.TenantID(r.Context()))
	if err != nil {
		writeErrorResponse(w, http.StatusServiceUnavailable, "BOARD_UNAVAILABLE", "could not load the pipeline")
		return
	}
	runMove(w, r, c, drop, f)
}

// Convert (POST /leads/{id}/convert) drops the lead on the Converted column.
func (h *BoardHandler) Convert(w http.ResponseWriter, r *http.Request) {
	leadID := chi.URLParam(r, "id")
	c, err := h.Registry.Controller(r.Context(), middleware.TenantID(r.Context()))
	if err != nil {
		writeErrorResponse(w, http.StatusServiceUnavailable, "BOARD_UNAVAILABLE", "could not load the pipeline")
		return
	}
	lead, ok := c.Lead(leadID)
	if !ok {
		writeErrorResponse(w, http.StatusNotFound, "LEAD_NOT_FOUND", "lead not found")
		return
	}
	if lead.IsConverted() {
		writeErrorResponse(w, http.StatusConflict, "LEAD_ALREADY_CONVERTED", entity.ErrLeadAlreadyConverted.Error())
		return
	}
	runMove(w, r, c, pipeline.Drop{
		LeadID:      leadID,
		Source:      lead.Status,
		Destination: entity.StatusConverted,
		ActorID:     middleware.ActorID(r.Context()),
	}, pipeline.Filter{})
}

// runMove answers with the reconciled board in both outcomes, so a rolled
// back move still tells the client what the board looks like now.
func runMove(w http.ResponseWriter, r *http.Request, c *pipeline.Controller, drop pipeline.Drop, view pipeline.Filter) {
	var (
		m     *pipeline.Move
		err   error
		board pipeline.Board
	)
	if view.IsZero() {
		m, err = c.Move(r.Context(), drop)
	} else {
		m, err = c.MoveInView(r.Context(), drop, view)
	}
	if err != nil && m.State == pipeline.MoveIdle {
		writeUseCaseError(w, r, err)
		return
	}

	if view.IsZero() {
		board = c.Board()
	} else {
		board = c.View(view)
	}
	resp := MoveResponse{Move: m, Board: &board}
	if err != nil {
		status, body := errorStatus(err)
		resp.Error = &body
		writeJSON(w, status, resp)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *BoardHandler) parseFilter(w http.ResponseWriter, r *http.Request) (pipeline.Filter, bool) {
	q := r.URL.Query()
	f := pipeline.Filter{
		Search:   q.Get("q"),
		Status:   strings.TrimSpace(q.Get("status")),
		Location: h.Location,
	}
	for _, p := range []struct {
		name string
		dst  **time.Time
	}{
		{"date", &f.Date},
		{"start", &f.StartDate},
		{"end", &f.EndDate},
	} {
		raw := strings.TrimSpace(q.Get(p.name))
		if raw == "" {
			continue
		}
		t, err := time.ParseInLocation(dateLayout, raw, h.Location)
		if err != nil {
			writeErrorResponse(w, http.StatusBadRequest, "INVALID_FILTER", p.name+" must be YYYY-MM-DD")
			return f, false
		}
		*p.dst = &t
	}
	return f, true
}
