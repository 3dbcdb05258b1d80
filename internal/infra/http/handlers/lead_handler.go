package handlers

import (
	"encoding/json"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/xavierca1/agency-pipeline/internal/infra/http/middleware"
	"github.com/xavierca1/agency-pipeline/internal/usecase"
)

type LeadHandler struct {
	CaptureUC   *usecase.CaptureLeadUseCase
	UpdateUC    *usecase.UpdateLeadUseCase
	DeleteUC    *usecase.DeleteLeadUseCase
	rateLimiter *RateLimiter
}

func NewLeadHandler(capture *usecase.CaptureLeadUseCase, update *usecase.UpdateLeadUseCase, del *usecase.DeleteLeadUseCase) *LeadHandler {
	return &LeadHandler{
		CaptureUC:   capture,
		UpdateUC:    update,
		DeleteUC:    del,
		rateLimiter: NewRateLimiter(10, time.Minute), // 10 req/min per IP
	}
}

// CaptureLead (POST /public/leads) is the website intake form. The tenant
// comes from the form body since there is no auth proxy in front of it.
func (h *LeadHandler) CaptureLead(w http.ResponseWriter, r *http.Request) {
	if !h.rateLimiter.Allow(getClientIP(r)) {
		writeErrorResponse(w, http.StatusTooManyRequests, "RATE_LIMITED", "too many requests, please try again later")
		return
	}

	var input usecase.CaptureLeadInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "INVALID_JSON", "invalid JSON")
		return
	}
	if input.TenantID == "" {
		input.TenantID = r.Header.Get(middleware.TenantHeader)
	}
	if input.TenantID == "" {
		writeErrorResponse(w, http.StatusBadRequest, "TENANT_REQUIRED", "tenant_id is required")
		return
	}

	out, err := h.CaptureUC.Execute(r.Context(), input)
	if err != nil {
		writeUseCaseError(w, r, err)
		return
	}

	status := http.StatusOK
	if out.Created {
		status = http.StatusCreated
	}
	writeJSON(w, status, out)
}

// UpdateLead (PATCH /leads/{id})
func (h *LeadHandler) UpdateLead(w http.ResponseWriter, r *http.Request) {
	var input usecase.UpdateLeadInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "INVALID_JSON", "invalid JSON")
		return
	}
	input.TenantID = middleware.TenantID(r.Context())
	input.ActorID = middleware.ActorID(r.Context())
	input.LeadID = chi.URLParam(r, "id")

	lead, err := h.UpdateUC.Execute(r.Context(), input)
	if err != nil {
		writeUseCaseError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, lead)
}

// DeleteLead (DELETE /leads/{id})
func (h *LeadHandler) DeleteLead(w http.ResponseWriter, r *http.Request) {
	err := h.DeleteUC.Execute(r.Context(), middleware.TenantID(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeUseCaseError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		// first hop is the client
		return strings.TrimSpace(strings.Split(xff, ",")[0])
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

type RateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	limit    int
	window   time.Duration
	now      func() time.Time
}

type visitor struct {
	count     int
	lastReset time.Time
}

func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	rl := &RateLimiter{
		visitors: make(map[string]*visitor),
		limit:    limit,
		window:   window,
		now:      time.Now,
	}

	go rl.cleanup()
	return rl
}

// Allow is a fixed window counter per key.
func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	v, exists := rl.visitors[key]
	now := rl.now()

	if !exists {
		rl.visitors[key] = &visitor{count: 1, lastReset: now}
		return true
	}

	if now.Sub(v.lastReset) > rl.window {
		v.count = 1
		v.lastReset = now
		return true
	}

	v.count++
	return v.count <= rl.limit
}

func (rl *RateLimiter) cleanup() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		rl.mu.Lock()
		now := rl.now()
		for key, v := range rl.visitors {
			if now.Sub(v.lastReset) > rl.window*2 {
				delete(rl.visitors, key)
			}
		}
		rl.mu.Unlock()
	}
}
