package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/xavierca1/agency-pipeline/internal/entity"
)

// ChangeLeadStatusUseCase is the ordinary pipeline transition: one status
// update plus a best-effort history row.
type ChangeLeadStatusUseCase struct {
	LeadRepo    LeadRepositoryInterface
	HistoryRepo HistoryRepositoryInterface
	Metrics     MetricsRecorder
	Now         func() time.Time
}

func NewChangeLeadStatusUseCase(
	leadRepo LeadRepositoryInterface,
	historyRepo HistoryRepositoryInterface,
	metrics MetricsRecorder,
) *ChangeLeadStatusUseCase {
	if metrics == nil {
		metrics = noopMetrics{}
	}
	return &ChangeLeadStatusUseCase{
		LeadRepo:    leadRepo,
		HistoryRepo: historyRepo,
		Metrics:     metrics,
		Now:         time.Now,
	}
}

func (uc *ChangeLeadStatusUseCase) Execute(ctx context.Context, input ChangeLeadStatusInput) error {
	newStatus := strings.TrimSpace(input.NewStatus)
	if newStatus == "" {
		return validationFailed([]ValidationError{{"status", "is required"}})
	}

	previous := input.PreviousStatus
	if previous == "" {
		lead, err := uc.LeadRepo.FindByID(ctx, input.TenantID, input.LeadID)
		if err != nil {
			return leadLookupError(err)
		}
		previous = lead.Status
	}

	if err := uc.LeadRepo.UpdateStatus(ctx, input.TenantID, input.LeadID, newStatus); err != nil {
		if errors.Is(err, entity.ErrNotFound) {
			return &DomainError{Code: "LEAD_NOT_FOUND", Message: "lead not found"}
		}
		return &TechnicalError{Code: "DATABASE_ERROR", Message: "failed to update lead status", Err: err}
	}

	if previous != newStatus {
		uc.appendHistory(ctx, input.LeadID, entity.StatusPtr(previous), newStatus, input.ActorID)
	}
	return nil
}

// appendHistory never fails the caller: the status change already happened.
func (uc *ChangeLeadStatusUseCase) appendHistory(ctx context.Context, leadID string, old *string, newStatus, actorID string) {
	entry := entity.NewHistoryEntry(leadID, old, newStatus, actorID, uc.Now())
	if err := uc.HistoryRepo.Append(ctx, entry); err != nil {
		log.WithFields(log.Fields{"lead_id": leadID, "new_status": newStatus}).WithError(err).Warn("status history not recorded")
		uc.Metrics.RecordBestEffortFailure("status_history")
	}
}

func leadLookupError(err error) error {
	if errors.Is(err, entity.ErrNotFound) {
		return &DomainError{Code: "LEAD_NOT_FOUND", Message: "lead not found"}
	}
	return &TechnicalError{Code: "DATABASE_ERROR", Message: "failed to load lead", Err: err}
}
