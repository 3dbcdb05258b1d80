package usecase

import (
	"context"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/xavierca1/agency-pipeline/internal/entity"
)

// CaptureLeadUseCase registers an intake lead in the first stage of the
// tenant pipeline. Capturing the same email again refreshes the contact
// fields instead of creating a duplicate.
type CaptureLeadUseCase struct {
	LeadRepo    LeadRepositoryInterface
	StatusRepo  StatusRepositoryInterface
	HistoryRepo HistoryRepositoryInterface
	Cache       CacheInvalidator
	Now         func() time.Time
}

func NewCaptureLeadUseCase(
	leadRepo LeadRepositoryInterface,
	statusRepo StatusRepositoryInterface,
	historyRepo HistoryRepositoryInterface,
	cache CacheInvalidator,
) *CaptureLeadUseCase {
	return &CaptureLeadUseCase{
		LeadRepo:    leadRepo,
		StatusRepo:  statusRepo,
		HistoryRepo: historyRepo,
		Cache:       cache,
		Now:         time.Now,
	}
}

func (uc *CaptureLeadUseCase) Execute(ctx context.Context, input CaptureLeadInput) (*CaptureLeadOutput, error) {
	if errs := ValidateCaptureLeadInput(input); len(errs) > 0 {
		return nil, validationFailed(errs)
	}

	statuses, err := uc.StatusRepo.FetchActiveStatuses(ctx, input.TenantID)
	if err != nil {
		return nil, &TechnicalError{Code: "DATABASE_ERROR", Message: "failed to load pipeline stages", Err: err}
	}
	if len(statuses) == 0 {
		return nil, &DomainError{Code: "PIPELINE_NOT_CONFIGURED", Message: "tenant has no active pipeline stages"}
	}

	now := uc.Now()
	lead := &entity.Lead{
		TenantID:           input.TenantID,
		Name:               strings.TrimSpace(input.Name),
		Email:              strings.ToLower(strings.TrimSpace(input.Email)),
		Phone:              input.Phone,
		BusinessName:       input.BusinessName,
		LeadSource:         input.LeadSource,
		BudgetRange:        input.BudgetRange,
		ServicesInterested: input.ServicesInterested,
		Status:             statuses[0].Name,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	created, err := uc.LeadRepo.Upsert(ctx, lead)
	if err != nil {
		return nil, &TechnicalError{Code: "DATABASE_ERROR", Message: "failed to capture lead", Err: err}
	}

	if created {
		entry := entity.NewHistoryEntry(lead.ID, nil, lead.Status, "", now)
		if err := uc.HistoryRepo.Append(ctx, entry); err != nil {
			log.WithField("lead_id", lead.ID).WithError(err).Warn("initial status history not recorded")
		}
	}

	invalidate(ctx, uc.Cache, input.TenantID)
	return &CaptureLeadOutput{Lead: lead, Created: created}, nil
}

func invalidate(ctx context.Context, cache CacheInvalidator, tenantID string) {
	if cache == nil {
		return
	}
	if err := cache.Invalidate(ctx, tenantID); err != nil {
		log.WithField("tenant_id", tenantID).WithError(err).Warn("cache invalidation failed")
	}
}
