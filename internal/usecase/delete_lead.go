package usecase

import (
	"context"
	"errors"

	"github.com/xavierca1/agency-pipeline/internal/entity"
)

type DeleteLeadUseCase struct {
	LeadRepo LeadRepositoryInterface
	Cache    CacheInvalidator
}

func NewDeleteLeadUseCase(leadRepo LeadRepositoryInterface, cache CacheInvalidator) *DeleteLeadUseCase {
	return &DeleteLeadUseCase{LeadRepo: leadRepo, Cache: cache}
}

// Execute removes the lead. Its status history stays in the audit log.
func (uc *DeleteLeadUseCase) Execute(ctx context.Context, tenantID, leadID string) error {
	if err := uc.LeadRepo.Delete(ctx, tenantID, leadID); err != nil {
		if errors.Is(err, entity.ErrNotFound) {
			return &DomainError{Code: "LEAD_NOT_FOUND", Message: "lead not found"}
		}
		return &TechnicalError{Code: "DATABASE_ERROR", Message: "failed to delete lead", Err: err}
	}
	invalidate(ctx, uc.Cache, tenantID)
	return nil
}
