package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/xavierca1/agency-pipeline/internal/entity"
)

// UpdateLeadUseCase backs the lead edit form.
type UpdateLeadUseCase struct {
	LeadRepo   LeadRepositoryInterface
	StatusRepo StatusRepositoryInterface
	Status     *ChangeLeadStatusUseCase
	Cache      CacheInvalidator
	Now        func() time.Time
}

func NewUpdateLeadUseCase(
	leadRepo LeadRepositoryInterface,
	statusRepo StatusRepositoryInterface,
	status *ChangeLeadStatusUseCase,
	cache CacheInvalidator,
) *UpdateLeadUseCase {
	return &UpdateLeadUseCase{
		LeadRepo:   leadRepo,
		StatusRepo: statusRepo,
		Status:     status,
		Cache:      cache,
		Now:        time.Now,
	}
}

func (uc *UpdateLeadUseCase) Execute(ctx context.Context, input UpdateLeadInput) (*entity.Lead, error) {
	if errs := ValidateUpdateLeadInput(input); len(errs) > 0 {
		return nil, validationFailed(errs)
	}

	lead, err := uc.LeadRepo.FindByID(ctx, input.TenantID, input.LeadID)
	if err != nil {
		return nil, leadLookupError(err)
	}

	newStatus := strings.TrimSpace(input.Status)
	if newStatus != lead.Status {
		if newStatus == entity.StatusConverted {
			return nil, &DomainError{Code: "CONVERSION_REQUIRED", Message: "use the conversion workflow to convert a lead"}
		}
		if err := uc.ensureActiveStatus(ctx, input.TenantID, newStatus); err != nil {
			return nil, err
		}
	}

	previous := lead.Status
	lead.Name = strings.TrimSpace(input.Name)
	lead.Email = strings.ToLower(strings.TrimSpace(input.Email))
	lead.Phone = input.Phone
	lead.UpdatedAt = uc.Now()

	if err := uc.LeadRepo.Update(ctx, lead); err != nil {
		if errors.Is(err, entity.ErrAlreadyExists) {
			return nil, &DomainError{Code: "EMAIL_IN_USE", Message: "another lead already uses this email"}
		}
		return nil, &TechnicalError{Code: "DATABASE_ERROR", Message: "failed to update lead", Err: err}
	}

	if newStatus != previous {
		err := uc.Status.Execute(ctx, ChangeLeadStatusInput{
			TenantID:       input.TenantID,
			LeadID:         lead.ID,
			NewStatus:      newStatus,
			PreviousStatus: previous,
			ActorID:        input.ActorID,
		})
		if err != nil {
			invalidate(ctx, uc.Cache, input.TenantID)
			return nil, err
		}
		lead.Status = newStatus
	}

	invalidate(ctx, uc.Cache, input.TenantID)
	return lead, nil
}

func (uc *UpdateLeadUseCase) ensureActiveStatus(ctx context.Context, tenantID, status string) error {
	statuses, err := uc.StatusRepo.FetchActiveStatuses(ctx, tenantID)
	if err != nil {
		return &TechnicalError{Code: "DATABASE_ERROR", Message: "failed to load pipeline stages", Err: err}
	}
	for _, s := range statuses {
		if s.Name == status {
			return nil
		}
	}
	return &DomainError{Code: "UNKNOWN_STATUS", Message: "status '" + status + "' is not an active pipeline stage"}
}
