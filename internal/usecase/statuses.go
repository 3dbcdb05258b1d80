package usecase

import (
	"context"
	"errors"

	"github.com/xavierca1/agency-pipeline/internal/entity"
)

// StatusCatalogUseCase manages the pipeline stages of a tenant.
type StatusCatalogUseCase struct {
	Repo  StatusRepositoryInterface
	Cache CacheInvalidator
}

func NewStatusCatalogUseCase(repo StatusRepositoryInterface, cache CacheInvalidator) *StatusCatalogUseCase {
	return &StatusCatalogUseCase{Repo: repo, Cache: cache}
}

func (uc *StatusCatalogUseCase) List(ctx context.Context, tenantID string) ([]entity.StatusEntry, error) {
	statuses, err := uc.Repo.FetchActiveStatuses(ctx, tenantID)
	if err != nil {
		return nil, &TechnicalError{Code: "DATABASE_ERROR", Message: "failed to load pipeline stages", Err: err}
	}
	return statuses, nil
}

// Create appends a stage after the last one.
func (uc *StatusCatalogUseCase) Create(ctx context.Context, input CreateStatusInput) (*entity.StatusEntry, error) {
	maxOrder, err := uc.Repo.MaxDisplayOrder(ctx, input.TenantID)
	if err != nil {
		return nil, &TechnicalError{Code: "DATABASE_ERROR", Message: "failed to read stage order", Err: err}
	}
	entry, err := entity.NewStatusEntry(input.TenantID, input.Name, maxOrder+1)
	if err != nil {
		return nil, &DomainError{Code: "VALIDATION_ERROR", Message: err.Error()}
	}
	if err := uc.Repo.Create(ctx, entry); err != nil {
		if errors.Is(err, entity.ErrAlreadyExists) {
			return nil, &DomainError{Code: "STATUS_EXISTS", Message: "a stage named '" + entry.Name + "' already exists"}
		}
		return nil, &TechnicalError{Code: "DATABASE_ERROR", Message: "failed to create stage", Err: err}
	}
	invalidate(ctx, uc.Cache, input.TenantID)
	return entry, nil
}

// Deactivate hides a stage from the board. Default stages are refused.
func (uc *StatusCatalogUseCase) Deactivate(ctx context.Context, tenantID, statusID string) error {
	entry, err := uc.Repo.FindByID(ctx, tenantID, statusID)
	if err != nil {
		if errors.Is(err, entity.ErrNotFound) {
			return &DomainError{Code: "STATUS_NOT_FOUND", Message: "stage not found"}
		}
		return &TechnicalError{Code: "DATABASE_ERROR", Message: "failed to load stage", Err: err}
	}
	if entry.IsDefault {
		return &DomainError{Code: "DEFAULT_STATUS", Message: entity.ErrDefaultStatus.Error()}
	}
	if err := uc.Repo.Deactivate(ctx, tenantID, statusID); err != nil {
		return &TechnicalError{Code: "DATABASE_ERROR", Message: "failed to deactivate stage", Err: err}
	}
	invalidate(ctx, uc.Cache, tenantID)
	return nil
}
