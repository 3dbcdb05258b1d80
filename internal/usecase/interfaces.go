package usecase

import (
	"context"

	"github.com/xavierca1/agency-pipeline/internal/entity"
)

type LeadRepositoryInterface interface {
	Upsert(ctx context.Context, lead *entity.Lead) (bool, error)
	FindByID(ctx context.Context, tenantID, id string) (*entity.Lead, error)
	UpdateStatus(ctx context.Context, tenantID, leadID, status string) error
	LinkClient(ctx context.Context, tenantID, leadID, clientID, status string) error
	Update(ctx context.Context, lead *entity.Lead) error
	Delete(ctx context.Context, tenantID, id string) error
}

type HistoryRepositoryInterface interface {
	Append(ctx context.Context, entry *entity.HistoryEntry) error
}

type StatusRepositoryInterface interface {
	FetchActiveStatuses(ctx context.Context, tenantID string) ([]entity.StatusEntry, error)
	FindByID(ctx context.Context, tenantID, id string) (*entity.StatusEntry, error)
	MaxDisplayOrder(ctx context.Context, tenantID string) (int, error)
	Create(ctx context.Context, s *entity.StatusEntry) error
	Deactivate(ctx context.Context, tenantID, id string) error
}

type ClientRepositoryInterface interface {
	FindByEmail(ctx context.Context, tenantID, email string) (*entity.Client, error)
	Create(ctx context.Context, c *entity.Client) error
}

type ProjectRepositoryInterface interface {
	Create(ctx context.Context, p *entity.Project) error
}

// LoginProvisioner creates portal credentials for a client. It reports
// failure in the result instead of an error because callers treat it as
// best-effort.
type LoginProvisioner interface {
	ProvisionClientLogin(ctx context.Context, input ProvisionLoginInput) ProvisionLoginResult
}

// CacheInvalidator drops every cached read for a tenant so the next load
// goes to the database.
type CacheInvalidator interface {
	Invalidate(ctx context.Context, tenantID string) error
}

// MetricsRecorder counts outcomes the dashboards care about.
type MetricsRecorder interface {
	RecordConversion(existingClient bool)
	RecordBestEffortFailure(operation string)
}

type noopMetrics struct{}

func (noopMetrics) RecordConversion(bool)          {}
func (noopMetrics) RecordBestEffortFailure(string) {}
