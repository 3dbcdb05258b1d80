package database

import (
	"context"

	"github.com/xavierca1/agency-pipeline/internal/entity"
)

// BoardSource is the uncached read side of a tenant board.
type BoardSource struct {
	Statuses *StatusRepository
	Leads    *LeadRepository
}

func (s BoardSource) FetchActiveStatuses(ctx context.Context, tenantID string) ([]entity.StatusEntry, error) {
	return s.Statuses.FetchActiveStatuses(ctx, tenantID)
}

func (s BoardSource) FetchLeadsWithHistory(ctx context.Context, tenantID string) ([]entity.Lead, error) {
	return s.Leads.FetchLeadsWithHistory(ctx, tenantID)
}
