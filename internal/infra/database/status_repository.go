package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/xavierca1/agency-pipeline/internal/entity"
)

type StatusRepository struct {
	DB *sql.DB
}

func NewStatusRepository(db *sql.DB) *StatusRepository {
	return &StatusRepository{DB: db}
}

const statusColumns = `id, tenant_id, name, display_order, is_active, is_default, created_at`

func (r *StatusRepository) FetchActiveStatuses(ctx context.Context, tenantID string) ([]entity.StatusEntry, error) {
	query := `SELECT ` + statusColumns + ` FROM lead_statuses WHERE tenant_id = $1 AND is_active = TRUE ORDER BY display_order ASC`
	rows, err := r.DB.QueryContext(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("fetch statuses: %w", err)
	}
	defer rows.Close()

	var statuses []entity.StatusEntry
	for rows.Next() {
		s, err := scanStatus(rows)
		if err != nil {
			return nil, fmt.Errorf("scan status: %w", err)
		}
		if err := s.Validate(); err != nil {
			return nil, err
		}
		statuses = append(statuses, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("fetch statuses: %w", err)
	}
	return statuses, nil
}

func (r *StatusRepository) FindByID(ctx context.Context, tenantID, id string) (*entity.StatusEntry, error) {
	query := `SELECT ` + statusColumns + ` FROM lead_statuses WHERE tenant_id = $1 AND id = $2`
	s, err := scanStatus(r.DB.QueryRowContext(ctx, query, tenantID, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, entity.ErrNotFound
		}
		return nil, fmt.Errorf("find status: %w", err)
	}
	return s, nil
}

// MaxDisplayOrder returns -1 for an empty catalog.
func (r *StatusRepository) MaxDisplayOrder(ctx context.Context, tenantID string) (int, error) {
	var maxOrder int
	err := r.DB.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(display_order), -1) FROM lead_statuses WHERE tenant_id = $1`, tenantID,
	).Scan(&maxOrder)
	if err != nil {
		return 0, fmt.Errorf("max display order: %w", err)
	}
	return maxOrder, nil
}

func (r *StatusRepository) Create(ctx context.Context, s *entity.StatusEntry) error {
	query := `
		INSERT INTO lead_statuses (id, tenant_id, name, display_order, is_active, is_default, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.DB.ExecContext(ctx, query, s.ID, s.TenantID, s.Name, s.DisplayOrder, s.Active, s.IsDefault, s.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return entity.ErrAlreadyExists
		}
		return fmt.Errorf("create status: %w", err)
	}
	return nil
}

func (r *StatusRepository) Deactivate(ctx context.Context, tenantID, id string) error {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE lead_statuses SET is_active = FALSE WHERE tenant_id = $1 AND id = $2 AND is_default = FALSE`,
		tenantID, id)
	if err != nil {
		return fmt.Errorf("deactivate status: %w", err)
	}
	return expectOneRow(res)
}

func scanStatus(s scanner) (*entity.StatusEntry, error) {
	var e entity.StatusEntry
	if err := s.Scan(&e.ID, &e.TenantID, &e.Name, &e.DisplayOrder, &e.Active, &e.IsDefault, &e.CreatedAt); err != nil {
		return nil, err
	}
	return &e, nil
}
