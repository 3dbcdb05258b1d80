package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/xavierca1/agency-pipeline/internal/entity"
)

type LeadRepository struct {
	DB *sql.DB
}

func NewLeadRepository(db *sql.DB) *LeadRepository {
	return &LeadRepository{DB: db}
}

const leadColumns = `id, tenant_id, name, email, phone, business_name, lead_source, budget_range,
	services_interested, status, client_id, created_at, updated_at`

// Upsert inserts the lead or refreshes the contact fields of the open lead
// with the same (tenant, email). Converted leads never absorb a capture. It
// reports whether a new row was created.
func (r *LeadRepository) Upsert(ctx context.Context, lead *entity.Lead) (bool, error) {
	if lead.ID == "" {
		lead.ID = uuid.New().String()
	}
	query := `
		INSERT INTO leads (id, tenant_id, email, name, phone, business_name, lead_source, budget_range,
			services_interested, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $11)
		ON CONFLICT (tenant_id, email) WHERE status <> 'Converted'
		DO UPDATE SET
			name = COALESCE(EXCLUDED.name, leads.name),
			phone = COALESCE(EXCLUDED.phone, leads.phone),
			business_name = COALESCE(EXCLUDED.business_name, leads.business_name),
			lead_source = COALESCE(EXCLUDED.lead_source, leads.lead_source),
			budget_range = COALESCE(EXCLUDED.budget_range, leads.budget_range),
			services_interested = COALESCE(EXCLUDED.services_interested, leads.services_interested),
			updated_at = NOW()
		RETURNING id, status, client_id, created_at, updated_at, (xmax = 0) AS inserted
	`

	var services any
	if len(lead.ServicesInterested) > 0 {
		services = pq.Array(lead.ServicesInterested)
	}

	var clientID sql.NullString
	var inserted bool
	err := r.DB.QueryRowContext(
		ctx,
		query,
		lead.ID,
		lead.TenantID,
		lead.Email,
		nullString(lead.Name),
		nullString(lead.Phone),
		nullString(lead.BusinessName),
		nullString(lead.LeadSource),
		nullString(lead.BudgetRange),
		services,
		lead.Status,
		lead.CreatedAt,
	).Scan(
		&lead.ID,
		&lead.Status,
		&clientID,
		&lead.CreatedAt,
		&lead.UpdatedAt,
		&inserted,
	)
	if err != nil {
		return false, fmt.Errorf("upsert lead: %w", err)
	}
	lead.ClientID = clientID.String
	return inserted, nil
}

func (r *LeadRepository) FindByID(ctx context.Context, tenantID, id string) (*entity.Lead, error) {
	query := `SELECT ` + leadColumns + ` FROM leads WHERE tenant_id = $1 AND id = $2`
	lead, err := scanLead(r.DB.QueryRowContext(ctx, query, tenantID, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, entity.ErrNotFound
		}
		return nil, fmt.Errorf("find lead: %w", err)
	}
	return lead, nil
}

func (r *LeadRepository) FetchLeads(ctx context.Context, tenantID string) ([]entity.Lead, error) {
	query := `SELECT ` + leadColumns + ` FROM leads WHERE tenant_id = $1 ORDER BY created_at DESC`
	rows, err := r.DB.QueryContext(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("fetch leads: %w", err)
	}
	defer rows.Close()

	var leads []entity.Lead
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, fmt.Errorf("scan lead: %w", err)
		}
		if err := lead.Validate(); err != nil {
			return nil, err
		}
		leads = append(leads, *lead)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("fetch leads: %w", err)
	}
	return leads, nil
}

// FetchLeadsWithHistory returns the tenant's leads with their status history
// attached, oldest transition first.
func (r *LeadRepository) FetchLeadsWithHistory(ctx context.Context, tenantID string) ([]entity.Lead, error) {
	leads, err := r.FetchLeads(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	query := `
		SELECT h.id, h.lead_id, h.old_status, h.new_status, h.changed_by, h.changed_at
		FROM lead_status_history h
		JOIN leads l ON l.id = h.lead_id
		WHERE l.tenant_id = $1
		ORDER BY h.changed_at ASC
	`
	rows, err := r.DB.QueryContext(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("fetch status history: %w", err)
	}
	defer rows.Close()

	byLead := make(map[string][]entity.HistoryEntry, len(leads))
	for rows.Next() {
		h, err := scanHistory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan status history: %w", err)
		}
		if err := h.Validate(); err != nil {
			return nil, err
		}
		byLead[h.LeadID] = append(byLead[h.LeadID], *h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("fetch status history: %w", err)
	}

	for i := range leads {
		leads[i].History = byLead[leads[i].ID]
	}
	return leads, nil
}

func (r *LeadRepository) UpdateStatus(ctx context.Context, tenantID, leadID, status string) error {
	query := `UPDATE leads SET status = $3, updated_at = NOW() WHERE tenant_id = $1 AND id = $2`
	res, err := r.DB.ExecContext(ctx, query, tenantID, leadID, status)
	if err != nil {
		return fmt.Errorf("update lead status: %w", err)
	}
	return expectOneRow(res)
}

func (r *LeadRepository) LinkClient(ctx context.Context, tenantID, leadID, clientID, status string) error {
	query := `UPDATE leads SET status = $4, client_id = $3, updated_at = NOW() WHERE tenant_id = $1 AND id = $2`
	res, err := r.DB.ExecContext(ctx, query, tenantID, leadID, clientID, status)
	if err != nil {
		return fmt.Errorf("link lead to client: %w", err)
	}
	return expectOneRow(res)
}

// Update saves the edit-form fields. Status goes through UpdateStatus so the
// history stays in step.
func (r *LeadRepository) Update(ctx context.Context, lead *entity.Lead) error {
	query := `UPDATE leads SET name = $3, email = $4, phone = $5, updated_at = $6 WHERE tenant_id = $1 AND id = $2`
	res, err := r.DB.ExecContext(ctx, query,
		lead.TenantID, lead.ID, lead.Name, lead.Email, nullString(lead.Phone), lead.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return entity.ErrAlreadyExists
		}
		return fmt.Errorf("update lead: %w", err)
	}
	return expectOneRow(res)
}

func (r *LeadRepository) Delete(ctx context.Context, tenantID, id string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM leads WHERE tenant_id = $1 AND id = $2`, tenantID, id)
	if err != nil {
		return fmt.Errorf("delete lead: %w", err)
	}
	return expectOneRow(res)
}

func scanLead(s scanner) (*entity.Lead, error) {
	var lead entity.Lead
	var name, phone, business, source, budget, clientID sql.NullString
	err := s.Scan(
		&lead.ID,
		&lead.TenantID,
		&name,
		&lead.Email,
		&phone,
		&business,
		&source,
		&budget,
		pq.Array(&lead.ServicesInterested),
		&lead.Status,
		&clientID,
		&lead.CreatedAt,
		&lead.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	lead.Name = name.String
	lead.Phone = phone.String
	lead.BusinessName = business.String
	lead.LeadSource = source.String
	lead.BudgetRange = budget.String
	lead.ClientID = clientID.String
	return &lead, nil
}

func expectOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return entity.ErrNotFound
	}
	return nil
}
