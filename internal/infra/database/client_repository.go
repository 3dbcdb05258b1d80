package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/xavierca1/agency-pipeline/internal/entity"
)

type ClientRepository struct {
	DB *sql.DB
}

func NewClientRepository(db *sql.DB) *ClientRepository {
	return &ClientRepository{DB: db}
}

func (r *ClientRepository) FindByEmail(ctx context.Context, tenantID, email string) (*entity.Client, error) {
	query := `
		SELECT id, tenant_id, lead_id, name, email, phone, business_name, services_interested, budget_range, created_at
		FROM clients
		WHERE tenant_id = $1 AND lower(email) = $2
		LIMIT 1
	`
	var c entity.Client
	var leadID, phone, business, budget sql.NullString
	err := r.DB.QueryRowContext(ctx, query, tenantID, strings.ToLower(strings.TrimSpace(email))).Scan(
		&c.ID,
		&c.TenantID,
		&leadID,
		&c.Name,
		&c.Email,
		&phone,
		&business,
		pq.Array(&c.ServicesInterested),
		&budget,
		&c.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, entity.ErrNotFound
		}
		return nil, fmt.Errorf("find client by email: %w", err)
	}
	c.LeadID = leadID.String
	c.Phone = phone.String
	c.BusinessName = business.String
	c.BudgetRange = budget.String
	return &c, nil
}

func (r *ClientRepository) Create(ctx context.Context, c *entity.Client) error {
	query := `
		INSERT INTO clients (id, tenant_id, lead_id, name, email, phone, business_name, services_interested, budget_range, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := r.DB.ExecContext(ctx, query,
		c.ID,
		c.TenantID,
		nullString(c.LeadID),
		c.Name,
		c.Email,
		nullString(c.Phone),
		nullString(c.BusinessName),
		pq.Array(c.ServicesInterested),
		nullString(c.BudgetRange),
		c.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return entity.ErrAlreadyExists
		}
		return fmt.Errorf("create client: %w", err)
	}
	return nil
}
