package entity

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Client is created once per (email, tenant) when a lead converts.
type Client struct {
	ID                 string    `json:"id"`
	TenantID           string    `json:"tenant_id"`
	LeadID             string    `json:"lead_id"`
	Name               string    `json:"name"`
	Email              string    `json:"email"`
	Phone              string    `json:"phone,omitempty"`
	BusinessName       string    `json:"business_name,omitempty"`
	ServicesInterested []string  `json:"services_interested,omitempty"`
	BudgetRange        string    `json:"budget_range,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
}

// NewClientFromLead copies the contact fields of a lead into a new client.
func NewClientFromLead(lead *Lead) (*Client, error) {
	if strings.TrimSpace(lead.Email) == "" {
		return nil, ErrEmailRequired
	}
	name := lead.Name
	if name == "" {
		name = lead.BusinessName
	}
	return &Client{
		ID:                 uuid.New().String(),
		TenantID:           lead.TenantID,
		LeadID:             lead.ID,
		Name:               name,
		Email:              strings.ToLower(strings.TrimSpace(lead.Email)),
		Phone:              lead.Phone,
		BusinessName:       lead.BusinessName,
		ServicesInterested: append([]string(nil), lead.ServicesInterested...),
		BudgetRange:        lead.BudgetRange,
		CreatedAt:          time.Now(),
	}, nil
}

type Project struct {
	ID        string    `json:"id"`
	TenantID  string    `json:"tenant_id"`
	ClientID  string    `json:"client_id"`
	Name      string    `json:"name"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// NewInitialProject is the onboarding project opened for every new client.
func NewInitialProject(c *Client) *Project {
	label := c.BusinessName
	if label == "" {
		label = c.Name
	}
	return &Project{
		ID:        uuid.New().String(),
		TenantID:  c.TenantID,
		ClientID:  c.ID,
		Name:      label + " - Onboarding",
		Status:    "planning",
		CreatedAt: time.Now(),
	}
}
