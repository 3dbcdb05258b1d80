package usecase

import "github.com/xavierca1/agency-pipeline/internal/entity"

type ChangeLeadStatusInput struct {
	TenantID       string
	LeadID         string
	NewStatus      string
	PreviousStatus string // persisted status before the change; looked up when empty
	ActorID        string
}

type ConvertLeadInput struct {
	TenantID string `json:"tenant_id"`
	LeadID   string `json:"lead_id"`
	ActorID  string `json:"actor_id"`
}

type ConvertLeadOutput struct {
	ClientID         string   `json:"client_id"`
	ProjectID        string   `json:"project_id,omitempty"`
	WasExisting      bool     `json:"was_existing"`
	LoginProvisioned bool     `json:"login_provisioned"`
	Warnings         []string `json:"warnings,omitempty"`
}

type ProvisionLoginInput struct {
	ClientID string
	Email    string
	Phone    string
	Name     string
}

type ProvisionLoginResult struct {
	Success bool
	Error   string
}

type CaptureLeadInput struct {
	TenantID           string   `json:"tenant_id"`
	Email              string   `json:"email"`
	Name               string   `json:"name,omitempty"`
	Phone              string   `json:"phone,omitempty"`
	BusinessName       string   `json:"business_name,omitempty"`
	LeadSource         string   `json:"lead_source,omitempty"`
	BudgetRange        string   `json:"budget_range,omitempty"`
	ServicesInterested []string `json:"services_interested,omitempty"`
}

type CaptureLeadOutput struct {
	Lead    *entity.Lead `json:"lead"`
	Created bool         `json:"created"`
}

type UpdateLeadInput struct {
	TenantID string `json:"-"`
	LeadID   string `json:"-"`
	ActorID  string `json:"-"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Status   string `json:"status"`
}

type CreateStatusInput struct {
	TenantID string `json:"-"`
	Name     string `json:"name"`
}
