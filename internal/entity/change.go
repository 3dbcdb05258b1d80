package entity

import "time"

// LeadChange is a notification that a tenant's leads changed. Consumers
// treat it as "refetch", never as a patch to apply.
type LeadChange struct {
	TenantID   string    `json:"tenant_id"`
	LeadID     string    `json:"lead_id,omitempty"`
	Operation  string    `json:"op"` // INSERT, UPDATE, DELETE
	OccurredAt time.Time `json:"occurred_at"`
}
