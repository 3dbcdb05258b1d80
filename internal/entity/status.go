package entity

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Names of the pipeline stages every tenant starts with. They are flagged
// IsDefault and cannot be deactivated.
const (
	StatusNew       = "New"
	StatusConverted = "Converted"
	StatusDropped   = "Dropped"
)

type StatusEntry struct {
	ID           string    `json:"id"`
	TenantID     string    `json:"tenant_id"`
	Name         string    `json:"name"`
	DisplayOrder int       `json:"display_order"`
	Active       bool      `json:"active"`
	IsDefault    bool      `json:"is_default"`
	CreatedAt    time.Time `json:"created_at"`
}

func NewStatusEntry(tenantID, name string, displayOrder int) (*StatusEntry, error) {
	s := &StatusEntry{
		ID:           uuid.New().String(),
		TenantID:     tenantID,
		Name:         strings.TrimSpace(name),
		DisplayOrder: displayOrder,
		Active:       true,
		CreatedAt:    time.Now(),
	}
	if s.Name == "" {
		return nil, ErrStatusNameRequired
	}
	if s.TenantID == "" {
		return nil, ErrTenantRequired
	}
	return s, nil
}

func (s *StatusEntry) Validate() error {
	if s.ID == "" || s.TenantID == "" {
		return fmt.Errorf("%w: status entry without id or tenant", ErrMalformedRow)
	}
	if strings.TrimSpace(s.Name) == "" {
		return fmt.Errorf("%w: status entry %s without name", ErrMalformedRow, s.ID)
	}
	if s.DisplayOrder < 0 {
		return fmt.Errorf("%w: status entry %s with negative order", ErrMalformedRow, s.ID)
	}
	return nil
}
