package entity

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// HistoryEntry is one row of the append-only status audit log. OldStatus is
// nil on the first assignment.
type HistoryEntry struct {
	ID        string    `json:"id"`
	LeadID    string    `json:"lead_id"`
	OldStatus *string   `json:"old_status"`
	NewStatus string    `json:"new_status"`
	ChangedBy string    `json:"changed_by,omitempty"`
	ChangedAt time.Time `json:"changed_at"`
}

func NewHistoryEntry(leadID string, oldStatus *string, newStatus, actorID string, at time.Time) *HistoryEntry {
	return &HistoryEntry{
		ID:        uuid.New().String(),
		LeadID:    leadID,
		OldStatus: oldStatus,
		NewStatus: newStatus,
		ChangedBy: actorID,
		ChangedAt: at,
	}
}

func (h *HistoryEntry) Validate() error {
	if h.ID == "" || h.LeadID == "" {
		return fmt.Errorf("%w: history entry without id or lead", ErrMalformedRow)
	}
	if h.NewStatus == "" {
		return fmt.Errorf("%w: history entry %s without new status", ErrMalformedRow, h.ID)
	}
	if h.ChangedAt.IsZero() {
		return fmt.Errorf("%w: history entry %s without timestamp", ErrMalformedRow, h.ID)
	}
	return nil
}

// StatusPtr is a helper for building OldStatus values.
func StatusPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
