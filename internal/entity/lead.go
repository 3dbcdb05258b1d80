package entity

import (
	"fmt"
	"strings"
	"time"
)

type Lead struct {
	ID                 string         `json:"id"`
	TenantID           string         `json:"tenant_id"`
	Name               string         `json:"name"`
	Email              string         `json:"email"`
	Phone              string         `json:"phone,omitempty"`
	BusinessName       string         `json:"business_name,omitempty"`
	LeadSource         string         `json:"lead_source,omitempty"`
	BudgetRange        string         `json:"budget_range,omitempty"`
	ServicesInterested []string       `json:"services_interested,omitempty"`
	Status             string         `json:"status"`
	ClientID           string         `json:"client_id,omitempty"`
	CreatedAt          time.Time      `json:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at"`
	History            []HistoryEntry `json:"history,omitempty"`
}

// Validate rejects rows that can't be placed on a board.
func (l *Lead) Validate() error {
	if l.ID == "" {
		return fmt.Errorf("%w: lead without id", ErrMalformedRow)
	}
	if l.TenantID == "" {
		return fmt.Errorf("%w: lead %s without tenant", ErrMalformedRow, l.ID)
	}
	if strings.TrimSpace(l.Status) == "" {
		return fmt.Errorf("%w: lead %s without status", ErrMalformedRow, l.ID)
	}
	if l.CreatedAt.IsZero() {
		return fmt.Errorf("%w: lead %s without created_at", ErrMalformedRow, l.ID)
	}
	for i := range l.History {
		if err := l.History[i].Validate(); err != nil {
			return err
		}
		if l.History[i].LeadID != l.ID {
			return fmt.Errorf("%w: history %s does not belong to lead %s", ErrMalformedRow, l.History[i].ID, l.ID)
		}
	}
	return nil
}

func (l *Lead) IsConverted() bool {
	return l.Status == StatusConverted
}

// Clone copies the lead including its history slice.
func (l *Lead) Clone() *Lead {
	c := *l
	if l.History != nil {
		c.History = append([]HistoryEntry(nil), l.History...)
	}
	if l.ServicesInterested != nil {
		c.ServicesInterested = append([]string(nil), l.ServicesInterested...)
	}
	return &c
}
