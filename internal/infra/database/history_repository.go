package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/xavierca1/agency-pipeline/internal/entity"
)

// HistoryRepository only appends; the audit log is read back with the leads
// it belongs to (see LeadRepository.FetchLeads).
type HistoryRepository struct {
	DB *sql.DB
}

func NewHistoryRepository(db *sql.DB) *HistoryRepository {
	return &HistoryRepository{DB: db}
}

func (r *HistoryRepository) Append(ctx context.Context, entry *entity.HistoryEntry) error {
	query := `
		INSERT INTO lead_status_history (id, lead_id, old_status, new_status, changed_by, changed_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.DB.ExecContext(ctx, query,
		entry.ID,
		entry.LeadID,
		entry.OldStatus,
		entry.NewStatus,
		nullString(entry.ChangedBy),
		entry.ChangedAt,
	)
	if err != nil {
		return fmt.Errorf("append status history: %w", err)
	}
	return nil
}

func scanHistory(s scanner) (*entity.HistoryEntry, error) {
	var h entity.HistoryEntry
	var old, changedBy sql.NullString
	if err := s.Scan(&h.ID, &h.LeadID, &old, &h.NewStatus, &changedBy, &h.ChangedAt); err != nil {
		return nil, err
	}
	if old.Valid {
		h.OldStatus = &old.String
	}
	h.ChangedBy = changedBy.String
	return &h, nil
}
