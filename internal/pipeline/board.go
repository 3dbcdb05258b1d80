package pipeline

import (
	"sort"

	"github.com/xavierca1/agency-pipeline/internal/entity"
)

type Column struct {
	Status       string   `json:"status"`
	DisplayOrder int      `json:"display_order"`
	LeadIDs      []string `json:"lead_ids"`
}

// Board is the kanban projection: ordered columns of lead ids plus the leads
// they reference. It is derived state and never persisted.
type Board struct {
	Columns []Column                `json:"columns"`
	Leads   map[string]*entity.Lead `json:"leads"`
}

// Project builds a board from the catalog and the lead store. Only active
// entries get a column; leads whose status has no column are left out.
func Project(statuses []entity.StatusEntry, leads []*entity.Lead, f Filter) Board {
	active := make([]entity.StatusEntry, 0, len(statuses))
	for _, s := range statuses {
		if s.Active {
			active = append(active, s)
		}
	}
	sort.SliceStable(active, func(i, j int) bool {
		return active[i].DisplayOrder < active[j].DisplayOrder
	})

	b := Board{
		Columns: make([]Column, 0, len(active)),
		Leads:   make(map[string]*entity.Lead),
	}
	index := make(map[string]int, len(active))
	for _, s := range active {
		if _, dup := index[s.Name]; dup {
			continue
		}
		index[s.Name] = len(b.Columns)
		b.Columns = append(b.Columns, Column{Status: s.Name, DisplayOrder: s.DisplayOrder, LeadIDs: []string{}})
	}

	for _, l := range leads {
		if !f.Match(l) {
			continue
		}
		i, ok := index[l.Status]
		if !ok {
			continue
		}
		b.Columns[i].LeadIDs = append(b.Columns[i].LeadIDs, l.ID)
		b.Leads[l.ID] = l
	}
	return b
}

// NeedsConfiguration is true when the tenant has no active pipeline stages.
func (b Board) NeedsConfiguration() bool {
	return len(b.Columns) == 0
}

func (b Board) columnIndex(status string) int {
	for i := range b.Columns {
		if b.Columns[i].Status == status {
			return i
		}
	}
	return -1
}

// Column returns the ordered lead ids for status.
func (b Board) Column(status string) ([]string, bool) {
	i := b.columnIndex(status)
	if i < 0 {
		return nil, false
	}
	return b.Columns[i].LeadIDs, true
}

// Clone deep-copies the board so callers can't reach controller state.
func (b Board) Clone() Board {
	c := Board{
		Columns: make([]Column, len(b.Columns)),
		Leads:   make(map[string]*entity.Lead, len(b.Leads)),
	}
	for i, col := range b.Columns {
		col.LeadIDs = append([]string{}, col.LeadIDs...)
		c.Columns[i] = col
	}
	for id, l := range b.Leads {
		c.Leads[id] = l.Clone()
	}
	return c
}

func indexOf(ids []string, id string) int {
	for i, v := range ids {
		if v == id {
			return i
		}
	}
	return -1
}

func removeAt(ids []string, i int) []string {
	out := make([]string, 0, len(ids)-1)
	out = append(out, ids[:i]...)
	return append(out, ids[i+1:]...)
}

func insertAt(ids []string, i int, id string) []string {
	if i < 0 {
		i = 0
	}
	if i > len(ids) {
		i = len(ids)
	}
	out := make([]string, 0, len(ids)+1)
	out = append(out, ids[:i]...)
	out = append(out, id)
	return append(out, ids[i:]...)
}
