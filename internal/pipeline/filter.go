package pipeline

import (
	"strings"
	"time"

	"github.com/xavierca1/agency-pipeline/internal/entity"
)

// Filter narrows the leads shown on a board. Zero-valued fields pass every lead.
type Filter struct {
	Search    string
	Date      *time.Time
	StartDate *time.Time
	EndDate   *time.Time
	Status    string
	// Location decides calendar days; defaults to time.Local.
	Location *time.Location
}

func (f Filter) location() *time.Location {
	if f.Location == nil {
		return time.Local
	}
	return f.Location
}

// IsZero reports whether the filter lets everything through.
func (f Filter) IsZero() bool {
	return strings.TrimSpace(f.Search) == "" && f.Date == nil && f.StartDate == nil && f.EndDate == nil && f.Status == ""
}

func (f Filter) Match(lead *entity.Lead) bool {
	loc := f.location()
	return MatchesText(lead, f.Search) &&
		MatchesDateRange(lead, f.StartDate, f.EndDate, loc) &&
		MatchesDate(lead, f.Date, loc) &&
		MatchesStatus(lead, f.Status)
}

// Apply returns the leads passing the filter, keeping their order.
func (f Filter) Apply(leads []*entity.Lead) []*entity.Lead {
	out := make([]*entity.Lead, 0, len(leads))
	for _, l := range leads {
		if f.Match(l) {
			out = append(out, l)
		}
	}
	return out
}

// MatchesText is a case-insensitive substring match on the contact fields.
func MatchesText(lead *entity.Lead, search string) bool {
	q := strings.ToLower(strings.TrimSpace(search))
	if q == "" {
		return true
	}
	for _, field := range []string{lead.Name, lead.Email, lead.Phone, lead.BusinessName, lead.LeadSource} {
		if field != "" && strings.Contains(strings.ToLower(field), q) {
			return true
		}
	}
	return false
}

// MatchesDate compares calendar days in loc, not instants.
func MatchesDate(lead *entity.Lead, date *time.Time, loc *time.Location) bool {
	if date == nil {
		return true
	}
	return sameDay(lead.CreatedAt, *date, loc)
}

// MatchesDateRange passes a lead created inside the window, or one that had
// any status transition inside it. A nil bound is open.
func MatchesDateRange(lead *entity.Lead, start, end *time.Time, loc *time.Location) bool {
	if start == nil && end == nil {
		return true
	}
	var lo, hi time.Time
	if start != nil {
		lo = startOfDay(*start, loc)
	}
	if end != nil {
		hi = endOfDay(*end, loc)
	}
	within := func(t time.Time) bool {
		if start != nil && t.Before(lo) {
			return false
		}
		if end != nil && t.After(hi) {
			return false
		}
		return true
	}
	if within(lead.CreatedAt) {
		return true
	}
	for _, h := range lead.History {
		if within(h.ChangedAt) {
			return true
		}
	}
	return false
}

func MatchesStatus(lead *entity.Lead, status string) bool {
	return status == "" || lead.Status == status
}

func sameDay(a, b time.Time, loc *time.Location) bool {
	ay, am, ad := a.In(loc).Date()
	by, bm, bd := b.In(loc).Date()
	return ay == by && am == bm && ad == bd
}

func startOfDay(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

func endOfDay(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 23, 59, 59, int(time.Second-time.Nanosecond), loc)
}
