package pipeline

import (
	"time"

	"github.com/xavierca1/agency-pipeline/internal/usecase"
)

type MoveState int

const (
	MoveIdle MoveState = iota
	MoveOptimisticallyApplied
	MoveConfirmed
	MoveRolledBack
)

func (s MoveState) String() string {
	switch s {
	case MoveIdle:
		return "idle"
	case MoveOptimisticallyApplied:
		return "optimistically_applied"
	case MoveConfirmed:
		return "confirmed"
	case MoveRolledBack:
		return "rolled_back"
	}
	return "unknown"
}

func (s MoveState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

type MoveKind int

const (
	KindNone MoveKind = iota
	KindTransition
	KindConversion
)

func (k MoveKind) String() string {
	switch k {
	case KindTransition:
		return "transition"
	case KindConversion:
		return "conversion"
	}
	return "none"
}

func (k MoveKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Drop is a drag-and-drop event from the board.
type Drop struct {
	LeadID      string `json:"lead_id"`
	Source      string `json:"source"`
	Destination string `json:"destination"`
	Index       int    `json:"index"`
	ActorID     string `json:"-"`
}

// Move tracks one drop through the protocol.
type Move struct {
	ID         string                     `json:"id"`
	Drop       Drop                       `json:"drop"`
	Kind       MoveKind                   `json:"kind"`
	State      MoveState                  `json:"state"`
	Previous   string                     `json:"previous_status,omitempty"`
	Superseded bool                       `json:"superseded,omitempty"`
	Conversion *usecase.ConvertLeadOutput `json:"conversion,omitempty"`
	Err        error                      `json:"-"`
	// ReconcileErr is set when the reload after settlement failed; the board
	// then still shows the optimistic edit until the next successful load.
	ReconcileErr error     `json:"-"`
	StartedAt    time.Time `json:"started_at"`
	SettledAt    time.Time `json:"settled_at"`

	generation uint64
	// view is the filter the Drop.Index was computed against, if any.
	view *Filter
}

func (m *Move) transition(to MoveState) {
	switch {
	case m.State == MoveIdle && to == MoveOptimisticallyApplied,
		m.State == MoveOptimisticallyApplied && (to == MoveConfirmed || to == MoveRolledBack):
		m.State = to
	default:
		panic("pipeline: invalid move transition " + m.State.String() + " -> " + to.String())
	}
}
