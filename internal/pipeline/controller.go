package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/xavierca1/agency-pipeline/internal/entity"
	"github.com/xavierca1/agency-pipeline/internal/logging"
	"github.com/xavierca1/agency-pipeline/internal/usecase"
)

var (
	ErrNotLoaded       = errors.New("pipeline: board not loaded")
	ErrUnknownLead     = errors.New("pipeline: unknown lead")
	ErrUnknownColumn   = errors.New("pipeline: unknown column")
	ErrLeadNotInColumn = errors.New("pipeline: lead is not in the source column")
)

// settleTimeout bounds the remote call and the reload of a dispatched move.
const settleTimeout = 30 * time.Second

// Source is the authoritative read side: the status catalog and the lead store.
type Source interface {
	FetchActiveStatuses(ctx context.Context, tenantID string) ([]entity.StatusEntry, error)
	FetchLeadsWithHistory(ctx context.Context, tenantID string) ([]entity.Lead, error)
}

// Mutator issues the remote operation for a move.
type Mutator interface {
	ChangeLeadStatus(ctx context.Context, input usecase.ChangeLeadStatusInput) error
	ConvertLead(ctx context.Context, input usecase.ConvertLeadInput) (*usecase.ConvertLeadOutput, error)
}

type Invalidator interface {
	Invalidate(ctx context.Context, tenantID string) error
}

type Recorder interface {
	RecordMove(kind, state string)
}

// UseCases adapts the status and conversion use cases to Mutator.
type UseCases struct {
	Status  *usecase.ChangeLeadStatusUseCase
	Convert *usecase.ConvertLeadUseCase
}

func (u UseCases) ChangeLeadStatus(ctx context.Context, input usecase.ChangeLeadStatusInput) error {
	return u.Status.Execute(ctx, input)
}

func (u UseCases) ConvertLead(ctx context.Context, input usecase.ConvertLeadInput) (*usecase.ConvertLeadOutput, error) {
	return u.Convert.Execute(ctx, input)
}

type Option func(*Controller)

func WithInvalidator(i Invalidator) Option { return func(c *Controller) { c.cache = i } }
func WithRecorder(r Recorder) Option       { return func(c *Controller) { c.metrics = r } }
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// WithLocation sets the time zone used for calendar-day filters.
func WithLocation(loc *time.Location) Option {
	return func(c *Controller) { c.filter.Location = loc }
}

// Controller owns the kanban model of one tenant. Reads come from the last
// successful load; moves edit that model optimistically and then resync
// from the Source once the remote call settles.
type Controller struct {
	tenantID string
	source   Source
	mutator  Mutator
	cache    Invalidator
	metrics  Recorder
	now      func() time.Time
	log      *log.Entry

	mu          sync.RWMutex
	loaded      bool
	loadSeq     uint64
	appliedSeq  uint64
	statuses    []entity.StatusEntry
	order       []*entity.Lead
	leads       map[string]*entity.Lead
	persisted   map[string]string
	filter      Filter
	board       Board
	generations map[string]uint64
}

func NewController(tenantID string, source Source, mutator Mutator, opts ...Option) *Controller {
	c := &Controller{
		tenantID:    tenantID,
		source:      source,
		mutator:     mutator,
		now:         time.Now,
		log:         logging.WithTenant(tenantID),
		leads:       map[string]*entity.Lead{},
		persisted:   map[string]string{},
		generations: map[string]uint64{},
	}
	for _, opt := range opts {
		opt(c)
	}
	c.board = Project(nil, nil, c.filter)
	return c
}

// Load replaces the catalog and the lead store with a fresh read. On any
// error the previous model is kept as it was.
func (c *Controller) Load(ctx context.Context) error {
	c.mu.Lock()
	c.loadSeq++
	seq := c.loadSeq
	c.mu.Unlock()

	statuses, err := c.source.FetchActiveStatuses(ctx, c.tenantID)
	if err != nil {
		return fmt.Errorf("load statuses: %w", err)
	}
	rows, err := c.source.FetchLeadsWithHistory(ctx, c.tenantID)
	if err != nil {
		return fmt.Errorf("load leads: %w", err)
	}
	for i := range statuses {
		if err := statuses[i].Validate(); err != nil {
			return fmt.Errorf("load statuses: %w", err)
		}
	}
	order := make([]*entity.Lead, 0, len(rows))
	leads := make(map[string]*entity.Lead, len(rows))
	persisted := make(map[string]string, len(rows))
	for i := range rows {
		l := rows[i].Clone()
		if err := l.Validate(); err != nil {
			return fmt.Errorf("load leads: %w", err)
		}
		order = append(order, l)
		leads[l.ID] = l
		persisted[l.ID] = l.Status
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if seq < c.appliedSeq {
		// a newer load already landed
		return nil
	}
	c.appliedSeq = seq
	c.statuses = statuses
	c.order = order
	c.leads = leads
	c.persisted = persisted
	c.board = Project(c.statuses, c.order, c.filter)
	c.loaded = true
	return nil
}

// Reload drops the shared cache for the tenant and loads again.
func (c *Controller) Reload(ctx context.Context) error {
	if c.cache != nil {
		if err := c.cache.Invalidate(ctx, c.tenantID); err != nil {
			c.log.WithError(err).Warn("cache invalidation failed before reload")
		}
	}
	return c.Load(ctx)
}

func (c *Controller) Loaded() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loaded
}

// Board returns a copy of the current projection, optimistic edits included.
func (c *Controller) Board() Board {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.board.Clone()
}

// View projects the current lead store through f without touching the
// controller's own filter.
func (c *Controller) View(f Filter) Board {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if f.Location == nil {
		f.Location = c.filter.Location
	}
	return Project(c.statuses, c.order, f).Clone()
}

// Leads is the table view: every loaded lead passing f, newest first,
// including leads whose status has no column.
func (c *Controller) Leads(f Filter) []*entity.Lead {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if f.Location == nil {
		f.Location = c.filter.Location
	}
	matched := f.Apply(c.order)
	out := make([]*entity.Lead, len(matched))
	for i, l := range matched {
		out[i] = l.Clone()
	}
	return out
}

func (c *Controller) SetFilter(f Filter) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if f.Location == nil {
		f.Location = c.filter.Location
	}
	c.filter = f
	c.board = Project(c.statuses, c.order, c.filter)
}

func (c *Controller) Lead(id string) (*entity.Lead, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	l, ok := c.leads[id]
	if !ok {
		return nil, false
	}
	return l.Clone(), true
}

// Move runs a drop through the protocol. The optimistic edit is visible to
// readers before the remote call starts. Failures are never undone locally:
// the controller reloads from the Source in both outcomes.
func (c *Controller) Move(ctx context.Context, d Drop) (*Move, error) {
	return c.move(ctx, &Move{ID: uuid.New().String(), Drop: d, StartedAt: c.now()})
}

// MoveInView is Move for a drop made on View(view): Drop.Index counts only
// the leads view shows in the destination column.
func (c *Controller) MoveInView(ctx context.Context, d Drop, view Filter) (*Move, error) {
	return c.move(ctx, &Move{ID: uuid.New().String(), Drop: d, StartedAt: c.now(), view: &view})
}

func (c *Controller) move(ctx context.Context, m *Move) (*Move, error) {
	d := m.Drop

	persisted, err := c.applyOptimistic(m)
	if err != nil || m.State == MoveIdle {
		return m, err
	}
	// Once the optimistic edit is visible the move must settle, even if the
	// caller goes away.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), settleTimeout)
	defer cancel()

	logger := c.log.WithFields(log.Fields{"move_id": m.ID, "lead_id": d.LeadID, "kind": m.Kind.String()})
	logger.WithFields(log.Fields{"from": d.Source, "to": d.Destination}).Debug("move applied optimistically")

	var remoteErr error
	switch m.Kind {
	case KindConversion:
		m.Conversion, remoteErr = c.mutator.ConvertLead(ctx, usecase.ConvertLeadInput{
			TenantID: c.tenantID,
			LeadID:   d.LeadID,
			ActorID:  d.ActorID,
		})
	default:
		remoteErr = c.mutator.ChangeLeadStatus(ctx, usecase.ChangeLeadStatusInput{
			TenantID:       c.tenantID,
			LeadID:         d.LeadID,
			NewStatus:      d.Destination,
			PreviousStatus: persisted,
			ActorID:        d.ActorID,
		})
	}

	c.mu.Lock()
	latest := c.generations[d.LeadID] == m.generation
	c.mu.Unlock()

	if remoteErr != nil {
		m.transition(MoveRolledBack)
		m.Err = remoteErr
	} else {
		m.transition(MoveConfirmed)
	}
	m.SettledAt = c.now()
	c.record(m)

	if !latest {
		// A later move on the same lead owns reconciliation.
		m.Superseded = true
		if c.cache != nil {
			_ = c.cache.Invalidate(ctx, c.tenantID)
		}
		logger.WithField("state", m.State.String()).Info("move settled after a newer move on the same lead")
		return m, remoteErr
	}

	if err := c.Reload(ctx); err != nil {
		m.ReconcileErr = err
		logger.WithError(err).Error("reconcile after move failed")
	}
	if remoteErr != nil {
		logger.WithError(remoteErr).Warn("move rolled back")
	} else {
		logger.Info("move confirmed")
	}
	return m, remoteErr
}

// applyOptimistic validates the drop against the current board and, unless
// it is a no-op, edits the board and the lead in place. It returns the last
// persisted status of the lead.
func (c *Controller) applyOptimistic(m *Move) (string, error) {
	d := m.Drop
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.loaded {
		return "", ErrNotLoaded
	}
	lead, ok := c.leads[d.LeadID]
	if !ok {
		return "", ErrUnknownLead
	}
	src := c.board.columnIndex(d.Source)
	dst := c.board.columnIndex(d.Destination)
	if src < 0 || dst < 0 {
		return "", ErrUnknownColumn
	}
	pos := indexOf(c.board.Columns[src].LeadIDs, d.LeadID)
	if pos < 0 {
		return "", ErrLeadNotInColumn
	}
	index := d.Index
	if m.view != nil && !m.view.IsZero() {
		index = c.boardIndex(*m.view, c.board.Columns[dst].LeadIDs, d.LeadID, index)
	}
	if src == dst && index == pos {
		return "", nil
	}

	m.Previous = lead.Status
	m.Kind = KindTransition
	if d.Destination == entity.StatusConverted && src != dst {
		m.Kind = KindConversion
	}

	c.board.Columns[src].LeadIDs = removeAt(c.board.Columns[src].LeadIDs, pos)
	c.board.Columns[dst].LeadIDs = insertAt(c.board.Columns[dst].LeadIDs, index, d.LeadID)
	lead.Status = d.Destination

	c.generations[d.LeadID]++
	m.generation = c.generations[d.LeadID]
	m.transition(MoveOptimisticallyApplied)
	return c.persisted[d.LeadID], nil
}

// boardIndex maps an index into the view's copy of a column onto the
// controller's board column, both taken without the moving lead. A lead
// dropped past the last visible lead lands right after it.
func (c *Controller) boardIndex(view Filter, column []string, leadID string, index int) int {
	if view.Location == nil {
		view.Location = c.filter.Location
	}
	rest := column
	if i := indexOf(column, leadID); i >= 0 {
		rest = removeAt(column, i)
	}
	var visible []int
	for i, id := range rest {
		if l, ok := c.leads[id]; ok && view.Match(l) {
			visible = append(visible, i)
		}
	}
	switch {
	case len(visible) == 0:
		return len(rest)
	case index < 0:
		return visible[0]
	case index < len(visible):
		return visible[index]
	default:
		return visible[len(visible)-1] + 1
	}
}

func (c *Controller) record(m *Move) {
	if c.metrics != nil {
		c.metrics.RecordMove(m.Kind.String(), m.State.String())
	}
}
