package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xavierca1/agency-pipeline/internal/entity"
	"github.com/xavierca1/agency-pipeline/internal/usecase"
)

// fakeSource plays the database: tests mutate it from inside the fake
// mutator to simulate a remote write landing.
type fakeSource struct {
	mu        sync.Mutex
	statuses  []entity.StatusEntry
	leads     map[string]entity.Lead
	order     []string
	err       error
	leadLoads int
}

func newFakeSource(statuses []string, leads ...entity.Lead) *fakeSource {
	s := &fakeSource{leads: map[string]entity.Lead{}}
	for i, name := range statuses {
		s.statuses = append(s.statuses, entity.StatusEntry{
			ID: "s" + name, TenantID: "t1", Name: name, DisplayOrder: i, Active: true,
		})
	}
	for _, l := range leads {
		s.leads[l.ID] = l
		s.order = append(s.order, l.ID)
	}
	return s
}

func (s *fakeSource) FetchActiveStatuses(ctx context.Context, _ string) ([]entity.StatusEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	return append([]entity.StatusEntry(nil), s.statuses...), nil
}

func (s *fakeSource) FetchLeadsWithHistory(ctx context.Context, _ string) ([]entity.Lead, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	s.leadLoads++
	out := make([]entity.Lead, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.leads[id])
	}
	return out, nil
}

func (s *fakeSource) setStatus(id, st string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l := s.leads[id]
	l.Status = st
	s.leads[id] = l
}

func (s *fakeSource) fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

func (s *fakeSource) loads() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.leadLoads
}

type fakeMutator struct {
	change  func(usecase.ChangeLeadStatusInput) error
	convert func(usecase.ConvertLeadInput) (*usecase.ConvertLeadOutput, error)

	mu       sync.Mutex
	changes  []usecase.ChangeLeadStatusInput
	converts []usecase.ConvertLeadInput
}

func (m *fakeMutator) ChangeLeadStatus(_ context.Context, in usecase.ChangeLeadStatusInput) error {
	m.mu.Lock()
	m.changes = append(m.changes, in)
	m.mu.Unlock()
	if m.change == nil {
		return nil
	}
	return m.change(in)
}

func (m *fakeMutator) ConvertLead(_ context.Context, in usecase.ConvertLeadInput) (*usecase.ConvertLeadOutput, error) {
	m.mu.Lock()
	m.converts = append(m.converts, in)
	m.mu.Unlock()
	if m.convert == nil {
		return &usecase.ConvertLeadOutput{ClientID: "c1"}, nil
	}
	return m.convert(in)
}

type countingInvalidator struct {
	mu    sync.Mutex
	calls int
}

func (c *countingInvalidator) Invalidate(context.Context, string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	return nil
}

type moveRecorder struct {
	mu    sync.Mutex
	moves []string
}

func (r *moveRecorder) RecordMove(kind, state string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.moves = append(r.moves, kind+":"+state)
}

func seedLead(id, st string) entity.Lead {
	return entity.Lead{
		ID: id, TenantID: "t1", Name: id, Email: id + "@x.io", Status: st,
		CreatedAt: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	}
}

func columnOf(b Board, leadID string) string {
	for _, c := range b.Columns {
		for _, id := range c.LeadIDs {
			if id == leadID {
				return c.Status
			}
		}
	}
	return ""
}

func newLoadedController(t *testing.T, src *fakeSource, mut *fakeMutator, opts ...Option) *Controller {
	t.Helper()
	c := NewController("t1", src, mut, opts...)
	require.NoError(t, c.Load(context.Background()))
	return c
}

func TestLoad_BuildsBoard(t *testing.T) {
	src := newFakeSource([]string{"New", "Contacted", "Converted"},
		seedLead("a", "New"), seedLead("b", "Contacted"), seedLead("c", "Lost"))
	c := newLoadedController(t, src, &fakeMutator{})

	b := c.Board()
	require.Len(t, b.Columns, 3)
	assert.Equal(t, "New", columnOf(b, "a"))
	assert.Equal(t, "Contacted", columnOf(b, "b"))
	assert.Empty(t, columnOf(b, "c"))

	assert.Len(t, c.Leads(Filter{}), 3, "the table view keeps leads without a column")
}

func TestLoad_FailureKeepsPreviousModel(t *testing.T) {
	src := newFakeSource([]string{"New"}, seedLead("a", "New"))
	c := newLoadedController(t, src, &fakeMutator{})

	src.fail(errors.New("connection reset"))
	err := c.Load(context.Background())

	require.Error(t, err)
	assert.True(t, c.Loaded())
	assert.Equal(t, "New", columnOf(c.Board(), "a"))
}

func TestLoad_RejectsMalformedRows(t *testing.T) {
	bad := seedLead("a", "")
	src := newFakeSource([]string{"New"}, bad)
	c := NewController("t1", src, &fakeMutator{})

	err := c.Load(context.Background())
	assert.ErrorIs(t, err, entity.ErrMalformedRow)
	assert.False(t, c.Loaded())
}

func TestMove_NotLoaded(t *testing.T) {
	c := NewController("t1", newFakeSource(nil), &fakeMutator{})
	m, err := c.Move(context.Background(), Drop{LeadID: "a", Source: "New", Destination: "Won"})
	assert.ErrorIs(t, err, ErrNotLoaded)
	assert.Equal(t, MoveIdle, m.State)
}

func TestMove_OptimisticEditVisibleBeforeRemoteCall(t *testing.T) {
	src := newFakeSource([]string{"New", "Contacted"}, seedLead("a", "New"), seedLead("b", "Contacted"))
	mut := &fakeMutator{}
	c := newLoadedController(t, src, mut)

	var seenDuringCall Board
	mut.change = func(in usecase.ChangeLeadStatusInput) error {
		seenDuringCall = c.Board()
		src.setStatus(in.LeadID, in.NewStatus)
		return nil
	}

	m, err := c.Move(context.Background(), Drop{LeadID: "a", Source: "New", Destination: "Contacted", Index: 0, ActorID: "u1"})
	require.NoError(t, err)

	col, _ := seenDuringCall.Column("Contacted")
	assert.Equal(t, []string{"a", "b"}, col, "lead inserted at the drop index")
	assert.Equal(t, "Contacted", seenDuringCall.Leads["a"].Status)

	assert.Equal(t, MoveConfirmed, m.State)
	assert.Equal(t, KindTransition, m.Kind)
	assert.Equal(t, "New", m.Previous)
	require.Len(t, mut.changes, 1)
	assert.Equal(t, usecase.ChangeLeadStatusInput{
		TenantID: "t1", LeadID: "a", NewStatus: "Contacted", PreviousStatus: "New", ActorID: "u1",
	}, mut.changes[0])
	assert.Equal(t, "Contacted", columnOf(c.Board(), "a"))
}

func TestMove_FailureReloadsAuthoritativeState(t *testing.T) {
	src := newFakeSource([]string{"New", "Contacted"}, seedLead("a", "New"))
	inv := &countingInvalidator{}
	rec := &moveRecorder{}
	mut := &fakeMutator{change: func(usecase.ChangeLeadStatusInput) error {
		return &usecase.TechnicalError{Code: "DATABASE_ERROR", Message: "failed to update lead status"}
	}}
	c := newLoadedController(t, src, mut, WithInvalidator(inv), WithRecorder(rec))
	loadsBefore := src.loads()

	m, err := c.Move(context.Background(), Drop{LeadID: "a", Source: "New", Destination: "Contacted"})

	require.Error(t, err)
	assert.Equal(t, MoveRolledBack, m.State)
	assert.Same(t, err, m.Err)
	assert.Equal(t, "New", columnOf(c.Board(), "a"), "reload restores the persisted column")
	assert.Equal(t, loadsBefore+1, src.loads())
	assert.Equal(t, 1, inv.calls)
	assert.Equal(t, []string{"transition:rolled_back"}, rec.moves)
}

func TestMove_ReloadReflectsOtherWriters(t *testing.T) {
	src := newFakeSource([]string{"New", "Contacted", "Won"}, seedLead("a", "New"), seedLead("b", "New"))
	mut := &fakeMutator{}
	c := newLoadedController(t, src, mut)
	mut.change = func(in usecase.ChangeLeadStatusInput) error {
		src.setStatus(in.LeadID, in.NewStatus)
		src.setStatus("b", "Won") // someone else moved b meanwhile
		return nil
	}

	_, err := c.Move(context.Background(), Drop{LeadID: "a", Source: "New", Destination: "Contacted"})
	require.NoError(t, err)

	b := c.Board()
	assert.Equal(t, "Contacted", columnOf(b, "a"))
	assert.Equal(t, "Won", columnOf(b, "b"))
}

func TestMove_IntoConvertedRunsConversion(t *testing.T) {
	src := newFakeSource([]string{"New", "Converted"}, seedLead("a", "New"))
	mut := &fakeMutator{}
	mut.convert = func(in usecase.ConvertLeadInput) (*usecase.ConvertLeadOutput, error) {
		src.setStatus(in.LeadID, entity.StatusConverted)
		return &usecase.ConvertLeadOutput{ClientID: "client-9", LoginProvisioned: true}, nil
	}
	rec := &moveRecorder{}
	c := newLoadedController(t, src, mut, WithRecorder(rec))

	m, err := c.Move(context.Background(), Drop{LeadID: "a", Source: "New", Destination: entity.StatusConverted, ActorID: "u1"})
	require.NoError(t, err)

	assert.Equal(t, KindConversion, m.Kind)
	assert.Equal(t, MoveConfirmed, m.State)
	require.NotNil(t, m.Conversion)
	assert.Equal(t, "client-9", m.Conversion.ClientID)
	assert.Empty(t, mut.changes)
	assert.Equal(t, []usecase.ConvertLeadInput{{TenantID: "t1", LeadID: "a", ActorID: "u1"}}, mut.converts)
	assert.Equal(t, entity.StatusConverted, columnOf(c.Board(), "a"))
	assert.Equal(t, []string{"conversion:confirmed"}, rec.moves)
}

func TestMove_ConversionFailureShowsLeadInPersistedColumn(t *testing.T) {
	src := newFakeSource([]string{"New", "Converted"}, seedLead("a", "New"))
	mut := &fakeMutator{convert: func(usecase.ConvertLeadInput) (*usecase.ConvertLeadOutput, error) {
		return nil, &usecase.TechnicalError{Code: "CONVERSION_FAILED", Message: "lead conversion failed"}
	}}
	c := newLoadedController(t, src, mut)

	m, err := c.Move(context.Background(), Drop{LeadID: "a", Source: "New", Destination: entity.StatusConverted})

	require.Error(t, err)
	assert.Equal(t, MoveRolledBack, m.State)
	assert.Equal(t, "New", columnOf(c.Board(), "a"))
}

func TestMove_ReorderWithinConvertedIsATransition(t *testing.T) {
	src := newFakeSource([]string{"New", "Converted"}, seedLead("a", "Converted"), seedLead("b", "Converted"))
	mut := &fakeMutator{}
	c := newLoadedController(t, src, mut)

	m, err := c.Move(context.Background(), Drop{LeadID: "a", Source: "Converted", Destination: "Converted", Index: 1})
	require.NoError(t, err)

	assert.Equal(t, KindTransition, m.Kind)
	assert.Empty(t, mut.converts)
	assert.Len(t, mut.changes, 1)
}

func TestMove_SamePositionIsANoOp(t *testing.T) {
	src := newFakeSource([]string{"New"}, seedLead("a", "New"))
	mut := &fakeMutator{}
	c := newLoadedController(t, src, mut)
	loads := src.loads()

	m, err := c.Move(context.Background(), Drop{LeadID: "a", Source: "New", Destination: "New", Index: 0})

	require.NoError(t, err)
	assert.Equal(t, MoveIdle, m.State)
	assert.Empty(t, mut.changes)
	assert.Equal(t, loads, src.loads())
}

func TestMove_RejectsStaleDrops(t *testing.T) {
	src := newFakeSource([]string{"New", "Contacted"}, seedLead("a", "New"))
	mut := &fakeMutator{}
	c := newLoadedController(t, src, mut)
	before := c.Board()

	cases := []struct {
		drop Drop
		err  error
	}{
		{Drop{LeadID: "zzz", Source: "New", Destination: "Contacted"}, ErrUnknownLead},
		{Drop{LeadID: "a", Source: "New", Destination: "Archived"}, ErrUnknownColumn},
		{Drop{LeadID: "a", Source: "Contacted", Destination: "New"}, ErrLeadNotInColumn},
	}
	for _, tc := range cases {
		m, err := c.Move(context.Background(), tc.drop)
		assert.ErrorIs(t, err, tc.err)
		assert.Equal(t, MoveIdle, m.State)
	}
	assert.Empty(t, mut.changes)
	assert.Equal(t, before, c.Board())
}

func TestMove_OlderCompletionIsSuperseded(t *testing.T) {
	src := newFakeSource([]string{"New", "Contacted", "Qualified"}, seedLead("a", "New"))
	inv := &countingInvalidator{}
	mut := &fakeMutator{}
	c := newLoadedController(t, src, mut, WithInvalidator(inv))

	entered := make(chan struct{})
	release := make(chan struct{})
	mut.change = func(in usecase.ChangeLeadStatusInput) error {
		if in.NewStatus == "Contacted" {
			close(entered)
			<-release
			return errors.New("timeout")
		}
		src.setStatus(in.LeadID, in.NewStatus)
		return nil
	}

	first := make(chan *Move, 1)
	go func() {
		m, _ := c.Move(context.Background(), Drop{LeadID: "a", Source: "New", Destination: "Contacted"})
		first <- m
	}()
	<-entered

	second, err := c.Move(context.Background(), Drop{LeadID: "a", Source: "Contacted", Destination: "Qualified"})
	require.NoError(t, err)
	assert.False(t, second.Superseded)
	assert.Equal(t, "Qualified", columnOf(c.Board(), "a"))
	loads := src.loads()

	close(release)
	m := <-first

	assert.True(t, m.Superseded)
	assert.Equal(t, MoveRolledBack, m.State)
	assert.Equal(t, loads, src.loads(), "a superseded move does not reload")
	assert.Equal(t, "Qualified", columnOf(c.Board(), "a"))
	assert.Equal(t, 2, inv.calls)

	// the second move reported the status the lead had in the store, not the optimistic one
	require.Len(t, mut.changes, 2)
	assert.Equal(t, "New", mut.changes[1].PreviousStatus)
}

func TestMove_ReconcileFailureIsReported(t *testing.T) {
	src := newFakeSource([]string{"New", "Contacted"}, seedLead("a", "New"))
	mut := &fakeMutator{}
	c := newLoadedController(t, src, mut)
	mut.change = func(usecase.ChangeLeadStatusInput) error {
		src.fail(errors.New("db gone"))
		return nil
	}

	m, err := c.Move(context.Background(), Drop{LeadID: "a", Source: "New", Destination: "Contacted"})

	require.NoError(t, err)
	assert.Equal(t, MoveConfirmed, m.State)
	assert.Error(t, m.ReconcileErr)
	assert.Equal(t, "Contacted", columnOf(c.Board(), "a"))
}

func TestSetFilter_ReprojectsBoard(t *testing.T) {
	src := newFakeSource([]string{"New"}, seedLead("alpha", "New"), seedLead("beta", "New"))
	c := newLoadedController(t, src, &fakeMutator{})

	c.SetFilter(Filter{Search: "alp"})
	col, _ := c.Board().Column("New")
	assert.Equal(t, []string{"alpha"}, col)

	view := c.View(Filter{})
	col, _ = view.Column("New")
	assert.Len(t, col, 2, "View ignores the controller filter")
}

func TestMove_StampsStartAndSettleTimes(t *testing.T) {
	start := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	ticks := 0
	clock := func() time.Time {
		ticks++
		return start.Add(time.Duration(ticks) * time.Second)
	}
	src := newFakeSource([]string{"New", "Contacted"}, seedLead("a", "New"))
	c := newLoadedController(t, src, &fakeMutator{}, WithClock(clock))

	m, err := c.Move(context.Background(), Drop{LeadID: "a", Source: "New", Destination: "Contacted"})

	require.NoError(t, err)
	assert.Equal(t, start.Add(time.Second), m.StartedAt)
	assert.Equal(t, start.Add(2*time.Second), m.SettledAt)
}

// cancellingMutator cancels the caller's request while the remote write is
// in flight, like a browser tab closed mid-drag.
type cancellingMutator struct {
	cancel context.CancelFunc
	src    *fakeSource
	fail   error
	ctxErr error
}

func (m *cancellingMutator) ChangeLeadStatus(ctx context.Context, in usecase.ChangeLeadStatusInput) error {
	m.cancel()
	m.ctxErr = ctx.Err()
	if m.fail != nil {
		return m.fail
	}
	m.src.setStatus(in.LeadID, in.NewStatus)
	return nil
}

func (m *cancellingMutator) ConvertLead(context.Context, usecase.ConvertLeadInput) (*usecase.ConvertLeadOutput, error) {
	return nil, errors.New("not used")
}

func TestMove_CallerCancellationDoesNotAbortSettlement(t *testing.T) {
	src := newFakeSource([]string{"New", "Contacted"}, seedLead("a", "New"))
	ctx, cancel := context.WithCancel(context.Background())
	mut := &cancellingMutator{cancel: cancel, src: src}
	c := NewController("t1", src, mut)
	require.NoError(t, c.Load(context.Background()))

	m, err := c.Move(ctx, Drop{LeadID: "a", Source: "New", Destination: "Contacted"})

	require.NoError(t, err)
	assert.NoError(t, mut.ctxErr, "the remote write runs on a detached context")
	assert.Equal(t, MoveConfirmed, m.State)
	assert.NoError(t, m.ReconcileErr)
	assert.Equal(t, "Contacted", columnOf(c.Board(), "a"))
}

func TestMove_CancelledFailureStillReloads(t *testing.T) {
	src := newFakeSource([]string{"New", "Contacted"}, seedLead("a", "New"))
	ctx, cancel := context.WithCancel(context.Background())
	mut := &cancellingMutator{cancel: cancel, src: src, fail: errors.New("constraint violation")}
	c := NewController("t1", src, mut)
	require.NoError(t, c.Load(context.Background()))

	m, err := c.Move(ctx, Drop{LeadID: "a", Source: "New", Destination: "Contacted"})

	require.Error(t, err)
	assert.Equal(t, MoveRolledBack, m.State)
	assert.NoError(t, m.ReconcileErr)
	assert.Equal(t, "New", columnOf(c.Board(), "a"), "the board is resynced to the stored status")
	lead, ok := c.Lead("a")
	require.True(t, ok)
	assert.Equal(t, "New", lead.Status)
}

func namedLead(id, name, st string) entity.Lead {
	l := seedLead(id, st)
	l.Name = name
	return l
}

func TestMoveInView_SameColumnIndexCountsVisibleLeads(t *testing.T) {
	src := newFakeSource([]string{"New", "Contacted"},
		namedLead("b", "Bruno", "New"), namedLead("a", "Ana", "New"), namedLead("c", "Mariana", "New"))
	mut := &fakeMutator{}
	c := newLoadedController(t, src, mut)
	view := Filter{Search: "ana"}

	m, err := c.MoveInView(context.Background(), Drop{LeadID: "a", Source: "New", Destination: "New", Index: 0}, view)
	require.NoError(t, err)
	assert.Equal(t, MoveIdle, m.State, "a is already first in the filtered column")
	assert.Empty(t, mut.changes)

	var seen []string
	mut.change = func(usecase.ChangeLeadStatusInput) error {
		seen, _ = c.Board().Column("New")
		return nil
	}
	m, err = c.MoveInView(context.Background(), Drop{LeadID: "a", Source: "New", Destination: "New", Index: 1}, view)
	require.NoError(t, err)
	assert.Equal(t, MoveConfirmed, m.State)
	assert.Equal(t, []string{"b", "c", "a"}, seen)
	assert.Equal(t, 1, m.Drop.Index, "the drop keeps the index the client sent")
}

func TestMoveInView_CrossColumnIndexLandsNextToVisibleLead(t *testing.T) {
	tests := []struct {
		name  string
		index int
		want  []string
	}{
		{name: "before the visible lead", index: 0, want: []string{"x", "a", "y", "z"}},
		{name: "after the visible lead", index: 1, want: []string{"x", "y", "a", "z"}},
		{name: "past the end", index: 7, want: []string{"x", "y", "a", "z"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := newFakeSource([]string{"New", "Contacted"},
				namedLead("a", "Ana", "New"),
				namedLead("x", "Xavier", "Contacted"),
				namedLead("y", "Juliana", "Contacted"),
				namedLead("z", "Zeca", "Contacted"))
			mut := &fakeMutator{}
			c := newLoadedController(t, src, mut)

			var seen []string
			mut.change = func(in usecase.ChangeLeadStatusInput) error {
				seen, _ = c.Board().Column("Contacted")
				src.setStatus(in.LeadID, in.NewStatus)
				return nil
			}

			_, err := c.MoveInView(context.Background(),
				Drop{LeadID: "a", Source: "New", Destination: "Contacted", Index: tt.index}, Filter{Search: "ana"})

			require.NoError(t, err)
			assert.Equal(t, tt.want, seen)
		})
	}
}

func TestMoveInView_ZeroFilterUsesBoardIndex(t *testing.T) {
	src := newFakeSource([]string{"New", "Contacted"},
		namedLead("a", "Ana", "New"), namedLead("x", "Xavier", "Contacted"), namedLead("y", "Juliana", "Contacted"))
	mut := &fakeMutator{}
	c := newLoadedController(t, src, mut)

	var seen []string
	mut.change = func(usecase.ChangeLeadStatusInput) error {
		seen, _ = c.Board().Column("Contacted")
		return nil
	}
	_, err := c.MoveInView(context.Background(), Drop{LeadID: "a", Source: "New", Destination: "Contacted", Index: 1}, Filter{})

	require.NoError(t, err)
	assert.Equal(t, []string{"x", "a", "y"}, seen)
}
