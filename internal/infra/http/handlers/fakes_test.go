package handlers

import (
	"context"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/xavierca1/agency-pipeline/internal/entity"
	"github.com/xavierca1/agency-pipeline/internal/infra/http/middleware"
	"github.com/xavierca1/agency-pipeline/internal/pipeline"
	"github.com/xavierca1/agency-pipeline/internal/usecase"
)

var saoPaulo = time.FixedZone("BRT", -3*60*60)

// memoryStore backs the board and the lead/status use cases in handler tests.
type memoryStore struct {
	mu       sync.Mutex
	statuses []entity.StatusEntry
	leads    []entity.Lead
	history  []entity.HistoryEntry
	err      error
}

func newMemoryStore(statuses ...string) *memoryStore {
	s := &memoryStore{}
	for i, name := range statuses {
		s.statuses = append(s.statuses, entity.StatusEntry{
			ID:           "s-" + name,
			TenantID:     "t1",
			Name:         name,
			DisplayOrder: i,
			Active:       true,
			IsDefault:    name == entity.StatusNew || name == entity.StatusConverted,
		})
	}
	return s
}

func (s *memoryStore) addLead(id, name, status string, created time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.leads = append(s.leads, entity.Lead{
		ID: id, TenantID: "t1", Name: name, Email: id + "@example.com", Status: status, CreatedAt: created, UpdatedAt: created,
	})
}

func (s *memoryStore) setStatus(id, status string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.leads {
		if s.leads[i].ID == id {
			s.leads[i].Status = status
		}
	}
}

func (s *memoryStore) FetchActiveStatuses(_ context.Context, _ string) ([]entity.StatusEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	var out []entity.StatusEntry
	for _, st := range s.statuses {
		if st.Active {
			out = append(out, st)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].DisplayOrder < out[j].DisplayOrder })
	return out, nil
}

func (s *memoryStore) FetchLeadsWithHistory(_ context.Context, _ string) ([]entity.Lead, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	return append([]entity.Lead(nil), s.leads...), nil
}

func (s *memoryStore) FindByID(_ context.Context, _, id string) (*entity.StatusEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.statuses {
		if s.statuses[i].ID == id {
			st := s.statuses[i]
			return &st, nil
		}
	}
	return nil, entity.ErrNotFound
}

func (s *memoryStore) MaxDisplayOrder(context.Context, string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	maxOrder := -1
	for _, st := range s.statuses {
		if st.DisplayOrder > maxOrder {
			maxOrder = st.DisplayOrder
		}
	}
	return maxOrder, nil
}

func (s *memoryStore) Create(_ context.Context, entry *entity.StatusEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, st := range s.statuses {
		if st.Name == entry.Name {
			return entity.ErrAlreadyExists
		}
	}
	s.statuses = append(s.statuses, *entry)
	return nil
}

func (s *memoryStore) Deactivate(_ context.Context, _, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.statuses {
		if s.statuses[i].ID == id && !s.statuses[i].IsDefault {
			s.statuses[i].Active = false
			return nil
		}
	}
	return entity.ErrNotFound
}

// leadRepo adapts memoryStore to the lead repository; FindByID clashes with
// the status repository method of the same name.
type leadRepo struct{ *memoryStore }

func (r leadRepo) Upsert(_ context.Context, lead *entity.Lead) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.leads {
		if r.leads[i].Email == lead.Email {
			lead.ID = r.leads[i].ID
			lead.Status = r.leads[i].Status
			return false, nil
		}
	}
	if lead.ID == "" {
		lead.ID = "l" + string(rune('a'+len(r.leads)))
	}
	r.leads = append(r.leads, *lead)
	return true, nil
}

func (r leadRepo) FindByID(_ context.Context, _, id string) (*entity.Lead, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.leads {
		if r.leads[i].ID == id {
			return r.leads[i].Clone(), nil
		}
	}
	return nil, entity.ErrNotFound
}

func (r leadRepo) UpdateStatus(_ context.Context, _, id, status string) error {
	r.setStatus(id, status)
	return nil
}

func (r leadRepo) LinkClient(_ context.Context, _, id, clientID, status string) error {
	r.setStatus(id, status)
	return nil
}

func (r leadRepo) Update(_ context.Context, lead *entity.Lead) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.leads {
		if r.leads[i].ID == lead.ID {
			r.leads[i].Name = lead.Name
			r.leads[i].Email = lead.Email
			r.leads[i].Phone = lead.Phone
			return nil
		}
	}
	return entity.ErrNotFound
}

func (r leadRepo) Delete(_ context.Context, _, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.leads {
		if r.leads[i].ID == id {
			r.leads = append(r.leads[:i], r.leads[i+1:]...)
			return nil
		}
	}
	return entity.ErrNotFound
}

func (s *memoryStore) Append(_ context.Context, entry *entity.HistoryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history, *entry)
	return nil
}

// scriptedMutator writes moves into the store unless told to fail.
type scriptedMutator struct {
	store      *memoryStore
	changeErr  error
	convertErr error
}

func (m *scriptedMutator) ChangeLeadStatus(_ context.Context, in usecase.ChangeLeadStatusInput) error {
	if m.changeErr != nil {
		return m.changeErr
	}
	m.store.setStatus(in.LeadID, in.NewStatus)
	return nil
}

func (m *scriptedMutator) ConvertLead(_ context.Context, in usecase.ConvertLeadInput) (*usecase.ConvertLeadOutput, error) {
	if m.convertErr != nil {
		return nil, m.convertErr
	}
	m.store.setStatus(in.LeadID, entity.StatusConverted)
	return &usecase.ConvertLeadOutput{ClientID: "c-" + in.LeadID, ProjectID: "p-" + in.LeadID}, nil
}

type testServer struct {
	store    *memoryStore
	mutator  *scriptedMutator
	registry *pipeline.Registry
	router   http.Handler
}

func newTestServer(store *memoryStore) *testServer {
	mut := &scriptedMutator{store: store}
	registry := pipeline.NewRegistry(func(tenantID string) *pipeline.Controller {
		return pipeline.NewController(tenantID, store, mut, pipeline.WithLocation(saoPaulo))
	}, nil)

	changeUC := usecase.NewChangeLeadStatusUseCase(leadRepo{store}, store, nil)
	board := NewBoardHandler(registry, saoPaulo)
	leads := NewLeadHandler(
		usecase.NewCaptureLeadUseCase(leadRepo{store}, store, store, registry),
		usecase.NewUpdateLeadUseCase(leadRepo{store}, store, changeUC, registry),
		usecase.NewDeleteLeadUseCase(leadRepo{store}, registry),
	)
	statuses := NewStatusHandler(usecase.NewStatusCatalogUseCase(store, registry))

	r := chi.NewRouter()
	r.Post("/public/leads", leads.CaptureLead)
	r.Group(func(r chi.Router) {
		r.Use(middleware.Tenant)
		r.Get("/board", board.GetBoard)
		r.Post("/board/moves", board.Move)
		r.Get("/leads", board.ListLeads)
		r.Patch("/leads/{id}", leads.UpdateLead)
		r.Delete("/leads/{id}", leads.DeleteLead)
		r.Post("/leads/{id}/convert", board.Convert)
		r.Get("/statuses", statuses.List)
		r.Post("/statuses", statuses.Create)
		r.Delete("/statuses/{id}", statuses.Deactivate)
	})
	return &testServer{store: store, mutator: mut, registry: registry, router: r}
}
