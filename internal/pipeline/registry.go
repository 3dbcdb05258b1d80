package pipeline

import (
	"context"
	"sort"
	"sync"

	log "github.com/sirupsen/logrus"
)

// Registry keeps one loaded Controller per tenant. It is also the single
// invalidation entry point: mutations and the change feed call Invalidate,
// which clears the shared cache and reloads the tenant's board.
type Registry struct {
	mu          sync.Mutex
	controllers map[string]*Controller
	factory     func(tenantID string) *Controller
	cache       Invalidator
}

func NewRegistry(factory func(tenantID string) *Controller, cache Invalidator) *Registry {
	return &Registry{
		controllers: map[string]*Controller{},
		factory:     factory,
		cache:       cache,
	}
}

// Controller returns the tenant's controller, loading it on first use. A
// controller whose first load fails is not kept.
func (r *Registry) Controller(ctx context.Context, tenantID string) (*Controller, error) {
	r.mu.Lock()
	c, ok := r.controllers[tenantID]
	if !ok {
		c = r.factory(tenantID)
		r.controllers[tenantID] = c
	}
	r.mu.Unlock()

	if c.Loaded() {
		return c, nil
	}
	if err := c.Load(ctx); err != nil {
		r.mu.Lock()
		if r.controllers[tenantID] == c && !c.Loaded() {
			delete(r.controllers, tenantID)
		}
		r.mu.Unlock()
		return nil, err
	}
	return c, nil
}

// Tenants lists the tenants with a loaded board.
func (r *Registry) Tenants() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.controllers))
	for id, c := range r.controllers {
		if c.Loaded() {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}

func (r *Registry) Invalidate(ctx context.Context, tenantID string) error {
	if r.cache != nil {
		if err := r.cache.Invalidate(ctx, tenantID); err != nil {
			return err
		}
	}
	r.mu.Lock()
	c, ok := r.controllers[tenantID]
	r.mu.Unlock()
	if !ok {
		return nil
	}
	if err := c.Load(ctx); err != nil {
		log.WithField("tenant_id", tenantID).WithError(err).Warn("board reload after invalidation failed")
		return err
	}
	return nil
}
