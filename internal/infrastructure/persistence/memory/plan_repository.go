package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/propsign/backend/internal/domain/billing"
	"github.com/propsign/backend/internal/domain/shared"
)

// PlanRepository implements billing.PlanRepository with a mutex-guarded map
type PlanRepository struct {
	mu    sync.RWMutex
	plans map[string]*billing.Plan
}

// NewPlanRepository creates an in-memory plan catalog preloaded with the
// built-in plans
func NewPlanRepository() *PlanRepository {
	repo := &PlanRepository{
		plans: make(map[string]*billing.Plan),
	}
	for _, plan := range billing.DefaultPlans() {
		repo.plans[plan.ID] = plan
	}
	return repo
}

// FindByID retrieves a plan by its identifier
func (r *PlanRepository) FindByID(ctx context.Context, id string) (*billing.Plan, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	plan, ok := r.plans[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return plan, nil
}

// FindAllActive retrieves every active plan, cheapest first
func (r *PlanRepository) FindAllActive(ctx context.Context) ([]*billing.Plan, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var plans []*billing.Plan
	for _, plan := range r.plans {
		if plan.Active {
			plans = append(plans, plan)
		}
	}
	sort.Slice(plans, func(i, j int) bool {
		return plans[i].PriceCents < plans[j].PriceCents
	})
	return plans, nil
}

// Save persists a plan, replacing any existing plan with the same ID
func (r *PlanRepository) Save(ctx context.Context, plan *billing.Plan) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.plans[plan.ID] = plan
	return nil
}

// Ensure PlanRepository implements billing.PlanRepository
var _ billing.PlanRepository = (*PlanRepository)(nil)
