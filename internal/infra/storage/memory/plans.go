package memory

import (
	"context"
	"sync"

	domainplan "rentline/internal/domain/plan"
	domainuser "rentline/internal/domain/user"
)

// PlanRepository stores subscription plans in memory.
type PlanRepository struct {
	mu     sync.RWMutex
	nextID int64
	byUser map[domainuser.ID]*domainplan.Plan
}

func NewPlanRepository() *PlanRepository {
	return &PlanRepository{
		nextID: 1,
		byUser: make(map[domainuser.ID]*domainplan.Plan),
	}
}

func (r *PlanRepository) ByUser(ctx context.Context, id domainuser.ID) (*domainplan.Plan, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if p, ok := r.byUser[id]; ok {
		return clonePlan(p), nil
	}
	return nil, domainplan.ErrNotFound
}

func (r *PlanRepository) Save(ctx context.Context, p *domainplan.Plan) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p.ID == 0 {
		p.ID = r.nextID
		r.nextID++
	}
	r.byUser[p.UserID] = clonePlan(p)
	return nil
}

func clonePlan(p *domainplan.Plan) *domainplan.Plan {
	if p == nil {
		return nil
	}
	copyPlan := *p
	if p.ExpiresAt != nil {
		expires := *p.ExpiresAt
		copyPlan.ExpiresAt = &expires
	}
	return &copyPlan
}
