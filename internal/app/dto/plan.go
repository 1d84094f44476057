package dto

import (
	"time"

	planssvc "rentline/internal/app/services/plans"
	domainplan "rentline/internal/domain/plan"
)

type Plan struct {
	ID          int64      `json:"id"`
	UserID      int64      `json:"userId"`
	PlanType    string     `json:"planType"`
	MaxListings int        `json:"maxListings"`
	ExpiresAt   *time.Time `json:"expiresAt"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

func NewPlan(p *domainplan.Plan) Plan {
	if p == nil {
		return Plan{}
	}
	return Plan{
		ID:          p.ID,
		UserID:      int64(p.UserID),
		PlanType:    string(p.Type),
		MaxListings: p.MaxListings,
		ExpiresAt:   p.ExpiresAt,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

type PlanStatus struct {
	Plan           Plan  `json:"plan"`
	ActiveListings int64 `json:"activeListings"`
	CanCreateMore  bool  `json:"canCreateMore"`
}

func NewPlanStatus(s *planssvc.Status) PlanStatus {
	if s == nil {
		return PlanStatus{}
	}
	return PlanStatus{
		Plan:           NewPlan(s.Plan),
		ActiveListings: s.ActiveListings,
		CanCreateMore:  s.CanCreateMore,
	}
}
