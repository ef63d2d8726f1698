package service

import (
	"context"
	"time"

	"gantt-tracker/internal/metrics"
	"gantt-tracker/internal/model"
)

// ViewService recomputes derived views from the current store state on every call.
type ViewService struct {
	metrics *metrics.Metrics
}

func NewViewService(m *metrics.Metrics) *ViewService {
	return &ViewService{metrics: m}
}

func (s *ViewService) GanttRows(ctx context.Context, scope Scope) ([]GanttRow, error) {
	defer s.metrics.ObserveView("gantt", time.Now())
	st := scope.Store
	tasks, err := st.Tasks.List(ctx)
	if err != nil {
		return nil, err
	}
	edges, err := st.Dependencies.List(ctx)
	if err != nil {
		return nil, err
	}
	members, err := st.Members.List(ctx)
	if err != nil {
		return nil, err
	}
	resources, err := st.Resources.List(ctx)
	if err != nil {
		return nil, err
	}
	return BuildGanttRows(tasks, edges, members, resources), nil
}

func (s *ViewService) ResourceColors(ctx context.Context, scope Scope) (map[string]string, error) {
	resources, err := scope.Store.Resources.List(ctx)
	if err != nil {
		return nil, err
	}
	return ResourceColors(resources), nil
}

func (s *ViewService) Burndown(ctx context.Context, scope Scope) (Burndown, error) {
	defer s.metrics.ObserveView("burndown", time.Now())
	tasks, err := scope.Store.Tasks.List(ctx)
	if err != nil {
		return Burndown{}, err
	}
	return BuildBurndown(tasks), nil
}

func (s *ViewService) Overview(ctx context.Context, scope Scope, today time.Time) (Overview, error) {
	defer s.metrics.ObserveView("overview", time.Now())
	tasks, err := scope.Store.Tasks.List(ctx)
	if err != nil {
		return Overview{}, err
	}
	return BuildOverview(tasks, today), nil
}

func (s *ViewService) Tree(ctx context.Context, scope Scope) ([]TreeRow, error) {
	defer s.metrics.ObserveView("tree", time.Now())
	tasks, err := scope.Store.Tasks.List(ctx)
	if err != nil {
		return nil, err
	}
	return BuildTree(tasks), nil
}

// Tasks returns the raw task list for views that need more than the Gantt row.
func (s *ViewService) Tasks(ctx context.Context, scope Scope) ([]model.Task, error) {
	return scope.Store.Tasks.List(ctx)
}
