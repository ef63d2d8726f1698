package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"gantt-tracker/internal/config"
	"gantt-tracker/internal/graph"
	"gantt-tracker/internal/metrics"
	"gantt-tracker/internal/model"
	"gantt-tracker/internal/repository"
)

const maxNameLen = 100

// TaskInput carries the editable fields of a task.
type TaskInput struct {
	Name        string
	StartDate   time.Time
	EndDate     time.Time
	Progress    int
	Remarks     string
	IsMilestone bool
	AssigneeID  *uint
	ResourceID  *uint
	ParentID    *uint
	// Predecessors holds raw predecessor ids as the caller received them.
	// On update a nil slice keeps the current edges; any other value replaces them.
	Predecessors []string
}

// TaskOptions tune the rules that are still a product decision.
type TaskOptions struct {
	EnforceAcyclic     bool
	OrphanPolicy       string
	StrictPredecessors bool
}

// DefaultTaskOptions mirrors the configuration defaults.
func DefaultTaskOptions() TaskOptions {
	return TaskOptions{EnforceAcyclic: true, OrphanPolicy: config.OrphanNull}
}

// TaskOptionsFromConfig picks the task rules out of the runtime config.
func TaskOptionsFromConfig(cfg config.Config) TaskOptions {
	return TaskOptions{
		EnforceAcyclic:     cfg.EnforceAcyclic,
		OrphanPolicy:       cfg.OrphanPolicy,
		StrictPredecessors: cfg.StrictPredecessors,
	}
}

// TaskService wraps task mutation rules and keeps the dependency and parent relations consistent.
type TaskService struct {
	opts    TaskOptions
	log     *logrus.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

func NewTaskService(opts TaskOptions, log *logrus.Logger, m *metrics.Metrics) *TaskService {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &TaskService{opts: opts, log: log, metrics: m, now: time.Now}
}

// Graph loads the current task relations of the scope's project.
func (s *TaskService) Graph(ctx context.Context, scope Scope) (*graph.Graph, error) {
	return s.loadGraph(ctx, scope.Store)
}

func (s *TaskService) loadGraph(ctx context.Context, store *repository.Store) (*graph.Graph, error) {
	tasks, err := store.Tasks.List(ctx)
	if err != nil {
		return nil, err
	}
	edges, err := store.Dependencies.List(ctx)
	if err != nil {
		return nil, err
	}
	return graph.Build(tasks, edges, s.opts.EnforceAcyclic), nil
}

func (s *TaskService) Get(ctx context.Context, scope Scope, taskID uint) (*model.Task, error) {
	task, err := scope.Store.Tasks.FindByID(ctx, taskID)
	if err != nil {
		return nil, notFound(err, "task", taskID)
	}
	return task, nil
}

func (s *TaskService) List(ctx context.Context, scope Scope) ([]model.Task, error) {
	return scope.Store.Tasks.List(ctx)
}

// CreateTask validates input, inserts the task and links its predecessors in one transaction.
func (s *TaskService) CreateTask(ctx context.Context, scope Scope, input TaskInput) (*model.Task, error) {
	if err := scope.canMutate(); err != nil {
		return nil, err
	}
	if err := s.normalize(&input); err != nil {
		return nil, err
	}

	var task model.Task
	err := scope.Store.Transaction(ctx, func(tx *repository.Store) error {
		if err := checkReferences(ctx, tx, input); err != nil {
			return err
		}
		g, err := s.loadGraph(ctx, tx)
		if err != nil {
			return err
		}
		if input.ParentID != nil && !g.Has(*input.ParentID) {
			return fmt.Errorf("parent task %d: %w", *input.ParentID, ErrNotFound)
		}

		task = model.Task{UpdatedAt: s.now()}
		applyInput(&task, input)
		if err := tx.Tasks.Create(ctx, &task); err != nil {
			return err
		}
		g.AddTask(task.ID, task.ParentID)

		preds, err := s.predecessorIDs(task.ID, input.Predecessors, g)
		if err != nil {
			return err
		}
		linked, err := g.ReplaceSuccessorEdges(task.ID, preds)
		if err != nil {
			return err
		}
		return tx.Dependencies.ReplaceForSuccessor(ctx, task.ID, linked)
	})
	if err != nil {
		s.rejected(err)
		return nil, err
	}

	s.metrics.Mutation("create")
	s.log.WithFields(logrus.Fields{
		"project":   scope.Project.Name,
		"task_id":   task.ID,
		"actor":     scope.Actor.Name,
		"milestone": task.IsMilestone,
	}).Info("task created")
	return &task, nil
}

// UpdateTask replaces the task's fields. Concurrent updates are last-write-wins.
func (s *TaskService) UpdateTask(ctx context.Context, scope Scope, taskID uint, input TaskInput) (*model.Task, error) {
	if err := scope.canMutate(); err != nil {
		return nil, err
	}
	if err := s.normalize(&input); err != nil {
		return nil, err
	}

	var task *model.Task
	err := scope.Store.Transaction(ctx, func(tx *repository.Store) error {
		var err error
		task, err = tx.Tasks.FindByID(ctx, taskID)
		if err != nil {
			return notFound(err, "task", taskID)
		}
		if err := checkReferences(ctx, tx, input); err != nil {
			return err
		}
		g, err := s.loadGraph(ctx, tx)
		if err != nil {
			return err
		}
		if err := g.SetParent(taskID, input.ParentID); err != nil {
			return parentError(err, input.ParentID)
		}

		if input.Predecessors != nil {
			preds, err := s.predecessorIDs(taskID, input.Predecessors, g)
			if err != nil {
				return err
			}
			linked, err := g.ReplaceSuccessorEdges(taskID, preds)
			if err != nil {
				return err
			}
			if err := tx.Dependencies.ReplaceForSuccessor(ctx, taskID, linked); err != nil {
				return err
			}
		}

		applyInput(task, input)
		task.UpdatedAt = s.now()
		return tx.Tasks.Save(ctx, task)
	})
	if err != nil {
		s.rejected(err)
		return nil, err
	}

	s.metrics.Mutation("update")
	s.log.WithFields(logrus.Fields{
		"project": scope.Project.Name,
		"task_id": task.ID,
		"actor":   scope.Actor.Name,
	}).Info("task updated")
	return task, nil
}

// SetProgress changes only the progress of a task.
func (s *TaskService) SetProgress(ctx context.Context, scope Scope, taskID uint, progress int) (*model.Task, error) {
	if err := scope.canMutate(); err != nil {
		return nil, err
	}
	if progress < 0 || progress > 100 {
		err := invalid("progress", "must be between 0 and 100, got %d", progress)
		s.rejected(err)
		return nil, err
	}
	task, err := scope.Store.Tasks.FindByID(ctx, taskID)
	if err != nil {
		return nil, notFound(err, "task", taskID)
	}
	task.Progress = progress
	task.UpdatedAt = s.now()
	if err := scope.Store.Tasks.Save(ctx, task); err != nil {
		return nil, err
	}
	s.metrics.Mutation("progress")
	return task, nil
}

// DeleteTask removes the task, every edge touching it, and applies the orphan policy to its children.
func (s *TaskService) DeleteTask(ctx context.Context, scope Scope, taskID uint) error {
	if err := scope.canMutate(); err != nil {
		return err
	}

	var edges, orphans int64
	err := scope.Store.Transaction(ctx, func(tx *repository.Store) error {
		task, err := tx.Tasks.FindByID(ctx, taskID)
		if err != nil {
			return notFound(err, "task", taskID)
		}
		if edges, err = tx.Dependencies.DeleteForTask(ctx, taskID); err != nil {
			return err
		}

		switch s.opts.OrphanPolicy {
		case config.OrphanReject:
			n, err := tx.Tasks.CountChildren(ctx, taskID)
			if err != nil {
				return err
			}
			if n > 0 {
				return invalid("children", "task %d still has %d child task(s)", taskID, n)
			}
		case config.OrphanReparent:
			if orphans, err = tx.Tasks.Reparent(ctx, taskID, task.ParentID); err != nil {
				return err
			}
		default:
			if orphans, err = tx.Tasks.Reparent(ctx, taskID, nil); err != nil {
				return err
			}
		}

		return notFound(tx.Tasks.Delete(ctx, taskID), "task", taskID)
	})
	if err != nil {
		s.rejected(err)
		return err
	}

	s.metrics.Mutation("delete")
	s.log.WithFields(logrus.Fields{
		"project":  scope.Project.Name,
		"task_id":  taskID,
		"actor":    scope.Actor.Name,
		"edges":    edges,
		"children": orphans,
	}).Info("task deleted")
	return nil
}

// AddDependency links predecessor -> successor.
func (s *TaskService) AddDependency(ctx context.Context, scope Scope, predecessorID, successorID uint) error {
	if err := scope.canMutate(); err != nil {
		return err
	}
	err := scope.Store.Transaction(ctx, func(tx *repository.Store) error {
		g, err := s.loadGraph(ctx, tx)
		if err != nil {
			return err
		}
		for _, id := range []uint{predecessorID, successorID} {
			if !g.Has(id) {
				return fmt.Errorf("task %d: %w", id, ErrNotFound)
			}
		}
		if err := g.AddEdge(predecessorID, successorID); err != nil {
			return err
		}
		err = tx.Dependencies.Add(ctx, predecessorID, successorID)
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("%w: dependency %d->%d already exists", ErrInvalidEdge, predecessorID, successorID)
		}
		return err
	})
	if err != nil {
		return err
	}
	s.metrics.Mutation("link")
	return nil
}

// RemoveDependency unlinks predecessor -> successor.
func (s *TaskService) RemoveDependency(ctx context.Context, scope Scope, predecessorID, successorID uint) error {
	if err := scope.canMutate(); err != nil {
		return err
	}
	n, err := scope.Store.Dependencies.Remove(ctx, predecessorID, successorID)
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("dependency %d->%d: %w", predecessorID, successorID, ErrNotFound)
	}
	s.metrics.Mutation("unlink")
	return nil
}

// normalize validates field-level invariants and forces milestone end == start.
func (s *TaskService) normalize(input *TaskInput) error {
	input.Name = strings.TrimSpace(input.Name)
	input.Remarks = strings.TrimSpace(input.Remarks)
	var err error
	switch {
	case input.Name == "":
		err = invalid("name", "is required")
	case len([]rune(input.Name)) > maxNameLen:
		err = invalid("name", "must be at most %d characters", maxNameLen)
	case input.StartDate.IsZero():
		err = invalid("start_date", "is required")
	case input.Progress < 0 || input.Progress > 100:
		err = invalid("progress", "must be between 0 and 100, got %d", input.Progress)
	}
	if err != nil {
		s.rejected(err)
		return err
	}

	input.StartDate = Day(input.StartDate)
	if input.IsMilestone {
		input.EndDate = input.StartDate
		return nil
	}
	if input.EndDate.IsZero() {
		err = invalid("end_date", "is required")
	} else if input.EndDate = Day(input.EndDate); input.EndDate.Before(input.StartDate) {
		err = invalid("end_date", "must not be before start_date")
	}
	if err != nil {
		s.rejected(err)
	}
	return err
}

// predecessorIDs parses raw ids. Malformed or unknown ids are dropped unless
// StrictPredecessors is set; self references are always skipped.
func (s *TaskService) predecessorIDs(taskID uint, raw []string, g *graph.Graph) ([]uint, error) {
	ids := make([]uint, 0, len(raw))
	for _, r := range raw {
		r = strings.TrimSpace(r)
		if r == "" {
			continue
		}
		id, err := strconv.ParseUint(r, 10, 64)
		if err != nil {
			if s.opts.StrictPredecessors {
				return nil, invalid("predecessors", "%q is not a task id", r)
			}
			s.log.WithField("value", r).Debug("dropping malformed predecessor id")
			continue
		}
		if uint(id) != taskID && !g.Has(uint(id)) {
			if s.opts.StrictPredecessors {
				return nil, invalid("predecessors", "task %d does not exist", id)
			}
			s.log.WithField("value", id).Debug("dropping unknown predecessor id")
			continue
		}
		ids = append(ids, uint(id))
	}
	return ids, nil
}

func (s *TaskService) rejected(err error) {
	var verr *ValidationError
	if errors.As(err, &verr) {
		s.metrics.Rejected(verr.Field)
	}
}

func checkReferences(ctx context.Context, tx *repository.Store, input TaskInput) error {
	if input.AssigneeID != nil {
		if _, err := tx.Members.FindByID(ctx, *input.AssigneeID); err != nil {
			return notFound(err, "member", *input.AssigneeID)
		}
	}
	if input.ResourceID != nil {
		if _, err := tx.Resources.FindByID(ctx, *input.ResourceID); err != nil {
			return notFound(err, "resource", *input.ResourceID)
		}
	}
	return nil
}

func parentError(err error, parent *uint) error {
	switch {
	case errors.Is(err, graph.ErrCycle):
		return &ValidationError{Field: "parent_id", Reason: "would create a cycle in the task tree", Err: err}
	case errors.Is(err, graph.ErrUnknownTask) && parent != nil:
		return fmt.Errorf("parent task %d: %w", *parent, ErrNotFound)
	default:
		return err
	}
}

// InputFromTask returns the editable fields of task. Predecessors stay nil so an
// update built from it keeps the current dependency edges.
func InputFromTask(task model.Task) TaskInput {
	return TaskInput{
		Name:        task.Name,
		StartDate:   task.StartDate,
		EndDate:     task.EndDate,
		Progress:    task.Progress,
		Remarks:     task.Remarks,
		IsMilestone: task.IsMilestone,
		AssigneeID:  task.AssigneeID,
		ResourceID:  task.ResourceID,
		ParentID:    task.ParentID,
	}
}

func applyInput(task *model.Task, input TaskInput) {
	task.Name = input.Name
	task.StartDate = input.StartDate
	task.EndDate = input.EndDate
	task.Progress = input.Progress
	task.Remarks = input.Remarks
	task.IsMilestone = input.IsMilestone
	task.AssigneeID = input.AssigneeID
	task.ResourceID = input.ResourceID
	task.ParentID = input.ParentID
}

// Day truncates t to its calendar date in UTC.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD date.
func ParseDate(raw string) (time.Time, error) {
	t, err := time.Parse("2006-01-02", strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", raw)
	}
	return t, nil
}
