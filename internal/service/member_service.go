package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"gantt-tracker/internal/model"
	"gantt-tracker/internal/repository"
)

var colorPattern = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// MemberService manages team members of a project.
type MemberService struct {
	log *logrus.Logger
}

func NewMemberService(log *logrus.Logger) *MemberService {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &MemberService{log: log}
}

func (s *MemberService) Create(ctx context.Context, scope Scope, name string) (*model.Member, error) {
	if err := scope.canMutate(); err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, invalid("name", "is required")
	}
	member := model.Member{Name: name}
	if err := scope.Store.Members.Create(ctx, &member); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("member %q: %w", name, ErrConflict)
		}
		return nil, err
	}
	return &member, nil
}

func (s *MemberService) List(ctx context.Context, scope Scope) ([]model.Member, error) {
	return scope.Store.Members.List(ctx)
}

// Delete removes a member and nulls the assignee of every task that pointed at it.
// It returns how many tasks were unassigned.
func (s *MemberService) Delete(ctx context.Context, scope Scope, id uint) (int64, error) {
	if err := scope.canMutate(); err != nil {
		return 0, err
	}
	var cleared int64
	err := scope.Store.Transaction(ctx, func(tx *repository.Store) error {
		if _, err := tx.Members.FindByID(ctx, id); err != nil {
			return notFound(err, "member", id)
		}
		var err error
		if cleared, err = tx.Tasks.ClearAssignee(ctx, id); err != nil {
			return err
		}
		return notFound(tx.Members.Delete(ctx, id), "member", id)
	})
	if err != nil {
		return 0, err
	}
	s.log.WithFields(logrus.Fields{"project": scope.Project.Name, "member_id": id, "tasks": cleared}).Info("member deleted")
	return cleared, nil
}

// ResourceInput carries the editable fields of a resource. A nil Utilization means 100.
type ResourceInput struct {
	Name        string
	Role        string
	Color       string
	Utilization *int
}

// ResourceService manages resource pools and their colors.
type ResourceService struct {
	log *logrus.Logger
}

func NewResourceService(log *logrus.Logger) *ResourceService {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &ResourceService{log: log}
}

func (s *ResourceService) Create(ctx context.Context, scope Scope, input ResourceInput) (*model.Resource, error) {
	if err := scope.canMutate(); err != nil {
		return nil, err
	}
	resource := model.Resource{
		Name:        strings.TrimSpace(input.Name),
		Role:        strings.TrimSpace(input.Role),
		Color:       strings.TrimSpace(input.Color),
		Utilization: 100,
	}
	if input.Utilization != nil {
		resource.Utilization = *input.Utilization
	}
	switch {
	case resource.Name == "":
		return nil, invalid("name", "is required")
	case resource.Color != "" && !colorPattern.MatchString(resource.Color):
		return nil, invalid("color", "must look like #1f77b4, got %q", resource.Color)
	case resource.Utilization < 0 || resource.Utilization > 100:
		return nil, invalid("utilization", "must be between 0 and 100, got %d", resource.Utilization)
	}
	if err := scope.Store.Resources.Create(ctx, &resource); err != nil {
		return nil, err
	}
	return &resource, nil
}

func (s *ResourceService) List(ctx context.Context, scope Scope) ([]model.Resource, error) {
	return scope.Store.Resources.List(ctx)
}

// Delete removes a resource and nulls resource_id on every task that used it.
func (s *ResourceService) Delete(ctx context.Context, scope Scope, id uint) (int64, error) {
	if err := scope.canMutate(); err != nil {
		return 0, err
	}
	var cleared int64
	err := scope.Store.Transaction(ctx, func(tx *repository.Store) error {
		if _, err := tx.Resources.FindByID(ctx, id); err != nil {
			return notFound(err, "resource", id)
		}
		var err error
		if cleared, err = tx.Tasks.ClearResource(ctx, id); err != nil {
			return err
		}
		return notFound(tx.Resources.Delete(ctx, id), "resource", id)
	})
	if err != nil {
		return 0, err
	}
	s.log.WithFields(logrus.Fields{"project": scope.Project.Name, "resource_id": id, "tasks": cleared}).Info("resource deleted")
	return cleared, nil
}
