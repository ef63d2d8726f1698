package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"gantt-tracker/internal/model"
)

// TaskRepository handles CRUD for tasks.
type TaskRepository struct {
	db *gorm.DB
}

func NewTaskRepository(db *gorm.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

func (r *TaskRepository) Create(ctx context.Context, task *model.Task) error {
	if err := r.db.WithContext(ctx).Create(task).Error; err != nil {
		return fmt.Errorf("create task: %w", err)
	}
	return nil
}

// List returns every task ordered by start date, then id.
func (r *TaskRepository) List(ctx context.Context) ([]model.Task, error) {
	var tasks []model.Task
	if err := r.db.WithContext(ctx).Order("start_date ASC, id ASC").Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}

func (r *TaskRepository) FindByID(ctx context.Context, id uint) (*model.Task, error) {
	var task model.Task
	if err := r.db.WithContext(ctx).First(&task, id).Error; err != nil {
		return nil, err
	}
	return &task, nil
}

// Save writes every column of task and re-stamps updated_at.
func (r *TaskRepository) Save(ctx context.Context, task *model.Task) error {
	if err := r.db.WithContext(ctx).Save(task).Error; err != nil {
		return fmt.Errorf("save task: %w", err)
	}
	return nil
}

// Delete removes a task row. It returns gorm.ErrRecordNotFound when nothing was deleted.
func (r *TaskRepository) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&model.Task{}, id)
	if res.Error != nil {
		return fmt.Errorf("delete task: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *TaskRepository) CountChildren(ctx context.Context, parentID uint) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&model.Task{}).Where("parent_id = ?", parentID).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count children: %w", err)
	}
	return n, nil
}

// Reparent moves every child of parentID under newParent (nil detaches them).
func (r *TaskRepository) Reparent(ctx context.Context, parentID uint, newParent *uint) (int64, error) {
	res := r.db.WithContext(ctx).Model(&model.Task{}).Where("parent_id = ?", parentID).Update("parent_id", newParent)
	if res.Error != nil {
		return 0, fmt.Errorf("reparent children: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// ClearAssignee nulls assignee_id on every task assigned to memberID.
func (r *TaskRepository) ClearAssignee(ctx context.Context, memberID uint) (int64, error) {
	res := r.db.WithContext(ctx).Model(&model.Task{}).Where("assignee_id = ?", memberID).Update("assignee_id", nil)
	if res.Error != nil {
		return 0, fmt.Errorf("clear assignee: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// ClearResource nulls resource_id on every task using resourceID.
func (r *TaskRepository) ClearResource(ctx context.Context, resourceID uint) (int64, error) {
	res := r.db.WithContext(ctx).Model(&model.Task{}).Where("resource_id = ?", resourceID).Update("resource_id", nil)
	if res.Error != nil {
		return 0, fmt.Errorf("clear resource: %w", res.Error)
	}
	return res.RowsAffected, nil
}
