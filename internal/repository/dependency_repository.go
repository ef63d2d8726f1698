package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"gantt-tracker/internal/model"
)

// DependencyRepository persists predecessor -> successor edges.
type DependencyRepository struct {
	db *gorm.DB
}

func NewDependencyRepository(db *gorm.DB) *DependencyRepository {
	return &DependencyRepository{db: db}
}

// Add inserts one edge. A duplicate pair fails with gorm.ErrDuplicatedKey.
func (r *DependencyRepository) Add(ctx context.Context, predecessorID, successorID uint) error {
	edge := model.TaskDependency{PredecessorID: predecessorID, SuccessorID: successorID}
	if err := r.db.WithContext(ctx).Create(&edge).Error; err != nil {
		return fmt.Errorf("add dependency %d->%d: %w", predecessorID, successorID, err)
	}
	return nil
}

func (r *DependencyRepository) Remove(ctx context.Context, predecessorID, successorID uint) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("predecessor_id = ? AND successor_id = ?", predecessorID, successorID).
		Delete(&model.TaskDependency{})
	if res.Error != nil {
		return 0, fmt.Errorf("remove dependency: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// DeleteForTask removes every edge where the task is predecessor or successor.
func (r *DependencyRepository) DeleteForTask(ctx context.Context, taskID uint) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("predecessor_id = ? OR successor_id = ?", taskID, taskID).
		Delete(&model.TaskDependency{})
	if res.Error != nil {
		return 0, fmt.Errorf("delete dependencies: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// ReplaceForSuccessor drops all incoming edges of successorID and inserts one per predecessor.
// Callers pass an already deduplicated list.
func (r *DependencyRepository) ReplaceForSuccessor(ctx context.Context, successorID uint, predecessorIDs []uint) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("successor_id = ?", successorID).Delete(&model.TaskDependency{}).Error; err != nil {
		return fmt.Errorf("clear predecessors: %w", err)
	}
	if len(predecessorIDs) == 0 {
		return nil
	}
	edges := make([]model.TaskDependency, 0, len(predecessorIDs))
	for _, id := range predecessorIDs {
		edges = append(edges, model.TaskDependency{PredecessorID: id, SuccessorID: successorID})
	}
	if err := db.Create(&edges).Error; err != nil {
		return fmt.Errorf("insert predecessors: %w", err)
	}
	return nil
}

func (r *DependencyRepository) List(ctx context.Context) ([]model.TaskDependency, error) {
	var edges []model.TaskDependency
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&edges).Error; err != nil {
		return nil, fmt.Errorf("list dependencies: %w", err)
	}
	return edges, nil
}
