package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"gantt-tracker/internal/model"
)

// ResourceRepository manages resource pools and their display colors.
type ResourceRepository struct {
	db *gorm.DB
}

func NewResourceRepository(db *gorm.DB) *ResourceRepository {
	return &ResourceRepository{db: db}
}

func (r *ResourceRepository) Create(ctx context.Context, resource *model.Resource) error {
	if err := r.db.WithContext(ctx).Create(resource).Error; err != nil {
		return fmt.Errorf("create resource: %w", err)
	}
	return nil
}

func (r *ResourceRepository) List(ctx context.Context) ([]model.Resource, error) {
	var resources []model.Resource
	if err := r.db.WithContext(ctx).Order("name ASC, id ASC").Find(&resources).Error; err != nil {
		return nil, fmt.Errorf("list resources: %w", err)
	}
	return resources, nil
}

func (r *ResourceRepository) FindByID(ctx context.Context, id uint) (*model.Resource, error) {
	var resource model.Resource
	if err := r.db.WithContext(ctx).First(&resource, id).Error; err != nil {
		return nil, err
	}
	return &resource, nil
}

func (r *ResourceRepository) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&model.Resource{}, id)
	if res.Error != nil {
		return fmt.Errorf("delete resource: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
