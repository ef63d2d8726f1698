package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"gantt-tracker/internal/model"
)

// ProjectRepository stores project metadata in the master database.
type ProjectRepository struct {
	db *gorm.DB
}

func NewProjectRepository(db *gorm.DB) *ProjectRepository {
	return &ProjectRepository{db: db}
}

// Create inserts a project and stores the path pathFor derives from the new row,
// so the path can carry the id. A taken name fails with gorm.ErrDuplicatedKey.
func (r *ProjectRepository) Create(ctx context.Context, project *model.Project, pathFor func(model.Project) string) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(project).Error; err != nil {
			return err
		}
		project.Path = pathFor(*project)
		return tx.Model(project).Update("path", project.Path).Error
	})
	if err != nil {
		return fmt.Errorf("create project: %w", err)
	}
	return nil
}

func (r *ProjectRepository) Delete(ctx context.Context, id uint) error {
	if err := r.db.WithContext(ctx).Delete(&model.Project{}, id).Error; err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	return nil
}

func (r *ProjectRepository) FindByName(ctx context.Context, name string) (*model.Project, error) {
	var project model.Project
	if err := r.db.WithContext(ctx).Where("name = ?", name).First(&project).Error; err != nil {
		return nil, err
	}
	return &project, nil
}

func (r *ProjectRepository) List(ctx context.Context) ([]model.Project, error) {
	var projects []model.Project
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&projects).Error; err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	return projects, nil
}

// SessionRepository persists the "current project" of each user.
type SessionRepository struct {
	db *gorm.DB
}

func NewSessionRepository(db *gorm.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

func (r *SessionRepository) Set(ctx context.Context, userID uint, projectName string) error {
	session := model.Session{UserID: userID, ProjectName: projectName}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"project_name", "updated_at"}),
	}).Create(&session).Error
	if err != nil {
		return fmt.Errorf("set session: %w", err)
	}
	return nil
}

// Get returns the selected project name, or "" when the user has not picked one.
func (r *SessionRepository) Get(ctx context.Context, userID uint) (string, error) {
	var session model.Session
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&session).Error
	switch {
	case err == nil:
		return session.ProjectName, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return "", nil
	default:
		return "", fmt.Errorf("get session: %w", err)
	}
}

// ListSelected returns every session that points at a project.
func (r *SessionRepository) ListSelected(ctx context.Context) ([]model.Session, error) {
	var sessions []model.Session
	if err := r.db.WithContext(ctx).Where("project_name <> ''").Order("user_id ASC").Find(&sessions).Error; err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return sessions, nil
}
