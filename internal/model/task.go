package model

import "time"

// Task is a single bar (or milestone) on a project's Gantt chart.
type Task struct {
	ID          uint      `gorm:"primaryKey"`
	Name        string    `gorm:"size:100;not null"`
	StartDate   time.Time `gorm:"not null;index"`
	EndDate     time.Time `gorm:"not null"`
	Remarks     string    `gorm:"type:text"`
	Progress    int       `gorm:"not null;default:0"`
	IsMilestone bool      `gorm:"default:false"`
	ParentID    *uint     `gorm:"index"`
	AssigneeID  *uint     `gorm:"index"`
	ResourceID  *uint     `gorm:"index"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// TaskDependency is a directed predecessor -> successor edge between two tasks.
// It is independent of the parent/child tree.
type TaskDependency struct {
	ID            uint `gorm:"primaryKey"`
	PredecessorID uint `gorm:"not null;uniqueIndex:idx_dependency_pair,priority:1"`
	SuccessorID   uint `gorm:"not null;uniqueIndex:idx_dependency_pair,priority:2;index"`
	CreatedAt     time.Time
}

// TableName keeps the table name used by existing project databases.
func (TaskDependency) TableName() string {
	return "task_dependencies"
}
