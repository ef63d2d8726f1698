package model

import "time"

// Member is a project team member a task can be assigned to.
type Member struct {
	ID        uint   `gorm:"primaryKey"`
	Name      string `gorm:"size:100;uniqueIndex;not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Resource is a pool a task draws on. Utilization is capacity in percent, not consumed effort.
type Resource struct {
	ID          uint   `gorm:"primaryKey"`
	Name        string `gorm:"size:100;not null"`
	Role        string `gorm:"size:100"`
	Color       string `gorm:"size:20"`
	Utilization int    `gorm:"default:100"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
