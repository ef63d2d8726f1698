package model

import "time"

// Project maps a unique name to its own SQLite task store.
type Project struct {
	ID        uint   `gorm:"primaryKey"`
	Name      string `gorm:"size:100;uniqueIndex;not null"`
	Path      string `gorm:"size:255;not null"`
	CreatedAt time.Time
}

// Session remembers which project a user is currently working in.
type Session struct {
	UserID      uint   `gorm:"primaryKey"`
	ProjectName string `gorm:"size:100"`
	UpdatedAt   time.Time
}
