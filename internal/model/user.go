package model

import (
	"fmt"
	"strings"
	"time"
)

// Role is an ordered capability level: Viewer < Editor < Admin.
type Role int

const (
	RoleViewer Role = iota
	RoleEditor
	RoleAdmin
)

func (r Role) String() string {
	switch r {
	case RoleAdmin:
		return "Admin"
	case RoleEditor:
		return "Editor"
	default:
		return "Viewer"
	}
}

// ParseRole accepts the role names used across revisions; "User" is an Editor.
func ParseRole(raw string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "admin":
		return RoleAdmin, nil
	case "editor", "user":
		return RoleEditor, nil
	case "viewer":
		return RoleViewer, nil
	default:
		return RoleViewer, fmt.Errorf("unknown role %q", raw)
	}
}

// User is shared across all projects and stored in the master database.
type User struct {
	ID         uint  `gorm:"primaryKey"`
	TelegramID int64 `gorm:"uniqueIndex"`
	Username   string
	FirstName  string
	LastName   string
	Role       Role `gorm:"not null;default:0"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
