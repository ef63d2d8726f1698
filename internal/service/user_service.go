package service

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"gantt-tracker/internal/model"
	"gantt-tracker/internal/repository"
)

// UserService resolves chat users into actors.
type UserService struct {
	users  *repository.UserRepository
	admins map[int64]bool
}

// NewUserService promotes every Telegram id in admins to Admin on first contact.
func NewUserService(users *repository.UserRepository, admins []int64) *UserService {
	set := make(map[int64]bool, len(admins))
	for _, id := range admins {
		set[id] = true
	}
	return &UserService{users: users, admins: set}
}

func (s *UserService) EnsureTelegramUser(ctx context.Context, telegramID int64, firstName, lastName, username string) (*model.User, error) {
	minRole := model.RoleViewer
	if s.admins[telegramID] {
		minRole = model.RoleAdmin
	}
	return s.users.UpsertFromTelegram(ctx, telegramID, firstName, lastName, username, minRole)
}

// SetRole changes the role of the user with the given Telegram id. Admin only.
func (s *UserService) SetRole(ctx context.Context, actor Actor, telegramID int64, role model.Role) (*model.User, error) {
	if err := Authorize(actor, model.RoleAdmin); err != nil {
		return nil, err
	}
	user, err := s.users.FindByTelegramID(ctx, telegramID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("user %d: %w", telegramID, ErrNotFound)
		}
		return nil, err
	}
	if user.ID == actor.UserID && role < model.RoleAdmin {
		return nil, invalid("role", "admins cannot demote themselves")
	}
	if err := s.users.SetRole(ctx, user.ID, role); err != nil {
		return nil, err
	}
	user.Role = role
	return user, nil
}

func (s *UserService) FindByID(ctx context.Context, id uint) (*model.User, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "user", id)
	}
	return user, nil
}
