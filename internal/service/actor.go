package service

import (
	"fmt"

	"gantt-tracker/internal/model"
	"gantt-tracker/internal/repository"
)

// Actor is an authenticated user as seen by the core.
type Actor struct {
	UserID uint
	Name   string
	Role   model.Role
}

// ActorFromUser builds the actor for a stored user.
func ActorFromUser(u *model.User) Actor {
	name := u.Username
	if name == "" {
		name = u.FirstName
	}
	return Actor{UserID: u.ID, Name: name, Role: u.Role}
}

// Authorize fails with ErrForbidden when actor's role is below need.
func Authorize(actor Actor, need model.Role) error {
	if actor.Role < need {
		return fmt.Errorf("%s requires %s role: %w", actor.Role, need, ErrForbidden)
	}
	return nil
}

// Scope is the per-request context every core operation receives:
// the resolved project, its store, and who is acting.
type Scope struct {
	Project model.Project
	Store   *repository.Store
	Actor   Actor
}

func (s Scope) canMutate() error {
	return Authorize(s.Actor, model.RoleEditor)
}
