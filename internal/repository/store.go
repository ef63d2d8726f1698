package repository

import (
	"context"

	"gorm.io/gorm"
)

// Store bundles the repositories of one project's database.
// Each project owns exactly one Store.
type Store struct {
	db           *gorm.DB
	Tasks        *TaskRepository
	Dependencies *DependencyRepository
	Members      *MemberRepository
	Resources    *ResourceRepository
}

func NewStore(db *gorm.DB) *Store {
	return &Store{
		db:           db,
		Tasks:        NewTaskRepository(db),
		Dependencies: NewDependencyRepository(db),
		Members:      NewMemberRepository(db),
		Resources:    NewResourceRepository(db),
	}
}

// Transaction runs fn against a Store bound to a single transaction.
// Any error returned by fn rolls back every write made through tx.
func (s *Store) Transaction(ctx context.Context, fn func(tx *Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewStore(tx))
	})
}

func (s *Store) Close() error {
	return Close(s.db)
}
