package service

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"gantt-tracker/internal/model"
	"gantt-tracker/internal/repository"
)

var projectNamePattern = regexp.MustCompile(`^[\p{L}\p{N}][\p{L}\p{N} _.-]*$`)

// ProjectService creates projects and hands out their stores.
// Open stores are connection pools kept for the life of the process.
type ProjectService struct {
	projects *repository.ProjectRepository
	dir      string
	log      *logrus.Logger

	mu     sync.Mutex
	stores map[uint]*repository.Store
}

func NewProjectService(projects *repository.ProjectRepository, dir string, log *logrus.Logger) *ProjectService {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &ProjectService{
		projects: projects,
		dir:      dir,
		log:      log,
		stores:   make(map[uint]*repository.Store),
	}
}

// Create registers a project and initialises its database. Admin only.
func (s *ProjectService) Create(ctx context.Context, actor Actor, name string) (*model.Project, error) {
	if err := Authorize(actor, model.RoleAdmin); err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" || len([]rune(name)) > maxNameLen || !projectNamePattern.MatchString(name) {
		return nil, invalid("name", "project names use letters, digits, spaces, '_', '-' or '.'")
	}

	project := model.Project{Name: name}
	err := s.projects.Create(ctx, &project, func(p model.Project) string {
		return filepath.Join(s.dir, fileName(p.ID, p.Name))
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("project %q: %w", name, ErrConflict)
		}
		return nil, err
	}
	if _, err := s.store(project); err != nil {
		if derr := s.projects.Delete(ctx, project.ID); derr != nil {
			s.log.WithError(derr).WithField("project", name).Error("remove project without store")
		}
		return nil, err
	}

	s.log.WithFields(logrus.Fields{"project": name, "path": project.Path, "actor": actor.Name}).Info("project created")
	return &project, nil
}

func (s *ProjectService) List(ctx context.Context) ([]model.Project, error) {
	return s.projects.List(ctx)
}

// Open resolves a project by name and returns its store.
func (s *ProjectService) Open(ctx context.Context, name string) (*model.Project, *repository.Store, error) {
	project, err := s.projects.FindByName(ctx, strings.TrimSpace(name))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, fmt.Errorf("project %q: %w", name, ErrNotFound)
		}
		return nil, nil, err
	}
	store, err := s.store(*project)
	if err != nil {
		return nil, nil, err
	}
	return project, store, nil
}

// Scope builds the per-request scope for actor working in the named project.
func (s *ProjectService) Scope(ctx context.Context, actor Actor, name string) (Scope, error) {
	project, store, err := s.Open(ctx, name)
	if err != nil {
		return Scope{}, err
	}
	return Scope{Project: *project, Store: store, Actor: actor}, nil
}

func (s *ProjectService) store(project model.Project) (*repository.Store, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if store, ok := s.stores[project.ID]; ok {
		return store, nil
	}
	db, err := repository.NewProjectDB(project.Path, s.log)
	if err != nil {
		return nil, fmt.Errorf("open project %q: %w", project.Name, err)
	}
	store := repository.NewStore(db)
	s.stores[project.ID] = store
	return store, nil
}

// Close closes every open project store.
func (s *ProjectService) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var errs []error
	for id, store := range s.stores {
		if err := store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close project %d: %w", id, err))
		}
		delete(s.stores, id)
	}
	return errors.Join(errs...)
}

// fileName prefixes the slug with the row id; slugs alone collide ("Alpha", "alpha", "a_b", "a b").
func fileName(id uint, project string) string {
	slug := strings.Map(func(r rune) rune {
		if r == ' ' || r == '.' {
			return '_'
		}
		return r
	}, strings.ToLower(project))
	return fmt.Sprintf("%d-%s.db", id, slug)
}

// SessionService remembers the current project of every user.
type SessionService struct {
	sessions *repository.SessionRepository
	projects *ProjectService
}

func NewSessionService(sessions *repository.SessionRepository, projects *ProjectService) *SessionService {
	return &SessionService{sessions: sessions, projects: projects}
}

// Select makes name the current project of actor.
func (s *SessionService) Select(ctx context.Context, actor Actor, name string) (*model.Project, error) {
	project, _, err := s.projects.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	if err := s.sessions.Set(ctx, actor.UserID, project.Name); err != nil {
		return nil, err
	}
	return project, nil
}

// Resolve returns the scope of actor's current project, or ErrNoProject when none is selected.
func (s *SessionService) Resolve(ctx context.Context, actor Actor) (Scope, error) {
	name, err := s.sessions.Get(ctx, actor.UserID)
	if err != nil {
		return Scope{}, err
	}
	if name == "" {
		return Scope{}, ErrNoProject
	}
	return s.projects.Scope(ctx, actor, name)
}

// Selected lists every user id with a current project.
func (s *SessionService) Selected(ctx context.Context) ([]model.Session, error) {
	return s.sessions.ListSelected(ctx)
}
