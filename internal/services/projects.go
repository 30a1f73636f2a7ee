package services

import (
	"context"
	"fmt"

	"github.com/worktrace/worktrace/internal/model"
	"github.com/worktrace/worktrace/internal/store"
)

// ProjectService handles project CRUD for the dashboard.
type ProjectService struct {
	store store.Store
}

func NewProjectService(s store.Store) *ProjectService { return &ProjectService{store: s} }

func (s *ProjectService) CreateProject(ctx context.Context, p *model.Project) (*model.Project, error) {
	if p.AccountID == "" || p.Name == "" {
		return nil, fmt.Errorf("%w: accountId and name required", model.ErrValidation)
	}
	return s.store.Projects().Create(ctx, p)
}

func (s *ProjectService) ListProjects(ctx context.Context, accountID string) ([]*model.Project, error) {
	return s.store.Projects().List(ctx, accountID)
}

func (s *ProjectService) DeleteProject(ctx context.Context, projectID string) error {
	return s.store.Projects().Delete(ctx, projectID)
}
