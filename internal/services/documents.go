package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/worktrace/worktrace/internal/model"
	"github.com/worktrace/worktrace/internal/store"
)

// DocumentService exposes the document CRUD surface used by the dashboard.
type DocumentService struct {
	store store.Store
}

func NewDocumentService(s store.Store) *DocumentService { return &DocumentService{store: s} }

func (s *DocumentService) GetDocument(ctx context.Context, documentID string) (*model.Document, error) {
	return s.store.Documents().Get(ctx, documentID)
}

func (s *DocumentService) ListDocuments(ctx context.Context, req model.ListDocumentsRequest) ([]*model.Document, error) {
	return s.store.Documents().List(ctx, req)
}

// AssignDocument sets (or clears) the project and tag of a document. The
// project, when given, must exist.
func (s *DocumentService) AssignDocument(ctx context.Context, documentID string, projectID, tag *string) (*model.Document, error) {
	if projectID != nil {
		if _, err := s.store.Projects().Get(ctx, *projectID); err != nil {
			if errors.Is(err, model.ErrNotFound) {
				return nil, fmt.Errorf("%w: unknown project", model.ErrValidation)
			}
			return nil, err
		}
	}
	return s.store.Documents().Assign(ctx, documentID, projectID, tag)
}

// DeleteDocument removes a document; its heartbeats and daily totals cascade.
func (s *DocumentService) DeleteDocument(ctx context.Context, documentID string) error {
	return s.store.Documents().Delete(ctx, documentID)
}

// SelectorAdminService manages selector descriptors.
type SelectorAdminService struct {
	store store.Store
}

func NewSelectorAdminService(s store.Store) *SelectorAdminService {
	return &SelectorAdminService{store: s}
}

func (s *SelectorAdminService) UpsertSelector(ctx context.Context, sel *model.Selector) (*model.Selector, error) {
	if sel.Domain == "" || sel.TitleSelector == "" {
		return nil, fmt.Errorf("%w: domain and titleSelector required", model.ErrValidation)
	}
	return s.store.Selectors().Upsert(ctx, sel)
}

func (s *SelectorAdminService) ListSelectors(ctx context.Context, accountID string) ([]*model.Selector, error) {
	return s.store.Selectors().List(ctx, accountID)
}

func (s *SelectorAdminService) DeleteSelector(ctx context.Context, selectorID string) error {
	return s.store.Selectors().Delete(ctx, selectorID)
}
