package services

import (
	"context"
	"fmt"

	"github.com/worktrace/worktrace/internal/auth"
	"github.com/worktrace/worktrace/internal/model"
	"github.com/worktrace/worktrace/internal/store"
)

// AccountService handles account lifecycle. API keys are generated at account
// creation and change only through explicit rotation.
type AccountService struct {
	store store.Store
}

func NewAccountService(s store.Store) *AccountService { return &AccountService{store: s} }

func (s *AccountService) CreateAccount(ctx context.Context, email string) (*model.Account, error) {
	if email == "" {
		return nil, fmt.Errorf("%w: email required", model.ErrValidation)
	}
	return s.store.Accounts().Create(ctx, &model.Account{
		Email:  email,
		APIKey: auth.NewAPIKey(),
	})
}

func (s *AccountService) GetAccount(ctx context.Context, accountID string) (*model.Account, error) {
	return s.store.Accounts().Get(ctx, accountID)
}

func (s *AccountService) RotateAPIKey(ctx context.Context, accountID string) (*model.Account, error) {
	return s.store.Accounts().RotateAPIKey(ctx, accountID, auth.NewAPIKey())
}
