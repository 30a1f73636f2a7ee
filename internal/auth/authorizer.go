package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/worktrace/worktrace/internal/model"
	"github.com/worktrace/worktrace/internal/store"
)

// Authorizer resolves API keys to accounts and verifies the claimed identity.
type Authorizer interface {
	// Authorize resolves the API key to its account. Returns ErrInvalidAPIKey
	// when the key resolves to nothing.
	Authorize(ctx context.Context, apiKey string) (*model.Account, error)

	// VerifyIdentity checks the email the collector handshake relayed against
	// the key's account. The comparison is case-insensitive. Returns
	// ErrIdentityMismatch on failure; a mismatch means the collector's
	// identity binding is stale and the handshake should be re-run.
	VerifyIdentity(account *model.Account, claimedEmail string) error
}

// StoreAuthorizer is the production Authorizer backed by the account store.
type StoreAuthorizer struct {
	store store.Store
}

func NewStoreAuthorizer(s store.Store) *StoreAuthorizer {
	return &StoreAuthorizer{store: s}
}

func (a *StoreAuthorizer) Authorize(ctx context.Context, apiKey string) (*model.Account, error) {
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	acct, err := a.store.Accounts().GetByAPIKey(ctx, apiKey)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, ErrInvalidAPIKey
		}
		return nil, err
	}
	return acct, nil
}

func (a *StoreAuthorizer) VerifyIdentity(account *model.Account, claimedEmail string) error {
	if !strings.EqualFold(account.Email, claimedEmail) {
		return ErrIdentityMismatch
	}
	return nil
}
