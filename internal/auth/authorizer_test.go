package auth

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/worktrace/worktrace/internal/model"
	"github.com/worktrace/worktrace/internal/store/sqlite"
)

func TestStoreAuthorizer(t *testing.T) {
	st, err := sqlite.New(t.TempDir() + "/auth.db")
	require.NoError(t, err)

	ctx := context.Background()
	acct, err := st.Accounts().Create(ctx, &model.Account{Email: "A@X.com", APIKey: NewAPIKey()})
	require.NoError(t, err)

	az := NewStoreAuthorizer(st)

	got, err := az.Authorize(ctx, acct.APIKey)
	require.NoError(t, err)
	assert.Equal(t, acct.AccountID, got.AccountID)

	_, err = az.Authorize(ctx, "wk_unknown")
	assert.ErrorIs(t, err, ErrInvalidAPIKey)

	_, err = az.Authorize(ctx, "")
	assert.ErrorIs(t, err, ErrMissingAPIKey)

	// identity check is case-insensitive
	assert.NoError(t, az.VerifyIdentity(got, "a@x.COM"))
	assert.ErrorIs(t, az.VerifyIdentity(got, "b@x.com"), ErrIdentityMismatch)
}

func TestExtractAPIKey(t *testing.T) {
	r := httptest.NewRequest("POST", "/heartbeats", nil)
	assert.Equal(t, "", ExtractAPIKey(r))

	r.Header.Set(APIKeyHeader, "wk_abc")
	assert.Equal(t, "wk_abc", ExtractAPIKey(r))
}

func TestNewAPIKeyShape(t *testing.T) {
	k1 := NewAPIKey()
	k2 := NewAPIKey()
	assert.NotEqual(t, k1, k2)
	assert.Regexp(t, `^wk_[0-9a-f]{32}$`, k1)
}
