package collector

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/worktrace/worktrace/internal/auth"
)

func TestClientSendHeartbeat(t *testing.T) {
	var got struct {
		DocIdentifier string `json:"doc_identifier"`
		Email         string `json:"email"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/heartbeats", r.URL.Path)
		require.Equal(t, "wk_abc", r.Header.Get(auth.APIKeyHeader))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"document_id":"d-1","throttled":true}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, &Identity{Email: "user@example.com", APIKey: "wk_abc"})
	throttled, err := c.SendHeartbeat(context.Background(), &HeartbeatPayload{
		DocIdentifier: "doc-1",
		Domain:        "docs.google.com",
	})
	require.NoError(t, err)
	assert.True(t, throttled)
	// the client stamps the bound email onto every heartbeat
	assert.Equal(t, "user@example.com", got.Email)
	assert.Equal(t, "doc-1", got.DocIdentifier)
}

func TestClientErrorMapping(t *testing.T) {
	status := http.StatusUnauthorized
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, &Identity{Email: "user@example.com", APIKey: "wk_abc"})

	_, err := c.SendHeartbeat(context.Background(), &HeartbeatPayload{DocIdentifier: "doc-1", Domain: "d.com"})
	assert.ErrorIs(t, err, ErrUnauthorized)

	status = http.StatusForbidden
	_, err = c.SendHeartbeat(context.Background(), &HeartbeatPayload{DocIdentifier: "doc-1", Domain: "d.com"})
	assert.ErrorIs(t, err, ErrIdentityRejected)
}

func TestClientFetchSelector(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/selectors", r.URL.Path)
		require.Equal(t, "docs.google.com", r.URL.Query().Get("domain"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"selectorId":"s-1","domain":"docs.google.com","titleSelector":".t"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, &Identity{Email: "user@example.com", APIKey: "wk_abc"})
	sel, err := c.FetchSelector(context.Background(), "docs.google.com")
	require.NoError(t, err)
	require.NotNil(t, sel)
	assert.Equal(t, ".t", sel.TitleSelector)
}

func TestClientFetchSelectorEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, &Identity{Email: "user@example.com", APIKey: "wk_abc"})
	sel, err := c.FetchSelector(context.Background(), "unknown.example")
	require.NoError(t, err)
	assert.Nil(t, sel, "empty registry answer means use page defaults")
}
