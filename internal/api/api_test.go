package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/worktrace/worktrace/internal/auth"
	"github.com/worktrace/worktrace/internal/config"
	"github.com/worktrace/worktrace/internal/model"
	"github.com/worktrace/worktrace/internal/store/sqlite"
)

// newTestServer wires the full router over a fresh sqlite store.
func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	st, err := sqlite.New(t.TempDir() + "/api.db")
	require.NoError(t, err)
	srv := httptest.NewServer(NewRouter(st, config.NewForTesting()))
	t.Cleanup(srv.Close)
	return srv
}

func doJSON(t *testing.T, method, url, apiKey string, body interface{}) (*http.Response, []byte) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if apiKey != "" {
		req.Header.Set(auth.APIKeyHeader, apiKey)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	var out bytes.Buffer
	_, err = out.ReadFrom(resp.Body)
	require.NoError(t, err)
	return resp, out.Bytes()
}

func createAccount(t *testing.T, srv *httptest.Server, email string) *model.Account {
	t.Helper()
	resp, body := doJSON(t, http.MethodPost, srv.URL+"/api/accounts", "", map[string]string{"email": email})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	var acct model.Account
	require.NoError(t, json.Unmarshal(body, &acct))
	require.NotEmpty(t, acct.APIKey)
	return &acct
}

func heartbeatBody(email string) map[string]interface{} {
	return map[string]interface{}{
		"doc_identifier": "gdoc-123",
		"title":          "Quarterly Plan",
		"domain":         "docs.google.com",
		"url":            "https://docs.google.com/document/d/gdoc-123",
		"email":          email,
	}
}

func TestHeartbeatLifecycle(t *testing.T) {
	srv := newTestServer(t)
	acct := createAccount(t, srv, "user@example.com")

	resp, body := doJSON(t, http.MethodPost, srv.URL+"/api/heartbeats", acct.APIKey, heartbeatBody("user@example.com"))
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var res struct {
		DocumentID string `json:"document_id"`
		Throttled  bool   `json:"throttled"`
	}
	require.NoError(t, json.Unmarshal(body, &res))
	assert.NotEmpty(t, res.DocumentID)
	assert.False(t, res.Throttled)

	// immediate repeat from a second tab: accepted but throttled
	resp, body = doJSON(t, http.MethodPost, srv.URL+"/api/heartbeats", acct.APIKey, heartbeatBody("user@example.com"))
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	require.NoError(t, json.Unmarshal(body, &res))
	assert.True(t, res.Throttled)

	// the document is visible to the dashboard
	resp, body = doJSON(t, http.MethodGet, srv.URL+"/api/documents?accountId="+acct.AccountID, "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list struct {
		Documents []*model.Document `json:"documents"`
		Count     int               `json:"count"`
	}
	require.NoError(t, json.Unmarshal(body, &list))
	require.Equal(t, 1, list.Count)
	assert.Equal(t, "gdoc-123", list.Documents[0].DocIdentifier)
}

func TestHeartbeatRejections(t *testing.T) {
	srv := newTestServer(t)
	acct := createAccount(t, srv, "user@example.com")

	t.Run("missing api key", func(t *testing.T) {
		resp, _ := doJSON(t, http.MethodPost, srv.URL+"/api/heartbeats", "", heartbeatBody("user@example.com"))
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("unknown api key", func(t *testing.T) {
		resp, _ := doJSON(t, http.MethodPost, srv.URL+"/api/heartbeats", "wk_deadbeef", heartbeatBody("user@example.com"))
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("email mismatch", func(t *testing.T) {
		resp, _ := doJSON(t, http.MethodPost, srv.URL+"/api/heartbeats", acct.APIKey, heartbeatBody("other@example.com"))
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)

		// nothing was written
		resp, body := doJSON(t, http.MethodGet, srv.URL+"/api/documents", "", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var list struct {
			Count int `json:"count"`
		}
		require.NoError(t, json.Unmarshal(body, &list))
		assert.Zero(t, list.Count)
	})

	t.Run("email case difference is accepted", func(t *testing.T) {
		resp, _ := doJSON(t, http.MethodPost, srv.URL+"/api/heartbeats", acct.APIKey, heartbeatBody("USER@Example.COM"))
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("missing fields", func(t *testing.T) {
		for _, drop := range []string{"doc_identifier", "domain", "email"} {
			b := heartbeatBody("user@example.com")
			delete(b, drop)
			resp, _ := doJSON(t, http.MethodPost, srv.URL+"/api/heartbeats", acct.APIKey, b)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "missing %s", drop)
		}
	})
}

func TestSelectorRoundTrip(t *testing.T) {
	srv := newTestServer(t)
	acct := createAccount(t, srv, "user@example.com")

	// unknown domain: 200 with empty object, never 404
	resp, body := doJSON(t, http.MethodGet, srv.URL+"/api/selectors?domain=docs.google.com", acct.APIKey, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, "{}", string(body))

	put := map[string]interface{}{
		"domain":        "docs.google.com",
		"titleSelector": ".docs-title-input",
		"docIdPattern":  `/document/d/([a-zA-Z0-9_-]+)`,
		"urlTemplate":   "https://docs.google.com/document/d/{id}",
	}
	resp, body = doJSON(t, http.MethodPut, fmt.Sprintf("%s/api/accounts/%s/selectors", srv.URL, acct.AccountID), "", put)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	resp, body = doJSON(t, http.MethodGet, srv.URL+"/api/selectors?domain=docs.google.com", acct.APIKey, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var sel model.Selector
	require.NoError(t, json.Unmarshal(body, &sel))
	assert.Equal(t, ".docs-title-input", sel.TitleSelector)

	// replacing is idempotent on (account, domain)
	put["titleSelector"] = ".kix-title"
	resp, _ = doJSON(t, http.MethodPut, fmt.Sprintf("%s/api/accounts/%s/selectors", srv.URL, acct.AccountID), "", put)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp, body = doJSON(t, http.MethodGet, fmt.Sprintf("%s/api/accounts/%s/selectors", srv.URL, acct.AccountID), "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var sels struct {
		Count int `json:"count"`
	}
	require.NoError(t, json.Unmarshal(body, &sels))
	assert.Equal(t, 1, sels.Count)

	// missing domain query is a client error
	resp, _ = doJSON(t, http.MethodGet, srv.URL+"/api/selectors", acct.APIKey, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRotateAPIKeyInvalidatesOldKey(t *testing.T) {
	srv := newTestServer(t)
	acct := createAccount(t, srv, "user@example.com")
	oldKey := acct.APIKey

	resp, body := doJSON(t, http.MethodPost, fmt.Sprintf("%s/api/accounts/%s/api-key", srv.URL, acct.AccountID), "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var rotated model.Account
	require.NoError(t, json.Unmarshal(body, &rotated))
	require.NotEqual(t, oldKey, rotated.APIKey)

	resp, _ = doJSON(t, http.MethodPost, srv.URL+"/api/heartbeats", oldKey, heartbeatBody("user@example.com"))
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = doJSON(t, http.MethodPost, srv.URL+"/api/heartbeats", rotated.APIKey, heartbeatBody("user@example.com"))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestDocumentAssignAndProjects(t *testing.T) {
	srv := newTestServer(t)
	acct := createAccount(t, srv, "user@example.com")

	resp, body := doJSON(t, http.MethodPost, srv.URL+"/api/heartbeats", acct.APIKey, heartbeatBody("user@example.com"))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var hb struct {
		DocumentID string `json:"document_id"`
	}
	require.NoError(t, json.Unmarshal(body, &hb))

	resp, body = doJSON(t, http.MethodPost, fmt.Sprintf("%s/api/accounts/%s/projects", srv.URL, acct.AccountID), "", map[string]interface{}{
		"name":     "Planning",
		"color":    "#4f46e5",
		"keywords": []string{"plan", "roadmap"},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	var proj model.Project
	require.NoError(t, json.Unmarshal(body, &proj))

	// assigning an unknown project is a 400
	bogus := "no-such-project"
	resp, _ = doJSON(t, http.MethodPatch, srv.URL+"/api/documents/"+hb.DocumentID, "", map[string]interface{}{"projectId": bogus})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body = doJSON(t, http.MethodPatch, srv.URL+"/api/documents/"+hb.DocumentID, "", map[string]interface{}{"projectId": proj.ProjectID, "tag": "q3"})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var doc model.Document
	require.NoError(t, json.Unmarshal(body, &doc))
	require.NotNil(t, doc.ProjectID)
	assert.Equal(t, proj.ProjectID, *doc.ProjectID)

	// a later heartbeat must not clear the assignment
	resp, _ = doJSON(t, http.MethodPost, srv.URL+"/api/heartbeats", acct.APIKey, heartbeatBody("user@example.com"))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp, body = doJSON(t, http.MethodGet, srv.URL+"/api/documents/"+hb.DocumentID, "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(body, &doc))
	require.NotNil(t, doc.ProjectID)
	assert.Equal(t, proj.ProjectID, *doc.ProjectID)

	// delete cascades
	resp, _ = doJSON(t, http.MethodDelete, srv.URL+"/api/documents/"+hb.DocumentID, "", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp, _ = doJSON(t, http.MethodGet, srv.URL+"/api/documents/"+hb.DocumentID, "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestDailyReportEndpoint(t *testing.T) {
	srv := newTestServer(t)
	acct := createAccount(t, srv, "user@example.com")

	resp, _ := doJSON(t, http.MethodPost, srv.URL+"/api/heartbeats", acct.APIKey, heartbeatBody("user@example.com"))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := doJSON(t, http.MethodGet, fmt.Sprintf("%s/api/accounts/%s/reports/daily", srv.URL, acct.AccountID), "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var rep struct {
		Totals []*model.DailyTotal `json:"totals"`
		Count  int                 `json:"count"`
	}
	require.NoError(t, json.Unmarshal(body, &rep))
	require.Equal(t, 1, rep.Count)
	assert.Equal(t, 1, rep.Totals[0].TotalMinutes)

	resp, _ = doJSON(t, http.MethodGet, fmt.Sprintf("%s/api/accounts/%s/reports/daily?from=2026-09-01&to=2026-08-01", srv.URL, acct.AccountID), "", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHealthEndpoint(t *testing.T) {
	srv := newTestServer(t)
	BindServiceHealth(func() bool { return true })
	t.Cleanup(func() { BindServiceHealth(func() bool { return healthyFlag.Load() == 1 }) })

	resp, body := doJSON(t, http.MethodGet, srv.URL+"/api/health", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var h struct {
		Status string `json:"status"`
	}
	require.NoError(t, json.Unmarshal(body, &h))
	assert.Equal(t, "healthy", h.Status)
}
