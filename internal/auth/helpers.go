package auth

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
)

// APIKeyHeader carries the account API key on heartbeat and selector requests.
const APIKeyHeader = "x-api-key"

// ExtractAPIKey reads the API key header from the request. Returns the empty
// string when absent; callers decide whether the key is required.
func ExtractAPIKey(r *http.Request) string {
	return r.Header.Get(APIKeyHeader)
}

// NewAPIKey produces a fresh account API key.
func NewAPIKey() string {
	return "wk_" + strings.ReplaceAll(uuid.New().String(), "-", "")
}
