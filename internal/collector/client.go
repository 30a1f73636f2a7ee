package collector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-resty/resty/v2"

	"github.com/worktrace/worktrace/internal/auth"
	"github.com/worktrace/worktrace/internal/model"
)

// ErrUnauthorized is returned when the service rejects the API key. The
// emitter stops on it; only a fresh handshake can recover.
var ErrUnauthorized = errors.New("service rejected API key")

// ErrIdentityRejected is returned on an email/key mismatch (HTTP 403).
var ErrIdentityRejected = errors.New("service rejected identity")

// HeartbeatPayload is the wire form of one heartbeat.
type HeartbeatPayload struct {
	DocIdentifier string  `json:"doc_identifier"`
	Title         *string `json:"title,omitempty"`
	Domain        string  `json:"domain"`
	URL           *string `json:"url,omitempty"`
	Email         string  `json:"email"`
}

// Client talks to the ingestion service.
type Client struct {
	http   *resty.Client
	email  string
	apiKey string
}

// NewClient builds a client bound to one identity.
func NewClient(serviceURL string, id *Identity) *Client {
	c := resty.New().
		SetBaseURL(serviceURL).
		SetHeader("Content-Type", "application/json").
		SetHeader(auth.APIKeyHeader, id.APIKey).
		SetTimeout(10 * time.Second)
	return &Client{http: c, email: id.Email, apiKey: id.APIKey}
}

// SendHeartbeat posts one heartbeat. Returns whether the server throttled it.
// No retries here: a lost heartbeat costs at most one minute and the next
// tick sends again.
func (c *Client) SendHeartbeat(ctx context.Context, p *HeartbeatPayload) (throttled bool, err error) {
	p.Email = c.email
	resp, err := c.http.R().SetContext(ctx).SetBody(p).Post("/api/heartbeats")
	if err != nil {
		return false, fmt.Errorf("heartbeat request: %w", err)
	}
	switch resp.StatusCode() {
	case http.StatusOK:
	case http.StatusUnauthorized:
		return false, ErrUnauthorized
	case http.StatusForbidden:
		return false, ErrIdentityRejected
	default:
		return false, fmt.Errorf("heartbeat status %d: %s", resp.StatusCode(), resp.String())
	}

	var res struct {
		DocumentID string `json:"document_id"`
		Throttled  bool   `json:"throttled"`
	}
	if err := json.Unmarshal(resp.Body(), &res); err != nil {
		return false, fmt.Errorf("decode response: %w", err)
	}
	return res.Throttled, nil
}

// FetchSelector implements SelectorFetcher. Transient failures are retried
// with exponential backoff for a short while; the selector lookup happens
// once per domain so the extra latency is acceptable.
func (c *Client) FetchSelector(ctx context.Context, domain string) (*model.Selector, error) {
	var sel *model.Selector

	op := func() error {
		resp, err := c.http.R().
			SetContext(ctx).
			SetQueryParam("domain", domain).
			Get("/api/selectors")
		if err != nil {
			return err
		}
		if resp.StatusCode() != http.StatusOK {
			return backoff.Permanent(fmt.Errorf("selector status %d: %s", resp.StatusCode(), resp.String()))
		}
		var s model.Selector
		if err := json.Unmarshal(resp.Body(), &s); err != nil {
			return backoff.Permanent(fmt.Errorf("decode selector: %w", err))
		}
		if s.TitleSelector != "" {
			sel = &s
		}
		return nil
	}

	bo := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 4), ctx)
	if err := backoff.Retry(op, bo); err != nil {
		return nil, err
	}
	return sel, nil
}
