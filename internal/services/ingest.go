package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/worktrace/worktrace/internal/auth"
	"github.com/worktrace/worktrace/internal/model"
	"github.com/worktrace/worktrace/internal/store"
)

// HeartbeatRequest is one activity pulse as submitted by a collector.
type HeartbeatRequest struct {
	DocIdentifier string  `json:"doc_identifier"`
	Title         *string `json:"title,omitempty"`
	Domain        string  `json:"domain"`
	URL           *string `json:"url,omitempty"`
	Email         string  `json:"email"`
}

// HeartbeatResult reports the document the heartbeat resolved to. Throttled is
// set when the server-side per-document rate limit suppressed the heartbeat
// row; the document upsert still happened.
type HeartbeatResult struct {
	DocumentID string `json:"document_id"`
	Throttled  bool   `json:"throttled,omitempty"`
}

// IngestService accepts heartbeats and serves selector lookups.
type IngestService struct {
	store       store.Store
	authorizer  auth.Authorizer
	minInterval time.Duration
	now         func() time.Time
	log         zerolog.Logger
}

func NewIngestService(s store.Store, az auth.Authorizer, minInterval time.Duration, log zerolog.Logger) *IngestService {
	return &IngestService{
		store:       s,
		authorizer:  az,
		minInterval: minInterval,
		now:         func() time.Time { return time.Now().UTC() },
		log:         log,
	}
}

// RecordHeartbeat authorizes the request, upserts the document by its stable
// identifier and appends one heartbeat row. The upsert always precedes the
// insert; an orphaned document from a crash between the two is harmless.
func (s *IngestService) RecordHeartbeat(ctx context.Context, apiKey string, req *HeartbeatRequest) (*HeartbeatResult, error) {
	if req.DocIdentifier == "" || req.Domain == "" {
		return nil, fmt.Errorf("%w: doc_identifier and domain required", model.ErrValidation)
	}
	if req.Email == "" {
		return nil, fmt.Errorf("%w: email required", model.ErrValidation)
	}

	acct, err := s.authorizer.Authorize(ctx, apiKey)
	if err != nil {
		return nil, err
	}
	if err := s.authorizer.VerifyIdentity(acct, req.Email); err != nil {
		s.log.Warn().
			Str("domain", req.Domain).
			Str("doc_identifier", req.DocIdentifier).
			Str("account", acct.AccountID).
			Msg("heartbeat identity mismatch")
		return nil, err
	}

	doc, err := s.store.Documents().Upsert(ctx, &model.HeartbeatUpsert{
		DocIdentifier: req.DocIdentifier,
		Domain:        req.Domain,
		Title:         req.Title,
		URL:           req.URL,
		AccountID:     &acct.AccountID,
	})
	if err != nil {
		return nil, fmt.Errorf("document upsert: %w", err)
	}

	// Rate limit per (document, account): two tabs on the same document only
	// count one minute per minute.
	if s.minInterval > 0 {
		last, err := s.store.Heartbeats().LastRecordedAt(ctx, doc.DocumentID, acct.AccountID)
		if err != nil && !errors.Is(err, model.ErrNotFound) {
			return nil, fmt.Errorf("heartbeat lookup: %w", err)
		}
		if err == nil && s.now().Sub(last) < s.minInterval {
			return &HeartbeatResult{DocumentID: doc.DocumentID, Throttled: true}, nil
		}
	}

	if _, err := s.store.Heartbeats().Insert(ctx, &model.Heartbeat{
		DocumentID: doc.DocumentID,
		Domain:     req.Domain,
		AccountID:  &acct.AccountID,
		RecordedAt: s.now(),
	}); err != nil {
		return nil, fmt.Errorf("heartbeat insert: %w", err)
	}

	s.log.Debug().
		Str("domain", req.Domain).
		Str("doc_identifier", req.DocIdentifier).
		Str("document", doc.DocumentID).
		Msg("heartbeat recorded")
	return &HeartbeatResult{DocumentID: doc.DocumentID}, nil
}

// ResolveSelector returns the descriptor for the domain. The API key is
// optional: a key that resolves selects the account's own descriptor first,
// anything else falls back to the first domain match. No descriptor is not an
// error for callers; they use page defaults.
func (s *IngestService) ResolveSelector(ctx context.Context, apiKey, domain string) (*model.Selector, error) {
	if domain == "" {
		return nil, fmt.Errorf("%w: domain required", model.ErrValidation)
	}
	accountID := ""
	if apiKey != "" {
		if acct, err := s.authorizer.Authorize(ctx, apiKey); err == nil {
			accountID = acct.AccountID
		}
	}
	return s.store.Selectors().Resolve(ctx, accountID, domain)
}
