package store

import (
	"context"
	"time"

	"github.com/worktrace/worktrace/internal/model"
)

// Store exposes persistence operations required by services.
// Implementations live under internal/store/<driver>/ (e.g., postgres, sqlite).
type Store interface {
	Accounts() Accounts
	Selectors() Selectors
	Documents() Documents
	Heartbeats() Heartbeats
	DailyTotals() DailyTotals
	Projects() Projects
}

type Accounts interface {
	Create(ctx context.Context, a *model.Account) (*model.Account, error)
	Get(ctx context.Context, accountID string) (*model.Account, error)
	GetByAPIKey(ctx context.Context, apiKey string) (*model.Account, error)
	RotateAPIKey(ctx context.Context, accountID, newKey string) (*model.Account, error)
	Delete(ctx context.Context, accountID string) error
}

type Selectors interface {
	Upsert(ctx context.Context, s *model.Selector) (*model.Selector, error)
	// Resolve returns the descriptor owned by accountID for domain, falling
	// back to the first domain match when accountID is empty or owns none.
	// Returns model.ErrNotFound when no descriptor exists for the domain.
	Resolve(ctx context.Context, accountID, domain string) (*model.Selector, error)
	List(ctx context.Context, accountID string) ([]*model.Selector, error)
	Delete(ctx context.Context, selectorID string) error
}

type Documents interface {
	// Upsert inserts a document keyed by DocIdentifier or updates the mutable
	// fields (title, url, domain, account) in place. Project and tag
	// assignment are never touched. Must be safe under concurrent writers.
	Upsert(ctx context.Context, u *model.HeartbeatUpsert) (*model.Document, error)
	Get(ctx context.Context, documentID string) (*model.Document, error)
	GetByIdentifier(ctx context.Context, docIdentifier string) (*model.Document, error)
	List(ctx context.Context, req model.ListDocumentsRequest) ([]*model.Document, error)
	Assign(ctx context.Context, documentID string, projectID, tag *string) (*model.Document, error)
	// Delete removes the document and cascades to its heartbeats and totals.
	Delete(ctx context.Context, documentID string) error
}

type Heartbeats interface {
	Insert(ctx context.Context, h *model.Heartbeat) (*model.Heartbeat, error)
	// LastRecordedAt returns the newest heartbeat time for (document, account),
	// or model.ErrNotFound when none exists. Used for the server-side
	// per-document rate limit.
	LastRecordedAt(ctx context.Context, documentID, accountID string) (time.Time, error)
	// CountByDay groups heartbeats recorded strictly before cutoff into
	// per (UTC date, document, account) buckets.
	CountByDay(ctx context.Context, cutoff time.Time) ([]*model.DailyCount, error)
	// CountByDayRange is CountByDay limited to recorded_at in [from, to);
	// used by reporting over the live window.
	CountByDayRange(ctx context.Context, from, to time.Time) ([]*model.DailyCount, error)
	// DeleteBefore removes heartbeats recorded strictly before cutoff.
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type DailyTotals interface {
	// Upsert sets (not adds) the minute total for (date, document, account),
	// making re-aggregation idempotent.
	Upsert(ctx context.Context, t *model.DailyTotal) (*model.DailyTotal, error)
	List(ctx context.Context, accountID, fromDate, toDate string) ([]*model.DailyTotal, error)
}

type Projects interface {
	Create(ctx context.Context, p *model.Project) (*model.Project, error)
	Get(ctx context.Context, projectID string) (*model.Project, error)
	List(ctx context.Context, accountID string) ([]*model.Project, error)
	Delete(ctx context.Context, projectID string) error
}
