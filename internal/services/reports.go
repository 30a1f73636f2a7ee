package services

import (
	"context"
	"fmt"
	"time"

	"github.com/worktrace/worktrace/internal/model"
	"github.com/worktrace/worktrace/internal/store"
)

// ReportService serves merged daily totals: rolled-up rows for days older
// than the retention window, on-the-fly heartbeat counts inside it. The
// rollup boundary is enforced on both sides so a day is never counted twice.
type ReportService struct {
	store     store.Store
	retention time.Duration
	now       func() time.Time
}

func NewReportService(s store.Store, retentionDays int) *ReportService {
	return &ReportService{
		store:     s,
		retention: time.Duration(retentionDays) * 24 * time.Hour,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// DailyTotals returns per (date, document) minute totals for one account in
// [fromDate, toDate] (inclusive, YYYY-MM-DD, empty = unbounded).
func (s *ReportService) DailyTotals(ctx context.Context, accountID, fromDate, toDate string) ([]*model.DailyTotal, error) {
	if accountID == "" {
		return nil, fmt.Errorf("%w: account required", model.ErrValidation)
	}

	cutoff := s.now().Add(-s.retention).Truncate(24 * time.Hour)
	cutoffDate := cutoff.Format("2006-01-02")

	rolled, err := s.store.DailyTotals().List(ctx, accountID, fromDate, toDate)
	if err != nil {
		return nil, err
	}
	var out []*model.DailyTotal
	for _, t := range rolled {
		// Guard against totals that were written for days the live window
		// still covers; the raw heartbeats are authoritative there.
		if t.Date >= cutoffDate {
			continue
		}
		out = append(out, t)
	}

	live, err := s.store.Heartbeats().CountByDayRange(ctx, cutoff, s.now())
	if err != nil {
		return nil, err
	}
	for _, c := range live {
		if c.AccountID != accountID {
			continue
		}
		if fromDate != "" && c.Date < fromDate {
			continue
		}
		if toDate != "" && c.Date > toDate {
			continue
		}
		out = append(out, &model.DailyTotal{
			Date:         c.Date,
			DocumentID:   c.DocumentID,
			AccountID:    c.AccountID,
			ProjectID:    c.ProjectID,
			Domain:       c.Domain,
			TotalMinutes: c.Count,
		})
	}
	return out, nil
}
