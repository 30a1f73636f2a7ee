package rollup

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/worktrace/worktrace/internal/auth"
	"github.com/worktrace/worktrace/internal/model"
	"github.com/worktrace/worktrace/internal/services"
	"github.com/worktrace/worktrace/internal/store"
	"github.com/worktrace/worktrace/internal/store/sqlite"
)

func newFixture(t *testing.T, deleteRolled bool) (*Worker, store.Store, *model.Account, *model.Document) {
	t.Helper()
	ctx := context.Background()

	st, err := sqlite.New(t.TempDir() + "/rollup.db")
	require.NoError(t, err)

	acct, err := st.Accounts().Create(ctx, &model.Account{Email: "a@x.com", APIKey: auth.NewAPIKey()})
	require.NoError(t, err)

	doc, err := st.Documents().Upsert(ctx, &model.HeartbeatUpsert{
		DocIdentifier: "doc-1",
		Domain:        "docs.google.com",
		AccountID:     &acct.AccountID,
	})
	require.NoError(t, err)

	w := NewWorker(st, Config{Interval: time.Hour, RetentionDays: 31, DeleteRolled: deleteRolled}, zerolog.Nop())
	return w, st, acct, doc
}

func insertHeartbeats(t *testing.T, st store.Store, doc *model.Document, acct *model.Account, start time.Time, n int, step time.Duration) {
	t.Helper()
	for i := 0; i < n; i++ {
		_, err := st.Heartbeats().Insert(context.Background(), &model.Heartbeat{
			DocumentID: doc.DocumentID,
			Domain:     doc.Domain,
			AccountID:  &acct.AccountID,
			RecordedAt: start.Add(time.Duration(i) * step),
		})
		require.NoError(t, err)
	}
}

func TestRunOnce_RollsOldHeartbeats(t *testing.T) {
	w, st, acct, doc := newFixture(t, true)
	ctx := context.Background()

	// 3 heartbeats on one old day, well past the retention window
	oldDay := w.Cutoff().Add(-10 * 24 * time.Hour)
	insertHeartbeats(t, st, doc, acct, oldDay.Add(9*time.Hour), 3, time.Minute)
	// 2 heartbeats inside the live window stay raw
	insertHeartbeats(t, st, doc, acct, w.now().Add(-1*time.Hour), 2, time.Minute)

	require.NoError(t, w.RunOnce(ctx))

	totals, err := st.DailyTotals().List(ctx, acct.AccountID, "", "")
	require.NoError(t, err)
	require.Len(t, totals, 1)
	assert.Equal(t, oldDay.Format("2006-01-02"), totals[0].Date)
	assert.Equal(t, 3, totals[0].TotalMinutes)

	// only the live heartbeats remain
	live, err := st.Heartbeats().CountByDayRange(ctx, time.Time{}, w.now().Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, live, 1)
	assert.Equal(t, 2, live[0].Count)
}

func TestRunOnce_Idempotent(t *testing.T) {
	w, st, acct, doc := newFixture(t, false)
	ctx := context.Background()

	oldDay := w.Cutoff().Add(-5 * 24 * time.Hour)
	insertHeartbeats(t, st, doc, acct, oldDay, 4, time.Minute)

	require.NoError(t, w.RunOnce(ctx))
	require.NoError(t, w.RunOnce(ctx))
	require.NoError(t, w.RunOnce(ctx))

	totals, err := st.DailyTotals().List(ctx, acct.AccountID, "", "")
	require.NoError(t, err)
	require.Len(t, totals, 1, "re-rolling must not create duplicate totals")
	assert.Equal(t, 4, totals[0].TotalMinutes, "re-rolling must not inflate totals")
}

func TestRunOnce_SingleFlight(t *testing.T) {
	w, _, _, _ := newFixture(t, false)

	w.mu.Lock()
	err := w.RunOnce(context.Background())
	w.mu.Unlock()

	assert.ErrorIs(t, err, ErrRollupRunning)
}

// TestReportTotalsStableAcrossRollup is the end-to-end no-double-counting
// check: after a rollup every day appears exactly once in the daily report,
// and re-rolling (with the raw rows already deleted) changes nothing.
func TestReportTotalsStableAcrossRollup(t *testing.T) {
	w, st, acct, doc := newFixture(t, true)
	ctx := context.Background()

	// 90 heartbeats, one per day ending yesterday: ~59 beyond the retention
	// window, the rest live.
	start := w.now().Add(-90 * 24 * time.Hour)
	insertHeartbeats(t, st, doc, acct, start, 90, 24*time.Hour)

	reports := services.NewReportService(st, w.cfg.RetentionDays)

	snapshot := func() map[string]int {
		totals, err := reports.DailyTotals(ctx, acct.AccountID, "", "")
		require.NoError(t, err)
		out := make(map[string]int, len(totals))
		for _, tt := range totals {
			out[tt.Date] += tt.TotalMinutes
		}
		return out
	}

	require.NoError(t, w.RunOnce(ctx))
	after := snapshot()

	require.Len(t, after, 90, "every day must appear exactly once")
	var days []string
	for d, mins := range after {
		days = append(days, d)
		assert.Equal(t, 1, mins, "day %s double-counted across the rollup boundary", d)
	}
	sort.Strings(days)
	assert.Equal(t, start.Format("2006-01-02"), days[0])

	// running again right away changes nothing
	require.NoError(t, w.RunOnce(ctx))
	assert.Equal(t, after, snapshot())
}
