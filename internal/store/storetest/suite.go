package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/worktrace/worktrace/internal/model"
	"github.com/worktrace/worktrace/internal/store"
)

func strptr(s string) *string { return &s }

// Run exercises a compliance suite against a store.Store implementation.
// Implementations should provide a clean, isolated store from makeStore.
func Run(t *testing.T, makeStore func(t *testing.T) store.Store) {
	t.Helper()

	s := makeStore(t)
	ctx := context.Background()

	// Accounts
	email := "suite-" + uuid.New().String() + "@example.test"
	apiKey := "wk_" + uuid.New().String()
	acct, err := s.Accounts().Create(ctx, &model.Account{Email: email, APIKey: apiKey})
	if err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}
	if acct.AccountID == "" {
		t.Fatal("CreateAccount: empty account id")
	}
	if got, err := s.Accounts().GetByAPIKey(ctx, apiKey); err != nil || got.AccountID != acct.AccountID {
		t.Fatalf("GetByAPIKey: got=%v err=%v", got, err)
	}
	if _, err := s.Accounts().GetByAPIKey(ctx, "wk_bogus"); err != model.ErrNotFound {
		t.Fatalf("GetByAPIKey bogus: want ErrNotFound, got %v", err)
	}
	if _, err := s.Accounts().Create(ctx, &model.Account{Email: email, APIKey: "wk_" + uuid.New().String()}); !errors.Is(err, model.ErrConflict) {
		t.Fatalf("CreateAccount duplicate email: want ErrConflict, got %v", err)
	}
	newKey := "wk_" + uuid.New().String()
	if got, err := s.Accounts().RotateAPIKey(ctx, acct.AccountID, newKey); err != nil || got.APIKey != newKey {
		t.Fatalf("RotateAPIKey: got=%v err=%v", got, err)
	}

	// Selectors: account-owned beats shared fallback
	domain := "docs.example.com"
	if _, err := s.Selectors().Upsert(ctx, &model.Selector{Domain: domain, TitleSelector: ".shared-title"}); err != nil {
		t.Fatalf("Upsert shared selector: %v", err)
	}
	if _, err := s.Selectors().Upsert(ctx, &model.Selector{AccountID: &acct.AccountID, Domain: domain, TitleSelector: ".owned-title", DocIDPattern: strptr(`/d/([\w-]+)`)}); err != nil {
		t.Fatalf("Upsert owned selector: %v", err)
	}
	if sel, err := s.Selectors().Resolve(ctx, acct.AccountID, domain); err != nil || sel.TitleSelector != ".owned-title" {
		t.Fatalf("Resolve owned: got=%v err=%v", sel, err)
	}
	if sel, err := s.Selectors().Resolve(ctx, "", domain); err != nil || sel.TitleSelector != ".shared-title" {
		t.Fatalf("Resolve fallback: got=%v err=%v", sel, err)
	}
	if _, err := s.Selectors().Resolve(ctx, acct.AccountID, "unknown.example.com"); err != model.ErrNotFound {
		t.Fatalf("Resolve unknown domain: want ErrNotFound, got %v", err)
	}

	// Documents: upsert is keyed by doc_identifier, updates in place
	ident := "doc-" + uuid.New().String()
	doc1, err := s.Documents().Upsert(ctx, &model.HeartbeatUpsert{
		DocIdentifier: ident, Domain: domain, Title: strptr("First Title"), AccountID: &acct.AccountID,
	})
	if err != nil {
		t.Fatalf("Upsert document: %v", err)
	}
	doc2, err := s.Documents().Upsert(ctx, &model.HeartbeatUpsert{
		DocIdentifier: ident, Domain: domain, Title: strptr("Second Title"), URL: strptr("https://docs.example.com/d/x"),
	})
	if err != nil {
		t.Fatalf("Upsert document again: %v", err)
	}
	if doc1.DocumentID != doc2.DocumentID {
		t.Fatalf("upsert created duplicate: %s vs %s", doc1.DocumentID, doc2.DocumentID)
	}
	if doc2.Title == nil || *doc2.Title != "Second Title" {
		t.Fatalf("upsert did not refresh title: %+v", doc2)
	}
	if doc2.AccountID == nil || *doc2.AccountID != acct.AccountID {
		t.Fatalf("upsert dropped account binding: %+v", doc2)
	}
	if got, err := s.Documents().GetByIdentifier(ctx, ident); err != nil || got.DocumentID != doc1.DocumentID {
		t.Fatalf("GetByIdentifier: got=%v err=%v", got, err)
	}

	// Projects and assignment; heartbeat upsert must not touch assignment
	proj, err := s.Projects().Create(ctx, &model.Project{AccountID: acct.AccountID, Name: "Research", Keywords: []string{"research", "notes"}})
	if err != nil {
		t.Fatalf("CreateProject: %v", err)
	}
	if _, err := s.Documents().Assign(ctx, doc1.DocumentID, &proj.ProjectID, strptr("deep-work")); err != nil {
		t.Fatalf("Assign: %v", err)
	}
	doc3, err := s.Documents().Upsert(ctx, &model.HeartbeatUpsert{DocIdentifier: ident, Domain: domain, Title: strptr("Third Title")})
	if err != nil {
		t.Fatalf("Upsert after assign: %v", err)
	}
	if doc3.ProjectID == nil || *doc3.ProjectID != proj.ProjectID || doc3.Tag == nil || *doc3.Tag != "deep-work" {
		t.Fatalf("upsert touched project/tag assignment: %+v", doc3)
	}
	if lst, err := s.Projects().List(ctx, acct.AccountID); err != nil || len(lst) == 0 {
		t.Fatalf("ListProjects: n=%d err=%v", len(lst), err)
	}

	// Heartbeats
	base := time.Now().UTC().Add(-40 * 24 * time.Hour).Truncate(24 * time.Hour)
	for i := 0; i < 3; i++ {
		if _, err := s.Heartbeats().Insert(ctx, &model.Heartbeat{
			DocumentID: doc1.DocumentID, Domain: domain, AccountID: &acct.AccountID,
			RecordedAt: base.Add(time.Duration(i) * time.Minute),
		}); err != nil {
			t.Fatalf("Insert heartbeat %d: %v", i, err)
		}
	}
	last, err := s.Heartbeats().LastRecordedAt(ctx, doc1.DocumentID, acct.AccountID)
	if err != nil {
		t.Fatalf("LastRecordedAt: %v", err)
	}
	if !last.Equal(base.Add(2 * time.Minute)) {
		t.Fatalf("LastRecordedAt: want %v got %v", base.Add(2*time.Minute), last)
	}
	if _, err := s.Heartbeats().LastRecordedAt(ctx, doc1.DocumentID, "no-such-account"); err != model.ErrNotFound {
		t.Fatalf("LastRecordedAt missing: want ErrNotFound, got %v", err)
	}

	// CountByDay groups per (date, document, account)
	counts, err := s.Heartbeats().CountByDay(ctx, base.Add(24*time.Hour))
	if err != nil {
		t.Fatalf("CountByDay: %v", err)
	}
	found := false
	for _, c := range counts {
		if c.DocumentID == doc1.DocumentID && c.AccountID == acct.AccountID {
			found = true
			if c.Count != 3 {
				t.Fatalf("CountByDay: want 3 got %d", c.Count)
			}
			if c.Date != base.Format("2006-01-02") {
				t.Fatalf("CountByDay date: want %s got %s", base.Format("2006-01-02"), c.Date)
			}
			if c.ProjectID == nil || *c.ProjectID != proj.ProjectID {
				t.Fatalf("CountByDay project snapshot: %+v", c)
			}
		}
	}
	if !found {
		t.Fatal("CountByDay: bucket missing")
	}

	// DailyTotals upsert is set-not-add
	total := &model.DailyTotal{
		Date: base.Format("2006-01-02"), DocumentID: doc1.DocumentID,
		AccountID: acct.AccountID, ProjectID: &proj.ProjectID, Domain: domain, TotalMinutes: 3,
	}
	if _, err := s.DailyTotals().Upsert(ctx, total); err != nil {
		t.Fatalf("Upsert daily total: %v", err)
	}
	if _, err := s.DailyTotals().Upsert(ctx, total); err != nil {
		t.Fatalf("Upsert daily total twice: %v", err)
	}
	totals, err := s.DailyTotals().List(ctx, acct.AccountID, "", "")
	if err != nil {
		t.Fatalf("List totals: %v", err)
	}
	if len(totals) != 1 || totals[0].TotalMinutes != 3 {
		t.Fatalf("re-upsert must not double-count: %+v", totals)
	}

	// DeleteBefore sweeps rolled-up heartbeats
	if n, err := s.Heartbeats().DeleteBefore(ctx, base.Add(24*time.Hour)); err != nil || n != 3 {
		t.Fatalf("DeleteBefore: n=%d err=%v", n, err)
	}

	// Document delete cascades to heartbeats and totals
	if _, err := s.Heartbeats().Insert(ctx, &model.Heartbeat{DocumentID: doc1.DocumentID, Domain: domain, AccountID: &acct.AccountID}); err != nil {
		t.Fatalf("Insert heartbeat for cascade: %v", err)
	}
	if err := s.Documents().Delete(ctx, doc1.DocumentID); err != nil {
		t.Fatalf("Delete document: %v", err)
	}
	if _, err := s.Documents().GetByIdentifier(ctx, ident); err != model.ErrNotFound {
		t.Fatalf("document survived delete: %v", err)
	}
	if _, err := s.Heartbeats().LastRecordedAt(ctx, doc1.DocumentID, acct.AccountID); err != model.ErrNotFound {
		t.Fatalf("heartbeats survived document delete: %v", err)
	}
	if totals, err := s.DailyTotals().List(ctx, acct.AccountID, "", ""); err != nil || len(totals) != 0 {
		t.Fatalf("totals survived document delete: n=%d err=%v", len(totals), err)
	}
}
