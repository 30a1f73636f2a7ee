package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/worktrace/worktrace/internal/model"
	"github.com/worktrace/worktrace/internal/store"
)

// New opens (or creates) a SQLite database file, applies the schema and
// returns a store.Store backed by it.
func New(path string) (store.Store, error) {
	db, err := Open(path)
	if err != nil {
		return nil, err
	}
	if err := bootstrap(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite bootstrap: %w", err)
	}
	return NewWithDB(db), nil
}

// NewWithDB constructs a SQLite store around an existing connection.
// The caller is responsible for schema bootstrap.
func NewWithDB(db *sql.DB) store.Store { return &sqlStore{db: db} }

type sqlStore struct{ db *sql.DB }

func (s *sqlStore) Accounts() store.Accounts       { return &accounts{db: s.db} }
func (s *sqlStore) Selectors() store.Selectors     { return &selectors{db: s.db} }
func (s *sqlStore) Documents() store.Documents     { return &documents{db: s.db} }
func (s *sqlStore) Heartbeats() store.Heartbeats   { return &heartbeats{db: s.db} }
func (s *sqlStore) DailyTotals() store.DailyTotals { return &dailyTotals{db: s.db} }
func (s *sqlStore) Projects() store.Projects       { return &projects{db: s.db} }

// HealthPing implements health.HealthPinger.
func (s *sqlStore) HealthPing(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return model.ErrNotFound
	}
	return err
}

// --- Accounts ---

type accounts struct{ db *sql.DB }

func (a *accounts) Create(ctx context.Context, m *model.Account) (*model.Account, error) {
	id := m.AccountID
	if id == "" {
		id = uuid.New().String()
	}
	now := time.Now().UTC()
	_, err := a.db.ExecContext(ctx, `
        INSERT INTO accounts (account_id, email, api_key, creation_time)
        VALUES (?,?,?,?)
    `, id, strings.ToLower(m.Email), m.APIKey, now)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return nil, fmt.Errorf("%w: email already registered", model.ErrConflict)
		}
		return nil, err
	}
	out := *m
	out.AccountID = id
	out.Email = strings.ToLower(m.Email)
	out.CreationTime = now
	return &out, nil
}

func (a *accounts) Get(ctx context.Context, accountID string) (*model.Account, error) {
	row := a.db.QueryRowContext(ctx, `
        SELECT account_id, email, api_key, creation_time FROM accounts WHERE account_id=?
    `, accountID)
	return scanAccount(row)
}

func (a *accounts) GetByAPIKey(ctx context.Context, apiKey string) (*model.Account, error) {
	row := a.db.QueryRowContext(ctx, `
        SELECT account_id, email, api_key, creation_time FROM accounts WHERE api_key=?
    `, apiKey)
	return scanAccount(row)
}

func (a *accounts) RotateAPIKey(ctx context.Context, accountID, newKey string) (*model.Account, error) {
	res, err := a.db.ExecContext(ctx, `UPDATE accounts SET api_key=? WHERE account_id=?`, newKey, accountID)
	if err != nil {
		return nil, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, model.ErrNotFound
	}
	return a.Get(ctx, accountID)
}

func (a *accounts) Delete(ctx context.Context, accountID string) error {
	res, err := a.db.ExecContext(ctx, `DELETE FROM accounts WHERE account_id=?`, accountID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.ErrNotFound
	}
	return nil
}

func scanAccount(row *sql.Row) (*model.Account, error) {
	var out model.Account
	if err := row.Scan(&out.AccountID, &out.Email, &out.APIKey, &out.CreationTime); err != nil {
		return nil, notFound(err)
	}
	return &out, nil
}

// --- Selectors ---

type selectors struct{ db *sql.DB }

func (s *selectors) Upsert(ctx context.Context, m *model.Selector) (*model.Selector, error) {
	id := m.SelectorID
	if id == "" {
		id = uuid.New().String()
	}
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx, `
        INSERT INTO selectors (selector_id, account_id, domain, title_selector, doc_id_pattern, url_template, creation_time)
        VALUES (?,?,?,?,?,?,?)
        ON CONFLICT (account_id, domain) DO UPDATE SET
            title_selector = excluded.title_selector,
            doc_id_pattern = excluded.doc_id_pattern,
            url_template   = excluded.url_template
    `, id, m.AccountID, m.Domain, m.TitleSelector, m.DocIDPattern, m.URLTemplate, now)
	if err != nil {
		return nil, err
	}
	acct := ""
	if m.AccountID != nil {
		acct = *m.AccountID
	}
	return s.Resolve(ctx, acct, m.Domain)
}

func (s *selectors) Resolve(ctx context.Context, accountID, domain string) (*model.Selector, error) {
	// Account-owned descriptor wins; otherwise first domain match.
	row := s.db.QueryRowContext(ctx, `
        SELECT selector_id, account_id, domain, title_selector, doc_id_pattern, url_template, creation_time
        FROM selectors WHERE domain=?
        ORDER BY CASE WHEN account_id = ? THEN 0 ELSE 1 END, creation_time ASC
        LIMIT 1
    `, domain, accountID)
	return scanSelector(row)
}

func (s *selectors) List(ctx context.Context, accountID string) ([]*model.Selector, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT selector_id, account_id, domain, title_selector, doc_id_pattern, url_template, creation_time
        FROM selectors WHERE account_id=? OR account_id IS NULL ORDER BY domain ASC
    `, accountID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var res []*model.Selector
	for rows.Next() {
		var out model.Selector
		if err := rows.Scan(&out.SelectorID, &out.AccountID, &out.Domain, &out.TitleSelector, &out.DocIDPattern, &out.URLTemplate, &out.CreationTime); err != nil {
			return nil, err
		}
		res = append(res, &out)
	}
	return res, rows.Err()
}

func (s *selectors) Delete(ctx context.Context, selectorID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM selectors WHERE selector_id=?`, selectorID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.ErrNotFound
	}
	return nil
}

func scanSelector(row *sql.Row) (*model.Selector, error) {
	var out model.Selector
	if err := row.Scan(&out.SelectorID, &out.AccountID, &out.Domain, &out.TitleSelector, &out.DocIDPattern, &out.URLTemplate, &out.CreationTime); err != nil {
		return nil, notFound(err)
	}
	return &out, nil
}

// --- Documents ---

type documents struct{ db *sql.DB }

const docColumns = `document_id, doc_identifier, domain, title, url, account_id, project_id, tag, auto_tagged, creation_time, update_time`

func (d *documents) Upsert(ctx context.Context, u *model.HeartbeatUpsert) (*model.Document, error) {
	now := time.Now().UTC()
	// Single statement so concurrent writers for the same identifier cannot
	// race a read-modify-write. Optional fields only overwrite when present.
	row := d.db.QueryRowContext(ctx, `
        INSERT INTO documents (document_id, doc_identifier, domain, title, url, account_id, creation_time, update_time)
        VALUES (?,?,?,?,?,?,?,?)
        ON CONFLICT (doc_identifier) DO UPDATE SET
            domain      = excluded.domain,
            title       = COALESCE(excluded.title, documents.title),
            url         = COALESCE(excluded.url, documents.url),
            account_id  = COALESCE(excluded.account_id, documents.account_id),
            update_time = excluded.update_time
        RETURNING `+docColumns,
		uuid.New().String(), u.DocIdentifier, u.Domain, u.Title, u.URL, u.AccountID, now, now)
	return scanDocument(row)
}

func (d *documents) Get(ctx context.Context, documentID string) (*model.Document, error) {
	row := d.db.QueryRowContext(ctx, `SELECT `+docColumns+` FROM documents WHERE document_id=?`, documentID)
	return scanDocument(row)
}

func (d *documents) GetByIdentifier(ctx context.Context, docIdentifier string) (*model.Document, error) {
	row := d.db.QueryRowContext(ctx, `SELECT `+docColumns+` FROM documents WHERE doc_identifier=?`, docIdentifier)
	return scanDocument(row)
}

func (d *documents) List(ctx context.Context, req model.ListDocumentsRequest) ([]*model.Document, error) {
	q := `SELECT ` + docColumns + ` FROM documents WHERE 1=1`
	var args []interface{}
	if req.AccountID != "" {
		q += ` AND account_id=?`
		args = append(args, req.AccountID)
	}
	if req.ProjectID != nil {
		q += ` AND project_id=?`
		args = append(args, *req.ProjectID)
	}
	if req.Unassigned {
		q += ` AND project_id IS NULL`
	}
	if req.Domain != "" {
		q += ` AND domain=?`
		args = append(args, req.Domain)
	}
	q += ` ORDER BY update_time DESC`
	if req.Limit > 0 {
		q += ` LIMIT ?`
		args = append(args, req.Limit)
	}
	rows, err := d.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var res []*model.Document
	for rows.Next() {
		var out model.Document
		if err := rows.Scan(&out.DocumentID, &out.DocIdentifier, &out.Domain, &out.Title, &out.URL,
			&out.AccountID, &out.ProjectID, &out.Tag, &out.AutoTagged, &out.CreationTime, &out.UpdateTime); err != nil {
			return nil, err
		}
		res = append(res, &out)
	}
	return res, rows.Err()
}

func (d *documents) Assign(ctx context.Context, documentID string, projectID, tag *string) (*model.Document, error) {
	now := time.Now().UTC()
	res, err := d.db.ExecContext(ctx, `
        UPDATE documents SET project_id=?, tag=?, auto_tagged=0, update_time=? WHERE document_id=?
    `, projectID, tag, now, documentID)
	if err != nil {
		return nil, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, model.ErrNotFound
	}
	return d.Get(ctx, documentID)
}

func (d *documents) Delete(ctx context.Context, documentID string) error {
	// heartbeats and daily_totals cascade via foreign keys
	res, err := d.db.ExecContext(ctx, `DELETE FROM documents WHERE document_id=?`, documentID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.ErrNotFound
	}
	return nil
}

func scanDocument(row *sql.Row) (*model.Document, error) {
	var out model.Document
	if err := row.Scan(&out.DocumentID, &out.DocIdentifier, &out.Domain, &out.Title, &out.URL,
		&out.AccountID, &out.ProjectID, &out.Tag, &out.AutoTagged, &out.CreationTime, &out.UpdateTime); err != nil {
		return nil, notFound(err)
	}
	return &out, nil
}

// --- Heartbeats ---

type heartbeats struct{ db *sql.DB }

func (h *heartbeats) Insert(ctx context.Context, m *model.Heartbeat) (*model.Heartbeat, error) {
	id := m.HeartbeatID
	if id == "" {
		id = uuid.New().String()
	}
	at := m.RecordedAt
	if at.IsZero() {
		at = time.Now().UTC()
	}
	_, err := h.db.ExecContext(ctx, `
        INSERT INTO heartbeats (heartbeat_id, document_id, domain, account_id, recorded_at)
        VALUES (?,?,?,?,?)
    `, id, m.DocumentID, m.Domain, m.AccountID, at.UTC())
	if err != nil {
		return nil, err
	}
	out := *m
	out.HeartbeatID = id
	out.RecordedAt = at.UTC()
	return &out, nil
}

func (h *heartbeats) LastRecordedAt(ctx context.Context, documentID, accountID string) (time.Time, error) {
	var at time.Time
	row := h.db.QueryRowContext(ctx, `
        SELECT recorded_at FROM heartbeats
        WHERE document_id=? AND account_id=?
        ORDER BY recorded_at DESC LIMIT 1
    `, documentID, accountID)
	if err := row.Scan(&at); err != nil {
		return time.Time{}, notFound(err)
	}
	return at.UTC(), nil
}

func (h *heartbeats) CountByDay(ctx context.Context, cutoff time.Time) ([]*model.DailyCount, error) {
	return h.countByDayWindow(ctx, time.Time{}, cutoff)
}

func (h *heartbeats) CountByDayRange(ctx context.Context, from, to time.Time) ([]*model.DailyCount, error) {
	return h.countByDayWindow(ctx, from, to)
}

// countByDayWindow buckets heartbeats in Go: the driver owns the on-disk
// timestamp format, so date math stays out of SQL here. The postgres store
// groups in SQL instead.
func (h *heartbeats) countByDayWindow(ctx context.Context, from, to time.Time) ([]*model.DailyCount, error) {
	q := `
        SELECT h.document_id, h.account_id, h.domain, h.recorded_at, d.project_id
        FROM heartbeats h
        JOIN documents d ON d.document_id = h.document_id
        WHERE h.account_id IS NOT NULL AND h.recorded_at < ?`
	args := []interface{}{to.UTC()}
	if !from.IsZero() {
		q += ` AND h.recorded_at >= ?`
		args = append(args, from.UTC())
	}
	rows, err := h.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	type key struct{ date, doc, acct string }
	buckets := make(map[key]*model.DailyCount)
	var order []key
	for rows.Next() {
		var docID, domain string
		var acctID *string
		var projectID *string
		var at time.Time
		if err := rows.Scan(&docID, &acctID, &domain, &at, &projectID); err != nil {
			return nil, err
		}
		if acctID == nil {
			continue
		}
		k := key{date: at.UTC().Format("2006-01-02"), doc: docID, acct: *acctID}
		b, ok := buckets[k]
		if !ok {
			b = &model.DailyCount{Date: k.date, DocumentID: docID, AccountID: *acctID, ProjectID: projectID, Domain: domain}
			buckets[k] = b
			order = append(order, k)
		}
		b.Count++
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	res := make([]*model.DailyCount, 0, len(order))
	for _, k := range order {
		res = append(res, buckets[k])
	}
	return res, nil
}

func (h *heartbeats) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := h.db.ExecContext(ctx, `DELETE FROM heartbeats WHERE recorded_at < ?`, cutoff.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// --- DailyTotals ---

type dailyTotals struct{ db *sql.DB }

func (t *dailyTotals) Upsert(ctx context.Context, m *model.DailyTotal) (*model.DailyTotal, error) {
	id := m.TotalID
	if id == "" {
		id = uuid.New().String()
	}
	row := t.db.QueryRowContext(ctx, `
        INSERT INTO daily_totals (total_id, date, document_id, account_id, project_id, domain, total_minutes)
        VALUES (?,?,?,?,?,?,?)
        ON CONFLICT (date, document_id, account_id) DO UPDATE SET
            total_minutes = excluded.total_minutes,
            project_id    = excluded.project_id,
            domain        = excluded.domain
        RETURNING total_id, date, document_id, account_id, project_id, domain, total_minutes
    `, id, m.Date, m.DocumentID, m.AccountID, m.ProjectID, m.Domain, m.TotalMinutes)
	var out model.DailyTotal
	if err := row.Scan(&out.TotalID, &out.Date, &out.DocumentID, &out.AccountID, &out.ProjectID, &out.Domain, &out.TotalMinutes); err != nil {
		return nil, err
	}
	return &out, nil
}

func (t *dailyTotals) List(ctx context.Context, accountID, fromDate, toDate string) ([]*model.DailyTotal, error) {
	q := `SELECT total_id, date, document_id, account_id, project_id, domain, total_minutes
          FROM daily_totals WHERE account_id=?`
	args := []interface{}{accountID}
	if fromDate != "" {
		q += ` AND date >= ?`
		args = append(args, fromDate)
	}
	if toDate != "" {
		q += ` AND date <= ?`
		args = append(args, toDate)
	}
	q += ` ORDER BY date ASC, document_id ASC`
	rows, err := t.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var res []*model.DailyTotal
	for rows.Next() {
		var out model.DailyTotal
		if err := rows.Scan(&out.TotalID, &out.Date, &out.DocumentID, &out.AccountID, &out.ProjectID, &out.Domain, &out.TotalMinutes); err != nil {
			return nil, err
		}
		res = append(res, &out)
	}
	return res, rows.Err()
}

// --- Projects ---

type projects struct{ db *sql.DB }

func (p *projects) Create(ctx context.Context, m *model.Project) (*model.Project, error) {
	id := m.ProjectID
	if id == "" {
		id = uuid.New().String()
	}
	now := time.Now().UTC()
	kw, err := json.Marshal(m.Keywords)
	if err != nil {
		return nil, err
	}
	color := m.Color
	if color == "" {
		color = "#6366f1"
	}
	_, err = p.db.ExecContext(ctx, `
        INSERT INTO projects (project_id, account_id, name, color, keywords, creation_time, update_time)
        VALUES (?,?,?,?,?,?,?)
    `, id, m.AccountID, m.Name, color, string(kw), now, now)
	if err != nil {
		return nil, err
	}
	out := *m
	out.ProjectID = id
	out.Color = color
	out.CreationTime = now
	out.UpdateTime = now
	return &out, nil
}

func (p *projects) Get(ctx context.Context, projectID string) (*model.Project, error) {
	row := p.db.QueryRowContext(ctx, `
        SELECT project_id, account_id, name, color, keywords, creation_time, update_time
        FROM projects WHERE project_id=?
    `, projectID)
	return scanProject(row.Scan)
}

func (p *projects) List(ctx context.Context, accountID string) ([]*model.Project, error) {
	rows, err := p.db.QueryContext(ctx, `
        SELECT project_id, account_id, name, color, keywords, creation_time, update_time
        FROM projects WHERE account_id=? ORDER BY name ASC
    `, accountID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var res []*model.Project
	for rows.Next() {
		out, err := scanProject(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, out)
	}
	return res, rows.Err()
}

func (p *projects) Delete(ctx context.Context, projectID string) error {
	res, err := p.db.ExecContext(ctx, `DELETE FROM projects WHERE project_id=?`, projectID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.ErrNotFound
	}
	return nil
}

func scanProject(scan func(dest ...interface{}) error) (*model.Project, error) {
	var out model.Project
	var kw string
	if err := scan(&out.ProjectID, &out.AccountID, &out.Name, &out.Color, &kw, &out.CreationTime, &out.UpdateTime); err != nil {
		return nil, notFound(err)
	}
	if err := json.Unmarshal([]byte(kw), &out.Keywords); err != nil {
		return nil, err
	}
	return &out, nil
}
