package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/worktrace/worktrace/internal/model"
	"github.com/worktrace/worktrace/internal/store"
)

// Open opens a PostgreSQL connection using the pgx stdlib driver and verifies connectivity.
func Open(dsn string) (*sql.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres DSN is empty")
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// New opens a connection, applies the schema and returns the store.
func New(dsn string) (store.Store, error) {
	db, err := Open(dsn)
	if err != nil {
		return nil, err
	}
	if err := Bootstrap(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return NewWithDB(db), nil
}

// NewWithDB constructs a native Postgres store backed directly by database/sql.
func NewWithDB(db *sql.DB) store.Store { return &pgStore{db: db} }

type pgStore struct{ db *sql.DB }

func (s *pgStore) Accounts() store.Accounts       { return &accounts{db: s.db} }
func (s *pgStore) Selectors() store.Selectors     { return &selectors{db: s.db} }
func (s *pgStore) Documents() store.Documents     { return &documents{db: s.db} }
func (s *pgStore) Heartbeats() store.Heartbeats   { return &heartbeats{db: s.db} }
func (s *pgStore) DailyTotals() store.DailyTotals { return &dailyTotals{db: s.db} }
func (s *pgStore) Projects() store.Projects       { return &projects{db: s.db} }

// HealthPing implements health.HealthPinger for the Postgres-backed store.
func (s *pgStore) HealthPing(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Bootstrap applies the schema. Safe to call repeatedly.
func Bootstrap(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, schema)
	return err
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
	var created time.Time
	row := a.db.QueryRowContext(ctx, `
        INSERT INTO accounts (account_id, email, api_key)
        VALUES ($1,$2,$3)
        RETURNING creation_time
    `, id, strings.ToLower(m.Email), m.APIKey)
	if err := row.Scan(&created); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, fmt.Errorf("%w: email already registered", model.ErrConflict)
		}
		return nil, err
	}
	out := *m
	out.AccountID = id
	out.Email = strings.ToLower(m.Email)
	out.CreationTime = created
	return &out, nil
}

func (a *accounts) Get(ctx context.Context, accountID string) (*model.Account, error) {
	row := a.db.QueryRowContext(ctx, `
        SELECT account_id, email, api_key, creation_time FROM accounts WHERE account_id=$1
    `, accountID)
	return scanAccount(row)
}

func (a *accounts) GetByAPIKey(ctx context.Context, apiKey string) (*model.Account, error) {
	row := a.db.QueryRowContext(ctx, `
        SELECT account_id, email, api_key, creation_time FROM accounts WHERE api_key=$1
    `, apiKey)
	return scanAccount(row)
}

func (a *accounts) RotateAPIKey(ctx context.Context, accountID, newKey string) (*model.Account, error) {
	res, err := a.db.ExecContext(ctx, `UPDATE accounts SET api_key=$1 WHERE account_id=$2`, newKey, accountID)
	if err != nil {
		return nil, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, model.ErrNotFound
	}
	return a.Get(ctx, accountID)
}

func (a *accounts) Delete(ctx context.Context, accountID string) error {
	res, err := a.db.ExecContext(ctx, `DELETE FROM accounts WHERE account_id=$1`, accountID)
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
	_, err := s.db.ExecContext(ctx, `
        INSERT INTO selectors (selector_id, account_id, domain, title_selector, doc_id_pattern, url_template)
        VALUES ($1,$2,$3,$4,$5,$6)
        ON CONFLICT (account_id, domain) DO UPDATE SET
            title_selector = EXCLUDED.title_selector,
            doc_id_pattern = EXCLUDED.doc_id_pattern,
            url_template   = EXCLUDED.url_template
    `, id, m.AccountID, m.Domain, m.TitleSelector, m.DocIDPattern, m.URLTemplate)
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
	row := s.db.QueryRowContext(ctx, `
        SELECT selector_id, account_id, domain, title_selector, doc_id_pattern, url_template, creation_time
        FROM selectors WHERE domain=$1
        ORDER BY CASE WHEN account_id = $2 THEN 0 ELSE 1 END, creation_time ASC
        LIMIT 1
    `, domain, accountID)
	return scanSelector(row)
}

func (s *selectors) List(ctx context.Context, accountID string) ([]*model.Selector, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT selector_id, account_id, domain, title_selector, doc_id_pattern, url_template, creation_time
        FROM selectors WHERE account_id=$1 OR account_id IS NULL ORDER BY domain ASC
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
	res, err := s.db.ExecContext(ctx, `DELETE FROM selectors WHERE selector_id=$1`, selectorID)
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
	// Single statement so concurrent writers for the same identifier cannot
	// race a read-modify-write. Optional fields only overwrite when present.
	row := d.db.QueryRowContext(ctx, `
        INSERT INTO documents (document_id, doc_identifier, domain, title, url, account_id)
        VALUES ($1,$2,$3,$4,$5,$6)
        ON CONFLICT (doc_identifier) DO UPDATE SET
            domain      = EXCLUDED.domain,
            title       = COALESCE(EXCLUDED.title, documents.title),
            url         = COALESCE(EXCLUDED.url, documents.url),
            account_id  = COALESCE(EXCLUDED.account_id, documents.account_id),
            update_time = now()
        RETURNING `+docColumns,
		uuid.New().String(), u.DocIdentifier, u.Domain, u.Title, u.URL, u.AccountID)
	return scanDocument(row)
}

func (d *documents) Get(ctx context.Context, documentID string) (*model.Document, error) {
	row := d.db.QueryRowContext(ctx, `SELECT `+docColumns+` FROM documents WHERE document_id=$1`, documentID)
	return scanDocument(row)
}

func (d *documents) GetByIdentifier(ctx context.Context, docIdentifier string) (*model.Document, error) {
	row := d.db.QueryRowContext(ctx, `SELECT `+docColumns+` FROM documents WHERE doc_identifier=$1`, docIdentifier)
	return scanDocument(row)
}

func (d *documents) List(ctx context.Context, req model.ListDocumentsRequest) ([]*model.Document, error) {
	q := `SELECT ` + docColumns + ` FROM documents WHERE 1=1`
	var args []interface{}
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if req.AccountID != "" {
		q += ` AND account_id=` + arg(req.AccountID)
	}
	if req.ProjectID != nil {
		q += ` AND project_id=` + arg(*req.ProjectID)
	}
	if req.Unassigned {
		q += ` AND project_id IS NULL`
	}
	if req.Domain != "" {
		q += ` AND domain=` + arg(req.Domain)
	}
	q += ` ORDER BY update_time DESC`
	if req.Limit > 0 {
		q += ` LIMIT ` + arg(req.Limit)
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
	row := d.db.QueryRowContext(ctx, `
        UPDATE documents SET project_id=$1, tag=$2, auto_tagged=false, update_time=now()
        WHERE document_id=$3
        RETURNING `+docColumns, projectID, tag, documentID)
	return scanDocument(row)
}

func (d *documents) Delete(ctx context.Context, documentID string) error {
	// heartbeats and daily_totals cascade via foreign keys
	res, err := d.db.ExecContext(ctx, `DELETE FROM documents WHERE document_id=$1`, documentID)
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
	var recorded time.Time
	row := h.db.QueryRowContext(ctx, `
        INSERT INTO heartbeats (heartbeat_id, document_id, domain, account_id, recorded_at)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING recorded_at
    `, id, m.DocumentID, m.Domain, m.AccountID, at.UTC())
	if err := row.Scan(&recorded); err != nil {
		return nil, err
	}
	out := *m
	out.HeartbeatID = id
	out.RecordedAt = recorded
	return &out, nil
}

func (h *heartbeats) LastRecordedAt(ctx context.Context, documentID, accountID string) (time.Time, error) {
	var at time.Time
	row := h.db.QueryRowContext(ctx, `
        SELECT recorded_at FROM heartbeats
        WHERE document_id=$1 AND account_id=$2
        ORDER BY recorded_at DESC LIMIT 1
    `, documentID, accountID)
	if err := row.Scan(&at); err != nil {
		return time.Time{}, notFound(err)
	}
	return at.UTC(), nil
}

const countByDaySQL = `
        SELECT to_char((h.recorded_at AT TIME ZONE 'UTC')::date, 'YYYY-MM-DD') AS day,
               h.document_id, h.account_id, h.domain, d.project_id, COUNT(*) AS n
        FROM heartbeats h
        JOIN documents d ON d.document_id = h.document_id
        WHERE h.account_id IS NOT NULL AND h.recorded_at < $1`

const countByDayGroupSQL = `
        GROUP BY day, h.document_id, h.account_id, h.domain, d.project_id
        ORDER BY day ASC`

func (h *heartbeats) CountByDay(ctx context.Context, cutoff time.Time) ([]*model.DailyCount, error) {
	rows, err := h.db.QueryContext(ctx, countByDaySQL+countByDayGroupSQL, cutoff.UTC())
	if err != nil {
		return nil, err
	}
	return scanDailyCounts(rows)
}

func (h *heartbeats) CountByDayRange(ctx context.Context, from, to time.Time) ([]*model.DailyCount, error) {
	rows, err := h.db.QueryContext(ctx, countByDaySQL+` AND h.recorded_at >= $2`+countByDayGroupSQL,
		to.UTC(), from.UTC())
	if err != nil {
		return nil, err
	}
	return scanDailyCounts(rows)
}

func scanDailyCounts(rows *sql.Rows) ([]*model.DailyCount, error) {
	defer func() { _ = rows.Close() }()
	var res []*model.DailyCount
	for rows.Next() {
		var out model.DailyCount
		if err := rows.Scan(&out.Date, &out.DocumentID, &out.AccountID, &out.Domain, &out.ProjectID, &out.Count); err != nil {
			return nil, err
		}
		res = append(res, &out)
	}
	return res, rows.Err()
}

func (h *heartbeats) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := h.db.ExecContext(ctx, `DELETE FROM heartbeats WHERE recorded_at < $1`, cutoff.UTC())
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
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        ON CONFLICT (date, document_id, account_id) DO UPDATE SET
            total_minutes = EXCLUDED.total_minutes,
            project_id    = EXCLUDED.project_id,
            domain        = EXCLUDED.domain
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
          FROM daily_totals WHERE account_id=$1`
	args := []interface{}{accountID}
	if fromDate != "" {
		args = append(args, fromDate)
		q += fmt.Sprintf(` AND date >= $%d`, len(args))
	}
	if toDate != "" {
		args = append(args, toDate)
		q += fmt.Sprintf(` AND date <= $%d`, len(args))
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
	color := m.Color
	if color == "" {
		color = "#6366f1"
	}
	keywords := m.Keywords
	if keywords == nil {
		keywords = []string{}
	}
	kw, err := json.Marshal(keywords)
	if err != nil {
		return nil, err
	}
	var created, updated time.Time
	row := p.db.QueryRowContext(ctx, `
        INSERT INTO projects (project_id, account_id, name, color, keywords)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING creation_time, update_time
    `, id, m.AccountID, m.Name, color, string(kw))
	if err := row.Scan(&created, &updated); err != nil {
		return nil, err
	}
	out := *m
	out.ProjectID = id
	out.Color = color
	out.Keywords = keywords
	out.CreationTime = created
	out.UpdateTime = updated
	return &out, nil
}

func (p *projects) Get(ctx context.Context, projectID string) (*model.Project, error) {
	row := p.db.QueryRowContext(ctx, `
        SELECT project_id, account_id, name, color, keywords, creation_time, update_time
        FROM projects WHERE project_id=$1
    `, projectID)
	return scanProject(row.Scan)
}

func (p *projects) List(ctx context.Context, accountID string) ([]*model.Project, error) {
	rows, err := p.db.QueryContext(ctx, `
        SELECT project_id, account_id, name, color, keywords, creation_time, update_time
        FROM projects WHERE account_id=$1 ORDER BY name ASC
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

func (p *projects) Delete(ctx context.Context, projectID string) error {
	res, err := p.db.ExecContext(ctx, `DELETE FROM projects WHERE project_id=$1`, projectID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.ErrNotFound
	}
	return nil
}
