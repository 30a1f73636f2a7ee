package postgres

// schema is applied by Bootstrap. CREATE TABLE IF NOT EXISTS keeps it safe to
// run on every start; migrations beyond additive DDL are handled out of band.
const schema = `
CREATE TABLE IF NOT EXISTS accounts (
    account_id    TEXT PRIMARY KEY,
    email         TEXT NOT NULL UNIQUE,
    api_key       TEXT NOT NULL UNIQUE,
    creation_time TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS projects (
    project_id    TEXT PRIMARY KEY,
    account_id    TEXT NOT NULL REFERENCES accounts(account_id) ON DELETE CASCADE,
    name          TEXT NOT NULL,
    color         TEXT NOT NULL DEFAULT '#6366f1',
    keywords      JSONB NOT NULL DEFAULT '[]',
    creation_time TIMESTAMPTZ NOT NULL DEFAULT now(),
    update_time   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS selectors (
    selector_id    TEXT PRIMARY KEY,
    account_id     TEXT REFERENCES accounts(account_id) ON DELETE CASCADE,
    domain         TEXT NOT NULL,
    title_selector TEXT NOT NULL,
    doc_id_pattern TEXT,
    url_template   TEXT,
    creation_time  TIMESTAMPTZ NOT NULL DEFAULT now(),
    UNIQUE (account_id, domain)
);
CREATE INDEX IF NOT EXISTS idx_selectors_domain ON selectors(domain);

CREATE TABLE IF NOT EXISTS documents (
    document_id    TEXT PRIMARY KEY,
    doc_identifier TEXT NOT NULL UNIQUE,
    domain         TEXT NOT NULL,
    title          TEXT,
    url            TEXT,
    account_id     TEXT REFERENCES accounts(account_id) ON DELETE SET NULL,
    project_id     TEXT REFERENCES projects(project_id) ON DELETE SET NULL,
    tag            TEXT,
    auto_tagged    BOOLEAN NOT NULL DEFAULT false,
    creation_time  TIMESTAMPTZ NOT NULL DEFAULT now(),
    update_time    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS heartbeats (
    heartbeat_id TEXT PRIMARY KEY,
    document_id  TEXT NOT NULL REFERENCES documents(document_id) ON DELETE CASCADE,
    domain       TEXT NOT NULL,
    account_id   TEXT,
    recorded_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_heartbeats_recorded ON heartbeats(recorded_at);
CREATE INDEX IF NOT EXISTS idx_heartbeats_doc_account ON heartbeats(document_id, account_id, recorded_at);

CREATE TABLE IF NOT EXISTS daily_totals (
    total_id      TEXT PRIMARY KEY,
    date          TEXT NOT NULL,
    document_id   TEXT NOT NULL REFERENCES documents(document_id) ON DELETE CASCADE,
    account_id    TEXT NOT NULL,
    project_id    TEXT,
    domain        TEXT NOT NULL,
    total_minutes INTEGER NOT NULL DEFAULT 0,
    UNIQUE (date, document_id, account_id)
);
CREATE INDEX IF NOT EXISTS idx_daily_totals_account_date ON daily_totals(account_id, date);
`
