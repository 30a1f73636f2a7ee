package model

import "time"

// Account is an authenticated identity. The API key authenticates heartbeat
// traffic; the email is the human-verifiable identity relayed by the
// collector handshake.
type Account struct {
	AccountID    string    `json:"accountId"`
	Email        string    `json:"email"`
	APIKey       string    `json:"apiKey,omitempty"`
	CreationTime time.Time `json:"creationTime"`
}

// Selector describes how to extract a title, a stable document identifier and
// a canonical URL from pages on one domain. AccountID is nil for shared
// descriptors that any caller may fall back to.
type Selector struct {
	SelectorID    string    `json:"selectorId"`
	AccountID     *string   `json:"accountId,omitempty"`
	Domain        string    `json:"domain"`
	TitleSelector string    `json:"titleSelector"`
	DocIDPattern  *string   `json:"docIdPattern,omitempty"`
	URLTemplate   *string   `json:"urlTemplate,omitempty"`
	CreationTime  time.Time `json:"creationTime"`
}

// Document is one tracked unit of work. DocIdentifier is globally unique and
// is the upsert key: repeated heartbeats for the same identifier update the
// row in place, never create a duplicate.
type Document struct {
	DocumentID    string    `json:"documentId"`
	DocIdentifier string    `json:"docIdentifier"`
	Domain        string    `json:"domain"`
	Title         *string   `json:"title,omitempty"`
	URL           *string   `json:"url,omitempty"`
	AccountID     *string   `json:"accountId,omitempty"`
	ProjectID     *string   `json:"projectId,omitempty"`
	Tag           *string   `json:"tag,omitempty"`
	AutoTagged    bool      `json:"autoTagged"`
	CreationTime  time.Time `json:"creationTime"`
	UpdateTime    time.Time `json:"updateTime"`
}

// Heartbeat is a single activity pulse for a document. Immutable once written.
type Heartbeat struct {
	HeartbeatID string    `json:"heartbeatId"`
	DocumentID  string    `json:"documentId"`
	Domain      string    `json:"domain"`
	AccountID   *string   `json:"accountId,omitempty"`
	RecordedAt  time.Time `json:"recordedAt"`
}

// DailyTotal aggregates minutes of activity for one document on one UTC date.
// One accepted heartbeat counts as one minute because emission is rate-limited
// to at most one per minute.
type DailyTotal struct {
	TotalID      string  `json:"totalId"`
	Date         string  `json:"date"` // YYYY-MM-DD, UTC
	DocumentID   string  `json:"documentId"`
	AccountID    string  `json:"accountId"`
	ProjectID    *string `json:"projectId,omitempty"`
	Domain       string  `json:"domain"`
	TotalMinutes int     `json:"totalMinutes"`
}

// Project groups documents for reporting.
type Project struct {
	ProjectID    string    `json:"projectId"`
	AccountID    string    `json:"accountId"`
	Name         string    `json:"name"`
	Color        string    `json:"color"`
	Keywords     []string  `json:"keywords"`
	CreationTime time.Time `json:"creationTime"`
	UpdateTime   time.Time `json:"updateTime"`
}

// HeartbeatUpsert carries the fields a heartbeat may change on its document.
// Project and tag assignment are deliberately absent: heartbeats never touch
// them.
type HeartbeatUpsert struct {
	DocIdentifier string
	Domain        string
	Title         *string
	URL           *string
	AccountID     *string
}

// DailyCount is one (date, document, account) bucket produced by aggregation.
type DailyCount struct {
	Date       string
	DocumentID string
	AccountID  string
	ProjectID  *string
	Domain     string
	Count      int
}

// ToDailyTotal converts an aggregation bucket into the total it sets. One
// heartbeat equals one minute.
func (c *DailyCount) ToDailyTotal() *DailyTotal {
	return &DailyTotal{
		Date:         c.Date,
		DocumentID:   c.DocumentID,
		AccountID:    c.AccountID,
		ProjectID:    c.ProjectID,
		Domain:       c.Domain,
		TotalMinutes: c.Count,
	}
}

// ListDocumentsRequest captures filters used when listing documents.
type ListDocumentsRequest struct {
	AccountID  string
	ProjectID  *string
	Domain     string
	Unassigned bool
	Limit      int
}
