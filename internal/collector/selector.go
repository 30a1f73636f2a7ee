package collector

import (
	"context"
	"net/url"
	"regexp"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/worktrace/worktrace/internal/model"
)

// Rule is a compiled extraction recipe for one domain: where the title lives,
// how to cut the stable document identifier out of the URL, and how to build
// the canonical URL back from it.
type Rule struct {
	// TitleSelector is a CSS selector for the in-page title element. Empty
	// means use the page title.
	TitleSelector string

	idRx        *regexp.Regexp // first capture group is the identifier
	urlTemplate string         // contains {id}
}

// DocIDFromURL extracts the stable identifier from a page URL. Without a
// pattern (or when the pattern does not match) it falls back to host+path,
// which is stable for most editors even as query fragments churn.
func (r *Rule) DocIDFromURL(raw string) string {
	if r.idRx != nil {
		if m := r.idRx.FindStringSubmatch(raw); len(m) > 1 {
			return m[1]
		}
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return raw
	}
	return u.Host + strings.TrimRight(u.Path, "/")
}

// CanonicalURL rebuilds a shareable URL for the identifier, or returns the
// original URL when no template is configured.
func (r *Rule) CanonicalURL(docID, originalURL string) string {
	if r.urlTemplate == "" {
		return originalURL
	}
	return strings.ReplaceAll(r.urlTemplate, "{id}", docID)
}

// DefaultRule is the recipe used when the registry has nothing for a domain.
func DefaultRule() *Rule { return &Rule{} }

// CompileRule turns a stored selector descriptor into a Rule. A pattern that
// does not compile is dropped rather than failing the page; the registry
// validates patterns on write, so this only triggers on skew.
func CompileRule(sel *model.Selector, log zerolog.Logger) *Rule {
	r := &Rule{TitleSelector: sel.TitleSelector}
	if sel.DocIDPattern != nil && *sel.DocIDPattern != "" {
		rx, err := regexp.Compile(*sel.DocIDPattern)
		if err != nil {
			log.Warn().Str("domain", sel.Domain).Err(err).Msg("unusable doc-id pattern, using default")
		} else {
			r.idRx = rx
		}
	}
	if sel.URLTemplate != nil {
		r.urlTemplate = *sel.URLTemplate
	}
	return r
}

// SelectorFetcher retrieves the descriptor for a domain from the registry.
// A nil descriptor with nil error means the domain has none.
type SelectorFetcher interface {
	FetchSelector(ctx context.Context, domain string) (*model.Selector, error)
}

// Resolver caches one Rule per domain for the lifetime of the collector.
// Fetch failures resolve to the default rule but are not cached, so a
// recovering registry gets asked again.
type Resolver struct {
	fetcher SelectorFetcher
	log     zerolog.Logger

	mu    sync.Mutex
	cache map[string]*Rule
}

func NewResolver(f SelectorFetcher, log zerolog.Logger) *Resolver {
	return &Resolver{fetcher: f, log: log, cache: make(map[string]*Rule)}
}

// Resolve returns the rule for domain, consulting the registry at most once
// per domain.
func (r *Resolver) Resolve(ctx context.Context, domain string) *Rule {
	r.mu.Lock()
	if rule, ok := r.cache[domain]; ok {
		r.mu.Unlock()
		return rule
	}
	r.mu.Unlock()

	sel, err := r.fetcher.FetchSelector(ctx, domain)
	if err != nil {
		r.log.Warn().Str("domain", domain).Err(err).Msg("selector fetch failed, using default")
		return DefaultRule()
	}

	rule := DefaultRule()
	if sel != nil {
		rule = CompileRule(sel, r.log)
	}

	r.mu.Lock()
	r.cache[domain] = rule
	r.mu.Unlock()
	return rule
}
