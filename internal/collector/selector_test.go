package collector

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/worktrace/worktrace/internal/model"
)

func TestRuleDocIDFromURL(t *testing.T) {
	pat := `/document/d/([a-zA-Z0-9_-]+)`
	rule := CompileRule(&model.Selector{
		Domain:        "docs.google.com",
		TitleSelector: ".docs-title-input",
		DocIDPattern:  &pat,
	}, zerolog.Nop())

	// query noise never changes the identifier
	assert.Equal(t, "abc123", rule.DocIDFromURL("https://docs.google.com/document/d/abc123/edit"))
	assert.Equal(t, "abc123", rule.DocIDFromURL("https://docs.google.com/document/d/abc123/edit?usp=sharing#heading=h.2"))

	// non-matching URL falls back to host+path
	assert.Equal(t, "docs.google.com/spreadsheets/u/0", rule.DocIDFromURL("https://docs.google.com/spreadsheets/u/0/"))
}

func TestDefaultRuleDocID(t *testing.T) {
	rule := DefaultRule()
	assert.Equal(t, "example.com/notes/42", rule.DocIDFromURL("https://example.com/notes/42?tab=edit"))
	// unparseable input is passed through rather than dropped
	assert.Equal(t, "::::", rule.DocIDFromURL("::::"))
}

func TestRuleCanonicalURL(t *testing.T) {
	tmpl := "https://docs.google.com/document/d/{id}"
	rule := CompileRule(&model.Selector{
		Domain:        "docs.google.com",
		TitleSelector: ".docs-title-input",
		URLTemplate:   &tmpl,
	}, zerolog.Nop())
	assert.Equal(t, "https://docs.google.com/document/d/abc123", rule.CanonicalURL("abc123", "https://docs.google.com/document/d/abc123/edit"))

	// no template: keep the page URL
	assert.Equal(t, "https://x.com/p/1", DefaultRule().CanonicalURL("x.com/p/1", "https://x.com/p/1"))
}

func TestCompileRuleBadPattern(t *testing.T) {
	bad := `([unclosed`
	rule := CompileRule(&model.Selector{
		Domain:        "docs.google.com",
		TitleSelector: ".docs-title-input",
		DocIDPattern:  &bad,
	}, zerolog.Nop())
	// pattern dropped, default extraction still works
	assert.Equal(t, "docs.google.com/document/d/abc123/edit", rule.DocIDFromURL("https://docs.google.com/document/d/abc123/edit"))
	assert.Equal(t, ".docs-title-input", rule.TitleSelector)
}

type countingFetcher struct {
	sel   *model.Selector
	err   error
	calls int
}

func (f *countingFetcher) FetchSelector(ctx context.Context, domain string) (*model.Selector, error) {
	f.calls++
	return f.sel, f.err
}

func TestResolverCachesPerDomain(t *testing.T) {
	f := &countingFetcher{sel: &model.Selector{Domain: "docs.google.com", TitleSelector: ".t"}}
	r := NewResolver(f, zerolog.Nop())
	ctx := context.Background()

	rule1 := r.Resolve(ctx, "docs.google.com")
	rule2 := r.Resolve(ctx, "docs.google.com")
	require.Same(t, rule1, rule2)
	assert.Equal(t, 1, f.calls)
}

func TestResolverFetchFailureNotCached(t *testing.T) {
	f := &countingFetcher{err: errors.New("registry down")}
	r := NewResolver(f, zerolog.Nop())
	ctx := context.Background()

	rule := r.Resolve(ctx, "docs.google.com")
	assert.Empty(t, rule.TitleSelector)

	// registry recovers; the next resolve asks again
	f.err = nil
	f.sel = &model.Selector{Domain: "docs.google.com", TitleSelector: ".t"}
	rule = r.Resolve(ctx, "docs.google.com")
	assert.Equal(t, ".t", rule.TitleSelector)
	assert.Equal(t, 2, f.calls)
}
