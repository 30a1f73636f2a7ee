package collector

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/worktrace/worktrace/internal/model"
)

type fakePage struct{ info PageInfo }

func (p *fakePage) Info(ctx context.Context) (*PageInfo, error) { return &p.info, nil }

type fakeSender struct {
	sent []HeartbeatPayload
	err  error
}

func (s *fakeSender) SendHeartbeat(ctx context.Context, p *HeartbeatPayload) (bool, error) {
	if s.err != nil {
		return false, s.err
	}
	s.sent = append(s.sent, *p)
	return false, nil
}

type fakeFetcher struct{ sel *model.Selector }

func (f *fakeFetcher) FetchSelector(ctx context.Context, domain string) (*model.Selector, error) {
	return f.sel, nil
}

func newEmitterFixture(t *testing.T, sender *fakeSender) (*Emitter, *ActivityMonitor, *clock) {
	t.Helper()
	clk := &clock{t: time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)}
	monitor := NewActivityMonitor(clk.now())
	page := &fakePage{info: PageInfo{
		Domain: "docs.google.com",
		URL:    "https://docs.google.com/document/d/abc123/edit",
		Title:  "Quarterly Plan",
	}}
	resolver := NewResolver(&fakeFetcher{}, zerolog.Nop())
	em := NewEmitter(page, sender, resolver, monitor, EmitterConfig{
		Tick:         30 * time.Second,
		SendInterval: time.Minute,
		IdleCutoff:   2 * time.Minute,
	}, zerolog.Nop())
	em.now = clk.now
	return em, monitor, clk
}

type clock struct{ t time.Time }

func (c *clock) now() time.Time          { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

// TestEmitterCadence walks the tick schedule: with continuous activity the
// emitter sends at most one heartbeat per minute even though it evaluates
// every 30 seconds.
func TestEmitterCadence(t *testing.T) {
	sender := &fakeSender{}
	em, monitor, clk := newEmitterFixture(t, sender)
	ctx := context.Background()

	// 10 ticks over 5 minutes, user active the whole time
	for i := 0; i < 10; i++ {
		monitor.Touch(clk.now())
		require.NoError(t, em.Tick(ctx))
		clk.advance(30 * time.Second)
	}

	// minute boundaries 0:00, 1:00, 2:00, 3:00, 4:00
	assert.Len(t, sender.sent, 5)
}

func TestEmitterIdleCutoff(t *testing.T) {
	sender := &fakeSender{}
	em, monitor, clk := newEmitterFixture(t, sender)
	ctx := context.Background()

	monitor.Touch(clk.now())
	require.NoError(t, em.Tick(ctx)) // active: sends
	require.Len(t, sender.sent, 1)

	// user walks away; ticks keep firing
	for i := 0; i < 8; i++ {
		clk.advance(30 * time.Second)
		require.NoError(t, em.Tick(ctx))
	}
	// only the tick one minute in was still inside the idle window and past
	// the send interval
	assert.Len(t, sender.sent, 2)

	// user comes back: sending resumes on the next tick
	monitor.Touch(clk.now())
	require.NoError(t, em.Tick(ctx))
	assert.Len(t, sender.sent, 3)
}

func TestEmitterStopsOnRevokedKey(t *testing.T) {
	sender := &fakeSender{err: ErrUnauthorized}
	em, monitor, clk := newEmitterFixture(t, sender)

	monitor.Touch(clk.now())
	err := em.Tick(context.Background())
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestEmitterTransientFailureRetriesNextTick(t *testing.T) {
	sender := &fakeSender{err: context.DeadlineExceeded}
	em, monitor, clk := newEmitterFixture(t, sender)
	ctx := context.Background()

	monitor.Touch(clk.now())
	require.Error(t, em.Tick(ctx))

	// failure did not consume the send slot; the next tick sends
	sender.err = nil
	clk.advance(30 * time.Second)
	monitor.Touch(clk.now())
	require.NoError(t, em.Tick(ctx))
	assert.Len(t, sender.sent, 1)
}

func TestEmitterUsesSelectorRule(t *testing.T) {
	sender := &fakeSender{}
	clk := &clock{t: time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)}
	monitor := NewActivityMonitor(clk.now())
	page := &fakePage{info: PageInfo{
		Domain: "docs.google.com",
		URL:    "https://docs.google.com/document/d/abc123/edit?usp=sharing",
		Title:  "Quarterly Plan",
	}}
	pat := `/document/d/([a-zA-Z0-9_-]+)`
	tmpl := "https://docs.google.com/document/d/{id}"
	resolver := NewResolver(&fakeFetcher{sel: &model.Selector{
		Domain:        "docs.google.com",
		TitleSelector: ".docs-title-input",
		DocIDPattern:  &pat,
		URLTemplate:   &tmpl,
	}}, zerolog.Nop())
	em := NewEmitter(page, sender, resolver, monitor, EmitterConfig{}, zerolog.Nop())
	em.now = clk.now

	monitor.Touch(clk.now())
	require.NoError(t, em.Tick(context.Background()))

	require.Len(t, sender.sent, 1)
	hb := sender.sent[0]
	assert.Equal(t, "abc123", hb.DocIdentifier)
	require.NotNil(t, hb.URL)
	assert.Equal(t, "https://docs.google.com/document/d/abc123", *hb.URL)
}
