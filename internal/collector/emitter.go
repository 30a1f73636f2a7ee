package collector

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
)

// PageInfo is what the emitter can see of the current page on one tick.
type PageInfo struct {
	Domain string
	URL    string
	Title  string
}

// Page supplies the current page facts. Implementations read the live DOM;
// tests return fixtures.
type Page interface {
	Info(ctx context.Context) (*PageInfo, error)
}

// Sender posts heartbeats to the ingestion service.
type Sender interface {
	SendHeartbeat(ctx context.Context, p *HeartbeatPayload) (throttled bool, err error)
}

// EmitterConfig sets the emission cadence. Zero values get the defaults:
// evaluate every 30s, send at most once per 60s, stop counting a page idle
// for 120s.
type EmitterConfig struct {
	Tick         time.Duration
	SendInterval time.Duration
	IdleCutoff   time.Duration
}

func (c *EmitterConfig) applyDefaults() {
	if c.Tick <= 0 {
		c.Tick = 30 * time.Second
	}
	if c.SendInterval <= 0 {
		c.SendInterval = time.Minute
	}
	if c.IdleCutoff <= 0 {
		c.IdleCutoff = 2 * time.Minute
	}
}

// Emitter turns page activity into rate-limited heartbeats. Each tick it
// checks the idle cutoff, then the minimum send interval, then posts one
// heartbeat. A failed post is not retried within the tick; the next tick
// simply tries again, so at most one minute of activity is at risk.
type Emitter struct {
	page     Page
	sender   Sender
	resolver *Resolver
	monitor  *ActivityMonitor
	cfg      EmitterConfig
	log      zerolog.Logger

	now      func() time.Time
	lastSent time.Time
}

func NewEmitter(page Page, sender Sender, resolver *Resolver, monitor *ActivityMonitor, cfg EmitterConfig, log zerolog.Logger) *Emitter {
	cfg.applyDefaults()
	return &Emitter{
		page:     page,
		sender:   sender,
		resolver: resolver,
		monitor:  monitor,
		cfg:      cfg,
		log:      log,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Run ticks until ctx is canceled or the service revokes the API key.
// Revocation is terminal: heartbeats with a dead key would fail forever, so
// the emitter shuts down and waits for a new handshake.
func (e *Emitter) Run(ctx context.Context) error {
	ticker := time.NewTicker(e.cfg.Tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := e.Tick(ctx); err != nil {
				if errors.Is(err, ErrUnauthorized) || errors.Is(err, ErrIdentityRejected) {
					e.log.Warn().Err(err).Msg("credentials rejected, emitter stopping")
					return err
				}
				// transient; next tick retries
				e.log.Debug().Err(err).Msg("tick failed")
			}
		}
	}
}

// Tick evaluates one emission opportunity.
func (e *Emitter) Tick(ctx context.Context) error {
	now := e.now()

	if e.monitor.SinceActivity(now) >= e.cfg.IdleCutoff {
		metricTicksIdle.Inc()
		return nil
	}
	if !e.lastSent.IsZero() && now.Sub(e.lastSent) < e.cfg.SendInterval {
		metricTicksRateLimited.Inc()
		return nil
	}

	info, err := e.page.Info(ctx)
	if err != nil {
		metricSendFailures.Inc()
		return err
	}

	rule := e.resolver.Resolve(ctx, info.Domain)
	docID := rule.DocIDFromURL(info.URL)
	canonical := rule.CanonicalURL(docID, info.URL)

	p := &HeartbeatPayload{
		DocIdentifier: docID,
		Domain:        info.Domain,
		URL:           &canonical,
	}
	if info.Title != "" {
		p.Title = &info.Title
	}

	throttled, err := e.sender.SendHeartbeat(ctx, p)
	if err != nil {
		metricSendFailures.Inc()
		return err
	}

	e.lastSent = now
	metricHeartbeatsSent.Inc()
	e.log.Debug().
		Str("domain", info.Domain).
		Str("doc_identifier", docID).
		Bool("throttled", throttled).
		Msg("heartbeat sent")
	return nil
}
