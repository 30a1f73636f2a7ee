package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/worktrace/worktrace/internal/collector"
	"github.com/worktrace/worktrace/internal/config"
	"github.com/worktrace/worktrace/internal/platform/logger"
)

// frame is one stdin/stdout message exchanged with the browser integration.
// Activity frames carry the page; handshake frames carry identity traffic.
type frame struct {
	Type   string `json:"type"` // "activity" or a handshake MessageKind
	Domain string `json:"domain,omitempty"`
	URL    string `json:"url,omitempty"`
	Title  string `json:"title,omitempty"`
	Email  string `json:"email,omitempty"`
	APIKey string `json:"apiKey,omitempty"`
}

// stdinPage tracks the page described by the most recent activity frame.
type stdinPage struct {
	mu   sync.Mutex
	info *collector.PageInfo
}

func (p *stdinPage) set(f frame) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.info = &collector.PageInfo{Domain: f.Domain, URL: f.URL, Title: f.Title}
}

func (p *stdinPage) Info(ctx context.Context) (*collector.PageInfo, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.info == nil {
		return nil, errors.New("no activity received yet")
	}
	return p.info, nil
}

// readFrames consumes newline-delimited JSON frames from stdin. Activity
// updates the page snapshot and the activity clock; handshake frames go to
// the bus. EOF cancels the run.
func readFrames(cancel context.CancelFunc, bus *collector.Bus, page *stdinPage, monitor *collector.ActivityMonitor, log zerolog.Logger) {
	defer cancel()
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		var f frame
		if err := json.Unmarshal(scanner.Bytes(), &f); err != nil {
			log.Warn().Err(err).Msg("bad frame")
			continue
		}
		switch f.Type {
		case "activity":
			if f.Domain == "" || f.URL == "" {
				continue
			}
			page.set(f)
			monitor.Touch(time.Now().UTC())
		default:
			bus.PublishToCollector(collector.Message{
				Kind:   collector.MessageKind(f.Type),
				Email:  f.Email,
				APIKey: f.APIKey,
			})
		}
	}
	log.Info().Msg("frame stream closed")
}

// writeAcks relays handshake replies back to the browser integration on
// stdout.
func writeAcks(ctx context.Context, bus *collector.Bus, log zerolog.Logger) {
	enc := json.NewEncoder(os.Stdout)
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-bus.DashboardInbox():
			if err := enc.Encode(frame{Type: string(msg.Kind)}); err != nil {
				log.Error().Err(err).Msg("write ack")
			}
		}
	}
}

func main() {
	email := flag.String("email", "", "Bind this email before starting (with -api-key)")
	apiKey := flag.String("api-key", "", "Bind this API key before starting (with -email)")
	metricsAddr := flag.String("metrics-addr", "", "Expose Prometheus metrics on this address (e.g. :9188)")
	flag.Parse()

	log := logger.New("worktrace-collector")

	cfg, err := config.New()
	if err != nil {
		log.Fatal().Err(err).Msg("config")
	}

	ids, err := collector.NewIdentityStore(cfg.StateDir)
	if err != nil {
		log.Fatal().Err(err).Msg("state dir")
	}
	if *email != "" || *apiKey != "" {
		if err := ids.Save(&collector.Identity{Email: *email, APIKey: *apiKey, SyncedAt: time.Now().UTC()}); err != nil {
			log.Fatal().Err(err).Msg("bind identity")
		}
		log.Info().Str("email", *email).Msg("identity bound")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	bus := collector.NewBus(16)
	listener := collector.NewListener(bus, ids, log)
	listener.OnBind(func(id *collector.Identity) {
		// A new identity invalidates the running emitter's client; exit and
		// let the supervisor restart with fresh credentials.
		log.Info().Str("email", id.Email).Msg("identity replaced, restarting")
		cancel()
	})
	go func() { _ = listener.Run(ctx) }()

	monitor := collector.NewActivityMonitor(time.Now().UTC())
	page := &stdinPage{}
	go readFrames(cancel, bus, page, monitor, log)
	go writeAcks(ctx, bus, log)

	id, err := ids.Load()
	if err != nil {
		// No credentials yet: stay up for the handshake, then restart.
		log.Warn().Msg("no identity bound; waiting for dashboard sync")
		<-ctx.Done()
		return
	}

	if *metricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			if err := http.ListenAndServe(*metricsAddr, mux); err != nil {
				log.Error().Err(err).Msg("metrics server")
			}
		}()
	}

	client := collector.NewClient(cfg.ServiceURL, id)
	resolver := collector.NewResolver(client, log)

	emitter := collector.NewEmitter(page, client, resolver, monitor, collector.EmitterConfig{
		Tick:         time.Duration(cfg.TickSeconds) * time.Second,
		SendInterval: time.Duration(cfg.SendIntervalSeconds) * time.Second,
		IdleCutoff:   time.Duration(cfg.IdleCutoffSeconds) * time.Second,
	}, log)

	log.Info().
		Str("service", cfg.ServiceURL).
		Str("email", id.Email).
		Msg("collector running")

	if err := emitter.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		if errors.Is(err, collector.ErrUnauthorized) || errors.Is(err, collector.ErrIdentityRejected) {
			// Stale credentials: drop them so the next start forces a re-sync.
			if cerr := ids.Clear(); cerr != nil {
				log.Error().Err(cerr).Msg("clear identity")
			}
		}
		log.Error().Err(err).Msg("collector exit")
		os.Exit(1)
	}
}
