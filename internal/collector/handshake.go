package collector

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
)

// MessageKind identifies a handshake message between the dashboard page and
// the collector.
type MessageKind string

const (
	// MsgSyncIdentity carries the email and API key from the dashboard to the
	// collector.
	MsgSyncIdentity MessageKind = "SYNC_IDENTITY"
	// MsgSyncSuccess acknowledges that the collector stored the identity.
	MsgSyncSuccess MessageKind = "SYNC_SUCCESS"
	// MsgPingRequest asks whether a collector is present.
	MsgPingRequest MessageKind = "PING_SCRIPT_REQUEST"
	// MsgPingResponse announces collector presence. Sent in reply to a ping
	// and once unsolicited on startup, so a dashboard that loaded first still
	// learns the collector is there.
	MsgPingResponse MessageKind = "PING_SCRIPT_RESPONSE"
)

// Message is one handshake frame. Email and APIKey are set only on
// MsgSyncIdentity.
type Message struct {
	Kind   MessageKind
	Email  string
	APIKey string
}

// Bus is a lightweight in-process pub-sub channel pair modeling the
// page-to-collector messaging surface. Publishes never block: a full buffer
// drops the message, which the handshake timeout absorbs.
type Bus struct {
	toCollector chan Message
	toDashboard chan Message
}

// NewBus creates a bus with the given per-direction buffer size.
func NewBus(buffer int) *Bus {
	return &Bus{
		toCollector: make(chan Message, buffer),
		toDashboard: make(chan Message, buffer),
	}
}

// PublishToCollector attempts to enqueue without blocking. Returns false if
// the buffer is full.
func (b *Bus) PublishToCollector(msg Message) bool {
	select {
	case b.toCollector <- msg:
		return true
	default:
		return false
	}
}

// PublishToDashboard attempts to enqueue without blocking. Returns false if
// the buffer is full.
func (b *Bus) PublishToDashboard(msg Message) bool {
	select {
	case b.toDashboard <- msg:
		return true
	default:
		return false
	}
}

// CollectorInbox returns the collector-side read channel.
func (b *Bus) CollectorInbox() <-chan Message { return b.toCollector }

// DashboardInbox returns the dashboard-side read channel.
func (b *Bus) DashboardInbox() <-chan Message { return b.toDashboard }

// HandshakeTimeout bounds every wait on the other side of the bus.
const HandshakeTimeout = 3 * time.Second

var (
	// ErrCollectorNotInstalled means no collector answered the presence ping.
	ErrCollectorNotInstalled = errors.New("collector not installed")
	// ErrSyncTimeout means the collector is present but never acknowledged
	// the identity.
	ErrSyncTimeout = errors.New("identity sync timed out")
)

// Listener is the collector side of the handshake: it answers presence pings
// and stores identities pushed by the dashboard.
type Listener struct {
	bus   *Bus
	ids   *IdentityStore
	log   zerolog.Logger
	bound func(*Identity) // optional notification hook
}

func NewListener(bus *Bus, ids *IdentityStore, log zerolog.Logger) *Listener {
	return &Listener{bus: bus, ids: ids, log: log}
}

// OnBind registers a hook invoked after each successful identity bind.
func (l *Listener) OnBind(f func(*Identity)) { l.bound = f }

// Run serves handshake messages until ctx is canceled. Announces presence
// once on startup.
func (l *Listener) Run(ctx context.Context) error {
	l.bus.PublishToDashboard(Message{Kind: MsgPingResponse})

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg := <-l.bus.CollectorInbox():
			switch msg.Kind {
			case MsgPingRequest:
				l.bus.PublishToDashboard(Message{Kind: MsgPingResponse})
			case MsgSyncIdentity:
				id := &Identity{Email: msg.Email, APIKey: msg.APIKey, SyncedAt: time.Now().UTC()}
				if err := l.ids.Save(id); err != nil {
					// No ack; the dashboard times out and reports failure.
					l.log.Error().Err(err).Msg("identity save failed")
					continue
				}
				l.log.Info().Str("email", id.Email).Msg("identity bound")
				if l.bound != nil {
					l.bound(id)
				}
				l.bus.PublishToDashboard(Message{Kind: MsgSyncSuccess})
			}
		}
	}
}

// Syncer is the dashboard side of the handshake.
type Syncer struct {
	bus     *Bus
	timeout time.Duration
}

func NewSyncer(bus *Bus) *Syncer {
	return &Syncer{bus: bus, timeout: HandshakeTimeout}
}

// Detect reports whether a collector is listening. A ping response already
// sitting in the inbox (the startup announcement) counts.
func (s *Syncer) Detect(ctx context.Context) bool {
	s.bus.PublishToCollector(Message{Kind: MsgPingRequest})
	_, ok := s.await(ctx, MsgPingResponse)
	return ok
}

// Sync pushes the identity to the collector and waits for its ack.
// Returns ErrCollectorNotInstalled when nothing answers the presence ping,
// ErrSyncTimeout when the push is never acknowledged.
func (s *Syncer) Sync(ctx context.Context, email, apiKey string) error {
	if !s.Detect(ctx) {
		return ErrCollectorNotInstalled
	}
	s.bus.PublishToCollector(Message{Kind: MsgSyncIdentity, Email: email, APIKey: apiKey})
	if _, ok := s.await(ctx, MsgSyncSuccess); !ok {
		return ErrSyncTimeout
	}
	return nil
}

// await reads the dashboard inbox until a message of the wanted kind arrives
// or the timeout fires. Other kinds (stale ping responses) are discarded.
func (s *Syncer) await(ctx context.Context, kind MessageKind) (Message, bool) {
	timer := time.NewTimer(s.timeout)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return Message{}, false
		case <-timer.C:
			return Message{}, false
		case msg := <-s.bus.DashboardInbox():
			if msg.Kind == kind {
				return msg, true
			}
		}
	}
}
