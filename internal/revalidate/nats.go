package revalidate

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"git.home.luguber.info/inful/pagebuilder/internal/eventstore"
	ferrors "git.home.luguber.info/inful/pagebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/pagebuilder/internal/logfields"
)

// Message is the broadcast wire format.
type Message struct {
	Origin string    `json:"origin"`
	All    bool      `json:"all,omitempty"`
	Slug   string    `json:"slug,omitempty"`
	SentAt time.Time `json:"sent_at"`
}

// Broadcaster publishes and receives revalidations over NATS core pub/sub.
// Each instance ignores its own messages by origin id.
type Broadcaster struct {
	conn    *nats.Conn
	subject string
	origin  string
	logger  *slog.Logger
}

// NewBroadcaster creates a Broadcaster on subject. origin identifies this
// instance.
func NewBroadcaster(conn *nats.Conn, subject, origin string, logger *slog.Logger) *Broadcaster {
	if logger == nil {
		logger = slog.Default()
	}
	return &Broadcaster{conn: conn, subject: subject, origin: origin, logger: logger}
}

// Publish sends req to every other instance.
func (b *Broadcaster) Publish(_ context.Context, req Request) error {
	data, err := json.Marshal(Message{Origin: b.origin, All: req.All, Slug: req.Slug, SentAt: time.Now().UTC()})
	if err != nil {
		return ferrors.WrapError(err, ferrors.CategoryInternal, "encode revalidation message").Build()
	}
	if err := b.conn.Publish(b.subject, data); err != nil {
		return ferrors.WrapError(err, ferrors.CategoryNetwork, "publish revalidation").
			WithContext("subject", b.subject).
			Build()
	}
	return nil
}

// Listen applies revalidations published by other instances until ctx ends.
func (b *Broadcaster) Listen(ctx context.Context, svc *Service) error {
	sub, err := b.conn.Subscribe(b.subject, func(msg *nats.Msg) {
		var m Message
		if err := json.Unmarshal(msg.Data, &m); err != nil {
			b.logger.WarnContext(ctx, "Dropping malformed revalidation message", logfields.Error(err))
			return
		}
		if m.Origin == b.origin {
			return
		}
		req := Request{All: m.All, Slug: m.Slug, Source: eventstore.SourceBroadcast}
		if _, err := svc.Apply(ctx, req); err != nil {
			b.logger.WarnContext(ctx, "Remote revalidation failed",
				logfields.Slug(m.Slug),
				slog.String("origin", m.Origin),
				logfields.Error(err))
		}
	})
	if err != nil {
		return ferrors.WrapError(err, ferrors.CategoryNetwork, "subscribe to revalidations").
			WithContext("subject", b.subject).
			Build()
	}
	b.logger.InfoContext(ctx, "Listening for revalidations", slog.String("subject", b.subject))

	<-ctx.Done()
	if err := sub.Unsubscribe(); err != nil && b.conn.IsConnected() {
		return ferrors.WrapError(err, ferrors.CategoryNetwork, "unsubscribe from revalidations").Build()
	}
	return nil
}
