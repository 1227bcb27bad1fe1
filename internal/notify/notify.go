// Package notify is the event-publishing boundary the scheduling core
// calls after a successful transition. Delivery transports (email,
// WhatsApp, websocket) live outside the core; the in-repo publisher just
// logs the event so failures are visible without blocking the caller.
package notify

import (
	"context"

	"github.com/rs/zerolog"
)

type Channel string

const (
	ChannelEmail    Channel = "email"
	ChannelWhatsApp Channel = "whatsapp"
	ChannelSocket   Channel = "socket"
)

type Event struct {
	Type      string
	Channel   Channel
	Recipient string
	Payload   map[string]any
}

type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

type LogPublisher struct {
	log zerolog.Logger
}

func NewLogPublisher(log zerolog.Logger) *LogPublisher {
	return &LogPublisher{log: log.With().Str("component", "notify").Logger()}
}

func (p *LogPublisher) Publish(_ context.Context, ev Event) error {
	p.log.Info().
		Str("event", ev.Type).
		Str("channel", string(ev.Channel)).
		Str("recipient", ev.Recipient).
		Interface("payload", ev.Payload).
		Msg("notification dispatched")
	return nil
}
