package events

import (
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"
)

// Publisher mirrors room events to an external bus
type Publisher interface {
	Publish(roomKey, event string, data []byte)
	Close()
}

// NATSConfig holds configuration for the NATS publisher
type NATSConfig struct {
	URL           string
	SubjectPrefix string // e.g. "livepoll.events"
	MaxReconnects int
	ReconnectWait time.Duration
}

// DefaultNATSConfig returns default NATS configuration
func DefaultNATSConfig() NATSConfig {
	return NATSConfig{
		URL:           nats.DefaultURL,
		SubjectPrefix: "livepoll.events",
		MaxReconnects: -1, // Infinite
		ReconnectWait: 2 * time.Second,
	}
}

// NATSPublisher publishes every room event on <prefix>.<roomKey>.<event>
type NATSPublisher struct {
	nc     *nats.Conn
	prefix string
}

// NewNATSPublisher connects to NATS
func NewNATSPublisher(config NATSConfig) (*NATSPublisher, error) {
	opts := []nats.Option{
		nats.Name("livepoll"),
		nats.MaxReconnects(config.MaxReconnects),
		nats.ReconnectWait(config.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Error().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			log.Error().Err(err).Msg("NATS error")
		}),
	}

	nc, err := nats.Connect(config.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	return NewNATSPublisherConn(nc, config.SubjectPrefix), nil
}

// NewNATSPublisherConn wraps an existing connection
func NewNATSPublisherConn(nc *nats.Conn, prefix string) *NATSPublisher {
	if prefix == "" {
		prefix = DefaultNATSConfig().SubjectPrefix
	}
	return &NATSPublisher{nc: nc, prefix: strings.TrimSuffix(prefix, ".")}
}

// Subject returns the subject an event of roomKey is published on
func (p *NATSPublisher) Subject(roomKey, event string) string {
	return Subject(p.prefix, roomKey, event)
}

// Publish hands the event to the NATS client, which buffers and flushes
// asynchronously. Failures are logged and dropped.
func (p *NATSPublisher) Publish(roomKey, event string, data []byte) {
	if err := p.nc.Publish(p.Subject(roomKey, event), data); err != nil {
		log.Warn().Err(err).Str("session_id", roomKey).Str("event", event).Msg("failed to mirror event to NATS")
	}
}

// Close drains pending messages and closes the connection
func (p *NATSPublisher) Close() {
	if err := p.nc.Drain(); err != nil {
		log.Warn().Err(err).Msg("NATS drain failed")
		p.nc.Close()
	}
}

// Subject builds <prefix>.<roomKey>.<event>. Subject tokens cannot contain
// dots or whitespace, so those are replaced.
func Subject(prefix, roomKey, event string) string {
	return prefix + "." + token(roomKey) + "." + token(event)
}

func token(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '.', ' ', '\t', '\n', '\r', '*', '>':
			return '_'
		}
		return r
	}, s)
}

type nopPublisher struct{}

// NewNopPublisher returns a publisher that discards everything
func NewNopPublisher() Publisher {
	return nopPublisher{}
}

func (nopPublisher) Publish(string, string, []byte) {}
func (nopPublisher) Close()                         {}
