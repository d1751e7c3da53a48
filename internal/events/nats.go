// Package events publishes domain events to NATS so downstream consumers
// (notifications, analytics, the booking service) can react to trip progress
// without polling the API.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/nats-io/nats.go"
)

// PublisherMetrics is the instrumentation the publisher reports.
// A nil PublisherMetrics disables reporting.
type PublisherMetrics interface {
	NATSPublishedInc()
	NATSPublishErrInc()
	NATSSetConnected(connected bool)
}

// NATSPublisher implements service.EventSink over a NATS connection.
type NATSPublisher struct {
	nc      *nats.Conn
	log     *slog.Logger
	metrics PublisherMetrics
}

// NewNATSPublisher connects to the NATS server at url. The connection
// reconnects automatically; connection state changes are logged and mirrored
// into the connected gauge. metrics may be nil.
func NewNATSPublisher(url string, log *slog.Logger, m PublisherMetrics) (*NATSPublisher, error) {
	if log == nil {
		log = slog.Default()
	}

	nc, err := nats.Connect(url,
		nats.Name("dispatch-api"),
		nats.DisconnectHandler(func(_ *nats.Conn) {
			if m != nil {
				m.NATSSetConnected(false)
			}
			log.Warn("nats disconnected")
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			if m != nil {
				m.NATSSetConnected(true)
			}
			log.Info("nats reconnected")
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			if m != nil {
				m.NATSSetConnected(false)
			}
			log.Info("nats connection closed")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("events.NewNATSPublisher: %w", err)
	}
	if m != nil {
		m.NATSSetConnected(true)
	}
	return &NATSPublisher{nc: nc, log: log, metrics: m}, nil
}

// Publish marshals payload as JSON and publishes it on subject.
func (p *NATSPublisher) Publish(_ context.Context, subject string, payload any) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("events.NATSPublisher.Publish: marshal: %w", err)
	}

	err = p.nc.Publish(subjectToken(subject), b)
	if p.metrics != nil {
		if err != nil {
			p.metrics.NATSPublishErrInc()
		} else {
			p.metrics.NATSPublishedInc()
		}
	}
	if err != nil {
		return fmt.Errorf("events.NATSPublisher.Publish: %w", err)
	}
	return nil
}

// Close drains pending messages and closes the connection.
func (p *NATSPublisher) Close() {
	if p.nc != nil {
		p.nc.Drain() //nolint:errcheck
		p.nc.Close()
	}
}

// subjectToken sanitizes a subject so it contains no characters NATS
// reserves. Dots are kept: they are the subject hierarchy separator.
func subjectToken(s string) string {
	s = strings.TrimSpace(s)
	repl := strings.NewReplacer(" ", "_", ">", "_", "*", "_", "/", "_", "\t", "_")
	s = repl.Replace(s)
	if s == "" {
		s = "_"
	}
	return s
}
