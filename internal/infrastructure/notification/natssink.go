package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	appnotification "github.com/orris-inc/offramp/internal/application/settlement/notification"
	"github.com/orris-inc/offramp/internal/shared/logger"
)

type publisher interface {
	Publish(subject string, data []byte) error
}

// NATSSink publishes settlement outcomes as JSON on one subject.
type NATSSink struct {
	conn    *nats.Conn
	pub     publisher
	subject string
	logger  logger.Interface
}

var _ appnotification.Sink = (*NATSSink)(nil)

func NewNATSSink(url, subject string, log logger.Interface) (*NATSSink, error) {
	l := log.Named("nats_sink")
	conn, err := nats.Connect(url,
		nats.Name("offramp"),
		nats.Timeout(5*time.Second),
		nats.ReconnectWait(2*time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				l.Warnw("nats disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			l.Infow("nats reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	return &NATSSink{conn: conn, pub: conn, subject: subject, logger: l}, nil
}

func (s *NATSSink) NotifySettlement(_ context.Context, n appnotification.SettlementNotification) error {
	payload, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("failed to marshal settlement notification: %w", err)
	}
	if err := s.pub.Publish(s.subject, payload); err != nil {
		return fmt.Errorf("failed to publish settlement notification: %w", err)
	}
	s.logger.Debugw("settlement notification published", "intent_id", n.IntentID, "outcome", n.Outcome)
	return nil
}

func (s *NATSSink) Close() {
	if s.conn == nil {
		return
	}
	if err := s.conn.Drain(); err != nil {
		s.logger.Warnw("failed to drain nats connection", "error", err)
	}
}

// NopSink drops notifications.
type NopSink struct{}

func (NopSink) NotifySettlement(context.Context, appnotification.SettlementNotification) error {
	return nil
}
