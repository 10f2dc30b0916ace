package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"agora/internal/shared/events"

	"github.com/nats-io/nats.go"
)

const flushTimeout = 5 * time.Second

// NATS publishes envelopes as JSON on subject "<prefix>.<topic>".
type NATS struct {
	conn   *nats.Conn
	prefix string
	logger *slog.Logger
}

func NewNATS(url string, prefix string, logger *slog.Logger) (*NATS, error) {
	conn, err := nats.Connect(url,
		nats.Name(prefix),
		nats.MaxReconnects(5),
		nats.ReconnectWait(time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	return &NATS{conn: conn, prefix: prefix, logger: logger}, nil
}

func (n *NATS) Subject(topic string) string {
	if n.prefix == "" {
		return topic
	}
	return n.prefix + "." + topic
}

// Publish returns only after the server has processed the message, so the
// relay marks an outbox row published once NATS holds it.
func (n *NATS) Publish(ctx context.Context, topic string, event events.Envelope) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event %s: %w", event.EventID, err)
	}
	msg := nats.NewMsg(n.Subject(topic))
	msg.Data = data
	msg.Header.Set(nats.MsgIdHdr, event.EventID)
	msg.Header.Set("Partition-Key", event.PartitionKey)
	if err := n.conn.PublishMsg(msg); err != nil {
		return fmt.Errorf("publish %s: %w", msg.Subject, err)
	}
	flushCtx := ctx
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		flushCtx, cancel = context.WithTimeout(ctx, flushTimeout)
		defer cancel()
	}
	if err := n.conn.FlushWithContext(flushCtx); err != nil {
		return fmt.Errorf("flush %s: %w", msg.Subject, err)
	}
	if n.logger != nil {
		n.logger.Debug("event published",
			"event", "nats_publish",
			"module", "internal/platform/messaging",
			"layer", "platform",
			"subject", msg.Subject,
			"event_id", event.EventID,
		)
	}
	return nil
}

func (n *NATS) Close() error {
	if n == nil || n.conn == nil {
		return nil
	}
	return n.conn.Drain()
}
