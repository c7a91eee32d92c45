package infra_nats_events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"
)

type Bus struct {
	conn   *nats.Conn
	logger *slog.Logger
}

func New(url string) (*Bus, error) {
	conn, err := nats.Connect(url, nats.Name("group-activity-planner"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return &Bus{conn: conn, logger: slog.Default()}, nil
}

func (b *Bus) Publish(ctx context.Context, subject string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal event data: %w", err)
	}

	b.logger.DebugContext(ctx, "publishing event",
		slog.String("subject", subject),
		slog.String("data", string(payload)))

	return b.conn.Publish(subject, payload)
}

func (b *Bus) Close() error {
	return b.conn.Drain()
}

// Nop drops every event.
type Nop struct{}

func (Nop) Publish(context.Context, string, any) error { return nil }

func (Nop) Close() error { return nil }
