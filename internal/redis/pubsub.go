package redis

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"spark-ws/internal/metrics"
	"spark-ws/internal/models"

	"github.com/goccy/go-json"
)

// EventSink receives decoded events. *ws.Hub satisfies it.
type EventSink interface {
	Publish(ctx context.Context, event models.Event) error
}

// Subscribe forwards every event published under the client's prefix to sink
// until ctx is done.
func (c *Client) Subscribe(ctx context.Context, sink EventSink) error {
	pattern := c.prefix + "*"
	pubsub := c.rdb.PSubscribe(ctx, pattern)
	defer pubsub.Close()

	// Wait for subscription confirmation
	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", pattern, err)
	}
	c.log.Info("[REDIS] Subscribed to Redis pub/sub", "pattern", pattern)

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			c.log.Info("[REDIS] Subscription stopped")
			return nil
		case msg, ok := <-ch:
			if !ok {
				c.log.Info("[REDIS] Redis pub/sub channel closed")
				return nil
			}
			if err := forward(ctx, sink, msg.Payload, c.log); err != nil {
				c.log.Error("[REDIS] Dropping event", "channel", msg.Channel, "error", err)
			}
		}
	}
}

func forward(ctx context.Context, sink EventSink, payload string, log *slog.Logger) error {
	var event models.Event
	if err := json.Unmarshal([]byte(payload), &event); err != nil {
		metrics.IngressEvents.WithLabelValues("redis", "malformed").Inc()
		return fmt.Errorf("unmarshal event: %w", err)
	}
	if err := sink.Publish(ctx, event); err != nil {
		metrics.IngressEvents.WithLabelValues("redis", "rejected").Inc()
		return err
	}
	metrics.IngressEvents.WithLabelValues("redis", "ok").Inc()
	log.Debug("[REDIS] Event forwarded", "type", event.Type, "lag", timestampAge(event, time.Now()))
	return nil
}
