package redis

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"spark-ws/internal/models"

	"github.com/go-redis/redis/v8"
	"github.com/goccy/go-json"
)

// publisher is the part of *redis.Client the Publish helpers need.
type publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// Client publishes broadcast requests for the gateway and subscribes to them.
// Domain services use the Publish helpers after a successful write.
type Client struct {
	rdb    *redis.Client
	pub    publisher
	prefix string
	log    *slog.Logger
}

func NewClient(ctx context.Context, redisURL, prefix string, log *slog.Logger) (*Client, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	log.Info("[REDIS] Connected to Redis", "addr", opt.Addr)
	return &Client{rdb: rdb, pub: rdb, prefix: prefix, log: log}, nil
}

func (c *Client) Close() error {
	return c.rdb.Close()
}

func (c *Client) PublishCommentAdded(ctx context.Context, comment models.Comment) error {
	return c.publish(ctx, models.EventCommentAdded, comment.IdeaID, "", comment)
}

// PublishCommentWithOwnerNotice publishes the comment to idea viewers and then
// notice, the owner's stored notification, to its recipient. A nil notice
// publishes the comment only.
func (c *Client) PublishCommentWithOwnerNotice(ctx context.Context, comment models.Comment, notice *models.Notification) error {
	if err := c.PublishCommentAdded(ctx, comment); err != nil {
		return err
	}
	if notice == nil {
		return nil
	}
	return c.PublishNotification(ctx, *notice)
}

func (c *Client) PublishIdeaUpdated(ctx context.Context, ideaID string, update interface{}) error {
	return c.publish(ctx, models.EventIdeaUpdated, ideaID, "", update)
}

func (c *Client) PublishMessage(ctx context.Context, message models.Message) error {
	return c.publish(ctx, models.EventNewMessage, "", message.ReceiverID, message)
}

func (c *Client) PublishNotification(ctx context.Context, notification models.Notification) error {
	return c.publish(ctx, models.EventNotification, "", notification.UserID, notification)
}

// PublishEvent publishes a prebuilt event.
func (c *Client) PublishEvent(ctx context.Context, event models.Event) error {
	if err := event.Validate(); err != nil {
		return err
	}
	payload, err := json.Marshal(event)
	if err != nil {
		c.log.Error("[REDIS] Failed to marshal event", "type", event.Type, "error", err)
		return err
	}

	channel := channelFor(c.prefix, event)
	if err := c.pub.Publish(ctx, channel, payload).Err(); err != nil {
		c.log.Error("[REDIS] Failed to publish event", "type", event.Type, "channel", channel, "error", err)
		return err
	}
	c.log.Debug("[REDIS] Published event", "type", event.Type, "channel", channel)
	return nil
}

func (c *Client) publish(ctx context.Context, eventType, ideaID, userID string, data interface{}) error {
	event, err := models.NewEvent(eventType, data)
	if err != nil {
		return err
	}
	event.IdeaID = ideaID
	event.UserID = userID
	return c.PublishEvent(ctx, event)
}

// channelFor names the Redis channel an event travels on, e.g. "spark:idea:42"
// or "spark:user:u1". Idea events go by idea, everything else by recipient.
func channelFor(prefix string, event models.Event) string {
	switch event.Type {
	case models.EventCommentAdded, models.EventIdeaUpdated:
		return prefix + "idea:" + event.IdeaID
	default:
		return prefix + "user:" + event.UserID
	}
}

// timestampAge is how old an event is, for lag logging.
func timestampAge(event models.Event, now time.Time) time.Duration {
	if event.Timestamp == 0 {
		return 0
	}
	return now.Sub(time.Unix(event.Timestamp, 0))
}
