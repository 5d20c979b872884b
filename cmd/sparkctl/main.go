package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"spark-ws/internal/auth"
	"spark-ws/internal/config"
	"spark-ws/internal/models"
	"spark-ws/internal/redis"

	"github.com/goccy/go-json"
	"github.com/urfave/cli/v2"
)

var opts struct {
	LogLevel  string
	JWTSecret string
	JWTIssuer string
	RedisURL  string
	Prefix    string
}

func main() {
	if err := newApp(os.Stdout).Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

func newApp(out io.Writer) *cli.App {
	return &cli.App{
		Name:   "sparkctl",
		Usage:  "operate the Spark realtime gateway",
		Writer: out,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "log-level", Value: "warn", EnvVars: []string{"LOG_LEVEL"}, Destination: &opts.LogLevel},
		},
		Commands: []*cli.Command{
			{
				Name:  "token",
				Usage: "issue a signed access token for a user",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "user", Required: true, Usage: "user id (token subject)"},
					&cli.StringFlag{Name: "name", Usage: "display name claim"},
					&cli.DurationFlag{Name: "ttl", Value: 24 * time.Hour},
					&cli.StringFlag{Name: "secret", EnvVars: []string{"JWT_SECRET"}, Destination: &opts.JWTSecret},
					&cli.StringFlag{Name: "issuer", Value: "spark", EnvVars: []string{"JWT_ISSUER"}, Destination: &opts.JWTIssuer},
				},
				Action: tokenAction,
			},
			{
				Name:  "publish",
				Usage: "publish a broadcast event to the gateway through Redis",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "type", Required: true, Usage: "comment-added | idea-updated | new-message | notification"},
					&cli.StringFlag{Name: "idea", Usage: "idea id for idea events"},
					&cli.StringFlag{Name: "user", Usage: "user id for user events"},
					&cli.StringFlag{Name: "data", Value: "{}", Usage: "JSON payload"},
					&cli.StringFlag{Name: "redis-url", Value: "redis://localhost:6379", EnvVars: []string{"REDIS_URL"}, Destination: &opts.RedisURL},
					&cli.StringFlag{Name: "prefix", Value: "spark:", EnvVars: []string{"REDIS_CHANNEL_PREFIX"}, Destination: &opts.Prefix},
				},
				Action: publishAction,
			},
		},
	}
}

func logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: config.ParseLevel(opts.LogLevel)}))
}

func tokenAction(c *cli.Context) error {
	if opts.JWTSecret == "" {
		return errors.New("--secret or JWT_SECRET is required")
	}
	token, err := auth.NewVerifier(opts.JWTSecret, opts.JWTIssuer).Issue(c.String("user"), c.String("name"), c.Duration("ttl"))
	if err != nil {
		return fmt.Errorf("sign token: %w", err)
	}
	fmt.Fprintln(c.App.Writer, token)
	return nil
}

func buildEvent(c *cli.Context) (models.Event, error) {
	if !json.Valid([]byte(c.String("data"))) {
		return models.Event{}, errors.New("--data is not valid JSON")
	}
	event := models.Event{
		Type:      c.String("type"),
		IdeaID:    c.String("idea"),
		UserID:    c.String("user"),
		Timestamp: time.Now().Unix(),
		Data:      json.RawMessage(c.String("data")),
	}
	return event, event.Validate()
}

func publishAction(c *cli.Context) error {
	event, err := buildEvent(c)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Context, 10*time.Second)
	defer cancel()

	client, err := redis.NewClient(ctx, opts.RedisURL, opts.Prefix, logger())
	if err != nil {
		return err
	}
	defer client.Close()

	if err := client.PublishEvent(ctx, event); err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "published %s\n", event.Type)
	return nil
}
