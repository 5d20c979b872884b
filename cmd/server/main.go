package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"spark-ws/internal/api"
	"spark-ws/internal/auth"
	"spark-ws/internal/config"
	"spark-ws/internal/redis"
	"spark-ws/internal/ws"

	"github.com/samber/lo"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := cfg.Logger()
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	verifier, binder := newAuth(cfg, log)

	// The hub outlives the request context so in-flight sockets close after
	// the HTTP server stops accepting.
	hubCtx, stopHub := context.WithCancel(context.Background())
	defer stopHub()
	hub := ws.NewHub(binder, log)
	go hub.Run(hubCtx)

	errChan := make(chan error, 2)

	if cfg.RedisURL != "" {
		redisClient, err := redis.NewClient(ctx, cfg.RedisURL, cfg.RedisChannelPrefix, log)
		if err != nil {
			return err
		}
		defer redisClient.Close()

		go func() {
			if err := redisClient.Subscribe(ctx, hub); err != nil {
				errChan <- fmt.Errorf("redis subscription: %w", err)
			}
		}()
	} else {
		log.Info("REDIS_URL not set, Redis ingress disabled")
	}

	origins := []string{cfg.FrontendURL}
	if !cfg.IsProduction() {
		origins = lo.Uniq(append(origins, "http://localhost:3001"))
	}

	socket := ws.NewHandler(hub, verifier, cfg.SendBuffer, origins, log)
	router := api.NewRouter(log, hub, socket, api.Options{
		AllowedOrigins: origins,
		IngestToken:    cfg.IngestToken,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("WebSocket server starting", "port", cfg.Port, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
	case err := <-errChan:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", "error", err)
	}

	stopHub()
	<-hub.Done()
	log.Info("Server stopped")
	return nil
}

// newAuth picks the socket binder. config.Load guarantees a secret whenever
// the client is not trusted.
func newAuth(cfg *config.Config, log *slog.Logger) (*auth.Verifier, auth.Binder) {
	var verifier *auth.Verifier
	if cfg.JWTSecret != "" {
		verifier = auth.NewVerifier(cfg.JWTSecret, cfg.JWTIssuer)
	}

	if cfg.TrustsClient() {
		log.Warn("Sockets are bound to client-asserted user ids", "auth_trust_client", cfg.AuthTrustClient, "jwt_secret_set", verifier != nil)
		return verifier, auth.TrustingBinder{}
	}
	return verifier, auth.TokenBinder{Verifier: verifier}
}
