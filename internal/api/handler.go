package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"spark-ws/internal/metrics"
	"spark-ws/internal/models"
	"spark-ws/internal/ws"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
)

const maxEventBody = 64 * 1024

// Gateway is the part of the hub the HTTP API uses.
type Gateway interface {
	Publish(ctx context.Context, event models.Event) error
	Presence(ctx context.Context, userID string) (int, error)
	Stats(ctx context.Context) (conns, users, rooms int, err error)
}

type Handler struct {
	hub Gateway
	log *slog.Logger
}

func NewHandler(hub Gateway, log *slog.Logger) *Handler {
	return &Handler{hub: hub, log: log}
}

// JSON sends a JSON response with the given status code.
func (h *Handler) JSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error("[API] Failed to encode response", "error", err)
	}
}

// Error sends a JSON error response with the given status code.
func (h *Handler) Error(w http.ResponseWriter, status int, message string) {
	h.JSON(w, status, map[string]string{"error": message})
}

type HealthResponse struct {
	Status      string `json:"status"`
	Connections int    `json:"connections"`
	Users       int    `json:"users"`
	Rooms       int    `json:"rooms"`
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	conns, users, rooms, err := h.hub.Stats(r.Context())
	if err != nil {
		h.JSON(w, http.StatusServiceUnavailable, HealthResponse{Status: "stopping"})
		return
	}
	h.JSON(w, http.StatusOK, HealthResponse{Status: "ok", Connections: conns, Users: users, Rooms: rooms})
}

type PresenceResponse struct {
	UserID      string `json:"userId"`
	Online      bool   `json:"online"`
	Connections int    `json:"connections"`
}

func (h *Handler) Presence(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")
	n, err := h.hub.Presence(r.Context(), userID)
	if err != nil {
		h.Error(w, http.StatusServiceUnavailable, "gateway unavailable")
		return
	}
	h.JSON(w, http.StatusOK, PresenceResponse{UserID: userID, Online: n > 0, Connections: n})
}

// PublishEvent accepts a broadcast request from a domain service.
func (h *Handler) PublishEvent(w http.ResponseWriter, r *http.Request) {
	var event models.Event
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxEventBody)).Decode(&event); err != nil {
		metrics.IngressEvents.WithLabelValues("http", "malformed").Inc()
		h.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if event.Timestamp == 0 {
		event.Timestamp = time.Now().Unix()
	}

	if err := h.hub.Publish(r.Context(), event); err != nil {
		switch {
		case errors.Is(err, ws.ErrHubStopped):
			metrics.IngressEvents.WithLabelValues("http", "unavailable").Inc()
			h.Error(w, http.StatusServiceUnavailable, "gateway unavailable")
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			metrics.IngressEvents.WithLabelValues("http", "unavailable").Inc()
			h.Error(w, http.StatusServiceUnavailable, "request cancelled")
		default:
			metrics.IngressEvents.WithLabelValues("http", "rejected").Inc()
			h.Error(w, http.StatusBadRequest, err.Error())
		}
		return
	}

	metrics.IngressEvents.WithLabelValues("http", "ok").Inc()
	h.JSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}
