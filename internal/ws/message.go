package ws

import (
	"log/slog"
	"net/http"

	"spark-ws/internal/auth"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/samber/lo"
)

// Handler upgrades HTTP requests to websocket clients of a hub.
type Handler struct {
	hub        *Hub
	verifier   *auth.Verifier
	sendBuffer int
	upgrader   websocket.Upgrader
	log        *slog.Logger
}

// NewHandler returns a websocket endpoint. verifier may be nil, in which case
// handshake tokens are ignored and clients authenticate with a frame. An
// empty allowedOrigins accepts any origin.
func NewHandler(hub *Hub, verifier *auth.Verifier, sendBuffer int, allowedOrigins []string, log *slog.Logger) *Handler {
	return &Handler{
		hub:        hub,
		verifier:   verifier,
		sendBuffer: sendBuffer,
		log:        log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return len(allowedOrigins) == 0 || origin == "" || lo.Contains(allowedOrigins, origin)
			},
		},
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	remoteAddr := r.RemoteAddr
	h.log.Debug("[WS] New WebSocket connection request", "from", remoteAddr)

	// A token on the handshake binds the connection up front.
	var userID string
	if token := auth.ExtractTokenFromRequest(r); token != "" && h.verifier != nil {
		subject, err := h.verifier.Verify(token)
		if err != nil {
			h.log.Warn("[WS] Token validation failed", "from", remoteAddr, "error", err)
			http.Error(w, "Unauthorized: invalid token", http.StatusUnauthorized)
			return
		}
		userID = subject
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Error("[WS] Failed to upgrade connection", "from", remoteAddr, "error", err)
		return
	}

	client := newClient(h.hub, conn, uuid.NewString(), h.sendBuffer)
	if err := h.hub.Register(r.Context(), client, userID); err != nil {
		h.log.Warn("[WS] Hub refused connection", "conn", client.id, "error", err)
		conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
		conn.Close()
		return
	}

	h.log.Info("[WS] Connection upgraded successfully", "conn", client.id, "user", userID, "from", remoteAddr)

	go client.WritePump()
	go client.ReadPump()
}
