package ws

import (
	"spark-ws/internal/metrics"
	"spark-ws/internal/models"
)

// handle applies one client frame. Runs on the hub goroutine.
func (h *Hub) handle(in inbound) {
	id := in.conn.ID()
	if _, ok := h.registry.Lookup(id); !ok {
		// closed between read and handling
		return
	}
	if in.err != nil {
		h.log.Warn("[CLIENT] Error unmarshaling message", "conn", id, "error", in.err)
		h.reply(in.conn, models.EventError, models.ErrorData{Message: "malformed message"})
		return
	}

	switch in.msg.Type {
	case models.EventAuthenticate:
		h.authenticate(in.conn, in.msg)

	case models.EventJoinIdea:
		var data models.IdeaData
		if h.decode(in.conn, in.msg, &data) {
			h.rooms.Join(id, IdeaRoom(data.IdeaID))
			h.reply(in.conn, models.EventJoinedIdea, data)
		}

	case models.EventLeaveIdea:
		var data models.IdeaData
		if h.decode(in.conn, in.msg, &data) {
			h.rooms.Leave(id, IdeaRoom(data.IdeaID))
			h.reply(in.conn, models.EventLeftIdea, data)
		}

	case models.EventJoinConversation:
		var data models.ConversationData
		if h.decode(in.conn, in.msg, &data) {
			h.rooms.Join(id, ConversationRoom(data.ConversationID))
			h.reply(in.conn, models.EventJoinedConversation, data)
		}

	case models.EventLeaveConversation:
		var data models.ConversationData
		if h.decode(in.conn, in.msg, &data) {
			h.rooms.Leave(id, ConversationRoom(data.ConversationID))
			h.reply(in.conn, models.EventLeftConversation, data)
		}

	default:
		h.log.Warn("[CLIENT] Unknown event type", "type", in.msg.Type, "conn", id, "user", h.registry.UserOf(id))
		h.reply(in.conn, models.EventError, models.ErrorData{Message: "unknown event: " + in.msg.Type})
	}
}

func (h *Hub) authenticate(conn Conn, msg models.Inbound) {
	id := conn.ID()
	var data models.AuthenticateData
	if !h.decode(conn, msg, &data) {
		return
	}

	userID, err := h.binder.Bind(data.UserID, data.Token)
	if err != nil {
		metrics.AuthAttempts.WithLabelValues("rejected").Inc()
		h.log.Warn("[CLIENT] Authentication rejected", "conn", id, "claimed", data.UserID, "error", err)
		h.reply(conn, models.EventAuthenticated, models.AuthenticatedData{Success: false, Error: "authentication failed"})
		return
	}

	previous, _ := h.registry.Authenticate(id, userID)
	metrics.AuthAttempts.WithLabelValues("ok").Inc()
	h.updateGauges()
	if previous != "" && previous != userID {
		h.log.Info("[CLIENT] Connection rebound", "conn", id, "from", previous, "to", userID)
	} else {
		h.log.Info("[CLIENT] User authenticated", "conn", id, "user", userID)
	}
	h.reply(conn, models.EventAuthenticated, models.AuthenticatedData{Success: true, UserID: userID})
}

func (h *Hub) decode(conn Conn, msg models.Inbound, v interface{}) bool {
	if err := msg.Decode(v); err != nil {
		h.log.Warn("[CLIENT] Invalid payload", "type", msg.Type, "conn", conn.ID(), "error", err)
		h.reply(conn, models.EventError, models.ErrorData{Message: "invalid " + msg.Type + " payload"})
		return false
	}
	return true
}

func (h *Hub) reply(conn Conn, event string, payload interface{}) {
	frame, err := encodeFrame(event, payload)
	if err != nil {
		h.log.Error("[CLIENT] Failed to encode reply", "event", event, "error", err)
		return
	}
	if !conn.Send(frame) {
		metrics.Drops.WithLabelValues("slow_client").Inc()
		h.disconnect(conn.ID())
	}
}
