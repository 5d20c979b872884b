package ws

import (
	"log/slog"

	"spark-ws/internal/metrics"
	"spark-ws/internal/models"

	"github.com/goccy/go-json"
)

// Dispatcher delivers events to live connections.
//
// Delivery is best-effort and at-most-once: recipients that are offline or
// whose connection closed are skipped, nothing is queued or retried. A
// connection whose send buffer is full is handed to evict.
type Dispatcher struct {
	registry *Registry
	rooms    *Rooms
	log      *slog.Logger
	evict    func(id string)
}

func NewDispatcher(registry *Registry, rooms *Rooms, log *slog.Logger, evict func(id string)) *Dispatcher {
	if evict == nil {
		evict = func(string) {}
	}
	return &Dispatcher{registry: registry, rooms: rooms, log: log, evict: evict}
}

// SendCommentToIdea emits comment-added to viewers of the idea.
func (d *Dispatcher) SendCommentToIdea(ideaID string, comment interface{}) int {
	return d.SendToRoom(IdeaRoom(ideaID), models.EventCommentAdded, comment)
}

// SendIdeaUpdate emits idea-updated to viewers of the idea.
func (d *Dispatcher) SendIdeaUpdate(ideaID string, update interface{}) int {
	return d.SendToRoom(IdeaRoom(ideaID), models.EventIdeaUpdated, update)
}

// SendMessageToUser emits new-message to every connection of the receiver.
func (d *Dispatcher) SendMessageToUser(userID string, message interface{}) int {
	return d.SendToUser(userID, models.EventNewMessage, message)
}

// SendNotificationToUser emits notification to every connection of the user.
func (d *Dispatcher) SendNotificationToUser(userID string, notification interface{}) int {
	return d.SendToUser(userID, models.EventNotification, notification)
}

func (d *Dispatcher) SendToRoom(room, event string, payload interface{}) int {
	return d.emit(d.rooms.Members(room), event, payload)
}

func (d *Dispatcher) SendToUser(userID, event string, payload interface{}) int {
	return d.emit(d.registry.SocketsFor(userID), event, payload)
}

// Dispatch routes a domain event to the matching send operation.
func (d *Dispatcher) Dispatch(evt models.Event) int {
	switch evt.Type {
	case models.EventCommentAdded:
		return d.SendCommentToIdea(evt.IdeaID, evt.Data)
	case models.EventIdeaUpdated:
		return d.SendIdeaUpdate(evt.IdeaID, evt.Data)
	case models.EventNewMessage:
		return d.SendMessageToUser(evt.UserID, evt.Data)
	case models.EventNotification:
		return d.SendNotificationToUser(evt.UserID, evt.Data)
	default:
		d.log.Warn("[DISPATCH] Unknown event type", "type", evt.Type)
		return 0
	}
}

func (d *Dispatcher) emit(ids []string, event string, payload interface{}) int {
	metrics.EventsDispatched.WithLabelValues(event).Inc()
	if len(ids) == 0 {
		d.log.Debug("[DISPATCH] No recipients", "event", event)
		return 0
	}

	frame, err := encodeFrame(event, payload)
	if err != nil {
		d.log.Error("[DISPATCH] Failed to encode payload", "event", event, "error", err)
		return 0
	}

	sent := 0
	var slow []string
	for _, id := range ids {
		conn, ok := d.registry.Lookup(id)
		if !ok {
			metrics.Drops.WithLabelValues("stale").Inc()
			continue
		}
		if !conn.Send(frame) {
			metrics.Drops.WithLabelValues("slow_client").Inc()
			slow = append(slow, id)
			continue
		}
		sent++
	}
	metrics.Deliveries.WithLabelValues(event).Add(float64(sent))

	for _, id := range slow {
		d.log.Warn("[DISPATCH] Client buffer full, disconnecting", "conn", id, "user", d.registry.UserOf(id))
		d.evict(id)
	}

	d.log.Debug("[DISPATCH] Broadcast complete", "event", event, "sent", sent, "failed", len(ids)-sent)
	return sent
}

func encodeFrame(event string, payload interface{}) ([]byte, error) {
	return json.Marshal(models.Envelope{Type: event, Data: payload})
}
