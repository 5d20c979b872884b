package ws

import (
	"context"
	"errors"
	"log/slog"

	"spark-ws/internal/auth"
	"spark-ws/internal/metrics"
	"spark-ws/internal/models"
)

var ErrHubStopped = errors.New("hub stopped")

type registration struct {
	conn   Conn
	userID string
}

type inbound struct {
	conn Conn
	msg  models.Inbound
	err  error
}

// Hub owns the connection registry, rooms and dispatcher. All of their state
// is touched only from the Run goroutine; everything else talks to the hub
// over channels.
type Hub struct {
	registry   *Registry
	rooms      *Rooms
	dispatcher *Dispatcher
	binder     auth.Binder
	log        *slog.Logger

	register   chan registration
	unregister chan string
	inbound    chan inbound
	broadcast  chan models.Event
	calls      chan func()

	done chan struct{}
}

func NewHub(binder auth.Binder, log *slog.Logger) *Hub {
	h := &Hub{
		registry:   NewRegistry(),
		rooms:      NewRooms(),
		binder:     binder,
		log:        log,
		register:   make(chan registration),
		unregister: make(chan string),
		inbound:    make(chan inbound),
		broadcast:  make(chan models.Event),
		calls:      make(chan func()),
		done:       make(chan struct{}),
	}
	h.dispatcher = NewDispatcher(h.registry, h.rooms, log, h.disconnect)
	return h
}

// Run processes hub requests until ctx is done, then closes every client.
func (h *Hub) Run(ctx context.Context) {
	h.log.Info("[HUB] Starting hub event loop")
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			h.shutdown()
			return

		case reg := <-h.register:
			h.connect(reg)

		case id := <-h.unregister:
			h.disconnect(id)

		case in := <-h.inbound:
			h.handle(in)

		case evt := <-h.broadcast:
			h.log.Debug("[HUB] Received broadcast", "type", evt.Type, "idea", evt.IdeaID, "user", evt.UserID, "size", len(evt.Data))
			h.dispatcher.Dispatch(evt)

		case fn := <-h.calls:
			fn()
		}
	}
}

// Register adds conn to the hub, bound to userID when it is not empty.
func (h *Hub) Register(ctx context.Context, conn Conn, userID string) error {
	return send(ctx, h, h.register, registration{conn: conn, userID: userID})
}

// Unregister removes the connection. It is safe to call more than once and
// after the hub has stopped.
func (h *Hub) Unregister(id string) {
	select {
	case h.unregister <- id:
	case <-h.done:
	}
}

// Publish hands a validated domain event to the dispatcher.
func (h *Hub) Publish(ctx context.Context, evt models.Event) error {
	if err := evt.Validate(); err != nil {
		return err
	}
	return send(ctx, h, h.broadcast, evt)
}

// Do runs fn on the hub goroutine with the dispatcher, for in-process callers
// that broadcast after a successful write. fn must not call back into the
// Hub: Publish, Presence, Stats, Register and Do all wait on the goroutine
// fn is running on and would deadlock.
func (h *Hub) Do(ctx context.Context, fn func(d *Dispatcher)) error {
	return h.call(ctx, func() { fn(h.dispatcher) })
}

// Presence reports how many live connections are bound to userID.
func (h *Hub) Presence(ctx context.Context, userID string) (int, error) {
	var n int
	err := h.call(ctx, func() { n = len(h.registry.SocketsFor(userID)) })
	return n, err
}

// Stats reports open connections, online users and non-empty rooms.
func (h *Hub) Stats(ctx context.Context) (conns, users, rooms int, err error) {
	err = h.call(ctx, func() {
		conns, users, rooms = h.registry.Len(), h.registry.Users(), h.rooms.Len()
	})
	return conns, users, rooms, err
}

// Done is closed once Run has returned.
func (h *Hub) Done() <-chan struct{} { return h.done }

func (h *Hub) receive(in inbound) {
	select {
	case h.inbound <- in:
	case <-h.done:
	}
}

func (h *Hub) call(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	if err := send(ctx, h, h.calls, func() { fn(); close(finished) }); err != nil {
		return err
	}
	select {
	case <-finished:
		return nil
	case <-h.done:
		return ErrHubStopped
	}
}

func send[T any](ctx context.Context, h *Hub, ch chan<- T, v T) error {
	select {
	case ch <- v:
		return nil
	case <-h.done:
		return ErrHubStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *Hub) connect(reg registration) {
	id := reg.conn.ID()
	if !h.registry.Connect(reg.conn) {
		h.log.Warn("[HUB] Connection already registered", "conn", id)
		return
	}
	if reg.userID != "" {
		h.registry.Authenticate(id, reg.userID)
	}
	h.updateGauges()
	h.log.Info("[HUB] Client registered", "conn", id, "user", reg.userID, "connections", h.registry.Len())
}

// disconnect releases every room and the user binding of id, then closes the
// connection. Unknown ids are ignored.
func (h *Hub) disconnect(id string) {
	rooms := h.rooms.LeaveAll(id)
	conn, ok := h.registry.Disconnect(id)
	if !ok {
		return
	}
	conn.Close()
	h.updateGauges()
	h.log.Info("[HUB] Client unregistered", "conn", id, "rooms", len(rooms), "connections", h.registry.Len())
}

func (h *Hub) shutdown() {
	conns := h.registry.Conns()
	h.log.Info("[HUB] Stopping hub, closing clients", "connections", len(conns))
	for _, conn := range conns {
		h.disconnect(conn.ID())
	}
}

func (h *Hub) updateGauges() {
	metrics.ConnectionsActive.Set(float64(h.registry.Len()))
	metrics.UsersOnline.Set(float64(h.registry.Users()))
}
