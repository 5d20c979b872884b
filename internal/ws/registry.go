package ws

import "github.com/samber/lo"

// Conn is a live transport connection as seen by the hub. Send must not
// block; it reports false when the frame could not be queued.
type Conn interface {
	ID() string
	Send(frame []byte) bool
	Close()
}

type binding struct {
	conn   Conn
	userID string
}

// Registry tracks open connections and the user each one is bound to.
// It is owned by the hub goroutine and is not safe for concurrent use.
type Registry struct {
	conns map[string]*binding
	// userId -> set of connection ids
	users map[string]map[string]struct{}
}

func NewRegistry() *Registry {
	return &Registry{
		conns: make(map[string]*binding),
		users: make(map[string]map[string]struct{}),
	}
}

// Connect registers an unauthenticated connection. It returns false when the
// id is already registered.
func (r *Registry) Connect(conn Conn) bool {
	if _, exists := r.conns[conn.ID()]; exists {
		return false
	}
	r.conns[conn.ID()] = &binding{conn: conn}
	return true
}

// Disconnect removes the connection and its user binding. Unknown ids are a
// no-op and return ok=false.
func (r *Registry) Disconnect(id string) (conn Conn, ok bool) {
	b, exists := r.conns[id]
	if !exists {
		return nil, false
	}
	delete(r.conns, id)
	r.unbind(id, b.userID)
	return b.conn, true
}

// Authenticate binds the connection to userID, dropping any previous binding.
// It returns the previously bound user id, if any.
func (r *Registry) Authenticate(id, userID string) (previous string, ok bool) {
	b, exists := r.conns[id]
	if !exists || userID == "" {
		return "", false
	}
	previous = b.userID
	if previous == userID {
		return previous, true
	}
	r.unbind(id, previous)

	b.userID = userID
	sockets, exists := r.users[userID]
	if !exists {
		sockets = make(map[string]struct{})
		r.users[userID] = sockets
	}
	sockets[id] = struct{}{}
	return previous, true
}

func (r *Registry) unbind(id, userID string) {
	if userID == "" {
		return
	}
	sockets, ok := r.users[userID]
	if !ok {
		return
	}
	delete(sockets, id)
	if len(sockets) == 0 {
		delete(r.users, userID)
	}
}

// SocketsFor returns the ids of the connections bound to userID. The result
// is a snapshot and is empty, never nil, for unknown users.
func (r *Registry) SocketsFor(userID string) []string {
	sockets, ok := r.users[userID]
	if !ok {
		return []string{}
	}
	return lo.Keys(sockets)
}

func (r *Registry) Lookup(id string) (Conn, bool) {
	b, ok := r.conns[id]
	if !ok {
		return nil, false
	}
	return b.conn, true
}

// UserOf returns the user bound to the connection, or "" if unauthenticated.
func (r *Registry) UserOf(id string) string {
	if b, ok := r.conns[id]; ok {
		return b.userID
	}
	return ""
}

// Len is the number of open connections.
func (r *Registry) Len() int { return len(r.conns) }

// Users is the number of distinct authenticated users.
func (r *Registry) Users() int { return len(r.users) }

// Conns returns every open connection.
func (r *Registry) Conns() []Conn {
	return lo.MapToSlice(r.conns, func(_ string, b *binding) Conn { return b.conn })
}
