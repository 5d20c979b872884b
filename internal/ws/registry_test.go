package ws

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRegistry_Connect(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	conn := newFakeConn("c1")

	req.True(registry.Connect(conn))
	req.False(registry.Connect(conn), "duplicate id must be refused")

	got, ok := registry.Lookup("c1")
	req.True(ok)
	req.Equal(conn, got)
	req.Empty(registry.UserOf("c1"))
	req.Equal(1, registry.Len())
	req.Equal(0, registry.Users())
}

func TestRegistry_Disconnect_RemovesUserBinding(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	registry.Connect(newFakeConn("c1"))
	registry.Connect(newFakeConn("c2"))
	registry.Authenticate("c1", "u1")
	registry.Authenticate("c2", "u1")

	// When one of two tabs closes
	_, ok := registry.Disconnect("c1")

	// Then only the other remains indexed
	req.True(ok)
	req.Equal([]string{"c2"}, registry.SocketsFor("u1"))

	// When the last tab closes, the user entry is pruned
	registry.Disconnect("c2")
	req.Empty(registry.SocketsFor("u1"))
	req.NotNil(registry.SocketsFor("u1"))
	req.Empty(registry.users)
	req.Empty(registry.conns)
}

func TestRegistry_Disconnect_Unauthenticated(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	registry.Connect(newFakeConn("c1"))

	_, ok := registry.Disconnect("c1")
	req.True(ok)
	req.Empty(registry.users)
}

func TestRegistry_Disconnect_Twice(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	registry.Connect(newFakeConn("c1"))
	registry.Authenticate("c1", "u1")

	_, ok := registry.Disconnect("c1")
	req.True(ok)
	_, ok = registry.Disconnect("c1")
	req.False(ok)
	_, ok = registry.Disconnect("never-seen")
	req.False(ok)
}

func TestRegistry_SocketsFor_UnknownUser(t *testing.T) {
	sockets := NewRegistry().SocketsFor("nobody")
	require.NotNil(t, sockets)
	require.Empty(t, sockets)
}

func TestRegistry_Authenticate_Rebind(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	registry.Connect(newFakeConn("c1"))

	previous, ok := registry.Authenticate("c1", "u1")
	req.True(ok)
	req.Empty(previous)

	// When the same connection authenticates as another user
	previous, ok = registry.Authenticate("c1", "u2")

	// Then it is indexed under the new user only
	req.True(ok)
	req.Equal("u1", previous)
	req.Empty(registry.SocketsFor("u1"))
	req.Equal([]string{"c1"}, registry.SocketsFor("u2"))
	req.Equal("u2", registry.UserOf("c1"))
	req.NotContains(registry.users, "u1")

	// And disconnecting releases the new binding
	registry.Disconnect("c1")
	req.Empty(registry.SocketsFor("u2"))
	req.Empty(registry.users)
}

func TestRegistry_Authenticate_SameUserIsIdempotent(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	registry.Connect(newFakeConn("c1"))

	registry.Authenticate("c1", "u1")
	registry.Authenticate("c1", "u1")

	req.Equal([]string{"c1"}, registry.SocketsFor("u1"))
	req.Equal(1, registry.Users())
}

func TestRegistry_Authenticate_UnknownConnection(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()

	_, ok := registry.Authenticate("ghost", "u1")

	req.False(ok)
	req.Empty(registry.SocketsFor("u1"))
	req.Empty(registry.users)
}

func TestRegistry_IndexOnlyReferencesLiveConnections(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	ids := []string{"a", "b", "c", "d"}
	for _, id := range ids {
		registry.Connect(newFakeConn(id))
	}
	registry.Authenticate("a", "u1")
	registry.Authenticate("b", "u1")
	registry.Authenticate("c", "u2")
	registry.Authenticate("b", "u2")
	registry.Disconnect("a")
	registry.Authenticate("d", "u3")
	registry.Disconnect("d")

	for userID, sockets := range registry.users {
		req.NotEmpty(sockets, "empty set for %s", userID)
		for id := range sockets {
			_, ok := registry.Lookup(id)
			req.True(ok, "%s indexed under %s but not registered", id, userID)
			req.Equal(userID, registry.UserOf(id))
		}
	}
	req.ElementsMatch([]string{"b", "c"}, registry.SocketsFor("u2"))
	req.Empty(registry.SocketsFor("u1"))
	req.Empty(registry.SocketsFor("u3"))
}
