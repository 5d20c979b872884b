package ws

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRoomNames(t *testing.T) {
	require.Equal(t, "idea-42", IdeaRoom("42"))
	require.Equal(t, "conversation-abc", ConversationRoom("abc"))
}

func TestRooms_JoinLeave(t *testing.T) {
	req := require.New(t)
	rooms := NewRooms()

	req.True(rooms.Join("c1", "idea-1"))
	req.False(rooms.Join("c1", "idea-1"))
	req.True(rooms.Join("c2", "idea-1"))
	req.ElementsMatch([]string{"c1", "c2"}, rooms.Members("idea-1"))
	req.Equal(1, rooms.Len())

	req.True(rooms.Leave("c1", "idea-1"))
	req.False(rooms.Leave("c1", "idea-1"))
	req.Equal([]string{"c2"}, rooms.Members("idea-1"))

	// Room disappears with its last member
	rooms.Leave("c2", "idea-1")
	req.Empty(rooms.Members("idea-1"))
	req.Equal(0, rooms.Len())
	req.Empty(rooms.joined)
}

func TestRooms_LeaveAll(t *testing.T) {
	req := require.New(t)
	rooms := NewRooms()
	rooms.Join("c1", "idea-1")
	rooms.Join("c1", "conversation-9")
	rooms.Join("c2", "idea-1")

	left := rooms.LeaveAll("c1")

	req.ElementsMatch([]string{"idea-1", "conversation-9"}, left)
	req.Empty(rooms.RoomsOf("c1"))
	req.Equal([]string{"c2"}, rooms.Members("idea-1"))
	req.Empty(rooms.Members("conversation-9"))
	req.Equal(1, rooms.Len())

	req.Empty(rooms.LeaveAll("c1"))
}

func TestRooms_UnknownRoom(t *testing.T) {
	rooms := NewRooms()
	require.Empty(t, rooms.Members("idea-404"))
	require.False(t, rooms.Leave("c1", "idea-404"))
}
