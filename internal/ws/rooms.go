package ws

import "github.com/samber/lo"

// IdeaRoom is the room joined by viewers of an idea page.
func IdeaRoom(ideaID string) string { return "idea-" + ideaID }

// ConversationRoom is the room joined by participants of a conversation.
func ConversationRoom(conversationID string) string { return "conversation-" + conversationID }

// Rooms holds named broadcast groups. A room exists while it has at least one
// member. Like Registry it belongs to the hub goroutine.
type Rooms struct {
	// room -> connection ids
	members map[string]map[string]struct{}
	// connection id -> rooms
	joined map[string]map[string]struct{}
}

func NewRooms() *Rooms {
	return &Rooms{
		members: make(map[string]map[string]struct{}),
		joined:  make(map[string]map[string]struct{}),
	}
}

// Join adds the connection to room. It returns false if it was already a member.
func (r *Rooms) Join(id, room string) bool {
	if !add(r.members, room, id) {
		return false
	}
	add(r.joined, id, room)
	return true
}

// Leave removes the connection from room. It returns false if it was not a member.
func (r *Rooms) Leave(id, room string) bool {
	if !remove(r.members, room, id) {
		return false
	}
	remove(r.joined, id, room)
	return true
}

// LeaveAll removes the connection from every room and returns the rooms it left.
func (r *Rooms) LeaveAll(id string) []string {
	rooms := lo.Keys(r.joined[id])
	for _, room := range rooms {
		remove(r.members, room, id)
	}
	delete(r.joined, id)
	return rooms
}

// Members returns a snapshot of the connection ids in room.
func (r *Rooms) Members(room string) []string {
	return lo.Keys(r.members[room])
}

func (r *Rooms) RoomsOf(id string) []string {
	return lo.Keys(r.joined[id])
}

// Len is the number of non-empty rooms.
func (r *Rooms) Len() int { return len(r.members) }

func add(index map[string]map[string]struct{}, key, value string) bool {
	set, ok := index[key]
	if !ok {
		set = make(map[string]struct{})
		index[key] = set
	}
	if _, exists := set[value]; exists {
		return false
	}
	set[value] = struct{}{}
	return true
}

func remove(index map[string]map[string]struct{}, key, value string) bool {
	set, ok := index[key]
	if !ok {
		return false
	}
	if _, exists := set[value]; !exists {
		return false
	}
	delete(set, value)
	if len(set) == 0 {
		delete(index, key)
	}
	return true
}
