package presence

import (
	"errors"
	"strings"
	"sync"
)

// ErrExhibitionLimit is returned when a connection tries to join more
// exhibition rooms than allowed.
var ErrExhibitionLimit = errors.New("exhibition room limit reached")

// Room key namespaces.
const (
	userPrefix       = "user:"
	rolePrefix       = "role:"
	exhibitionPrefix = "exhibition:"
)

// UserRoom is the room holding every connection of userID.
func UserRoom(userID string) string { return userPrefix + userID }

// RoleRoom is the room holding every authenticated connection of a role.
func RoleRoom(role string) string { return rolePrefix + role }

// ExhibitionRoom is the room of viewers currently looking at an exhibition.
func ExhibitionRoom(exhibitionID string) string { return exhibitionPrefix + exhibitionID }

// IsExhibitionRoom reports whether key is in the client-controlled exhibition namespace.
func IsExhibitionRoom(key string) bool {
	return strings.HasPrefix(key, exhibitionPrefix)
}

// Rooms tracks which live connections belong to which broadcast rooms.
// Membership is derived state: PurgeConnection drops every trace of a connection.
type Rooms struct {
	maxExhibitions int // per connection, 0 means unbounded

	mu      sync.RWMutex
	members map[string]map[string]struct{} // room -> connIDs
	joined  map[string]map[string]struct{} // connID -> rooms
}

// NewRooms returns an empty membership table.
func NewRooms() *Rooms {
	return &Rooms{
		members: make(map[string]map[string]struct{}),
		joined:  make(map[string]map[string]struct{}),
	}
}

// JoinUser puts connID in the user:<userID> room.
func (m *Rooms) JoinUser(connID, userID string) {
	m.join(connID, UserRoom(userID))
}

// JoinRole puts connID in the role:<role> room.
func (m *Rooms) JoinRole(connID, role string) {
	m.join(connID, RoleRoom(role))
}

// SetExhibitionLimit caps how many exhibition rooms one connection may hold.
// Zero or less removes the cap.
func (m *Rooms) SetExhibitionLimit(n int) {
	m.mu.Lock()
	m.maxExhibitions = max(n, 0)
	m.mu.Unlock()
}

// JoinExhibition puts connID in the exhibition:<id> room. Joining twice is a
// no-op. A connection already at the limit gets ErrExhibitionLimit.
func (m *Rooms) JoinExhibition(connID, exhibitionID string) error {
	if connID == "" {
		return nil
	}
	room := ExhibitionRoom(exhibitionID)

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.joined[connID][room]; ok {
		return nil
	}
	if m.maxExhibitions > 0 {
		n := 0
		for r := range m.joined[connID] {
			if IsExhibitionRoom(r) {
				n++
			}
		}
		if n >= m.maxExhibitions {
			return ErrExhibitionLimit
		}
	}
	m.joinLocked(connID, room)
	return nil
}

// LeaveExhibition removes connID from the exhibition:<id> room. Leaving a room
// the connection is not in is a no-op.
func (m *Rooms) LeaveExhibition(connID, exhibitionID string) {
	m.leave(connID, ExhibitionRoom(exhibitionID))
}

func (m *Rooms) join(connID, room string) {
	if connID == "" {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.joinLocked(connID, room)
}

func (m *Rooms) joinLocked(connID, room string) {
	set, ok := m.members[room]
	if !ok {
		set = make(map[string]struct{})
		m.members[room] = set
	}
	set[connID] = struct{}{}

	rooms, ok := m.joined[connID]
	if !ok {
		rooms = make(map[string]struct{})
		m.joined[connID] = rooms
	}
	rooms[room] = struct{}{}
}

func (m *Rooms) leave(connID, room string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.leaveLocked(connID, room)
}

func (m *Rooms) leaveLocked(connID, room string) {
	if set, ok := m.members[room]; ok {
		delete(set, connID)
		if len(set) == 0 {
			delete(m.members, room)
		}
	}
	if rooms, ok := m.joined[connID]; ok {
		delete(rooms, room)
		if len(rooms) == 0 {
			delete(m.joined, connID)
		}
	}
}

// MembersOf returns a snapshot of the connections currently in room.
// The slice is owned by the caller and is not updated by later joins or leaves.
func (m *Rooms) MembersOf(room string) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	set := m.members[room]
	out := make([]string, 0, len(set))
	for c := range set {
		out = append(out, c)
	}
	return out
}

// RoomsOf returns a snapshot of the rooms connID belongs to.
func (m *Rooms) RoomsOf(connID string) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rooms := m.joined[connID]
	out := make([]string, 0, len(rooms))
	for r := range rooms {
		out = append(out, r)
	}
	return out
}

// PurgeConnection removes connID from every room it belongs to.
// Safe for connections that never joined anything.
func (m *Rooms) PurgeConnection(connID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for room := range m.joined[connID] {
		m.leaveLocked(connID, room)
	}
}

// Count returns the number of non-empty rooms.
func (m *Rooms) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.members)
}
