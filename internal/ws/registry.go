package ws

import (
	"sort"
	"sync"
)

// Conn is a single live transport session as the registry sees it: an
// opaque connection ID, the user identity fixed at handshake time, and a
// best-effort outbound delivery method. *Client implements it over a
// gorilla websocket; tests implement it with an in-memory sink.
type Conn interface {
	ID() string
	UserID() int64
	UserEmail() string

	// Send queues an envelope for delivery. Best-effort: delivery to a
	// connection that is closing may be dropped, and a full outbound
	// buffer drops the connection rather than blocking the caller.
	Send(env Envelope)
}

// Registry tracks live connections and their room memberships. It is the
// only shared mutable state in the realtime subsystem and is mutated
// exclusively through its methods, under one RWMutex.
//
// The registry does no authorization: callers decide who may join which
// room. It is constructed and injected, never a package global, so tests
// get isolated instances.
type Registry struct {
	mu     sync.RWMutex
	conns  map[string]Conn
	rooms  map[RoomID]map[string]struct{}
	joined map[string]map[RoomID]struct{}
}

func NewRegistry() *Registry {
	return &Registry{
		conns:  make(map[string]Conn),
		rooms:  make(map[RoomID]map[string]struct{}),
		joined: make(map[string]map[RoomID]struct{}),
	}
}

// Register records a connection and immediately enrolls it in its own user
// room. Idempotent per connection ID; re-registering the same ID is a
// no-op and two distinct IDs are never merged, even for the same user.
func (r *Registry) Register(c Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.conns[c.ID()]; exists {
		return
	}
	r.conns[c.ID()] = c
	r.joined[c.ID()] = make(map[RoomID]struct{})
	r.joinLocked(c.ID(), UserRoom(c.UserID()))
}

// Has reports whether a connection is still registered. Callers that
// suspend on an external query (membership resolution) must re-validate
// with Has before applying the result: the connection may have closed
// while the query was in flight.
func (r *Registry) Has(connID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.conns[connID]
	return ok
}

// JoinRoom adds the connection to a room. No-op if already joined or if
// the connection is unknown (it may have raced a disconnect).
func (r *Registry) JoinRoom(connID string, room RoomID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.conns[connID]; !ok {
		return
	}
	r.joinLocked(connID, room)
}

func (r *Registry) joinLocked(connID string, room RoomID) {
	if r.rooms[room] == nil {
		r.rooms[room] = make(map[string]struct{})
	}
	r.rooms[room][connID] = struct{}{}
	r.joined[connID][room] = struct{}{}
}

// LeaveRoom removes the connection from a room. No error if it was not a
// member.
func (r *Registry) LeaveRoom(connID string, room RoomID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.leaveLocked(connID, room)
}

func (r *Registry) leaveLocked(connID string, room RoomID) {
	if members, ok := r.rooms[room]; ok {
		delete(members, connID)
		if len(members) == 0 {
			delete(r.rooms, room)
		}
	}
	if rooms, ok := r.joined[connID]; ok {
		delete(rooms, room)
	}
}

// InRoom reports whether the connection currently belongs to the room.
func (r *Registry) InRoom(connID string, room RoomID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.joined[connID][room]
	return ok
}

// Unregister discards all state for a connection and returns the project
// rooms it was in, so the caller can notify the remaining occupants.
// Unknown connection IDs return nil.
func (r *Registry) Unregister(connID string) []RoomID {
	r.mu.Lock()
	defer r.mu.Unlock()

	rooms, ok := r.joined[connID]
	if !ok {
		return nil
	}

	projectRooms := make([]RoomID, 0, len(rooms))
	for room := range rooms {
		if _, isProject := room.ProjectID(); isProject {
			projectRooms = append(projectRooms, room)
		}
	}
	// Deterministic notification order across rooms.
	sort.Slice(projectRooms, func(i, j int) bool { return projectRooms[i] < projectRooms[j] })

	for room := range rooms {
		if members, ok := r.rooms[room]; ok {
			delete(members, connID)
			if len(members) == 0 {
				delete(r.rooms, room)
			}
		}
	}
	delete(r.joined, connID)
	delete(r.conns, connID)

	return projectRooms
}

// ListPresence returns the de-duplicated users with at least one live
// connection in the room, each annotated with its connection count.
// An empty or unknown room yields an empty slice.
func (r *Registry) ListPresence(room RoomID) []ConnectedUser {
	r.mu.RLock()
	defer r.mu.RUnlock()

	byUser := make(map[int64]*ConnectedUser)
	order := make([]int64, 0)
	for connID := range r.rooms[room] {
		c, ok := r.conns[connID]
		if !ok {
			continue
		}
		if entry, seen := byUser[c.UserID()]; seen {
			entry.ConnectionCount++
			continue
		}
		byUser[c.UserID()] = &ConnectedUser{
			UserID:          c.UserID(),
			UserEmail:       c.UserEmail(),
			ConnectionCount: 1,
		}
		order = append(order, c.UserID())
	}

	sort.Slice(order, func(i, j int) bool { return order[i] < order[j] })
	users := make([]ConnectedUser, 0, len(order))
	for _, uid := range order {
		users = append(users, *byUser[uid])
	}
	return users
}

// Broadcast delivers an envelope to every connection in the room, skipping
// exceptConnID (empty means no exclusion). Delivery order within the room
// follows the broadcast call order; connections in both a project room and
// a user room targeted by the same logical event may receive it twice.
func (r *Registry) Broadcast(room RoomID, env Envelope, exceptConnID string) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for connID := range r.rooms[room] {
		if connID == exceptConnID {
			continue
		}
		if c, ok := r.conns[connID]; ok {
			c.Send(env)
		}
	}
}

// ConnectionCount returns the number of registered connections.
func (r *Registry) ConnectionCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}
