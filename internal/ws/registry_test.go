package ws

import (
	"sync"
	"testing"
)

type fakeConn struct {
	id    string
	uid   int64
	email string

	mu       sync.Mutex
	received []Envelope
}

func newFakeConn(id string, uid int64, email string) *fakeConn {
	return &fakeConn{id: id, uid: uid, email: email}
}

func (c *fakeConn) ID() string        { return c.id }
func (c *fakeConn) UserID() int64     { return c.uid }
func (c *fakeConn) UserEmail() string { return c.email }

func (c *fakeConn) Send(env Envelope) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.received = append(c.received, env)
}

// countEvent returns how many envelopes with the given event name the
// connection received.
func (c *fakeConn) countEvent(event string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, env := range c.received {
		if env.Event == event {
			n++
		}
	}
	return n
}

func (c *fakeConn) lastEvent(event string) (Envelope, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := len(c.received) - 1; i >= 0; i-- {
		if c.received[i].Event == event {
			return c.received[i], true
		}
	}
	return Envelope{}, false
}

func TestRegisterJoinsUserRoom(t *testing.T) {
	r := NewRegistry()
	c := newFakeConn("c1", 42, "a@example.com")

	r.Register(c)

	if !r.InRoom("c1", UserRoom(42)) {
		t.Fatal("registered connection should be in its own user room")
	}
	if r.ConnectionCount() != 1 {
		t.Fatalf("ConnectionCount = %d, want 1", r.ConnectionCount())
	}
}

func TestRegisterIdempotentPerConnectionID(t *testing.T) {
	r := NewRegistry()
	c := newFakeConn("c1", 42, "a@example.com")

	r.Register(c)
	r.JoinRoom("c1", ProjectRoom(7))
	r.Register(c) // must not reset room state

	if !r.InRoom("c1", ProjectRoom(7)) {
		t.Fatal("re-registering the same ID should not discard room memberships")
	}
}

func TestJoinRoomUnknownConnectionIsNoOp(t *testing.T) {
	r := NewRegistry()

	r.JoinRoom("ghost", ProjectRoom(7))

	if got := r.ListPresence(ProjectRoom(7)); len(got) != 0 {
		t.Fatalf("presence = %v, want empty", got)
	}
}

func TestLeaveRoomNotAMemberIsNoOp(t *testing.T) {
	r := NewRegistry()
	c := newFakeConn("c1", 42, "a@example.com")
	r.Register(c)

	r.LeaveRoom("c1", ProjectRoom(7)) // never joined
	r.LeaveRoom("ghost", ProjectRoom(7))
}

func TestListPresenceDeduplicatesUsers(t *testing.T) {
	r := NewRegistry()
	// User 42 with two tabs, user 7 with one.
	a1 := newFakeConn("a1", 42, "a@example.com")
	a2 := newFakeConn("a2", 42, "a@example.com")
	b := newFakeConn("b1", 7, "b@example.com")
	for _, c := range []*fakeConn{a1, a2, b} {
		r.Register(c)
		r.JoinRoom(c.ID(), ProjectRoom(5))
	}

	users := r.ListPresence(ProjectRoom(5))

	if len(users) != 2 {
		t.Fatalf("presence entries = %d, want 2", len(users))
	}
	if users[0].UserID != 7 || users[0].ConnectionCount != 1 {
		t.Fatalf("users[0] = %+v, want user 7 with 1 connection", users[0])
	}
	if users[1].UserID != 42 || users[1].ConnectionCount != 2 {
		t.Fatalf("users[1] = %+v, want user 42 with 2 connections", users[1])
	}
}

func TestListPresencePartialJoin(t *testing.T) {
	r := NewRegistry()
	// Two connections for user 42, only one joined to the room.
	a1 := newFakeConn("a1", 42, "a@example.com")
	a2 := newFakeConn("a2", 42, "a@example.com")
	r.Register(a1)
	r.Register(a2)
	r.JoinRoom("a1", ProjectRoom(5))

	users := r.ListPresence(ProjectRoom(5))

	if len(users) != 1 || users[0].ConnectionCount != 1 {
		t.Fatalf("presence = %+v, want user 42 with exactly 1 connection", users)
	}
}

func TestUnregisterReturnsProjectRoomsOnly(t *testing.T) {
	r := NewRegistry()
	c := newFakeConn("c1", 42, "a@example.com")
	r.Register(c)
	r.JoinRoom("c1", ProjectRoom(7))
	r.JoinRoom("c1", ProjectRoom(9))

	rooms := r.Unregister("c1")

	if len(rooms) != 2 {
		t.Fatalf("project rooms = %v, want 2 entries", rooms)
	}
	for _, room := range rooms {
		if _, ok := room.ProjectID(); !ok {
			t.Fatalf("room %q is not a project room", room)
		}
	}
	if r.Has("c1") {
		t.Fatal("connection should be gone after Unregister")
	}
	if r.Unregister("c1") != nil {
		t.Fatal("second Unregister should return nil")
	}
}

func TestUnregisterSurvivingConnectionsKeepPresence(t *testing.T) {
	r := NewRegistry()
	a1 := newFakeConn("a1", 42, "a@example.com")
	a2 := newFakeConn("a2", 42, "a@example.com")
	r.Register(a1)
	r.Register(a2)
	r.JoinRoom("a1", ProjectRoom(5))
	r.JoinRoom("a2", ProjectRoom(5))

	r.Unregister("a1")

	users := r.ListPresence(ProjectRoom(5))
	if len(users) != 1 || users[0].UserID != 42 || users[0].ConnectionCount != 1 {
		t.Fatalf("presence = %+v, want user 42 with 1 remaining connection", users)
	}
}

func TestBroadcastSkipsExceptedConnection(t *testing.T) {
	r := NewRegistry()
	a := newFakeConn("a", 1, "a@example.com")
	b := newFakeConn("b", 2, "b@example.com")
	r.Register(a)
	r.Register(b)
	r.JoinRoom("a", ProjectRoom(5))
	r.JoinRoom("b", ProjectRoom(5))

	env := NewEnvelope(EventUserJoined, UserJoinedPayload{ProjectID: 5})
	r.Broadcast(ProjectRoom(5), env, "a")

	if a.countEvent(EventUserJoined) != 0 {
		t.Fatal("excepted connection must not receive the broadcast")
	}
	if b.countEvent(EventUserJoined) != 1 {
		t.Fatal("other occupants should receive the broadcast")
	}
}

func TestRoomIDProjectParsing(t *testing.T) {
	tests := []struct {
		room   RoomID
		wantID int64
		wantOK bool
	}{
		{ProjectRoom(7), 7, true},
		{UserRoom(7), 0, false},
		{RoomID("project:abc"), 0, false},
		{RoomID("other"), 0, false},
	}
	for _, tt := range tests {
		id, ok := tt.room.ProjectID()
		if id != tt.wantID || ok != tt.wantOK {
			t.Errorf("%q.ProjectID() = (%d, %v), want (%d, %v)", tt.room, id, ok, tt.wantID, tt.wantOK)
		}
	}
}
