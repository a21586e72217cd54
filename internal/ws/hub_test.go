package ws

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/mparicahua/taskFlow3-server/internal/models"
	"go.uber.org/zap"
)

type fakeMembership struct {
	// userID -> active projects
	projects map[int64][]models.ProjectRef
	// projectID -> member user IDs
	members map[int64][]int64
	err     error
}

func (f *fakeMembership) ListActiveProjects(_ context.Context, userID int64) ([]models.ProjectRef, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.projects[userID], nil
}

func (f *fakeMembership) IsActiveMember(_ context.Context, projectID, userID int64) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	for _, id := range f.members[projectID] {
		if id == userID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeMembership) ListMemberIDs(_ context.Context, projectID int64) ([]int64, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.members[projectID], nil
}

type fakeProjects struct {
	byID map[int64]*models.Project
}

func (f *fakeProjects) GetByID(_ context.Context, projectID int64) (*models.Project, error) {
	return f.byID[projectID], nil
}

func newTestHub(membership *fakeMembership, projects *fakeProjects) *Hub {
	if projects == nil {
		projects = &fakeProjects{byID: map[int64]*models.Project{}}
	}
	return NewHub(NewRegistry(), membership, projects, zap.NewNop())
}

func decodePayload[T any](t *testing.T, env Envelope) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(env.Data, &out); err != nil {
		t.Fatalf("decode %s payload: %v", env.Event, err)
	}
	return out
}

func TestAutoJoinEnrollsAndConfirms(t *testing.T) {
	hub := newTestHub(&fakeMembership{
		projects: map[int64][]models.ProjectRef{
			42: {{ID: 7, Name: "Website"}, {ID: 9, Name: "API"}},
		},
	}, nil)
	c := newFakeConn("c1", 42, "a@example.com")
	hub.Register(c)

	hub.AutoJoin(context.Background(), c)

	env, ok := c.lastEvent(EventConnectionReady)
	if !ok {
		t.Fatal("expected connection:ready after auto-join")
	}
	ready := decodePayload[ConnectionReadyPayload](t, env)
	if !ready.Success || ready.UserID != 42 || ready.ProjectsJoined != 2 {
		t.Fatalf("connection:ready payload = %+v", ready)
	}

	// Auto-join is silent: no presence announcement.
	if c.countEvent(EventUserJoined) != 0 {
		t.Fatal("auto-join must not announce user:joined")
	}

	// The connection now receives project-room broadcasts.
	hub.Registry().Broadcast(ProjectRoom(7), NewEnvelope(EventProjectUpdated, ProjectUpdatedPayload{}), "")
	if c.countEvent(EventProjectUpdated) != 1 {
		t.Fatal("auto-joined connection should receive project room broadcasts")
	}
}

func TestAutoJoinAfterDisconnectIsDiscarded(t *testing.T) {
	hub := newTestHub(&fakeMembership{
		projects: map[int64][]models.ProjectRef{42: {{ID: 7, Name: "Website"}}},
	}, nil)
	c := newFakeConn("c1", 42, "a@example.com")
	hub.Register(c)
	hub.Disconnect(c) // connection closed while the query was in flight

	hub.AutoJoin(context.Background(), c)

	if _, ok := c.lastEvent(EventConnectionReady); ok {
		t.Fatal("closed connection must not be confirmed")
	}
	if got := hub.Registry().ListPresence(ProjectRoom(7)); len(got) != 0 {
		t.Fatalf("room presence = %v, want empty after discarded auto-join", got)
	}
}

func TestJoinProjectMissingID(t *testing.T) {
	hub := newTestHub(&fakeMembership{}, nil)
	c := newFakeConn("c1", 42, "a@example.com")
	hub.Register(c)

	hub.JoinProject(context.Background(), c, 0)

	env, ok := c.lastEvent(EventError)
	if !ok {
		t.Fatal("expected error event")
	}
	if p := decodePayload[ErrorPayload](t, env); p.Code != CodeMissingProjectID {
		t.Fatalf("error code = %q, want %q", p.Code, CodeMissingProjectID)
	}
}

func TestJoinProjectAccessDeniedIsIdempotent(t *testing.T) {
	hub := newTestHub(&fakeMembership{
		members: map[int64][]int64{7: {99}}, // user 42 is not a member
	}, nil)
	c := newFakeConn("c1", 42, "a@example.com")
	hub.Register(c)

	for i := 0; i < 2; i++ {
		hub.JoinProject(context.Background(), c, 7)
	}

	if n := c.countEvent(EventError); n != 2 {
		t.Fatalf("error events = %d, want 2 (same outcome on retry)", n)
	}
	env, _ := c.lastEvent(EventError)
	if p := decodePayload[ErrorPayload](t, env); p.Code != CodeAccessDenied {
		t.Fatalf("error code = %q, want %q", p.Code, CodeAccessDenied)
	}
	if hub.Registry().InRoom("c1", ProjectRoom(7)) {
		t.Fatal("denied join must not change room state")
	}
}

func TestJoinProjectNotifiesOccupantsAndReplies(t *testing.T) {
	hub := newTestHub(&fakeMembership{
		members: map[int64][]int64{7: {42, 99}},
	}, &fakeProjects{byID: map[int64]*models.Project{
		7: {ID: 7, Name: "Website"},
	}})
	other := newFakeConn("other", 99, "b@example.com")
	joiner := newFakeConn("joiner", 42, "a@example.com")
	hub.Register(other)
	hub.Register(joiner)
	hub.Registry().JoinRoom("other", ProjectRoom(7))

	hub.JoinProject(context.Background(), joiner, 7)

	// Occupant sees the arrival; the joiner does not hear its own echo.
	env, ok := other.lastEvent(EventUserJoined)
	if !ok {
		t.Fatal("occupant should be told about the new user")
	}
	if p := decodePayload[UserJoinedPayload](t, env); p.User.ID != 42 || p.ProjectID != 7 {
		t.Fatalf("user:joined payload = %+v", p)
	}
	if joiner.countEvent(EventUserJoined) != 0 {
		t.Fatal("joiner must not receive its own user:joined")
	}

	// The reply carries the project name and both occupants.
	env, ok = joiner.lastEvent(EventProjectJoined)
	if !ok {
		t.Fatal("joiner should receive project:joined reply")
	}
	reply := decodePayload[ProjectJoinedPayload](t, env)
	if reply.ProjectName != "Website" || len(reply.ConnectedUsers) != 2 {
		t.Fatalf("project:joined payload = %+v", reply)
	}
}

func TestLeaveProjectNotifiesRemaining(t *testing.T) {
	hub := newTestHub(&fakeMembership{}, nil)
	a := newFakeConn("a", 42, "a@example.com")
	b := newFakeConn("b", 99, "b@example.com")
	hub.Register(a)
	hub.Register(b)
	hub.Registry().JoinRoom("a", ProjectRoom(7))
	hub.Registry().JoinRoom("b", ProjectRoom(7))

	hub.LeaveProject(a, 7)

	if hub.Registry().InRoom("a", ProjectRoom(7)) {
		t.Fatal("connection should have left the room")
	}
	env, ok := b.lastEvent(EventUserLeft)
	if !ok {
		t.Fatal("remaining occupant should be notified")
	}
	if p := decodePayload[UserLeftPayload](t, env); p.UserID != 42 {
		t.Fatalf("user:left payload = %+v", p)
	}
	if a.countEvent(EventUserLeft) != 0 {
		t.Fatal("leaver must not receive its own user:left")
	}
}

func TestConnectedUsersSnapshot(t *testing.T) {
	hub := newTestHub(&fakeMembership{}, nil)
	a := newFakeConn("a", 42, "a@example.com")
	b := newFakeConn("b", 99, "b@example.com")
	hub.Register(a)
	hub.Register(b)
	hub.Registry().JoinRoom("a", ProjectRoom(7))
	hub.Registry().JoinRoom("b", ProjectRoom(7))

	hub.ConnectedUsers(a, 7)

	env, ok := a.lastEvent(EventConnectedUsers)
	if !ok {
		t.Fatal("expected connected-users reply")
	}
	p := decodePayload[ConnectedUsersPayload](t, env)
	if p.Count != 2 || len(p.Users) != 2 {
		t.Fatalf("connected-users payload = %+v", p)
	}
}

func TestDisconnectAnnouncesLeavePerProjectRoom(t *testing.T) {
	hub := newTestHub(&fakeMembership{}, nil)
	// User 42 with two tabs in project 7 plus an observer.
	t1 := newFakeConn("t1", 42, "a@example.com")
	t2 := newFakeConn("t2", 42, "a@example.com")
	obs := newFakeConn("obs", 99, "b@example.com")
	for _, c := range []*fakeConn{t1, t2, obs} {
		hub.Register(c)
		hub.Registry().JoinRoom(c.ID(), ProjectRoom(7))
	}

	hub.Disconnect(t1)

	// Closing one tab still looks like a leave; the surviving tab and the
	// observer both hear it, and presence still shows the user.
	if obs.countEvent(EventUserLeft) != 1 {
		t.Fatal("observer should receive user:left")
	}
	if t2.countEvent(EventUserLeft) != 1 {
		t.Fatal("the user's surviving connection also receives user:left")
	}
	users := hub.Registry().ListPresence(ProjectRoom(7))
	if len(users) != 2 {
		t.Fatalf("presence after partial disconnect = %+v, want both users", users)
	}
}

func TestBroadcastToProjectMembersDeliveryTargets(t *testing.T) {
	hub := newTestHub(&fakeMembership{
		members: map[int64][]int64{7: {1, 2}},
	}, nil)

	// Member 1 is viewing the board: project room + own user room.
	viewing := newFakeConn("viewing", 1, "a@example.com")
	// Member 2 is connected but elsewhere: user room only.
	away := newFakeConn("away", 2, "b@example.com")
	// User 3 is not a member but still sits in the project room.
	stale := newFakeConn("stale", 3, "c@example.com")
	// User 4 is connected and unrelated.
	outsider := newFakeConn("outsider", 4, "d@example.com")
	for _, c := range []*fakeConn{viewing, away, stale, outsider} {
		hub.Register(c)
	}
	hub.Registry().JoinRoom("viewing", ProjectRoom(7))
	hub.Registry().JoinRoom("stale", ProjectRoom(7))

	env := NewEnvelope(EventProjectUpdated, ProjectUpdatedPayload{Timestamp: Timestamp()})
	hub.BroadcastToProjectMembers(context.Background(), 7, env)

	// Viewing member is in both target rooms and gets it twice.
	if n := viewing.countEvent(EventProjectUpdated); n != 2 {
		t.Fatalf("viewing member received %d, want 2 (project room + user room)", n)
	}
	if n := away.countEvent(EventProjectUpdated); n != 1 {
		t.Fatalf("away member received %d, want 1", n)
	}
	if n := stale.countEvent(EventProjectUpdated); n != 1 {
		t.Fatalf("project-room occupant received %d, want 1", n)
	}
	if n := outsider.countEvent(EventProjectUpdated); n != 0 {
		t.Fatalf("outsider received %d, want 0", n)
	}
}

func TestBroadcastToProjectMembersQueryFailureDropsEvent(t *testing.T) {
	hub := newTestHub(&fakeMembership{err: context.DeadlineExceeded}, nil)
	c := newFakeConn("c1", 1, "a@example.com")
	hub.Register(c)
	hub.Registry().JoinRoom("c1", ProjectRoom(7))

	hub.BroadcastToProjectMembers(context.Background(), 7, NewEnvelope(EventProjectUpdated, ProjectUpdatedPayload{}))

	if c.countEvent(EventProjectUpdated) != 0 {
		t.Fatal("event must be dropped when the member list cannot be resolved")
	}
}

func TestJoinAllProjectsAnnouncesEachRoom(t *testing.T) {
	hub := newTestHub(&fakeMembership{
		projects: map[int64][]models.ProjectRef{
			42: {{ID: 7, Name: "Website"}, {ID: 9, Name: "API"}},
		},
	}, nil)
	obs := newFakeConn("obs", 99, "b@example.com")
	c := newFakeConn("c1", 42, "a@example.com")
	hub.Register(obs)
	hub.Register(c)
	hub.Registry().JoinRoom("obs", ProjectRoom(7))

	hub.JoinAllProjects(context.Background(), c)

	env, ok := c.lastEvent(EventProjectsJoined)
	if !ok {
		t.Fatal("expected projects:joined reply")
	}
	if p := decodePayload[ProjectsJoinedPayload](t, env); len(p.Projects) != 2 {
		t.Fatalf("projects:joined payload = %+v", p)
	}
	if obs.countEvent(EventUserJoined) != 1 {
		t.Fatal("occupants of each joined room should be notified")
	}
	if !hub.Registry().InRoom("c1", ProjectRoom(9)) {
		t.Fatal("connection should be in every joined room")
	}
}
