package ws

import (
	"context"
	"testing"

	"github.com/mparicahua/taskFlow3-server/internal/models"
)

func TestNilGatewayDropsEvents(t *testing.T) {
	var g *Gateway
	g.ProjectCreated(&models.Project{ID: 1}, 42)
	g.ProjectUpdated(context.Background(), &models.Project{ID: 1})
	g.ProjectDeleted(context.Background(), 1, 42)
	g.MemberAdded(context.Background(), 1, &models.ProjectMember{User: models.UserSummary{ID: 2}})
	g.MemberRemoved(context.Background(), 1, 2)
}

func TestProjectCreatedReachesOnlyCreator(t *testing.T) {
	hub := newTestHub(&fakeMembership{}, nil)
	g := NewGateway(hub)
	creator := newFakeConn("creator", 42, "a@example.com")
	other := newFakeConn("other", 99, "b@example.com")
	hub.Register(creator)
	hub.Register(other)

	g.ProjectCreated(&models.Project{ID: 7, Name: "Website"}, 42)

	if creator.countEvent(EventProjectCreated) != 1 {
		t.Fatal("creator should be notified on their user room")
	}
	if other.countEvent(EventProjectCreated) != 0 {
		t.Fatal("nobody else is a member yet")
	}
}

func TestMemberAddedSendsDistinguishedJoin(t *testing.T) {
	hub := newTestHub(&fakeMembership{
		members: map[int64][]int64{7: {42, 99}}, // list after the add
	}, nil)
	g := NewGateway(hub)

	existing := newFakeConn("existing", 42, "a@example.com")
	added := newFakeConn("added", 99, "b@example.com")
	hub.Register(existing)
	hub.Register(added)
	hub.Registry().JoinRoom("existing", ProjectRoom(7))

	member := &models.ProjectMember{
		ProjectID: 7,
		User:      models.UserSummary{ID: 99, Email: "b@example.com"},
		RoleName:  "Member",
	}
	g.MemberAdded(context.Background(), 7, member)

	// Existing member: fan-out only (twice, project room + user room).
	if n := existing.countEvent(EventMemberAdded); n != 2 {
		t.Fatalf("existing member received %d member:added, want 2", n)
	}
	if existing.countEvent(EventProjectJoined) != 0 {
		t.Fatal("only the new member gets project:joined")
	}

	// New member: fan-out on their user room plus the distinguished join.
	if n := added.countEvent(EventMemberAdded); n != 1 {
		t.Fatalf("new member received %d member:added, want 1", n)
	}
	env, ok := added.lastEvent(EventProjectJoined)
	if !ok {
		t.Fatal("new member should receive project:joined on their user room")
	}
	p := decodePayload[MembershipJoinedPayload](t, env)
	if p.ProjectID != 7 || p.Member == nil || p.Member.User.ID != 99 {
		t.Fatalf("membership join payload = %+v", p)
	}
}

func TestMemberAddedNilMemberIsDropped(t *testing.T) {
	hub := newTestHub(&fakeMembership{
		members: map[int64][]int64{7: {42}},
	}, nil)
	g := NewGateway(hub)
	c := newFakeConn("c1", 42, "a@example.com")
	hub.Register(c)
	hub.Registry().JoinRoom("c1", ProjectRoom(7))

	// A removal racing the add can leave no member row to read back.
	g.MemberAdded(context.Background(), 7, nil)

	if c.countEvent(EventMemberAdded) != 0 {
		t.Fatal("no member row, no notification")
	}
	if c.countEvent(EventProjectJoined) != 0 {
		t.Fatal("no member row, no distinguished join")
	}
}

func TestMemberRemovedSendsDistinguishedLeave(t *testing.T) {
	hub := newTestHub(&fakeMembership{
		members: map[int64][]int64{7: {42}}, // list after the removal
	}, nil)
	g := NewGateway(hub)

	remaining := newFakeConn("remaining", 42, "a@example.com")
	removed := newFakeConn("removed", 99, "b@example.com")
	hub.Register(remaining)
	hub.Register(removed)

	g.MemberRemoved(context.Background(), 7, 99)

	if remaining.countEvent(EventMemberRemoved) != 1 {
		t.Fatal("remaining member should be told about the removal")
	}
	env, ok := removed.lastEvent(EventProjectLeft)
	if !ok {
		t.Fatal("removed user should receive project:left on their user room")
	}
	if p := decodePayload[MembershipLeftPayload](t, env); p.ProjectID != 7 {
		t.Fatalf("project:left payload = %+v", p)
	}
	if removed.countEvent(EventMemberRemoved) != 0 {
		t.Fatal("removed user is no longer in the member list for the fan-out")
	}
}

// End-to-end pass through the realtime layer: connect, auto-join, then a
// membership change propagating to both sides.
func TestMembershipChangeScenario(t *testing.T) {
	membership := &fakeMembership{
		projects: map[int64][]models.ProjectRef{
			42: {{ID: 7, Name: "Website"}},
		},
		members: map[int64][]int64{7: {42}},
	}
	hub := newTestHub(membership, nil)
	g := NewGateway(hub)

	alice := newFakeConn("alice", 42, "alice@example.com")
	hub.Register(alice)
	hub.AutoJoin(context.Background(), alice)

	env, ok := alice.lastEvent(EventConnectionReady)
	if !ok {
		t.Fatal("expected connection:ready")
	}
	if p := decodePayload[ConnectionReadyPayload](t, env); p.ProjectsJoined != 1 {
		t.Fatalf("projectsJoined = %d, want 1", p.ProjectsJoined)
	}

	// Bob connects with no memberships yet, then is added to the project.
	bob := newFakeConn("bob", 99, "bob@example.com")
	hub.Register(bob)
	hub.AutoJoin(context.Background(), bob)

	membership.members[7] = []int64{42, 99}
	g.MemberAdded(context.Background(), 7, &models.ProjectMember{
		ProjectID: 7,
		User:      models.UserSummary{ID: 99, Email: "bob@example.com"},
		RoleName:  "Member",
	})

	if alice.countEvent(EventMemberAdded) == 0 {
		t.Fatal("alice should learn about the new member")
	}
	if bob.countEvent(EventMemberAdded) == 0 {
		t.Fatal("bob should receive the member fan-out on his user room")
	}
	if _, ok := bob.lastEvent(EventProjectJoined); !ok {
		t.Fatal("bob should receive the distinguished project:joined")
	}
}
