package ws

import (
	"context"

	"github.com/mparicahua/taskFlow3-server/internal/models"
)

// Gateway is the surface HTTP handlers call to push domain changes into
// the realtime layer. One method per mutation, invoked strictly after the
// mutation committed — never speculatively, so clients are never told
// about changes that could still roll back.
//
// A nil *Gateway is valid and drops every event, which keeps HTTP handler
// tests free of realtime wiring.
type Gateway struct {
	hub *Hub
}

func NewGateway(hub *Hub) *Gateway {
	return &Gateway{hub: hub}
}

// ProjectCreated notifies the creator's own connections only. Nobody else
// is a member yet, and the creator may have a dashboard open in another
// tab that should show the new board immediately.
func (g *Gateway) ProjectCreated(project *models.Project, creatorID int64) {
	if g == nil {
		return
	}
	g.hub.BroadcastToUser(creatorID, NewEnvelope(EventProjectCreated, ProjectCreatedPayload{
		Project:   project,
		EmittedBy: creatorID,
		Timestamp: Timestamp(),
	}))
}

// ProjectUpdated notifies all project members.
func (g *Gateway) ProjectUpdated(ctx context.Context, project *models.Project) {
	if g == nil {
		return
	}
	g.hub.BroadcastToProjectMembers(ctx, project.ID, NewEnvelope(EventProjectUpdated, ProjectUpdatedPayload{
		Project:   project,
		Timestamp: Timestamp(),
	}))
}

// ProjectDeleted notifies all project members of a (soft) deletion.
func (g *Gateway) ProjectDeleted(ctx context.Context, projectID, deletedBy int64) {
	if g == nil {
		return
	}
	g.hub.BroadcastToProjectMembers(ctx, projectID, NewEnvelope(EventProjectDeleted, ProjectDeletedPayload{
		ProjectID: projectID,
		EmittedBy: deletedBy,
		Timestamp: Timestamp(),
	}))
}

// MemberAdded notifies all members (the new one included, via the member
// fan-out) and additionally sends the new member a distinguished
// project:joined on their user room, so their project list refreshes even
// if they have never opened the board.
func (g *Gateway) MemberAdded(ctx context.Context, projectID int64, member *models.ProjectMember) {
	if g == nil {
		return
	}
	// The member row can vanish between the insert and the read-back if a
	// removal races the add. No row, no notification.
	if member == nil {
		return
	}
	g.hub.BroadcastToProjectMembers(ctx, projectID, NewEnvelope(EventMemberAdded, MemberAddedPayload{
		ProjectID: projectID,
		Member:    member,
		Timestamp: Timestamp(),
	}))

	g.hub.BroadcastToUser(member.User.ID, NewEnvelope(EventProjectJoined, MembershipJoinedPayload{
		ProjectID: projectID,
		Member:    member,
		Timestamp: Timestamp(),
	}))
}

// MemberRemoved notifies the remaining members and sends the removed user
// a distinguished project:left on their user room.
func (g *Gateway) MemberRemoved(ctx context.Context, projectID, userID int64) {
	if g == nil {
		return
	}
	g.hub.BroadcastToProjectMembers(ctx, projectID, NewEnvelope(EventMemberRemoved, MemberRemovedPayload{
		ProjectID: projectID,
		UserID:    userID,
		Timestamp: Timestamp(),
	}))

	g.hub.BroadcastToUser(userID, NewEnvelope(EventProjectLeft, MembershipLeftPayload{
		ProjectID: projectID,
		Timestamp: Timestamp(),
	}))
}
