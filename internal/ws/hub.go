package ws

import (
	"context"

	"github.com/mparicahua/taskFlow3-server/internal/models"
	"go.uber.org/zap"
)

// MembershipResolver answers the two questions the realtime layer asks the
// data store: which active projects does a user belong to, and who are the
// members of a project. Always queried fresh — membership can change
// between any two events, so nothing here is cached.
// repository.MembershipRepository satisfies it.
type MembershipResolver interface {
	ListActiveProjects(ctx context.Context, userID int64) ([]models.ProjectRef, error)
	IsActiveMember(ctx context.Context, projectID int64, userID int64) (bool, error)
	ListMemberIDs(ctx context.Context, projectID int64) ([]int64, error)
}

// ProjectResolver supplies project details for join replies.
// repository.ProjectRepository satisfies it.
type ProjectResolver interface {
	GetByID(ctx context.Context, projectID int64) (*models.Project, error)
}

// Hub is the room broadcaster: it decides which rooms receive which
// events and hands delivery to the registry. All room bookkeeping is
// synchronous; only the membership queries suspend, and every result is
// re-validated against connection liveness before it is applied.
type Hub struct {
	registry   *Registry
	membership MembershipResolver
	projects   ProjectResolver
	logger     *zap.Logger
}

func NewHub(registry *Registry, membership MembershipResolver, projects ProjectResolver, logger *zap.Logger) *Hub {
	return &Hub{
		registry:   registry,
		membership: membership,
		projects:   projects,
		logger:     logger,
	}
}

func (h *Hub) Registry() *Registry {
	return h.registry
}

// Register records a freshly authenticated connection. Synchronous: after
// it returns the connection is in its user room and addressable.
func (h *Hub) Register(c Conn) {
	h.registry.Register(c)
	h.logger.Info("socket connected",
		zap.String("conn_id", c.ID()),
		zap.Int64("user_id", c.UserID()),
		zap.String("email", c.UserEmail()),
	)
}

// AutoJoin enrolls the connection in every active project room of its
// user and confirms readiness to the client. Runs concurrently with the
// connection's read loop, so after the membership query resolves the
// connection may already be gone — in that case the result is discarded.
//
// Auto-join is silent: no user:joined notifications, unlike the manual
// join protocol. Dashboards learn about presence when users open a board.
func (h *Hub) AutoJoin(ctx context.Context, c Conn) {
	refs, err := h.membership.ListActiveProjects(ctx, c.UserID())
	if err != nil {
		h.logger.Error("auto-join membership query failed",
			zap.String("conn_id", c.ID()),
			zap.Int64("user_id", c.UserID()),
			zap.Error(err),
		)
		return
	}

	if !h.registry.Has(c.ID()) {
		return
	}
	for _, ref := range refs {
		h.registry.JoinRoom(c.ID(), ProjectRoom(ref.ID))
	}

	c.Send(NewEnvelope(EventConnectionReady, ConnectionReadyPayload{
		Success:        true,
		UserID:         c.UserID(),
		ProjectsJoined: len(refs),
		Timestamp:      Timestamp(),
	}))

	h.logger.Debug("auto-joined project rooms",
		zap.String("conn_id", c.ID()),
		zap.Int("projects", len(refs)),
	)
}

// JoinProject handles an explicit join:project request. The gate is a
// fresh membership check: member of the project AND project active.
// On success the other occupants are notified and the requester gets the
// room's presence snapshot; on failure the connection's room state is
// unchanged, so repeating the request yields the same outcome.
func (h *Hub) JoinProject(ctx context.Context, c Conn, projectID int64) {
	if projectID == 0 {
		h.sendError(c, "project ID is required", CodeMissingProjectID)
		return
	}

	ok, err := h.membership.IsActiveMember(ctx, projectID, c.UserID())
	if err != nil {
		h.logger.Error("join membership check failed",
			zap.Int64("project_id", projectID),
			zap.Int64("user_id", c.UserID()),
			zap.Error(err),
		)
		h.sendError(c, "failed to join project", CodeJoinProjectError)
		return
	}
	if !ok {
		h.sendError(c, "you do not have access to this project", CodeAccessDenied)
		return
	}

	project, err := h.projects.GetByID(ctx, projectID)
	if err != nil || project == nil {
		h.sendError(c, "failed to join project", CodeJoinProjectError)
		return
	}

	// The membership query suspended; the connection may have closed in
	// the meantime. JoinRoom no-ops on unknown connections, so a late
	// result cannot resurrect room state.
	if !h.registry.Has(c.ID()) {
		return
	}

	room := ProjectRoom(projectID)
	h.registry.JoinRoom(c.ID(), room)

	h.registry.Broadcast(room, NewEnvelope(EventUserJoined, UserJoinedPayload{
		ProjectID: projectID,
		User:      PresenceUser{ID: c.UserID(), Email: c.UserEmail()},
		Timestamp: Timestamp(),
	}), c.ID())

	c.Send(NewEnvelope(EventProjectJoined, ProjectJoinedPayload{
		Success:        true,
		ProjectID:      projectID,
		ProjectName:    project.Name,
		ConnectedUsers: h.registry.ListPresence(room),
		Timestamp:      Timestamp(),
	}))
}

// JoinAllProjects is the legacy bulk join: enroll the connection in every
// active project of its user, announcing presence in each room. Kept for
// clients that predate auto-join on connect.
func (h *Hub) JoinAllProjects(ctx context.Context, c Conn) {
	refs, err := h.membership.ListActiveProjects(ctx, c.UserID())
	if err != nil {
		h.logger.Error("bulk join membership query failed",
			zap.Int64("user_id", c.UserID()),
			zap.Error(err),
		)
		h.sendError(c, "failed to join projects", CodeJoinProjectsError)
		return
	}

	if !h.registry.Has(c.ID()) {
		return
	}

	joined := make([]models.ProjectRef, 0, len(refs))
	for _, ref := range refs {
		room := ProjectRoom(ref.ID)
		h.registry.JoinRoom(c.ID(), room)
		joined = append(joined, ref)

		h.registry.Broadcast(room, NewEnvelope(EventUserJoined, UserJoinedPayload{
			ProjectID: ref.ID,
			User:      PresenceUser{ID: c.UserID(), Email: c.UserEmail()},
			Timestamp: Timestamp(),
		}), c.ID())
	}

	c.Send(NewEnvelope(EventProjectsJoined, ProjectsJoinedPayload{
		Success:   true,
		Projects:  joined,
		Timestamp: Timestamp(),
	}))
}

// LeaveProject is unconditional: any connection may leave any room it is
// in, and the remaining occupants are notified. Missing project IDs are
// ignored, matching the tolerant leave semantics of the protocol.
func (h *Hub) LeaveProject(c Conn, projectID int64) {
	if projectID == 0 {
		return
	}

	room := ProjectRoom(projectID)
	h.registry.LeaveRoom(c.ID(), room)

	h.registry.Broadcast(room, NewEnvelope(EventUserLeft, UserLeftPayload{
		ProjectID: projectID,
		UserID:    c.UserID(),
		Timestamp: Timestamp(),
	}), c.ID())
}

// ConnectedUsers replies with the presence snapshot of a project room.
func (h *Hub) ConnectedUsers(c Conn, projectID int64) {
	if projectID == 0 {
		h.sendError(c, "project ID is required", CodeMissingProjectID)
		return
	}

	users := h.registry.ListPresence(ProjectRoom(projectID))
	c.Send(NewEnvelope(EventConnectedUsers, ConnectedUsersPayload{
		ProjectID: projectID,
		Users:     users,
		Count:     len(users),
		Timestamp: Timestamp(),
	}))
}

// Disconnect tears down a closed connection: every project room it was in
// gets a user:left for its user, then all registry state is discarded.
//
// The departure is announced even when the same user has other connections
// still in the room — closing one of two tabs looks like a leave. That
// mirrors the upstream protocol; clients reconcile with the presence
// snapshot. Notification failure never prevents the teardown.
func (h *Hub) Disconnect(c Conn) {
	projectRooms := h.registry.Unregister(c.ID())

	for _, room := range projectRooms {
		projectID, ok := room.ProjectID()
		if !ok {
			continue
		}
		h.registry.Broadcast(room, NewEnvelope(EventUserLeft, UserLeftPayload{
			ProjectID: projectID,
			UserID:    c.UserID(),
			Timestamp: Timestamp(),
		}), "")
	}

	h.logger.Info("socket disconnected",
		zap.String("conn_id", c.ID()),
		zap.Int64("user_id", c.UserID()),
		zap.Int("project_rooms", len(projectRooms)),
	)
}

// BroadcastToProjectMembers fans an event out to the project room (users
// viewing the board) and, independently, to every member's user room
// (users on the dashboard or elsewhere). A connection in both rooms
// receives the event twice; events are idempotent state-refresh hints, so
// double delivery is accepted.
//
// The member list is resolved fresh on every call.
func (h *Hub) BroadcastToProjectMembers(ctx context.Context, projectID int64, env Envelope) {
	memberIDs, err := h.membership.ListMemberIDs(ctx, projectID)
	if err != nil {
		h.logger.Error("member fan-out query failed",
			zap.Int64("project_id", projectID),
			zap.String("event", env.Event),
			zap.Error(err),
		)
		return
	}

	h.registry.Broadcast(ProjectRoom(projectID), env, "")
	for _, userID := range memberIDs {
		h.registry.Broadcast(UserRoom(userID), env, "")
	}

	h.logger.Debug("event fanned out to project members",
		zap.String("event", env.Event),
		zap.Int64("project_id", projectID),
		zap.Int("members", len(memberIDs)),
	)
}

// BroadcastToUser delivers an event to all live connections of one user.
func (h *Hub) BroadcastToUser(userID int64, env Envelope) {
	h.registry.Broadcast(UserRoom(userID), env, "")
}

func (h *Hub) sendError(c Conn, message, code string) {
	c.Send(NewEnvelope(EventError, ErrorPayload{Message: message, Code: code}))
}
