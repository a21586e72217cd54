package ws

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/mparicahua/taskFlow3-server/internal/models"
)

// Room identifiers. A room has no stored lifecycle: it exists while at
// least one connection references it and logically disappears when empty.
type RoomID string

func UserRoom(userID int64) RoomID {
	return RoomID("user:" + strconv.FormatInt(userID, 10))
}

func ProjectRoom(projectID int64) RoomID {
	return RoomID("project:" + strconv.FormatInt(projectID, 10))
}

// ProjectID extracts the project from a project room identifier.
// Returns false for user rooms and malformed IDs.
func (r RoomID) ProjectID() (int64, bool) {
	s, ok := strings.CutPrefix(string(r), "project:")
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

// Client -> server events.
const (
	EventJoinProject       = "join:project"
	EventLeaveProject      = "leave:project"
	EventGetConnectedUsers = "get:connected-users"
	// Legacy bulk join, kept for clients predating auto-join on connect.
	EventJoinProjects = "join:projects"
)

// Server -> client events.
const (
	EventConnectionReady = "connection:ready"
	EventProjectJoined   = "project:joined"
	EventProjectsJoined  = "projects:joined"
	EventUserJoined      = "user:joined"
	EventUserLeft        = "user:left"
	EventConnectedUsers  = "connected-users"
	EventError           = "error"

	EventProjectCreated = "project:created"
	EventProjectUpdated = "project:updated"
	EventProjectDeleted = "project:deleted"
	EventMemberAdded    = "project:member:added"
	EventMemberRemoved  = "project:member:removed"
	// Sent only to the affected user's own rooms when they are added to or
	// removed from a project (distinct from the all-members fan-out above).
	EventProjectLeft = "project:left"
)

// Error codes carried in ErrorPayload. Machine-readable so clients can
// branch without string-matching messages.
const (
	CodeMissingProjectID  = "MISSING_PROJECT_ID"
	CodeAccessDenied      = "ACCESS_DENIED"
	CodeJoinProjectError  = "JOIN_PROJECT_ERROR"
	CodeJoinProjectsError = "JOIN_PROJECTS_ERROR"
	CodeGetUsersError     = "GET_USERS_ERROR"
	CodeInvalidMessage    = "INVALID_MESSAGE"
)

// Envelope is the wire frame in both directions: an event name plus an
// event-specific payload.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// NewEnvelope marshals a typed payload into an outbound envelope.
// Payloads are our own closed set of structs, so marshaling cannot fail in
// practice; a failure is a programming error and panics in tests long
// before production.
func NewEnvelope(event string, payload any) Envelope {
	data, err := json.Marshal(payload)
	if err != nil {
		panic(fmt.Sprintf("marshal %s payload: %v", event, err))
	}
	return Envelope{Event: event, Data: data}
}

// Timestamp is the ISO-8601 instant stamped on every outbound payload.
func Timestamp() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// PresenceUser identifies a user inside presence notifications. Only what
// the authenticated connection knows about itself: identity comes from the
// token, not a DB lookup.
type PresenceUser struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
}

// ConnectedUser is one entry of a room presence snapshot: a user with at
// least one live connection in the room, annotated with how many.
type ConnectedUser struct {
	UserID          int64  `json:"userId"`
	UserEmail       string `json:"userEmail"`
	ConnectionCount int    `json:"connectionCount"`
}

// ---- client -> server payloads ----

type JoinProjectRequest struct {
	ProjectID int64 `json:"projectId"`
}

type LeaveProjectRequest struct {
	ProjectID int64 `json:"projectId"`
}

type GetConnectedUsersRequest struct {
	ProjectID int64 `json:"projectId"`
}

// ---- server -> client payloads ----

type ConnectionReadyPayload struct {
	Success        bool   `json:"success"`
	UserID         int64  `json:"userId"`
	ProjectsJoined int    `json:"projectsJoined"`
	Timestamp      string `json:"timestamp"`
}

type ProjectJoinedPayload struct {
	Success        bool            `json:"success"`
	ProjectID      int64           `json:"projectId"`
	ProjectName    string          `json:"projectName"`
	ConnectedUsers []ConnectedUser `json:"connectedUsers"`
	Timestamp      string          `json:"timestamp"`
}

type ProjectsJoinedPayload struct {
	Success   bool                `json:"success"`
	Projects  []models.ProjectRef `json:"projects"`
	Timestamp string              `json:"timestamp"`
}

type UserJoinedPayload struct {
	ProjectID int64        `json:"projectId"`
	User      PresenceUser `json:"user"`
	Timestamp string       `json:"timestamp"`
}

type UserLeftPayload struct {
	ProjectID int64  `json:"projectId"`
	UserID    int64  `json:"userId"`
	Timestamp string `json:"timestamp"`
}

type ConnectedUsersPayload struct {
	ProjectID int64           `json:"projectId"`
	Users     []ConnectedUser `json:"users"`
	Count     int             `json:"count"`
	Timestamp string          `json:"timestamp"`
}

type ErrorPayload struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}

// ---- domain event payloads (server -> client) ----

type ProjectCreatedPayload struct {
	Project   *models.Project `json:"project"`
	EmittedBy int64           `json:"emittedBy"`
	Timestamp string          `json:"timestamp"`
}

type ProjectUpdatedPayload struct {
	Project   *models.Project `json:"project"`
	Timestamp string          `json:"timestamp"`
}

type ProjectDeletedPayload struct {
	ProjectID int64  `json:"projectId"`
	EmittedBy int64  `json:"emittedBy"`
	Timestamp string `json:"timestamp"`
}

type MemberAddedPayload struct {
	ProjectID int64                 `json:"projectId"`
	Member    *models.ProjectMember `json:"member"`
	Timestamp string                `json:"timestamp"`
}

type MemberRemovedPayload struct {
	ProjectID int64  `json:"projectId"`
	UserID    int64  `json:"userId"`
	Timestamp string `json:"timestamp"`
}

// MembershipJoinedPayload is the distinguished notification a user receives
// on their own rooms when added to a project. Emitted under
// EventProjectJoined, same as the join reply — clients tell them apart by
// the presence of the member field.
type MembershipJoinedPayload struct {
	ProjectID int64                 `json:"projectId"`
	Member    *models.ProjectMember `json:"member"`
	Timestamp string                `json:"timestamp"`
}

// MembershipLeftPayload is the distinguished notification a user receives
// on their own rooms when removed from a project.
type MembershipLeftPayload struct {
	ProjectID int64  `json:"projectId"`
	Timestamp string `json:"timestamp"`
}
