package repository

import (
	"context"
	"time"

	"github.com/mparicahua/taskFlow3-server/internal/models"
)

// Every method takes a context.Context: repositories do I/O, and the
// caller's deadline (HTTP request, WS event handler) must propagate into
// the query so cancelled requests stop burning DB time.

// UserRepository handles account data.
type UserRepository interface {
	// Create inserts a new user and returns it with ID and CreatedAt populated.
	Create(ctx context.Context, name, email, passwordHash, initials, avatarColor string) (*models.User, error)

	// GetByID returns a user by ID. Returns nil, nil if not found.
	GetByID(ctx context.Context, userID int64) (*models.User, error)

	// GetByEmail looks up a user by email. Used for login. Returns nil, nil
	// if not found.
	GetByEmail(ctx context.Context, email string) (*models.User, error)

	// ListActive returns all active users, sorted by name.
	ListActive(ctx context.Context) ([]models.UserSummary, error)

	// ListAvailableForProject returns active users not yet assigned to the
	// project — the candidate pool for the "add member" picker.
	ListAvailableForProject(ctx context.Context, projectID int64) ([]models.UserSummary, error)
}

// RoleRepository handles project role definitions.
type RoleRepository interface {
	// List returns all roles ordered by ID.
	List(ctx context.Context) ([]models.Role, error)

	// GetByName returns a role by its name. Returns nil, nil if not found.
	GetByName(ctx context.Context, name string) (*models.Role, error)
}

// ProjectRepository handles project boards.
type ProjectRepository interface {
	// Create inserts a project and assigns the creator the Owner role, in
	// one transaction. Returns the project with members populated.
	Create(ctx context.Context, name string, description *string, collaborative bool, ownerID int64, ownerRoleID int64) (*models.Project, error)

	// GetByID returns a project regardless of its active flag.
	// Returns nil, nil if not found.
	GetByID(ctx context.Context, projectID int64) (*models.Project, error)

	// ListActive returns all active projects with their members, newest first.
	ListActive(ctx context.Context) ([]models.Project, error)

	// ListByUser returns the active projects a user belongs to, with members
	// and the caller's own role name, newest first.
	ListByUser(ctx context.Context, userID int64) ([]models.Project, error)

	// Update patches name/description/collaborative; nil fields are left
	// unchanged. Returns the updated project with members.
	Update(ctx context.Context, projectID int64, name *string, description *string, collaborative *bool) (*models.Project, error)

	// SoftDelete flags the project inactive. Rooms, listings, and
	// membership resolution all stop seeing it.
	SoftDelete(ctx context.Context, projectID int64) error
}

// MembershipRepository is the membership resolver: it answers "which active
// projects does this user belong to" and "is this user an active member" —
// the two queries the realtime layer issues on every connect, room join,
// and member fan-out. Always queried fresh, never cached.
type MembershipRepository interface {
	// ListActiveProjects returns the active projects a user belongs to.
	ListActiveProjects(ctx context.Context, userID int64) ([]models.ProjectRef, error)

	// IsActiveMember reports whether the user belongs to the project AND
	// the project is active. Hot path: gates every manual room join.
	IsActiveMember(ctx context.Context, projectID int64, userID int64) (bool, error)

	// AddMember assigns a user to a project with a role. Idempotent:
	// re-adding an existing member is a no-op.
	AddMember(ctx context.Context, projectID, userID, roleID int64) (*models.ProjectMember, error)

	// GetMember returns the member row with role name. Returns nil, nil if
	// the user is not assigned to the project.
	GetMember(ctx context.Context, projectID, userID int64) (*models.ProjectMember, error)

	// RemoveMember removes a user from a project. No-op if not a member.
	RemoveMember(ctx context.Context, projectID, userID int64) error

	// RemoveAllExceptRole clears a project's membership except holders of
	// the given role (used to keep the owner). Returns rows removed.
	RemoveAllExceptRole(ctx context.Context, projectID, keepRoleID int64) (int64, error)

	// ListMemberIDs returns the user IDs of every member of a project,
	// regardless of the project's active flag. Used for event fan-out.
	ListMemberIDs(ctx context.Context, projectID int64) ([]int64, error)
}

// ListRepository handles board columns.
type ListRepository interface {
	// ListByProject returns active lists with their tasks (assignees and
	// tags populated), ordered by position.
	ListByProject(ctx context.Context, projectID int64) ([]models.List, error)

	// Create inserts a list. position < 0 means append after the current
	// last list.
	Create(ctx context.Context, projectID int64, name string, position int) (*models.List, error)

	// GetByID returns a list. Returns nil, nil if not found.
	GetByID(ctx context.Context, listID int64) (*models.List, error)

	// Update patches name/position/active; nil fields are left unchanged.
	Update(ctx context.Context, listID int64, name *string, position *int, active *bool) (*models.List, error)
}

// TaskRepository handles board cards.
type TaskRepository interface {
	// ListByList returns a list's tasks ordered by position, with assignee
	// and tags populated.
	ListByList(ctx context.Context, listID int64) ([]models.Task, error)

	// GetByID returns a task with assignee and tags. Returns nil, nil if
	// not found.
	GetByID(ctx context.Context, taskID int64) (*models.Task, error)

	// Create inserts a task. position < 0 means append after the current
	// last task in the list.
	Create(ctx context.Context, t models.Task) (*models.Task, error)

	// Update patches the given fields; nil means unchanged. clearAssignee
	// and clearDueDate distinguish "unset the field" from "leave it".
	Update(ctx context.Context, taskID int64, patch TaskPatch) (*models.Task, error)

	// Move places a task on a (possibly different) list at the given
	// position — the drag & drop operation.
	Move(ctx context.Context, taskID, listID int64, position int) (*models.Task, error)

	// Delete removes a task and its tag links.
	Delete(ctx context.Context, taskID int64) error
}

// TaskPatch carries the optional fields of a task update.
type TaskPatch struct {
	Title         *string
	Description   *string
	Priority      *string
	DueDate       *time.Time
	ClearDueDate  bool
	AssignedTo    *int64
	ClearAssignee bool
	Completed     *bool
	Position      *int
}

// TagRepository handles task labels.
type TagRepository interface {
	// List returns all tags sorted by name.
	List(ctx context.Context) ([]models.Tag, error)
}
