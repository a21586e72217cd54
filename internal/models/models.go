package models

import "time"

// User is a TaskFlow account. Initials and AvatarColor are generated at
// registration and used by the frontend for avatar badges.
//
// IDs are int64 (bigserial) across the board: every entity is created
// through this API, so a single Postgres sequence is enough, and integer
// keys keep the hot membership lookups index-friendly.
type User struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Initials     string    `json:"initials"`
	AvatarColor  string    `json:"avatar_color"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"created_at"`
}

// UserSummary is the public projection of a user embedded in project and
// task payloads. Never carries the password hash or activity flag.
type UserSummary struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Email       string `json:"email,omitempty"`
	Initials    string `json:"initials"`
	AvatarColor string `json:"avatar_color"`
}

// Role is a project-level role ("Owner", "Editor", "Viewer").
// The Owner role is assigned on project creation and its holder cannot be
// removed from the project.
type Role struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Project is a task board. Soft-deleted via Active=false; inactive projects
// are invisible to listings, membership resolution, and room joins.
type Project struct {
	ID            int64           `json:"id"`
	Name          string          `json:"name"`
	Description   *string         `json:"description"`
	Collaborative bool            `json:"collaborative"`
	ProgressPct   int             `json:"progress_pct"`
	Active        bool            `json:"active"`
	CreatedAt     time.Time       `json:"created_at"`
	Members       []ProjectMember `json:"members,omitempty"`
}

// ProjectMember is one row of the project/user/role join table.
type ProjectMember struct {
	ProjectID int64       `json:"project_id"`
	User      UserSummary `json:"user"`
	RoleName  string      `json:"role"`
}

// ProjectRef is the minimal membership projection the realtime layer needs:
// which active projects a user belongs to, and what they are called.
type ProjectRef struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// List is a column on a project board. Position orders columns left to
// right. Deactivated lists keep their tasks but disappear from the board.
type List struct {
	ID        int64  `json:"id"`
	ProjectID int64  `json:"project_id"`
	Name      string `json:"name"`
	Position  int    `json:"position"`
	Active    bool   `json:"active"`
	Tasks     []Task `json:"tasks,omitempty"`
}

// Task priorities form a closed set validated at the handler layer.
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

// Task is a card on a list. AssignedTo is nullable; Assignee is populated
// on reads when an assignment exists.
type Task struct {
	ID          int64        `json:"id"`
	ListID      int64        `json:"list_id"`
	Title       string       `json:"title"`
	Description *string      `json:"description"`
	Priority    string       `json:"priority"`
	DueDate     *time.Time   `json:"due_date"`
	AssignedTo  *int64       `json:"assigned_to"`
	Assignee    *UserSummary `json:"assignee,omitempty"`
	Position    int          `json:"position"`
	Completed   bool         `json:"completed"`
	CreatedAt   time.Time    `json:"created_at"`
	Tags        []Tag        `json:"tags,omitempty"`
}

// Tag is a label attachable to tasks via the task_tags join table.
type Tag struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
}
