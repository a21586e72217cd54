package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mparicahua/taskFlow3-server/internal/models"
)

type MembershipStore struct {
	pool *pgxpool.Pool
}

func NewMembershipStore(pool *pgxpool.Pool) *MembershipStore {
	return &MembershipStore{pool: pool}
}

// ListActiveProjects returns the active projects a user belongs to.
// This is the realtime layer's auto-join query: it must never return
// soft-deleted projects, or a connection would end up in a dead room.
func (s *MembershipStore) ListActiveProjects(ctx context.Context, userID int64) ([]models.ProjectRef, error) {
	query := `
		SELECT p.id, p.name
		FROM project_members pm
		JOIN projects p ON p.id = pm.project_id
		WHERE pm.user_id = $1 AND p.active = true
		ORDER BY p.created_at DESC`

	rows, err := s.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list active projects: %w", err)
	}
	defer rows.Close()

	refs := make([]models.ProjectRef, 0)
	for rows.Next() {
		var ref models.ProjectRef
		if err := rows.Scan(&ref.ID, &ref.Name); err != nil {
			return nil, fmt.Errorf("scan project ref: %w", err)
		}
		refs = append(refs, ref)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate project refs: %w", err)
	}

	return refs, nil
}

// IsActiveMember gates every manual room join. SELECT EXISTS stops at the
// first matching row instead of counting them all.
func (s *MembershipStore) IsActiveMember(ctx context.Context, projectID int64, userID int64) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1
			FROM project_members pm
			JOIN projects p ON p.id = pm.project_id
			WHERE pm.project_id = $1 AND pm.user_id = $2 AND p.active = true
		)`

	var exists bool
	err := s.pool.QueryRow(ctx, query, projectID, userID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check membership: %w", err)
	}
	return exists, nil
}

func (s *MembershipStore) AddMember(ctx context.Context, projectID, userID, roleID int64) (*models.ProjectMember, error) {
	// ON CONFLICT DO NOTHING: "add member" called twice succeeds silently
	// the second time instead of tripping the primary key.
	query := `
		INSERT INTO project_members (project_id, user_id, role_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (project_id, user_id) DO NOTHING`

	_, err := s.pool.Exec(ctx, query, projectID, userID, roleID)
	if err != nil {
		return nil, fmt.Errorf("add member: %w", err)
	}

	return s.GetMember(ctx, projectID, userID)
}

func (s *MembershipStore) GetMember(ctx context.Context, projectID, userID int64) (*models.ProjectMember, error) {
	query := `
		SELECT pm.project_id, u.id, u.name, u.email, u.initials, u.avatar_color, r.name
		FROM project_members pm
		JOIN users u ON u.id = pm.user_id
		JOIN roles r ON r.id = pm.role_id
		WHERE pm.project_id = $1 AND pm.user_id = $2`

	var m models.ProjectMember
	err := s.pool.QueryRow(ctx, query, projectID, userID).Scan(
		&m.ProjectID,
		&m.User.ID,
		&m.User.Name,
		&m.User.Email,
		&m.User.Initials,
		&m.User.AvatarColor,
		&m.RoleName,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get member: %w", err)
	}
	return &m, nil
}

func (s *MembershipStore) RemoveMember(ctx context.Context, projectID, userID int64) error {
	// DELETE is naturally idempotent: removing a non-member deletes zero
	// rows, no error.
	query := `
		DELETE FROM project_members
		WHERE project_id = $1 AND user_id = $2`

	_, err := s.pool.Exec(ctx, query, projectID, userID)
	if err != nil {
		return fmt.Errorf("remove member: %w", err)
	}
	return nil
}

func (s *MembershipStore) RemoveAllExceptRole(ctx context.Context, projectID, keepRoleID int64) (int64, error) {
	query := `
		DELETE FROM project_members
		WHERE project_id = $1 AND role_id <> $2`

	tag, err := s.pool.Exec(ctx, query, projectID, keepRoleID)
	if err != nil {
		return 0, fmt.Errorf("remove members: %w", err)
	}
	return tag.RowsAffected(), nil
}

// ListMemberIDs feeds event fan-out: every member's user room gets the
// event regardless of whether they are viewing the project right now.
func (s *MembershipStore) ListMemberIDs(ctx context.Context, projectID int64) ([]int64, error) {
	query := `
		SELECT user_id
		FROM project_members
		WHERE project_id = $1`

	rows, err := s.pool.Query(ctx, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("list member ids: %w", err)
	}
	defer rows.Close()

	ids := make([]int64, 0)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan member id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate member ids: %w", err)
	}

	return ids, nil
}
