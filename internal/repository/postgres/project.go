package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mparicahua/taskFlow3-server/internal/models"
)

type ProjectStore struct {
	pool *pgxpool.Pool
}

func NewProjectStore(pool *pgxpool.Pool) *ProjectStore {
	return &ProjectStore{pool: pool}
}

// Create inserts the project and the owner membership in one transaction,
// so a project can never exist without an owner.
func (s *ProjectStore) Create(ctx context.Context, name string, description *string, collaborative bool, ownerID int64, ownerRoleID int64) (*models.Project, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var projectID int64
	err = tx.QueryRow(ctx, `
		INSERT INTO projects (name, description, collaborative, progress_pct, active, created_at)
		VALUES ($1, $2, $3, 0, true, now())
		RETURNING id`,
		name, description, collaborative,
	).Scan(&projectID)
	if err != nil {
		return nil, fmt.Errorf("insert project: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO project_members (project_id, user_id, role_id)
		VALUES ($1, $2, $3)`,
		projectID, ownerID, ownerRoleID,
	)
	if err != nil {
		return nil, fmt.Errorf("insert owner membership: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	return s.GetByID(ctx, projectID)
}

func (s *ProjectStore) GetByID(ctx context.Context, projectID int64) (*models.Project, error) {
	query := `
		SELECT id, name, description, collaborative, progress_pct, active, created_at
		FROM projects
		WHERE id = $1`

	var p models.Project
	err := s.pool.QueryRow(ctx, query, projectID).Scan(
		&p.ID,
		&p.Name,
		&p.Description,
		&p.Collaborative,
		&p.ProgressPct,
		&p.Active,
		&p.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get project: %w", err)
	}

	members, err := s.loadMembers(ctx, []int64{p.ID})
	if err != nil {
		return nil, err
	}
	p.Members = members[p.ID]

	return &p, nil
}

func (s *ProjectStore) ListActive(ctx context.Context) ([]models.Project, error) {
	query := `
		SELECT id, name, description, collaborative, progress_pct, active, created_at
		FROM projects
		WHERE active = true
		ORDER BY created_at DESC`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	return s.collectProjects(ctx, rows)
}

func (s *ProjectStore) ListByUser(ctx context.Context, userID int64) ([]models.Project, error) {
	query := `
		SELECT p.id, p.name, p.description, p.collaborative, p.progress_pct, p.active, p.created_at
		FROM projects p
		JOIN project_members pm ON pm.project_id = p.id
		WHERE pm.user_id = $1 AND p.active = true
		ORDER BY p.created_at DESC`

	rows, err := s.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list projects by user: %w", err)
	}
	defer rows.Close()

	return s.collectProjects(ctx, rows)
}

func (s *ProjectStore) Update(ctx context.Context, projectID int64, name *string, description *string, collaborative *bool) (*models.Project, error) {
	// COALESCE patches only the fields the caller provided; NULL arguments
	// leave the column untouched. Description is an exception: the caller
	// distinguishing "clear it" from "leave it" is handled at the handler
	// layer by passing the existing value back.
	query := `
		UPDATE projects
		SET name = COALESCE($2, name),
		    description = COALESCE($3, description),
		    collaborative = COALESCE($4, collaborative)
		WHERE id = $1`

	tag, err := s.pool.Exec(ctx, query, projectID, name, description, collaborative)
	if err != nil {
		return nil, fmt.Errorf("update project: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, nil
	}

	return s.GetByID(ctx, projectID)
}

func (s *ProjectStore) SoftDelete(ctx context.Context, projectID int64) error {
	query := `
		UPDATE projects
		SET active = false
		WHERE id = $1`

	_, err := s.pool.Exec(ctx, query, projectID)
	if err != nil {
		return fmt.Errorf("soft delete project: %w", err)
	}
	return nil
}

func (s *ProjectStore) collectProjects(ctx context.Context, rows pgx.Rows) ([]models.Project, error) {
	projects := make([]models.Project, 0)
	ids := make([]int64, 0)
	for rows.Next() {
		var p models.Project
		if err := rows.Scan(
			&p.ID,
			&p.Name,
			&p.Description,
			&p.Collaborative,
			&p.ProgressPct,
			&p.Active,
			&p.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		projects = append(projects, p)
		ids = append(ids, p.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate projects: %w", err)
	}

	if len(ids) == 0 {
		return projects, nil
	}

	members, err := s.loadMembers(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range projects {
		projects[i].Members = members[projects[i].ID]
	}

	return projects, nil
}

// loadMembers fetches the member lists for a batch of projects in one
// query, avoiding a query per project on board listings.
func (s *ProjectStore) loadMembers(ctx context.Context, projectIDs []int64) (map[int64][]models.ProjectMember, error) {
	query := `
		SELECT pm.project_id, u.id, u.name, u.initials, u.avatar_color, r.name
		FROM project_members pm
		JOIN users u ON u.id = pm.user_id
		JOIN roles r ON r.id = pm.role_id
		WHERE pm.project_id = ANY($1)
		ORDER BY u.name ASC`

	rows, err := s.pool.Query(ctx, query, projectIDs)
	if err != nil {
		return nil, fmt.Errorf("load members: %w", err)
	}
	defer rows.Close()

	members := make(map[int64][]models.ProjectMember)
	for rows.Next() {
		var m models.ProjectMember
		if err := rows.Scan(
			&m.ProjectID,
			&m.User.ID,
			&m.User.Name,
			&m.User.Initials,
			&m.User.AvatarColor,
			&m.RoleName,
		); err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		members[m.ProjectID] = append(members[m.ProjectID], m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate members: %w", err)
	}

	return members, nil
}
