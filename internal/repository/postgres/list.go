package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mparicahua/taskFlow3-server/internal/models"
)

type ListStore struct {
	pool *pgxpool.Pool
}

func NewListStore(pool *pgxpool.Pool) *ListStore {
	return &ListStore{pool: pool}
}

// ListByProject returns the full board for a project: active lists in
// position order, each with its tasks (assignees and tags populated).
func (s *ListStore) ListByProject(ctx context.Context, projectID int64) ([]models.List, error) {
	query := `
		SELECT id, project_id, name, position, active
		FROM lists
		WHERE project_id = $1 AND active = true
		ORDER BY position ASC`

	rows, err := s.pool.Query(ctx, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("list lists: %w", err)
	}
	defer rows.Close()

	lists := make([]models.List, 0)
	for rows.Next() {
		var l models.List
		if err := rows.Scan(&l.ID, &l.ProjectID, &l.Name, &l.Position, &l.Active); err != nil {
			return nil, fmt.Errorf("scan list: %w", err)
		}
		lists = append(lists, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate lists: %w", err)
	}

	taskStore := NewTaskStore(s.pool)
	for i := range lists {
		tasks, err := taskStore.ListByList(ctx, lists[i].ID)
		if err != nil {
			return nil, err
		}
		lists[i].Tasks = tasks
	}

	return lists, nil
}

func (s *ListStore) Create(ctx context.Context, projectID int64, name string, position int) (*models.List, error) {
	// position < 0 appends: take the current max position + 1, or 0 on an
	// empty board.
	query := `
		INSERT INTO lists (project_id, name, position, active)
		VALUES ($1, $2,
			CASE WHEN $3 >= 0 THEN $3
			     ELSE COALESCE((SELECT MAX(position) + 1 FROM lists WHERE project_id = $1), 0)
			END,
			true)
		RETURNING id, project_id, name, position, active`

	var l models.List
	err := s.pool.QueryRow(ctx, query, projectID, name, position).Scan(
		&l.ID,
		&l.ProjectID,
		&l.Name,
		&l.Position,
		&l.Active,
	)
	if err != nil {
		return nil, fmt.Errorf("insert list: %w", err)
	}
	return &l, nil
}

func (s *ListStore) GetByID(ctx context.Context, listID int64) (*models.List, error) {
	query := `
		SELECT id, project_id, name, position, active
		FROM lists
		WHERE id = $1`

	var l models.List
	err := s.pool.QueryRow(ctx, query, listID).Scan(
		&l.ID,
		&l.ProjectID,
		&l.Name,
		&l.Position,
		&l.Active,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get list: %w", err)
	}
	return &l, nil
}

func (s *ListStore) Update(ctx context.Context, listID int64, name *string, position *int, active *bool) (*models.List, error) {
	query := `
		UPDATE lists
		SET name = COALESCE($2, name),
		    position = COALESCE($3, position),
		    active = COALESCE($4, active)
		WHERE id = $1
		RETURNING id, project_id, name, position, active`

	var l models.List
	err := s.pool.QueryRow(ctx, query, listID, name, position, active).Scan(
		&l.ID,
		&l.ProjectID,
		&l.Name,
		&l.Position,
		&l.Active,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("update list: %w", err)
	}
	return &l, nil
}
