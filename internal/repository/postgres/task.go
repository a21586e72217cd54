package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mparicahua/taskFlow3-server/internal/models"
	"github.com/mparicahua/taskFlow3-server/internal/repository"
)

type TaskStore struct {
	pool *pgxpool.Pool
}

func NewTaskStore(pool *pgxpool.Pool) *TaskStore {
	return &TaskStore{pool: pool}
}

const taskColumns = `
	t.id, t.list_id, t.title, t.description, t.priority, t.due_date,
	t.assigned_to, t.position, t.completed, t.created_at,
	u.id, u.name, u.initials, u.avatar_color`

func (s *TaskStore) ListByList(ctx context.Context, listID int64) ([]models.Task, error) {
	query := `
		SELECT ` + taskColumns + `
		FROM tasks t
		LEFT JOIN users u ON u.id = t.assigned_to
		WHERE t.list_id = $1
		ORDER BY t.position ASC`

	rows, err := s.pool.Query(ctx, query, listID)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	tasks := make([]models.Task, 0)
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tasks: %w", err)
	}

	if err := s.loadTags(ctx, tasks); err != nil {
		return nil, err
	}

	return tasks, nil
}

func (s *TaskStore) GetByID(ctx context.Context, taskID int64) (*models.Task, error) {
	query := `
		SELECT ` + taskColumns + `
		FROM tasks t
		LEFT JOIN users u ON u.id = t.assigned_to
		WHERE t.id = $1`

	rows, err := s.pool.Query(ctx, query, taskID)
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("get task: %w", err)
		}
		return nil, nil
	}
	t, err := scanTask(rows)
	if err != nil {
		return nil, err
	}
	rows.Close()

	tasks := []models.Task{*t}
	if err := s.loadTags(ctx, tasks); err != nil {
		return nil, err
	}
	return &tasks[0], nil
}

func (s *TaskStore) Create(ctx context.Context, t models.Task) (*models.Task, error) {
	query := `
		INSERT INTO tasks (list_id, title, description, priority, due_date, assigned_to, position, completed, created_at)
		VALUES ($1, $2, $3, $4, $5, $6,
			CASE WHEN $7 >= 0 THEN $7
			     ELSE COALESCE((SELECT MAX(position) + 1 FROM tasks WHERE list_id = $1), 0)
			END,
			false, now())
		RETURNING id`

	var taskID int64
	err := s.pool.QueryRow(ctx, query,
		t.ListID, t.Title, t.Description, t.Priority, t.DueDate, t.AssignedTo, t.Position,
	).Scan(&taskID)
	if err != nil {
		return nil, fmt.Errorf("insert task: %w", err)
	}

	return s.GetByID(ctx, taskID)
}

func (s *TaskStore) Update(ctx context.Context, taskID int64, patch repository.TaskPatch) (*models.Task, error) {
	// ClearDueDate/ClearAssignee distinguish "set to NULL" from "leave
	// alone" — COALESCE can't express that on its own.
	query := `
		UPDATE tasks
		SET title = COALESCE($2, title),
		    description = COALESCE($3, description),
		    priority = COALESCE($4, priority),
		    due_date = CASE WHEN $6 THEN NULL ELSE COALESCE($5, due_date) END,
		    assigned_to = CASE WHEN $8 THEN NULL ELSE COALESCE($7, assigned_to) END,
		    completed = COALESCE($9, completed),
		    position = COALESCE($10, position)
		WHERE id = $1`

	tag, err := s.pool.Exec(ctx, query, taskID,
		patch.Title, patch.Description, patch.Priority,
		patch.DueDate, patch.ClearDueDate,
		patch.AssignedTo, patch.ClearAssignee,
		patch.Completed, patch.Position,
	)
	if err != nil {
		return nil, fmt.Errorf("update task: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, nil
	}

	return s.GetByID(ctx, taskID)
}

// Move relocates a task to a list at a position, shifting the tasks at or
// after that position down by one. This is the drag & drop path.
func (s *TaskStore) Move(ctx context.Context, taskID, listID int64, position int) (*models.Task, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		UPDATE tasks
		SET position = position + 1
		WHERE list_id = $1 AND position >= $2`,
		listID, position,
	)
	if err != nil {
		return nil, fmt.Errorf("shift tasks: %w", err)
	}

	tag, err := tx.Exec(ctx, `
		UPDATE tasks
		SET list_id = $2, position = $3
		WHERE id = $1`,
		taskID, listID, position,
	)
	if err != nil {
		return nil, fmt.Errorf("move task: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, nil
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	return s.GetByID(ctx, taskID)
}

func (s *TaskStore) Delete(ctx context.Context, taskID int64) error {
	// task_tags rows cascade via the FK.
	query := `
		DELETE FROM tasks
		WHERE id = $1`

	_, err := s.pool.Exec(ctx, query, taskID)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	return nil
}

func scanTask(rows pgx.Rows) (*models.Task, error) {
	var t models.Task
	var assigneeID *int64
	var assigneeName, assigneeInitials, assigneeColor *string
	if err := rows.Scan(
		&t.ID,
		&t.ListID,
		&t.Title,
		&t.Description,
		&t.Priority,
		&t.DueDate,
		&t.AssignedTo,
		&t.Position,
		&t.Completed,
		&t.CreatedAt,
		&assigneeID,
		&assigneeName,
		&assigneeInitials,
		&assigneeColor,
	); err != nil {
		return nil, fmt.Errorf("scan task: %w", err)
	}
	if assigneeID != nil {
		t.Assignee = &models.UserSummary{
			ID:          *assigneeID,
			Name:        *assigneeName,
			Initials:    *assigneeInitials,
			AvatarColor: *assigneeColor,
		}
	}
	return &t, nil
}

// loadTags attaches tags for a batch of tasks with a single query.
func (s *TaskStore) loadTags(ctx context.Context, tasks []models.Task) error {
	if len(tasks) == 0 {
		return nil
	}

	ids := make([]int64, len(tasks))
	index := make(map[int64]*models.Task, len(tasks))
	for i := range tasks {
		ids[i] = tasks[i].ID
		index[tasks[i].ID] = &tasks[i]
	}

	query := `
		SELECT tt.task_id, tg.id, tg.name, tg.color
		FROM task_tags tt
		JOIN tags tg ON tg.id = tt.tag_id
		WHERE tt.task_id = ANY($1)
		ORDER BY tg.name ASC`

	rows, err := s.pool.Query(ctx, query, ids)
	if err != nil {
		return fmt.Errorf("load tags: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var taskID int64
		var tag models.Tag
		if err := rows.Scan(&taskID, &tag.ID, &tag.Name, &tag.Color); err != nil {
			return fmt.Errorf("scan tag: %w", err)
		}
		if t, ok := index[taskID]; ok {
			t.Tags = append(t.Tags, tag)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate tags: %w", err)
	}

	return nil
}
