package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mparicahua/taskFlow3-server/internal/models"
)

type UserStore struct {
	pool *pgxpool.Pool
}

func NewUserStore(pool *pgxpool.Pool) *UserStore {
	return &UserStore{pool: pool}
}

func (s *UserStore) Create(ctx context.Context, name, email, passwordHash, initials, avatarColor string) (*models.User, error) {
	query := `
		INSERT INTO users (name, email, password_hash, initials, avatar_color, active, created_at)
		VALUES ($1, $2, $3, $4, $5, true, now())
		RETURNING id, name, email, password_hash, initials, avatar_color, active, created_at`

	var u models.User
	err := s.pool.QueryRow(ctx, query, name, email, passwordHash, initials, avatarColor).Scan(
		&u.ID,
		&u.Name,
		&u.Email,
		&u.PasswordHash,
		&u.Initials,
		&u.AvatarColor,
		&u.Active,
		&u.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return &u, nil
}

func (s *UserStore) GetByID(ctx context.Context, userID int64) (*models.User, error) {
	query := `
		SELECT id, name, email, password_hash, initials, avatar_color, active, created_at
		FROM users
		WHERE id = $1`

	var u models.User
	err := s.pool.QueryRow(ctx, query, userID).Scan(
		&u.ID,
		&u.Name,
		&u.Email,
		&u.PasswordHash,
		&u.Initials,
		&u.AvatarColor,
		&u.Active,
		&u.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &u, nil
}

// GetByEmail looks up a user by email. Used for login — emails are stored
// lowercased, callers normalize before querying.
func (s *UserStore) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `
		SELECT id, name, email, password_hash, initials, avatar_color, active, created_at
		FROM users
		WHERE email = $1`

	var u models.User
	err := s.pool.QueryRow(ctx, query, email).Scan(
		&u.ID,
		&u.Name,
		&u.Email,
		&u.PasswordHash,
		&u.Initials,
		&u.AvatarColor,
		&u.Active,
		&u.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	return &u, nil
}

func (s *UserStore) ListActive(ctx context.Context) ([]models.UserSummary, error) {
	query := `
		SELECT id, name, email, initials, avatar_color
		FROM users
		WHERE active = true
		ORDER BY name ASC`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	return scanUserSummaries(rows)
}

func (s *UserStore) ListAvailableForProject(ctx context.Context, projectID int64) ([]models.UserSummary, error) {
	query := `
		SELECT u.id, u.name, u.email, u.initials, u.avatar_color
		FROM users u
		WHERE u.active = true
		  AND NOT EXISTS (
			SELECT 1 FROM project_members pm
			WHERE pm.project_id = $1 AND pm.user_id = u.id
		  )
		ORDER BY u.name ASC`

	rows, err := s.pool.Query(ctx, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("list available users: %w", err)
	}
	defer rows.Close()

	return scanUserSummaries(rows)
}

func scanUserSummaries(rows pgx.Rows) ([]models.UserSummary, error) {
	users := make([]models.UserSummary, 0)
	for rows.Next() {
		var u models.UserSummary
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.Initials, &u.AvatarColor); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}
	return users, nil
}
