package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/Tate5000/Thera-stack/internal/model"
	"github.com/Tate5000/Thera-stack/internal/repository"
)

func (r *userRepository) Create(ctx context.Context, user *model.User) error {
	query := `
		INSERT INTO users (id, email, name, password_hash, role, status, timezone, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.db.ExecContext(ctx, query,
		user.ID,
		user.Email,
		user.Name,
		user.PasswordHash,
		user.Role,
		user.Status,
		user.Timezone,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	for _, p := range user.Permissions {
		if err := r.GrantPermission(ctx, user.ID, p); err != nil {
			return err
		}
	}
	return nil
}

func (r *userRepository) Get(ctx context.Context, id uuid.UUID) (*model.User, error) {
	query := `
		SELECT id, email, name, password_hash, role, status, timezone,
		       last_login_at, login_attempts, last_login_attempt, created_at, updated_at
		FROM users
		WHERE id = $1 AND deleted_at IS NULL
	`
	var user model.User
	if err := r.db.GetContext(ctx, &user, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if err := r.loadPermissions(ctx, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	query := `
		SELECT id, email, name, password_hash, role, status, timezone,
		       last_login_at, login_attempts, last_login_attempt, created_at, updated_at
		FROM users
		WHERE email = $1 AND deleted_at IS NULL
	`
	var user model.User
	if err := r.db.GetContext(ctx, &user, query, email); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	if err := r.loadPermissions(ctx, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) Update(ctx context.Context, user *model.User) error {
	query := `
		UPDATE users
		SET email = $1, name = $2, status = $3, timezone = $4,
		    last_login_at = $5, login_attempts = $6, last_login_attempt = $7, updated_at = $8
		WHERE id = $9 AND deleted_at IS NULL
	`
	result, err := r.db.ExecContext(ctx, query,
		user.Email,
		user.Name,
		user.Status,
		user.Timezone,
		user.LastLoginAt,
		user.LoginAttempts,
		user.LastLoginAttempt,
		user.UpdatedAt,
		user.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *userRepository) List(ctx context.Context, filter *model.UserFilter) ([]*model.User, error) {
	query := `
		SELECT id, email, name, password_hash, role, status, timezone,
		       last_login_at, login_attempts, last_login_attempt, created_at, updated_at
		FROM users
		WHERE deleted_at IS NULL
	`
	args := []interface{}{}
	if filter != nil && filter.Role != "" {
		query += ` AND role = $1`
		args = append(args, filter.Role)
	}
	query += ` ORDER BY created_at DESC`

	var users []*model.User
	if err := r.db.SelectContext(ctx, &users, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	for _, user := range users {
		if err := r.loadPermissions(ctx, user); err != nil {
			return nil, err
		}
	}
	return users, nil
}

func (r *userRepository) GrantPermission(ctx context.Context, userID uuid.UUID, permission model.Permission) error {
	query := `
		INSERT INTO user_permissions (user_id, permission)
		VALUES ($1, $2)
		ON CONFLICT (user_id, permission) DO NOTHING
	`
	if _, err := r.db.ExecContext(ctx, query, userID, permission); err != nil {
		return fmt.Errorf("failed to grant permission: %w", err)
	}
	return nil
}

func (r *userRepository) loadPermissions(ctx context.Context, user *model.User) error {
	query := `SELECT permission FROM user_permissions WHERE user_id = $1`
	var raw []string
	if err := r.db.SelectContext(ctx, &raw, query, user.ID); err != nil {
		return fmt.Errorf("failed to load user permissions: %w", err)
	}
	perms := make([]model.Permission, 0, len(raw))
	for _, value := range raw {
		p, err := model.ParsePermission(value)
		if err != nil {
			// A stored value outside the vocabulary is ignored rather than
			// granted.
			continue
		}
		perms = append(perms, p)
	}
	user.Permissions = perms
	return nil
}
