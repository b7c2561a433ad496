package db

import (
	"context"
	"fmt"
	"time"
)

func (p *Pool) CountAdminUsers(ctx context.Context) (int64, error) {
	const q = `SELECT COUNT(*) FROM babel.admin_users`

	var count int64
	if err := p.QueryRow(ctx, q).Scan(&count); err != nil {
		return 0, fmt.Errorf("count admin users: %w", err)
	}
	return count, nil
}

func (p *Pool) CreateAdminUser(ctx context.Context, username, passwordHash string) (*AdminUser, error) {
	const q = `
INSERT INTO babel.admin_users (username, password_hash, created_at)
VALUES ($1, $2, now())
RETURNING user_id, username, password_hash, created_at, last_login_at`

	var user AdminUser
	err := p.QueryRow(ctx, q, username, passwordHash).Scan(
		&user.UserID, &user.Username, &user.PasswordHash, &user.CreatedAt, &user.LastLoginAt)
	if err != nil {
		return nil, fmt.Errorf("create admin user %s: %w", username, err)
	}
	return &user, nil
}

func (p *Pool) GetAdminUserByUsername(ctx context.Context, username string) (*AdminUser, error) {
	const q = `
SELECT user_id, username, password_hash, created_at, last_login_at
FROM babel.admin_users
WHERE username = $1`

	var user AdminUser
	err := p.QueryRow(ctx, q, username).Scan(
		&user.UserID, &user.Username, &user.PasswordHash, &user.CreatedAt, &user.LastLoginAt)
	if IsNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get admin user %s: %w", username, err)
	}
	return &user, nil
}

func (p *Pool) TouchAdminUserLogin(ctx context.Context, userID int64, at time.Time) error {
	const q = `UPDATE babel.admin_users SET last_login_at = $2 WHERE user_id = $1`

	if _, err := p.Exec(ctx, q, userID, at.UTC()); err != nil {
		return fmt.Errorf("touch admin user login: %w", err)
	}
	return nil
}
