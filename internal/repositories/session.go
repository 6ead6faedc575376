package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go-group-todo/internal/models"
)

var ErrSessionNotFound = errors.New("session not found")

// SessionRepository はログインセッションの保存先です。
type SessionRepository interface {
	Create(ctx context.Context, s *models.Session) error
	FindByID(ctx context.Context, id string) (*models.Session, error)
	Revoke(ctx context.Context, id string) error
	// RevokeOthers はユーザーの keepID 以外のセッションをすべて無効化します。
	RevokeOthers(ctx context.Context, userID int64, keepID string) error
	CleanupExpired(ctx context.Context) (int64, error)
}

// SQLSessionRepo はセッションを sessions テーブルに保存します。
type SQLSessionRepo struct {
	DB *sql.DB
}

func NewSQLSessionRepo(db *sql.DB) *SQLSessionRepo {
	return &SQLSessionRepo{DB: db}
}

func (r *SQLSessionRepo) Create(ctx context.Context, s *models.Session) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO sessions (id, user_id, created_at, expires_at) VALUES (?, ?, ?, ?)",
		s.ID, s.UserID, s.CreatedAt.UTC(), s.ExpiresAt.UTC())
	if err != nil {
		return fmt.Errorf("could not insert session: %w", err)
	}
	return nil
}

func (r *SQLSessionRepo) FindByID(ctx context.Context, id string) (*models.Session, error) {
	var (
		s         models.Session
		revokedAt sql.NullTime
	)
	err := r.DB.QueryRowContext(ctx,
		"SELECT id, user_id, created_at, expires_at, revoked_at FROM sessions WHERE id = ?", id,
	).Scan(&s.ID, &s.UserID, &s.CreatedAt, &s.ExpiresAt, &revokedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("could not query session: %w", err)
	}
	if revokedAt.Valid {
		s.RevokedAt = &revokedAt.Time
	}
	return &s, nil
}

// Revoke はセッションを無効化します。既に無効な場合も成功します。
func (r *SQLSessionRepo) Revoke(ctx context.Context, id string) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE sessions SET revoked_at = ? WHERE id = ? AND revoked_at IS NULL", dbNow(), id)
	if err != nil {
		return fmt.Errorf("could not revoke session: %w", err)
	}
	return nil
}

func (r *SQLSessionRepo) RevokeOthers(ctx context.Context, userID int64, keepID string) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE sessions SET revoked_at = ? WHERE user_id = ? AND id <> ? AND revoked_at IS NULL",
		dbNow(), userID, keepID)
	if err != nil {
		return fmt.Errorf("could not revoke sessions: %w", err)
	}
	return nil
}

// CleanupExpired は期限切れまたは無効化済みのセッションを削除し、削除件数を返します。
func (r *SQLSessionRepo) CleanupExpired(ctx context.Context) (int64, error) {
	res, err := r.DB.ExecContext(ctx,
		"DELETE FROM sessions WHERE revoked_at IS NOT NULL OR expires_at < ?", dbNow())
	if err != nil {
		return 0, fmt.Errorf("could not cleanup sessions: %w", err)
	}
	return res.RowsAffected()
}

// sessionTTL は now から見た残り有効期間を返します。
func sessionTTL(s *models.Session, now time.Time) time.Duration {
	return s.ExpiresAt.Sub(now)
}
