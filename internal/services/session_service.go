package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"go-group-todo/internal/models"
	"go-group-todo/internal/repositories"
)

// SessionService はログインセッションの発行・検証・破棄を扱います。
type SessionService struct {
	repo   repositories.SessionRepository
	jwt    *JWTService
	ttl    time.Duration
	logger *zap.Logger
	now    func() time.Time
}

// NewSessionService は新しいSessionServiceを作成します。
func NewSessionService(repo repositories.SessionRepository, jwtService *JWTService, ttl time.Duration, logger *zap.Logger) *SessionService {
	return &SessionService{
		repo:   repo,
		jwt:    jwtService,
		ttl:    ttl,
		logger: logger,
		now:    time.Now,
	}
}

// TTL はセッションの有効期間です。
func (s *SessionService) TTL() time.Duration {
	return s.ttl
}

// Start はユーザーの新しいセッションを作成し、トークンを返します。
func (s *SessionService) Start(ctx context.Context, userID int64) (string, error) {
	now := s.now().UTC().Truncate(time.Microsecond)
	session := &models.Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}
	if err := s.repo.Create(ctx, session); err != nil {
		return "", fmt.Errorf("failed to create session: %w", err)
	}

	token, err := s.jwt.GenerateToken(session)
	if err != nil {
		return "", err
	}
	return token, nil
}

// Resolve はトークンを検証し、有効なセッションのユーザーIDを返します。
// 無効なトークン・失効済み・期限切れはすべて ErrUnauthorized です。
func (s *SessionService) Resolve(ctx context.Context, token string) (int64, error) {
	if token == "" {
		return 0, ErrUnauthorized
	}
	claims, err := s.jwt.ValidateToken(token)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}

	session, err := s.repo.FindByID(ctx, claims.SessionID)
	if err != nil {
		if errors.Is(err, repositories.ErrSessionNotFound) {
			return 0, ErrUnauthorized
		}
		return 0, err
	}
	if session.UserID != claims.UserID || !session.Active(s.now()) {
		return 0, ErrUnauthorized
	}
	return session.UserID, nil
}

// End はトークンのセッションを無効化します。無効なトークンは無視します。
func (s *SessionService) End(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	claims, err := s.jwt.ValidateToken(token)
	if err != nil {
		return nil
	}
	return s.repo.Revoke(ctx, claims.SessionID)
}

// EndOthers は token のセッションを残して、ユーザーの他のセッションをすべて無効化します。
func (s *SessionService) EndOthers(ctx context.Context, userID int64, token string) error {
	keepID := ""
	if claims, err := s.jwt.ValidateToken(token); err == nil && claims.UserID == userID {
		keepID = claims.SessionID
	}
	if err := s.repo.RevokeOthers(ctx, userID, keepID); err != nil {
		return err
	}
	s.logger.Info("other sessions revoked", zap.Int64("user_id", userID))
	return nil
}

// Cleanup は期限切れのセッションを削除します。
func (s *SessionService) Cleanup(ctx context.Context) error {
	n, err := s.repo.CleanupExpired(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		s.logger.Info("expired sessions removed", zap.Int64("count", n))
	}
	return nil
}

// RunCleanup は ctx が終了するまで interval ごとに Cleanup を実行します。
func (s *SessionService) RunCleanup(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.Cleanup(ctx); err != nil {
				s.logger.Error("session cleanup failed", zap.Error(err))
			}
		}
	}
}
