package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"go-group-todo/internal/models"
	"go-group-todo/internal/repositories"
)

// dummyHash は存在しないユーザーでも bcrypt の比較時間を揃えるためのハッシュです。
var dummyHash = sync.OnceValue(func() string {
	h, err := repositories.HashPassword("dummy-password-for-timing")
	if err != nil {
		return ""
	}
	return h
})

// UserService はユーザー関連のビジネスロジックを扱います。
type UserService struct {
	userRepo *repositories.UserRepository
	logger   *zap.Logger
}

// NewUserService は新しいUserServiceを作成します。
func NewUserService(userRepo *repositories.UserRepository, logger *zap.Logger) *UserService {
	return &UserService{userRepo: userRepo, logger: logger}
}

// RegisterUser はユーザーを登録します。ユーザー名が使われている場合は ErrConflict です。
func (s *UserService) RegisterUser(ctx context.Context, req models.UserRegisterRequest) (*models.User, error) {
	username := strings.TrimSpace(req.Username)
	if username == "" || req.Password == "" {
		return nil, validationError("username and password are required")
	}

	hashedPassword, err := hashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	createdUser, err := s.userRepo.Create(ctx, &models.User{
		Username:     username,
		PasswordHash: hashedPassword,
	})
	if err != nil {
		if errors.Is(err, repositories.ErrDuplicateUsername) {
			return nil, fmt.Errorf("%w: username already taken", ErrConflict)
		}
		return nil, err
	}
	s.logger.Info("user registered", zap.Int64("user_id", createdUser.ID))

	createdUser.PasswordHash = "" // レスポンスにパスワードを含めない
	return createdUser, nil
}

// AuthenticateUser はユーザーを認証し、成功したらユーザーを返します。
// ユーザーが存在しない場合もパスワード違いと同じエラーを返します。
func (s *UserService) AuthenticateUser(ctx context.Context, req models.UserLoginRequest) (*models.User, error) {
	foundUser, err := s.userRepo.FindByUsername(ctx, strings.TrimSpace(req.Username))
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			_ = repositories.VerifyPassword(dummyHash(), req.Password)
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := repositories.VerifyPassword(foundUser.PasswordHash, req.Password); err != nil {
		return nil, ErrInvalidCredentials
	}

	foundUser.PasswordHash = "" // レスポンスにパスワードを含めない
	return foundUser, nil
}

// GetUser はIDでユーザーを取得します。
func (s *UserService) GetUser(ctx context.Context, userID int64) (*models.User, error) {
	u, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, fmt.Errorf("%w: user not found", ErrUnauthorized)
		}
		return nil, err
	}
	u.PasswordHash = ""
	return u, nil
}

// ChangePassword は現在のパスワードを確認してから新しいパスワードに変更します。
func (s *UserService) ChangePassword(ctx context.Context, userID int64, req models.ChangePasswordRequest) error {
	if req.NewPassword == "" {
		return validationError("new password is required")
	}

	u, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return ErrUnauthorized
		}
		return err
	}
	if err := repositories.VerifyPassword(u.PasswordHash, req.CurrentPassword); err != nil {
		return ErrInvalidCredentials
	}

	hashedPassword, err := hashPassword(req.NewPassword)
	if err != nil {
		return err
	}
	if err := s.userRepo.UpdatePassword(ctx, userID, hashedPassword); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	s.logger.Info("password changed", zap.Int64("user_id", userID))
	return nil
}

// hashPassword は長すぎるパスワードを入力エラーとして返します。
func hashPassword(password string) (string, error) {
	h, err := repositories.HashPassword(password)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", ErrPasswordTooLong
		}
		return "", err
	}
	return h, nil
}
