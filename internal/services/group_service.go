package services

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"go.uber.org/zap"

	"go-group-todo/internal/models"
	"go-group-todo/internal/repositories"
)

const (
	shareCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	// shareCodeAttempts は招待コードが衝突したときの最大試行回数です。
	shareCodeAttempts = 5

	maxGroupNameLength = 100
)

// GenerateShareCode は A-Z0-9 からなる6文字の招待コードを生成します。
func GenerateShareCode() (string, error) {
	limit := big.NewInt(int64(len(shareCodeAlphabet)))
	var b strings.Builder
	b.Grow(models.ShareCodeLength)
	for i := 0; i < models.ShareCodeLength; i++ {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", fmt.Errorf("failed to generate share code: %w", err)
		}
		b.WriteByte(shareCodeAlphabet[n.Int64()])
	}
	return b.String(), nil
}

// GroupService はグループの作成・参加・一覧を扱います。
type GroupService struct {
	groupRepo *repositories.GroupRepository
	logger    *zap.Logger
	newCode   func() (string, error)
}

// NewGroupService は新しいGroupServiceを作成します。
func NewGroupService(groupRepo *repositories.GroupRepository, logger *zap.Logger) *GroupService {
	return &GroupService{groupRepo: groupRepo, logger: logger, newCode: GenerateShareCode}
}

// CreateGroup はグループを作成し、作成者をメンバーに加えます。
func (s *GroupService) CreateGroup(ctx context.Context, userID int64, name string) (*models.Group, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = models.DefaultGroupName
	}
	if len([]rune(name)) > maxGroupNameLength {
		return nil, validationError("group name is too long")
	}

	for attempt := 1; attempt <= shareCodeAttempts; attempt++ {
		code, err := s.newCode()
		if err != nil {
			return nil, err
		}

		group, err := s.groupRepo.CreateWithMember(ctx, &models.Group{
			Name:      name,
			ShareCode: code,
			CreatedBy: userID,
		})
		if err == nil {
			s.logger.Info("group created",
				zap.Int64("group_id", group.ID),
				zap.Int64("user_id", userID))
			return group, nil
		}
		if !errors.Is(err, repositories.ErrDuplicateShareCode) {
			return nil, err
		}
		s.logger.Warn("share code collision", zap.Int("attempt", attempt))
	}
	return nil, fmt.Errorf("failed to allocate a unique share code after %d attempts", shareCodeAttempts)
}

// JoinGroup は招待コードでグループに参加します。
// 既にメンバーの場合も成功し、alreadyMember が true になります。
func (s *GroupService) JoinGroup(ctx context.Context, userID int64, code string) (group *models.Group, alreadyMember bool, err error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, false, validationError("code is required")
	}

	group, err = s.groupRepo.FindByShareCode(ctx, code)
	if err != nil {
		if errors.Is(err, repositories.ErrGroupNotFound) {
			return nil, false, fmt.Errorf("%w: group not found", ErrNotFound)
		}
		return nil, false, err
	}

	added, err := s.groupRepo.AddMember(ctx, group.ID, userID)
	if err != nil {
		return nil, false, err
	}
	if added {
		s.logger.Info("group joined",
			zap.Int64("group_id", group.ID),
			zap.Int64("user_id", userID))
	}
	return group, !added, nil
}

// ListGroups はユーザーが参加しているグループを返します。
func (s *GroupService) ListGroups(ctx context.Context, userID int64) ([]*models.Group, error) {
	return s.groupRepo.ListByUser(ctx, userID)
}
