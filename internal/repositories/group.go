package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go-group-todo/internal/database"
	"go-group-todo/internal/models"
)

var (
	ErrGroupNotFound      = errors.New("group not found")
	ErrDuplicateShareCode = errors.New("duplicate share code")
)

const groupColumns = "g.id, g.name, g.share_code, g.created_by, g.created_at"

// GroupRepository はグループとメンバーシップを管理します。
type GroupRepository struct {
	DB *sql.DB
}

// NewGroupRepository は新しいGroupRepositoryを作成します。
func NewGroupRepository(db *sql.DB) *GroupRepository {
	return &GroupRepository{DB: db}
}

// CreateWithMember はグループと作成者のメンバーシップを1つのトランザクションで作成します。
// どちらかが失敗した場合は両方ロールバックされます。
func (r *GroupRepository) CreateWithMember(ctx context.Context, g *models.Group) (*models.Group, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("could not begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := dbNow()
	result, err := tx.ExecContext(ctx,
		"INSERT INTO todo_groups (name, share_code, created_by, created_at) VALUES (?, ?, ?, ?)",
		g.Name, g.ShareCode, g.CreatedBy, now)
	if err != nil {
		if database.IsDuplicateKey(err) {
			return nil, ErrDuplicateShareCode
		}
		return nil, fmt.Errorf("could not insert group: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("could not get last insert ID: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO group_members (group_id, user_id, joined_at) VALUES (?, ?, ?)",
		id, g.CreatedBy, now); err != nil {
		return nil, fmt.Errorf("could not insert group member: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("could not commit group: %w", err)
	}

	g.ID = id
	g.CreatedAt = now
	return g, nil
}

// FindByShareCode は招待コードでグループを検索します。
func (r *GroupRepository) FindByShareCode(ctx context.Context, code string) (*models.Group, error) {
	row := r.DB.QueryRowContext(ctx, "SELECT "+groupColumns+" FROM todo_groups g WHERE g.share_code = ?", code)
	return scanGroup(row)
}

// FindByID はIDでグループを検索します。
func (r *GroupRepository) FindByID(ctx context.Context, id int64) (*models.Group, error) {
	row := r.DB.QueryRowContext(ctx, "SELECT "+groupColumns+" FROM todo_groups g WHERE g.id = ?", id)
	return scanGroup(row)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanGroup(row rowScanner) (*models.Group, error) {
	var g models.Group
	if err := row.Scan(&g.ID, &g.Name, &g.ShareCode, &g.CreatedBy, &g.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrGroupNotFound
		}
		return nil, fmt.Errorf("could not query group: %w", err)
	}
	return &g, nil
}

// AddMember はユーザーをグループに追加します。
// 既にメンバーの場合は何もせず added=false を返します。
func (r *GroupRepository) AddMember(ctx context.Context, groupID, userID int64) (bool, error) {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO group_members (group_id, user_id, joined_at) VALUES (?, ?, ?)",
		groupID, userID, dbNow())
	if err != nil {
		if database.IsDuplicateKey(err) {
			return false, nil
		}
		return false, fmt.Errorf("could not add group member: %w", err)
	}
	return true, nil
}

// ListByUser はユーザーが参加しているグループをID順に返します。
func (r *GroupRepository) ListByUser(ctx context.Context, userID int64) ([]*models.Group, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+groupColumns+" FROM todo_groups g"+
			" JOIN group_members m ON m.group_id = g.id"+
			" WHERE m.user_id = ? ORDER BY g.id", userID)
	if err != nil {
		return nil, fmt.Errorf("could not query groups: %w", err)
	}
	defer rows.Close()

	groups := []*models.Group{}
	for rows.Next() {
		g, err := scanGroup(rows)
		if err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("could not iterate groups: %w", err)
	}
	return groups, nil
}

// IsMember はユーザーがグループのメンバーかどうかを返します。
func (r *GroupRepository) IsMember(ctx context.Context, groupID, userID int64) (bool, error) {
	var one int
	err := r.DB.QueryRowContext(ctx,
		"SELECT 1 FROM group_members WHERE group_id = ? AND user_id = ?", groupID, userID).Scan(&one)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("could not check membership: %w", err)
	}
	return true, nil
}
