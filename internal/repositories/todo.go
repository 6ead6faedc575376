package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go-group-todo/internal/models"
)

// ErrTodoNotFound はTODOが見つからない場合のエラーです。
var ErrTodoNotFound = errors.New("todo not found")

const todoColumns = "id, user_id, group_id, text, due_time, priority, completed, deleted, created_at, updated_at"

// TodoRepository はTodoのデータベース操作を行うための構造体です。
type TodoRepository struct {
	DB *sql.DB
}

// NewTodoRepository は新しいTodoRepositoryインスタンスを作成します。
func NewTodoRepository(db *sql.DB) *TodoRepository {
	return &TodoRepository{DB: db}
}

// Create は新しいTodoをデータベースに挿入し、保存されたレコードを返します。
func (r *TodoRepository) Create(ctx context.Context, t *models.Todo) (*models.Todo, error) {
	now := dbNow()
	result, err := r.DB.ExecContext(ctx,
		"INSERT INTO todos (user_id, group_id, text, due_time, priority, completed, deleted, created_at, updated_at)"+
			" VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)",
		t.UserID, nullInt64(t.GroupID), t.Text, nullString(t.Time), string(t.Priority),
		false, false, now, now)
	if err != nil {
		return nil, fmt.Errorf("could not insert todo: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("could not get last insert ID: %w", err)
	}

	return r.FindByID(ctx, id)
}

// FindByID は指定されたIDのTodoを取得します。
func (r *TodoRepository) FindByID(ctx context.Context, id int64) (*models.Todo, error) {
	row := r.DB.QueryRowContext(ctx, "SELECT "+todoColumns+" FROM todos WHERE id = ?", id)
	t, err := scanTodo(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTodoNotFound
		}
		return nil, fmt.Errorf("could not query todo: %w", err)
	}
	return t, nil
}

// FindPersonal はユーザーの個人Todo (グループなし) を新しい順に返します。
func (r *TodoRepository) FindPersonal(ctx context.Context, userID int64, view models.View) ([]*models.Todo, error) {
	query := "SELECT " + todoColumns + " FROM todos WHERE user_id = ? AND group_id IS NULL" +
		viewCondition(view) + " ORDER BY created_at DESC, id DESC"
	return r.query(ctx, query, userID)
}

// FindByGroup はグループのTodoを新しい順に返します。権限の確認は呼び出し側で行います。
func (r *TodoRepository) FindByGroup(ctx context.Context, groupID int64, view models.View) ([]*models.Todo, error) {
	query := "SELECT " + todoColumns + " FROM todos WHERE group_id = ?" +
		viewCondition(view) + " ORDER BY created_at DESC, id DESC"
	return r.query(ctx, query, groupID)
}

func viewCondition(view models.View) string {
	switch view {
	case models.ViewDeleted:
		return " AND deleted = TRUE"
	case models.ViewAll:
		return ""
	default:
		return " AND deleted = FALSE"
	}
}

func (r *TodoRepository) query(ctx context.Context, query string, args ...any) ([]*models.Todo, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("could not query todos: %w", err)
	}
	defer rows.Close()

	todos := []*models.Todo{}
	for rows.Next() {
		t, err := scanTodo(rows)
		if err != nil {
			return nil, fmt.Errorf("could not scan todo: %w", err)
		}
		todos = append(todos, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating todos: %w", err)
	}
	return todos, nil
}

func scanTodo(row rowScanner) (*models.Todo, error) {
	var (
		t        models.Todo
		groupID  sql.NullInt64
		dueTime  sql.NullString
		priority string
	)
	err := row.Scan(
		&t.ID,
		&t.UserID,
		&groupID,
		&t.Text,
		&dueTime,
		&priority,
		&t.Completed,
		&t.Deleted,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if groupID.Valid {
		t.GroupID = &groupID.Int64
	}
	if dueTime.Valid {
		t.Time = &dueTime.String
	}
	t.Priority = models.Priority(priority)
	return &t, nil
}

// Update はパッチでセットされたフィールドだけを更新します。
// 空文字の time は NULL として保存されます。
func (r *TodoRepository) Update(ctx context.Context, id int64, p models.TodoPatch) error {
	var dueTime sql.NullString
	if p.Time.Set && p.Time.Value != "" {
		dueTime = sql.NullString{String: p.Time.Value, Valid: true}
	}

	query := `UPDATE todos SET
		text = CASE WHEN ? THEN ? ELSE text END,
		due_time = CASE WHEN ? THEN ? ELSE due_time END,
		priority = CASE WHEN ? THEN ? ELSE priority END,
		completed = CASE WHEN ? THEN ? ELSE completed END,
		deleted = CASE WHEN ? THEN ? ELSE deleted END,
		updated_at = ?
		WHERE id = ?`

	_, err := r.DB.ExecContext(ctx, query,
		p.Text.Set, p.Text.Value,
		p.Time.Set, dueTime,
		p.Priority.Set, string(p.Priority.Value),
		p.Completed.Set, p.Completed.Value,
		p.Deleted.Set, p.Deleted.Value,
		dbNow(), id)
	if err != nil {
		return fmt.Errorf("could not update todo: %w", err)
	}
	return nil
}

// Delete は指定されたIDのTodoを物理削除します。存在しなくてもエラーにはなりません。
func (r *TodoRepository) Delete(ctx context.Context, id int64) error {
	if _, err := r.DB.ExecContext(ctx, "DELETE FROM todos WHERE id = ?", id); err != nil {
		return fmt.Errorf("could not delete todo: %w", err)
	}
	return nil
}

func nullInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func nullString(v *string) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *v, Valid: true}
}
