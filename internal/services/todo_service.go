package services

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"go-group-todo/internal/models"
	"go-group-todo/internal/repositories"
)

const maxTimeLength = 64

// TodoService はTodo関連のビジネスロジックを扱います。
// 書き込みや一覧の前に必ず Guard でアクセス権を確認します。
type TodoService struct {
	todoRepo *repositories.TodoRepository
	guard    *Guard
	logger   *zap.Logger
}

// NewTodoService は新しいTodoServiceを作成します。
func NewTodoService(todoRepo *repositories.TodoRepository, guard *Guard, logger *zap.Logger) *TodoService {
	return &TodoService{todoRepo: todoRepo, guard: guard, logger: logger}
}

// ListTodos は個人のTodo、または groupID が指定されればグループのTodoを返します。
func (s *TodoService) ListTodos(ctx context.Context, userID int64, groupID *int64, view models.View) ([]*models.Todo, error) {
	if groupID == nil {
		return s.todoRepo.FindPersonal(ctx, userID, view)
	}
	if err := s.guard.AuthorizeGroup(ctx, *groupID, userID); err != nil {
		return nil, err
	}
	return s.todoRepo.FindByGroup(ctx, *groupID, view)
}

// GetTodo は指定IDのTodoを取得し、認可チェックを行います。
func (s *TodoService) GetTodo(ctx context.Context, userID, todoID int64) (*models.Todo, error) {
	return s.guard.AuthorizeTodo(ctx, todoID, userID)
}

// CreateTodo は新しいTodoを作成します。
func (s *TodoService) CreateTodo(ctx context.Context, userID int64, req models.CreateTodoRequest) (*models.Todo, error) {
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return nil, validationError("text is required")
	}

	priority := req.Priority
	if priority == "" {
		priority = models.PriorityMedium
	}
	if !priority.Valid() {
		return nil, validationError("invalid priority")
	}

	dueTime, err := normalizeTime(req.Time)
	if err != nil {
		return nil, err
	}

	if req.GroupID != nil {
		if err := s.guard.AuthorizeGroup(ctx, *req.GroupID, userID); err != nil {
			return nil, err
		}
	}

	created, err := s.todoRepo.Create(ctx, &models.Todo{
		UserID:   userID,
		GroupID:  req.GroupID,
		Text:     text,
		Time:     dueTime,
		Priority: priority,
	})
	if err != nil {
		return nil, err
	}
	s.logger.Debug("todo created", zap.Int64("todo_id", created.ID), zap.Int64("user_id", userID))
	return created, nil
}

// UpdateTodo はTodoを部分更新します。フィールドが1つも無い場合は何も書き込みません。
func (s *TodoService) UpdateTodo(ctx context.Context, userID, todoID int64, patch models.TodoPatch) error {
	if _, err := s.guard.AuthorizeTodo(ctx, todoID, userID); err != nil {
		return err
	}
	if patch.IsEmpty() {
		return nil
	}

	if patch.Text.Set {
		patch.Text.Value = strings.TrimSpace(patch.Text.Value)
		if patch.Text.Value == "" {
			return validationError("text must not be empty")
		}
	}
	if patch.Priority.Set && !patch.Priority.Value.Valid() {
		return validationError("invalid priority")
	}
	if patch.Time.Set {
		t, err := normalizeTime(&patch.Time.Value)
		if err != nil {
			return err
		}
		patch.Time.Value = ""
		if t != nil {
			patch.Time.Value = *t
		}
	}

	return s.todoRepo.Update(ctx, todoID, patch)
}

// DeleteTodo はTodoを物理削除します。
func (s *TodoService) DeleteTodo(ctx context.Context, userID, todoID int64) error {
	if _, err := s.guard.AuthorizeTodo(ctx, todoID, userID); err != nil {
		return err
	}
	return s.todoRepo.Delete(ctx, todoID)
}

// normalizeTime は空の time を nil にします。
func normalizeTime(t *string) (*string, error) {
	if t == nil {
		return nil, nil
	}
	v := strings.TrimSpace(*t)
	if v == "" {
		return nil, nil
	}
	if len(v) > maxTimeLength {
		return nil, validationError("time is too long")
	}
	return &v, nil
}
