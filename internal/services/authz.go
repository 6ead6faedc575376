package services

import (
	"context"
	"errors"

	"go-group-todo/internal/models"
	"go-group-todo/internal/repositories"
)

// MembershipChecker はグループのメンバーかどうかを確認します。
type MembershipChecker interface {
	IsMember(ctx context.Context, groupID, userID int64) (bool, error)
}

// TodoFinder はIDでTodoを取得します。
type TodoFinder interface {
	FindByID(ctx context.Context, id int64) (*models.Todo, error)
}

// Guard はTodoとグループへのアクセス可否を判定します。参照のみで書き込みは行いません。
type Guard struct {
	members MembershipChecker
	todos   TodoFinder
}

// NewGuard は新しいGuardを作成します。
func NewGuard(members MembershipChecker, todos TodoFinder) *Guard {
	return &Guard{members: members, todos: todos}
}

// CanAccessTodo は個人Todoなら所有者、グループTodoならメンバーのときに true を返します。
func (g *Guard) CanAccessTodo(ctx context.Context, todo *models.Todo, userID int64) (bool, error) {
	if todo.Personal() {
		return todo.UserID == userID, nil
	}
	return g.members.IsMember(ctx, *todo.GroupID, userID)
}

// CanAccessGroup はユーザーがグループのメンバーかどうかを返します。
func (g *Guard) CanAccessGroup(ctx context.Context, groupID, userID int64) (bool, error) {
	return g.members.IsMember(ctx, groupID, userID)
}

// AuthorizeTodo はTodoを取得してアクセス権を確認します。
// 存在しない場合と権限が無い場合は区別せず ErrUnauthorized を返します。
func (g *Guard) AuthorizeTodo(ctx context.Context, todoID, userID int64) (*models.Todo, error) {
	todo, err := g.todos.FindByID(ctx, todoID)
	if err != nil {
		if errors.Is(err, repositories.ErrTodoNotFound) {
			return nil, ErrUnauthorized
		}
		return nil, err
	}
	ok, err := g.CanAccessTodo(ctx, todo, userID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrUnauthorized
	}
	return todo, nil
}

// AuthorizeGroup はメンバーでなければ ErrUnauthorized を返します。
func (g *Guard) AuthorizeGroup(ctx context.Context, groupID, userID int64) error {
	ok, err := g.CanAccessGroup(ctx, groupID, userID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrUnauthorized
	}
	return nil
}
