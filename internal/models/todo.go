// Package models はアプリケーションのデータ構造を定義します。
package models

import (
	"time"
)

// Priority はTodoの優先度です。
type Priority string

const (
	PriorityLow    Priority = "Low"
	PriorityMedium Priority = "Medium"
	PriorityHigh   Priority = "High"
)

// Valid は既知の優先度かどうかを返します。
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// View は一覧で返すTodoの絞り込みです。
type View string

const (
	ViewActive  View = "active"
	ViewDeleted View = "deleted"
	ViewAll     View = "all"
)

// ParseView は文字列を View に変換します。空文字は active です。
func ParseView(s string) (View, bool) {
	switch View(s) {
	case "", ViewActive:
		return ViewActive, true
	case ViewDeleted:
		return ViewDeleted, true
	case ViewAll:
		return ViewAll, true
	}
	return "", false
}

type Todo struct {
	ID        int64     `json:"id"`         // 主キー
	UserID    int64     `json:"user_id"`    // 作成者
	GroupID   *int64    `json:"group_id"`   // nil なら個人のTodo
	Text      string    `json:"text"`       // 本文（必須）
	Time      *string   `json:"time"`       // 予定（自由形式）
	Priority  Priority  `json:"priority"`   // Low / Medium / High
	Completed bool      `json:"completed"`  // 完了状態
	Deleted   bool      `json:"deleted"`    // ゴミ箱
	CreatedAt time.Time `json:"created_at"` // 作成日時
	UpdatedAt time.Time `json:"updated_at"` // 更新日時
}

// Personal はグループに属さないTodoかどうかを返します。
func (t *Todo) Personal() bool {
	return t.GroupID == nil
}

type CreateTodoRequest struct {
	Text     string   `json:"text" binding:"required"`
	Time     *string  `json:"time"`
	Priority Priority `json:"priority" binding:"omitempty,oneof=Low Medium High"`
	GroupID  *int64   `json:"group_id"`
}

// TodoPatch は部分更新の内容です。Set されたフィールドだけが書き換えられます。
type TodoPatch struct {
	Text      Optional[string]   `json:"text"`
	Time      Optional[string]   `json:"time"`
	Priority  Optional[Priority] `json:"priority"`
	Completed Optional[bool]     `json:"completed"`
	Deleted   Optional[bool]     `json:"deleted"`
}

// IsEmpty は更新対象のフィールドが1つも無いかどうかを返します。
func (p *TodoPatch) IsEmpty() bool {
	return !p.Text.Set && !p.Time.Set && !p.Priority.Set && !p.Completed.Set && !p.Deleted.Set
}
