package models

import "time"

const (
	// DefaultGroupName は名前が省略されたときのグループ名です。
	DefaultGroupName = "New Group"
	// ShareCodeLength は招待コードの文字数です。
	ShareCodeLength = 6
)

// Group は招待コードで参加できる共有グループです。
type Group struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	ShareCode string    `json:"share_code"`
	CreatedBy int64     `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
}

type CreateGroupRequest struct {
	Name string `json:"name"`
}

type JoinGroupRequest struct {
	Code string `json:"code"`
}
