// Package services はアプリケーションのビジネスロジックを提供します。
package services

import (
	"errors"
	"fmt"
)

// HTTP ステータスに対応するエラーです。ハンドラーは errors.Is で判定します。
var (
	ErrValidation   = errors.New("validation error")
	ErrUnauthorized = errors.New("unauthorized")
	ErrConflict     = errors.New("conflict")
	ErrNotFound     = errors.New("not found")
)

// ErrInvalidCredentials はユーザー名またはパスワードが違う場合のエラーです。
var ErrInvalidCredentials = fmt.Errorf("%w: invalid credentials", ErrUnauthorized)

// ErrPasswordTooLong は bcrypt が扱える 72 バイトを超えるパスワードのエラーです。
var ErrPasswordTooLong = fmt.Errorf("%w: password must be at most 72 bytes", ErrValidation)

func validationError(msg string) error {
	return fmt.Errorf("%w: %s", ErrValidation, msg)
}
