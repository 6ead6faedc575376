// Package testutil はテスト用のデータベースとルーターを用意します。
package testutil

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"go-group-todo/internal/config"
	"go-group-todo/internal/database"
	"go-group-todo/internal/models"
	"go-group-todo/internal/repositories"
	"go-group-todo/internal/routes"
	"go-group-todo/internal/services"
)

// テスト用ユーザー。SetupTestDB がこの順で作成するので ID は 1, 2 になる。
const (
	NormalUser     = "normal_user"
	NormalPassword = "password123"
	OtherUser      = "other_user"
	OtherPassword  = "password456"
)

// TestConfig はテスト用の設定を返します。
func TestConfig(dbPath string) *config.Config {
	return &config.Config{
		Port:            "0",
		DBDriver:        config.DriverSQLite,
		DBPath:          dbPath,
		JWTSecret:       "test-secret-0123456789abcdef",
		SessionTTL:      time.Hour,
		SessionBackend:  config.SessionBackendSQL,
		CORSOrigins:     []string{"http://localhost:3000"},
		LogLevel:        "debug",
		LogFormat:       "json",
		ShutdownTimeout: time.Second,
	}
}

// OpenTestDB は t.TempDir() に空の SQLite データベースを作成し、スキーマを適用します。
func OpenTestDB(t *testing.T) (*sql.DB, *config.Config) {
	t.Helper()

	cfg := TestConfig(filepath.Join(t.TempDir(), "test.db"))
	ctx := context.Background()

	db, err := database.Open(ctx, cfg)
	require.NoError(t, err, "Failed to open database connection")
	t.Cleanup(func() { db.Close() })

	require.NoError(t, database.Migrate(ctx, db, cfg.DBDriver), "Failed to migrate test database")
	return db, cfg
}

// NewSessionService はテスト用の SQL バックエンドのセッションサービスを作成します。
func NewSessionService(db *sql.DB, cfg *config.Config) *services.SessionService {
	return services.NewSessionService(
		repositories.NewSQLSessionRepo(db),
		services.NewJWTService(cfg.JWTSecret),
		cfg.SessionTTL,
		zap.NewNop(),
	)
}

// SetupTestDB はテスト用のデータベースを作成し、テストユーザーを投入してルーターを返します。
func SetupTestDB(t *testing.T) (*sql.DB, *gin.Engine, *repositories.TodoRepository, *repositories.UserRepository) {
	t.Helper()

	db, cfg := OpenTestDB(t)

	userRepo := repositories.NewUserRepository(db)
	CreateTestUser(t, userRepo, NormalUser, NormalPassword)
	CreateTestUser(t, userRepo, OtherUser, OtherPassword)

	router := SetupTestRouter(t, db, cfg)
	todoRepo := repositories.NewTodoRepository(db)

	return db, router, todoRepo, userRepo
}

// SetupTestRouter はテスト用のGinルーターを作成します。
func SetupTestRouter(t *testing.T, db *sql.DB, cfg *config.Config) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	return routes.SetupRouter(routes.Dependencies{
		DB:       db,
		Config:   cfg,
		Logger:   zap.NewNop(),
		Sessions: NewSessionService(db, cfg),
	})
}

// CreateTestUser はユーザーを直接データベースに作成します。
func CreateTestUser(t *testing.T, userRepo *repositories.UserRepository, username, password string) *models.User {
	t.Helper()

	hashedPassword, err := repositories.HashPassword(password)
	require.NoError(t, err)

	createdUser, err := userRepo.Create(context.Background(), &models.User{
		Username:     username,
		PasswordHash: hashedPassword,
	})
	require.NoError(t, err)
	require.NotNil(t, createdUser)
	require.NotZero(t, createdUser.ID)
	return createdUser
}

// DoJSON は JSON ボディ付きのリクエストをルーターに送ります。token が空なら認証ヘッダーを付けません。
func DoJSON(t *testing.T, router http.Handler, method, path, token string, payload any) *httptest.ResponseRecorder {
	t.Helper()

	var body *bytes.Buffer
	if payload != nil {
		b, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewBuffer(b)
	} else {
		body = &bytes.Buffer{}
	}

	req := httptest.NewRequest(method, path, body)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

// LoginAndGetToken はログインしてトークンを返します。
func LoginAndGetToken(t *testing.T, router http.Handler, username, password string) (string, error) {
	t.Helper()

	resp := DoJSON(t, router, http.MethodPost, "/api/login", "", map[string]string{
		"username": username,
		"password": password,
	})
	if resp.Code != http.StatusOK {
		return "", fmt.Errorf("login failed with status %d: %s", resp.Code, resp.Body.String())
	}

	var loginRes map[string]interface{}
	if err := json.Unmarshal(resp.Body.Bytes(), &loginRes); err != nil {
		return "", fmt.Errorf("failed to unmarshal login response: %w", err)
	}

	token, ok := loginRes["token"].(string)
	if !ok {
		return "", errors.New("token not found or not a string in login response")
	}
	return token, nil
}

// CreateTestTodo はAPI経由でTodoを作成します。
func CreateTestTodo(t *testing.T, router http.Handler, token string, payload map[string]any) *models.Todo {
	t.Helper()

	resp := DoJSON(t, router, http.MethodPost, "/api/todos", token, payload)
	require.Equal(t, http.StatusOK, resp.Code, "TODO作成に失敗しました: %s", resp.Body.String())

	var createdTodo models.Todo
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &createdTodo))
	return &createdTodo
}

// CreateTestGroup はAPI経由でグループを作成します。
func CreateTestGroup(t *testing.T, router http.Handler, token, name string) *models.Group {
	t.Helper()

	resp := DoJSON(t, router, http.MethodPost, "/api/groups", token, map[string]string{"name": name})
	require.Equal(t, http.StatusOK, resp.Code, "グループ作成に失敗しました: %s", resp.Body.String())

	var res struct {
		Success bool          `json:"success"`
		Group   *models.Group `json:"group"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &res))
	require.True(t, res.Success)
	require.NotNil(t, res.Group)
	return res.Group
}
