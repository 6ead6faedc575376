package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"go-group-todo/internal/models"
	"go-group-todo/internal/services"
)

// UserHandler はユーザー関連のハンドラーを管理します。
type UserHandler struct {
	userService  *services.UserService
	sessions     *services.SessionService
	cookieSecure bool
	logger       *zap.Logger
}

// NewUserHandler は新しいUserHandlerを作成します。
func NewUserHandler(userService *services.UserService, sessions *services.SessionService, cookieSecure bool, logger *zap.Logger) *UserHandler {
	return &UserHandler{
		userService:  userService,
		sessions:     sessions,
		cookieSecure: cookieSecure,
		logger:       logger,
	}
}

// RegisterHandler はユーザー登録を処理します。
func (h *UserHandler) RegisterHandler(c *gin.Context) {
	var req models.UserRegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Username and password required")
		return
	}

	user, err := h.userService.RegisterUser(c.Request.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrConflict):
			c.JSON(http.StatusConflict, gin.H{"error": "Username already taken"})
		case errors.Is(err, services.ErrPasswordTooLong):
			badRequest(c, "Password must be at most 72 bytes")
		case errors.Is(err, services.ErrValidation):
			badRequest(c, "Username and password required")
		default:
			respondError(c, h.logger, err)
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "User created", "user": user.Public()})
}

// LoginHandler はユーザーログインを処理します。
func (h *UserHandler) LoginHandler(c *gin.Context) {
	var req models.UserLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Username and password required")
		return
	}

	ctx := c.Request.Context()
	user, err := h.userService.AuthenticateUser(ctx, req)
	if err != nil {
		if errors.Is(err, services.ErrUnauthorized) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
			return
		}
		respondError(c, h.logger, err)
		return
	}

	token, err := h.sessions.Start(ctx, user.ID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	setSessionCookie(c, token, int(h.sessions.TTL().Seconds()), h.cookieSecure)

	c.JSON(http.StatusOK, gin.H{
		"message": "Login successful",
		"user":    user.Public(),
		"token":   token,
	})
}

// CheckAuthHandler はセッションが有効かどうかを返します。
func (h *UserHandler) CheckAuthHandler(c *gin.Context) {
	ctx := c.Request.Context()
	userID, err := h.sessions.Resolve(ctx, ExtractToken(c))
	if err != nil {
		if !errors.Is(err, services.ErrUnauthorized) {
			h.logger.Error("session lookup failed", zap.Error(err))
		}
		c.JSON(http.StatusUnauthorized, gin.H{"authenticated": false})
		return
	}

	user, err := h.userService.GetUser(ctx, userID)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"authenticated": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{"authenticated": true, "user": user.Public()})
}

// LogoutHandler はセッションを無効化してクッキーを削除します。常に 200 を返します。
func (h *UserHandler) LogoutHandler(c *gin.Context) {
	if err := h.sessions.End(c.Request.Context(), ExtractToken(c)); err != nil {
		h.logger.Warn("failed to revoke session", zap.Error(err))
	}
	setSessionCookie(c, "", -1, h.cookieSecure)
	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}

// ChangePasswordHandler はログイン中のユーザーのパスワードを変更します。
func (h *UserHandler) ChangePasswordHandler(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	var req models.ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "current_password and new_password required")
		return
	}

	if err := h.userService.ChangePassword(c.Request.Context(), userID, req); err != nil {
		respondError(c, h.logger, err)
		return
	}
	// パスワードは変更済みなので、失敗してもログだけ残して成功を返す
	if err := h.sessions.EndOthers(c.Request.Context(), userID, ExtractToken(c)); err != nil {
		h.logger.Error("failed to revoke other sessions", zap.Int64("user_id", userID), zap.Error(err))
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
