package routes

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"go-group-todo/internal/handlers"
	"go-group-todo/internal/services"
)

// SessionMiddleware はセッショントークンを検証し、ユーザーIDをコンテキストに設定するミドルウェアです。
// トークンが無い・無効な場合はリソースを参照する前に 401 を返します。
func SessionMiddleware(sessions *services.SessionService, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := sessions.Resolve(c.Request.Context(), handlers.ExtractToken(c))
		if err != nil {
			if !errors.Is(err, services.ErrUnauthorized) {
				logger.Error("session lookup failed", zap.Error(err))
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		c.Set(handlers.ContextUserIDKey, userID)
		c.Next()
	}
}

// RequestLogger はリクエストごとにメソッド・パス・ステータス・処理時間をログに出します。
func RequestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		}
		if userID, ok := handlers.CurrentUserID(c); ok {
			fields = append(fields, zap.Int64("user_id", userID))
		}

		switch status := c.Writer.Status(); {
		case status >= http.StatusInternalServerError:
			logger.Error("request completed", fields...)
		case status >= http.StatusBadRequest:
			logger.Warn("request completed", fields...)
		default:
			logger.Info("request completed", fields...)
		}
	}
}
