package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	// SessionCookieName はセッショントークンを入れるクッキー名です。
	SessionCookieName = "todo_session"
	// ContextUserIDKey はミドルウェアが認証済みユーザーIDを入れるキーです。
	ContextUserIDKey = "user_id"
)

// ExtractToken は Authorization: Bearer ヘッダー、なければクッキーからトークンを取り出します。
func ExtractToken(c *gin.Context) string {
	if header := c.GetHeader("Authorization"); header != "" {
		if token, ok := strings.CutPrefix(header, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
		return ""
	}
	if cookie, err := c.Cookie(SessionCookieName); err == nil {
		return cookie
	}
	return ""
}

// CurrentUserID はミドルウェアが設定したユーザーIDを返します。
func CurrentUserID(c *gin.Context) (int64, bool) {
	v, exists := c.Get(ContextUserIDKey)
	if !exists {
		return 0, false
	}
	id, ok := v.(int64)
	return id, ok
}

// requireUser はユーザーIDを返します。無ければ 401 を返して false になります。
func requireUser(c *gin.Context) (int64, bool) {
	id, ok := CurrentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return 0, false
	}
	return id, true
}

func setSessionCookie(c *gin.Context, token string, maxAge int, secure bool) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SessionCookieName, token, maxAge, "/", "", secure, true)
}
