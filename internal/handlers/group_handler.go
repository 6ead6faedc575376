package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"go-group-todo/internal/models"
	"go-group-todo/internal/services"
)

// GroupHandler はグループ関連のハンドラーを管理します。
type GroupHandler struct {
	groupService *services.GroupService
	logger       *zap.Logger
}

// NewGroupHandler は新しいGroupHandlerを作成します。
func NewGroupHandler(groupService *services.GroupService, logger *zap.Logger) *GroupHandler {
	return &GroupHandler{groupService: groupService, logger: logger}
}

// CreateGroupHandler はグループを作成します。名前が無い場合は既定の名前になります。
func (h *GroupHandler) CreateGroupHandler(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	var req models.CreateGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		badRequest(c, "Invalid request payload")
		return
	}

	group, err := h.groupService.CreateGroup(c.Request.Context(), userID, req.Name)
	if err != nil {
		if errors.Is(err, services.ErrValidation) {
			respondError(c, h.logger, err)
			return
		}
		h.logger.Error("failed to create group", zap.Int64("user_id", userID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create group"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "group": group})
}

// JoinGroupHandler は招待コードでグループに参加します。
func (h *GroupHandler) JoinGroupHandler(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	var req models.JoinGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		badRequest(c, "Invalid request payload")
		return
	}

	group, alreadyMember, err := h.groupService.JoinGroup(c.Request.Context(), userID, req.Code)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrValidation):
			badRequest(c, "Code is required")
		case errors.Is(err, services.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Invalid share code"})
		default:
			respondError(c, h.logger, err)
		}
		return
	}

	resp := gin.H{"success": true, "group": group}
	if alreadyMember {
		resp["message"] = "Already joined"
	}
	c.JSON(http.StatusOK, resp)
}

// ListGroupsHandler は参加しているグループを返します。
func (h *GroupHandler) ListGroupsHandler(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	groups, err := h.groupService.ListGroups(c.Request.Context(), userID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, groups)
}
