package handlers

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"go-group-todo/internal/models"
	"go-group-todo/internal/services"
)

// TodoHandler はTodo関連のハンドラーを管理します。
type TodoHandler struct {
	todoService *services.TodoService
	logger      *zap.Logger
}

// NewTodoHandler は新しいTodoHandlerを作成します。
func NewTodoHandler(todoService *services.TodoService, logger *zap.Logger) *TodoHandler {
	return &TodoHandler{todoService: todoService, logger: logger}
}

// GetTodosHandler はTodoリストを取得します。group_id があればグループのTodoを返します。
func (h *TodoHandler) GetTodosHandler(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	view, ok := models.ParseView(c.Query("view"))
	if !ok {
		badRequest(c, "Invalid view")
		return
	}

	var groupID *int64
	if raw, exists := c.GetQuery("group_id"); exists && raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			badRequest(c, "Invalid group_id")
			return
		}
		groupID = &id
	}

	todos, err := h.todoService.ListTodos(c.Request.Context(), userID, groupID, view)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, todos)
}

// GetTodoByIDHandler は指定IDのTodoを取得します。
func (h *TodoHandler) GetTodoByIDHandler(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	id, ok := todoIDFromRequest(c)
	if !ok {
		return
	}

	todo, err := h.todoService.GetTodo(c.Request.Context(), userID, id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, todo)
}

// CreateTodoHandler は新しいTodoを作成します。
func (h *TodoHandler) CreateTodoHandler(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	var req models.CreateTodoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request payload")
		return
	}

	created, err := h.todoService.CreateTodo(c.Request.Context(), userID, req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, created)
}

// UpdateTodoHandler はTodoを部分更新します。IDはパスまたは ?id= で指定します。
func (h *TodoHandler) UpdateTodoHandler(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	id, ok := todoIDFromRequest(c)
	if !ok {
		return
	}

	var patch models.TodoPatch
	// 空のボディは更新なしとして扱う
	if err := c.ShouldBindJSON(&patch); err != nil && !errors.Is(err, io.EOF) {
		badRequest(c, "Invalid request payload")
		return
	}

	if err := h.todoService.UpdateTodo(c.Request.Context(), userID, id, patch); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// DeleteTodoHandler はTodoを削除します。IDはパスまたは ?id= で指定します。
func (h *TodoHandler) DeleteTodoHandler(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	id, ok := todoIDFromRequest(c)
	if !ok {
		return
	}

	if err := h.todoService.DeleteTodo(c.Request.Context(), userID, id); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// todoIDFromRequest はパスパラメータ、なければクエリから Todo ID を読み取ります。
func todoIDFromRequest(c *gin.Context) (int64, bool) {
	raw := c.Param("id")
	if raw == "" {
		raw = c.Query("id")
	}
	if raw == "" {
		badRequest(c, "ID required")
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, "Invalid ID format")
		return 0, false
	}
	return id, true
}
