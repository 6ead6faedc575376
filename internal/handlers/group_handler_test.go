package handlers_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-group-todo/internal/models"
	"go-group-todo/testutil"
)

type joinResponse struct {
	Success bool          `json:"success"`
	Group   *models.Group `json:"group"`
	Message string        `json:"message"`
}

func joinGroup(t *testing.T, r http.Handler, token, code string) (int, joinResponse) {
	t.Helper()
	w := testutil.DoJSON(t, r, http.MethodPost, "/api/groups/join", token, map[string]string{"code": code})
	var res joinResponse
	if w.Code == http.StatusOK {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	}
	return w.Code, res
}

func TestCreateGroup(t *testing.T) {
	_, r, _, _ := testutil.SetupTestDB(t)
	token, _ := loginBoth(t, r)

	g := testutil.CreateTestGroup(t, r, token, "Family")
	assert.Equal(t, "Family", g.Name)
	assert.Regexp(t, `^[A-Z0-9]{6}$`, g.ShareCode)
	assert.Equal(t, int64(1), g.CreatedBy)

	t.Run("name defaults when omitted", func(t *testing.T) {
		w := testutil.DoJSON(t, r, http.MethodPost, "/api/groups", token, nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var res struct {
			Group models.Group `json:"group"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
		assert.Equal(t, models.DefaultGroupName, res.Group.Name)
	})

	t.Run("creator is a member", func(t *testing.T) {
		w := testutil.DoJSON(t, r, http.MethodGet, "/api/groups", token, nil)
		require.Equal(t, http.StatusOK, w.Code)
		var groups []models.Group
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &groups))
		require.Len(t, groups, 2)
		assert.Equal(t, g.ID, groups[0].ID)
	})
}

func TestJoinGroup(t *testing.T) {
	_, r, _, _ := testutil.SetupTestDB(t)
	tokenNormal, tokenOther := loginBoth(t, r)

	g := testutil.CreateTestGroup(t, r, tokenNormal, "Shared")

	t.Run("first join", func(t *testing.T) {
		code, res := joinGroup(t, r, tokenOther, strings.ToLower(g.ShareCode))
		require.Equal(t, http.StatusOK, code)
		assert.True(t, res.Success)
		assert.Equal(t, g.ID, res.Group.ID)
		assert.Empty(t, res.Message)
	})

	t.Run("second join is idempotent", func(t *testing.T) {
		code, res := joinGroup(t, r, tokenOther, g.ShareCode)
		require.Equal(t, http.StatusOK, code)
		assert.True(t, res.Success)
		assert.Equal(t, "Already joined", res.Message)
	})

	t.Run("unknown code", func(t *testing.T) {
		w := testutil.DoJSON(t, r, http.MethodPost, "/api/groups/join", tokenOther, map[string]string{"code": "ZZZZZZ"})
		if g.ShareCode == "ZZZZZZ" {
			t.Skip("generated code collided with the probe")
		}
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.JSONEq(t, `{"error":"Invalid share code"}`, w.Body.String())
	})

	t.Run("empty code", func(t *testing.T) {
		code, _ := joinGroup(t, r, tokenOther, "  ")
		assert.Equal(t, http.StatusBadRequest, code)
	})
}

func TestGroupTodos_MemberAccess(t *testing.T) {
	_, r, _, userRepo := testutil.SetupTestDB(t)
	tokenNormal, tokenOther := loginBoth(t, r)

	testutil.CreateTestUser(t, userRepo, "outsider", "outsiderpass")
	tokenOutsider, err := testutil.LoginAndGetToken(t, r, "outsider", "outsiderpass")
	require.NoError(t, err)

	g := testutil.CreateTestGroup(t, r, tokenNormal, "Team")
	code, _ := joinGroup(t, r, tokenOther, g.ShareCode)
	require.Equal(t, http.StatusOK, code)

	shared := testutil.CreateTestTodo(t, r, tokenNormal, map[string]any{"text": "Team task", "group_id": g.ID})
	require.NotNil(t, shared.GroupID)
	assert.Equal(t, g.ID, *shared.GroupID)

	groupQuery := fmt.Sprintf("?group_id=%d", g.ID)
	path := fmt.Sprintf("/api/todos/%d", shared.ID)

	t.Run("group todo is not in the personal list", func(t *testing.T) {
		assert.Empty(t, listTodos(t, r, tokenNormal, ""))
	})

	t.Run("every member sees and edits it", func(t *testing.T) {
		todos := listTodos(t, r, tokenOther, groupQuery)
		require.Len(t, todos, 1)
		assert.Equal(t, shared.ID, todos[0].ID)

		w := testutil.DoJSON(t, r, http.MethodPut, path, tokenOther, map[string]any{"completed": true})
		require.Equal(t, http.StatusOK, w.Code)

		todos = listTodos(t, r, tokenNormal, groupQuery)
		require.Len(t, todos, 1)
		assert.True(t, todos[0].Completed)
	})

	t.Run("non members are rejected", func(t *testing.T) {
		w := testutil.DoJSON(t, r, http.MethodGet, "/api/todos"+groupQuery, tokenOutsider, nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)

		for _, method := range []string{http.MethodGet, http.MethodPut, http.MethodDelete} {
			w := testutil.DoJSON(t, r, method, path, tokenOutsider, map[string]any{"text": "hijack"})
			assert.Equal(t, http.StatusUnauthorized, w.Code, method)
		}

		w = testutil.DoJSON(t, r, http.MethodPost, "/api/todos", tokenOutsider, map[string]any{"text": "spam", "group_id": g.ID})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("a member other than the creator can delete it", func(t *testing.T) {
		w := testutil.DoJSON(t, r, http.MethodDelete, path, tokenOther, nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, listTodos(t, r, tokenNormal, groupQuery+"&view=all"))
	})
}
