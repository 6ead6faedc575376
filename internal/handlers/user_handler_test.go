package handlers_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-group-todo/internal/handlers"
	"go-group-todo/internal/repositories"
	"go-group-todo/testutil"
)

func TestRegisterUser_Success(t *testing.T) {
	_, r, _, _ := testutil.SetupTestDB(t)

	w := testutil.DoJSON(t, r, http.MethodPost, "/api/register", "", map[string]string{
		"username": "newuser",
		"password": "newpassword",
	})

	assert.Equal(t, http.StatusCreated, w.Code, "Expected HTTP Status Code 201 Created")

	var response struct {
		Message string         `json:"message"`
		User    map[string]any `json:"user"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "User created", response.Message)
	assert.NotZero(t, response.User["id"], "Expected a non-zero User ID")
	assert.Equal(t, "newuser", response.User["username"])
	assert.NotContains(t, w.Body.String(), "password", "Password hash should not be returned in response")
}

func TestRegisterUser_InvalidInput(t *testing.T) {
	_, r, _, _ := testutil.SetupTestDB(t)

	w := testutil.DoJSON(t, r, http.MethodPost, "/api/register", "", map[string]string{
		"username": "invaliduser",
	})

	assert.Equal(t, http.StatusBadRequest, w.Code, "Expected HTTP Status Code 400 Bad Request")
	var response map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "Username and password required", response["error"])
}

func TestRegisterUser_DuplicateUsername(t *testing.T) {
	_, r, _, userRepo := testutil.SetupTestDB(t)

	w := testutil.DoJSON(t, r, http.MethodPost, "/api/register", "", map[string]string{
		"username": testutil.NormalUser,
		"password": "somepassword",
	})

	assert.Equal(t, http.StatusConflict, w.Code, "Expected HTTP Status Code 409 Conflict for duplicate username")
	var response map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "Username already taken", response["error"])

	// 既存ユーザーのパスワードは変わらない
	u, err := userRepo.FindByUsername(t.Context(), testutil.NormalUser)
	require.NoError(t, err)
	assert.NoError(t, repositories.VerifyPassword(u.PasswordHash, testutil.NormalPassword))
}

func TestLoginUser_Success(t *testing.T) {
	_, r, _, _ := testutil.SetupTestDB(t)

	w := testutil.DoJSON(t, r, http.MethodPost, "/api/login", "", map[string]string{
		"username": testutil.NormalUser,
		"password": testutil.NormalPassword,
	})

	require.Equal(t, http.StatusOK, w.Code)
	var response map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "Login successful", response["message"])
	assert.NotEmpty(t, response["token"])
	user := response["user"].(map[string]any)
	assert.Equal(t, float64(1), user["id"]) // idはfloat64でデコードされる
	assert.Equal(t, testutil.NormalUser, user["username"])

	var sessionCookie *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == handlers.SessionCookieName {
			sessionCookie = c
		}
	}
	require.NotNil(t, sessionCookie, "login should set the session cookie")
	assert.True(t, sessionCookie.HttpOnly)
	assert.Equal(t, response["token"], sessionCookie.Value)
}

func TestLoginUser_InvalidCredentials(t *testing.T) {
	_, r, _, _ := testutil.SetupTestDB(t)

	tests := []struct {
		name     string
		username string
		password string
	}{
		{"wrong password", testutil.NormalUser, "wrongpassword"},
		{"unknown user", "nobody", "password123"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := testutil.DoJSON(t, r, http.MethodPost, "/api/login", "", map[string]string{
				"username": tt.username,
				"password": tt.password,
			})

			assert.Equal(t, http.StatusUnauthorized, w.Code)
			var response map[string]string
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
			assert.Equal(t, "Invalid credentials", response["error"])
		})
	}
}

func TestCheckAuthAndLogout(t *testing.T) {
	_, r, _, _ := testutil.SetupTestDB(t)

	token, err := testutil.LoginAndGetToken(t, r, testutil.NormalUser, testutil.NormalPassword)
	require.NoError(t, err)

	t.Run("valid bearer token", func(t *testing.T) {
		w := testutil.DoJSON(t, r, http.MethodGet, "/api/check-auth", token, nil)
		require.Equal(t, http.StatusOK, w.Code)
		var response map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, true, response["authenticated"])
	})

	t.Run("valid cookie", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/check-auth", nil)
		req.AddCookie(&http.Cookie{Name: handlers.SessionCookieName, Value: token})
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("no token", func(t *testing.T) {
		w := testutil.DoJSON(t, r, http.MethodGet, "/api/check-auth", "", nil)
		require.Equal(t, http.StatusUnauthorized, w.Code)
		assert.JSONEq(t, `{"authenticated":false}`, w.Body.String())
	})

	t.Run("logout revokes the token", func(t *testing.T) {
		w := testutil.DoJSON(t, r, http.MethodPost, "/api/logout", token, nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"message":"Logged out"}`, w.Body.String())

		w = testutil.DoJSON(t, r, http.MethodGet, "/api/check-auth", token, nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		w = testutil.DoJSON(t, r, http.MethodGet, "/api/todos", token, nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("logout without session still succeeds", func(t *testing.T) {
		w := testutil.DoJSON(t, r, http.MethodPost, "/api/logout", "", nil)
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestChangePassword(t *testing.T) {
	_, r, _, _ := testutil.SetupTestDB(t)

	token, err := testutil.LoginAndGetToken(t, r, testutil.NormalUser, testutil.NormalPassword)
	require.NoError(t, err)

	w := testutil.DoJSON(t, r, http.MethodPut, "/api/password", token, map[string]string{
		"current_password": "wrong",
		"new_password":     "brand-new",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = testutil.DoJSON(t, r, http.MethodPut, "/api/password", token, map[string]string{
		"current_password": testutil.NormalPassword,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = testutil.DoJSON(t, r, http.MethodPut, "/api/password", token, map[string]string{
		"current_password": testutil.NormalPassword,
		"new_password":     "brand-new",
	})
	require.Equal(t, http.StatusOK, w.Code)

	_, err = testutil.LoginAndGetToken(t, r, testutil.NormalUser, testutil.NormalPassword)
	assert.Error(t, err)
	_, err = testutil.LoginAndGetToken(t, r, testutil.NormalUser, "brand-new")
	assert.NoError(t, err)
}

func TestChangePassword_RevokesOtherSessions(t *testing.T) {
	_, r, _, _ := testutil.SetupTestDB(t)

	current, err := testutil.LoginAndGetToken(t, r, testutil.NormalUser, testutil.NormalPassword)
	require.NoError(t, err)
	otherDevice, err := testutil.LoginAndGetToken(t, r, testutil.NormalUser, testutil.NormalPassword)
	require.NoError(t, err)
	otherUser, err := testutil.LoginAndGetToken(t, r, testutil.OtherUser, testutil.OtherPassword)
	require.NoError(t, err)

	w := testutil.DoJSON(t, r, http.MethodPut, "/api/password", current, map[string]string{
		"current_password": testutil.NormalPassword,
		"new_password":     "brand-new",
	})
	require.Equal(t, http.StatusOK, w.Code)

	w = testutil.DoJSON(t, r, http.MethodGet, "/api/todos", current, nil)
	assert.Equal(t, http.StatusOK, w.Code, "the session that changed the password stays valid")
	w = testutil.DoJSON(t, r, http.MethodGet, "/api/todos", otherDevice, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	w = testutil.DoJSON(t, r, http.MethodGet, "/api/todos", otherUser, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestPasswordTooLong(t *testing.T) {
	_, r, _, _ := testutil.SetupTestDB(t)
	long := strings.Repeat("p", 73)

	w := testutil.DoJSON(t, r, http.MethodPost, "/api/register", "", map[string]string{
		"username": "longpw",
		"password": long,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"Password must be at most 72 bytes"}`, w.Body.String())

	token, err := testutil.LoginAndGetToken(t, r, testutil.NormalUser, testutil.NormalPassword)
	require.NoError(t, err)

	w = testutil.DoJSON(t, r, http.MethodPut, "/api/password", token, map[string]string{
		"current_password": testutil.NormalPassword,
		"new_password":     long,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"password must be at most 72 bytes"}`, w.Body.String())

	// パスワードは変わっていない
	_, err = testutil.LoginAndGetToken(t, r, testutil.NormalUser, testutil.NormalPassword)
	assert.NoError(t, err)
}

func TestRegisterUser_MalformedJSON(t *testing.T) {
	_, r, _, _ := testutil.SetupTestDB(t)

	req := httptest.NewRequest(http.MethodPost, "/api/register", bytes.NewBufferString("{not json"))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
