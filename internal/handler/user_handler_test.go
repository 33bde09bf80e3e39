package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"authcore/internal/model"
	"authcore/internal/service"
)

func (f *fixture) rest(t *testing.T, method, target, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.e.ServeHTTP(rec, req)
	return rec
}

func TestUserHandler_RequiresAdmin(t *testing.T) {
	f := newFixture(t)
	_, managerToken := f.signIn(t, "manager@example.com", "MANAGER")

	assert.Equal(t, http.StatusUnauthorized, f.rest(t, http.MethodGet, "/api/users", "", "").Code)
	assert.Equal(t, http.StatusForbidden, f.rest(t, http.MethodGet, "/api/users", managerToken, "").Code)
}

func TestUserHandler_ListAndGet(t *testing.T) {
	f := newFixture(t)
	admin, token := f.signIn(t, "admin@example.com", "ADMIN")

	rec := f.rest(t, http.MethodGet, "/api/users?page=1&limit=5", token, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var page service.UserPage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	assert.Equal(t, int64(1), page.Total)
	assert.Equal(t, 5, page.Limit)

	rec = f.rest(t, http.MethodGet, "/api/users/"+admin.ID.String(), token, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var user model.User
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &user))
	assert.Equal(t, admin.Email, user.Email)

	assert.Equal(t, http.StatusNotFound, f.rest(t, http.MethodGet, "/api/users/"+uuid.NewString(), token, "").Code)
	assert.Equal(t, http.StatusBadRequest, f.rest(t, http.MethodGet, "/api/users/42", token, "").Code)
}

func TestUserHandler_DeactivateLocksOutUser(t *testing.T) {
	f := newFixture(t)
	_, adminToken := f.signIn(t, "admin@example.com", "ADMIN")
	target, targetToken := f.signIn(t, "target@example.com")

	rec := f.rest(t, http.MethodPut, "/api/users/"+target.ID.String()+"/active", adminToken, `{"active":false}`)
	require.Equal(t, http.StatusNoContent, rec.Code)

	result, err := f.tokens.ValidateToken(context.Background(), targetToken)
	require.NoError(t, err)
	assert.Equal(t, service.ReasonUserInactive, result.Error)

	rec = f.rest(t, http.MethodPut, "/api/users/"+target.ID.String()+"/active", adminToken, `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUserHandler_Delete(t *testing.T) {
	f := newFixture(t)
	_, adminToken := f.signIn(t, "admin@example.com", "ADMIN")
	target, _ := f.signIn(t, "gone@example.com")

	require.Equal(t, http.StatusNoContent, f.rest(t, http.MethodDelete, "/api/users/"+target.ID.String(), adminToken, "").Code)
	assert.Equal(t, http.StatusNotFound, f.rest(t, http.MethodDelete, "/api/users/"+target.ID.String(), adminToken, "").Code)
}
