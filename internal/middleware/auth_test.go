package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/contentanonymity/backend/internal/auth"
	"github.com/contentanonymity/backend/internal/database"
	"github.com/contentanonymity/backend/internal/models"
	"github.com/contentanonymity/backend/internal/repository"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mockUser(id string, role models.Role) *models.User {
	u := &models.User{Username: id, Email: id + "@example.com", Role: role}
	u.ID = id
	return u
}

func whoami(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"user_id": c.GetString("user_id")})
}

func get(router http.Handler, path, token string, headers ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest("GET", path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestRequireAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := auth.NewMockAuthService()
	token := svc.AddUser(mockUser("u1", models.RoleMember))

	router := gin.New()
	router.GET("/me", RequireAuth(svc), whoami)

	w := get(router, "/me", token)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"user_id":"u1"`)

	assert.Equal(t, http.StatusUnauthorized, get(router, "/me", "").Code)
	assert.Equal(t, http.StatusUnauthorized, get(router, "/me", "token-unknown").Code)

	// websocket clients pass the token as a query parameter
	assert.Equal(t, http.StatusOK, get(router, "/me?token="+token, "").Code)

	// non-bearer schemes are ignored
	assert.Equal(t, http.StatusUnauthorized, get(router, "/me", "", "Authorization", "Basic abc").Code)
}

func TestOptionalAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := auth.NewMockAuthService()
	token := svc.AddUser(mockUser("u2", models.RoleMember))

	router := gin.New()
	router.GET("/feed", OptionalAuth(svc), whoami)

	assert.Contains(t, get(router, "/feed", token).Body.String(), `"user_id":"u2"`)

	w := get(router, "/feed", "bad-token")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"user_id":""`)
}

func TestRequireRole(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := auth.NewMockAuthService()
	member := svc.AddUser(mockUser("member", models.RoleMember))
	editor := svc.AddUser(mockUser("editor", models.RoleEditor))
	admin := svc.AddUser(mockUser("admin", models.RoleAdmin))

	router := gin.New()
	router.GET("/edit", RequireAuth(svc), RequireEditor(), whoami)
	router.GET("/admin", RequireAuth(svc), RequireAdmin(), whoami)

	assert.Equal(t, http.StatusForbidden, get(router, "/edit", member).Code)
	assert.Equal(t, http.StatusOK, get(router, "/edit", editor).Code)
	assert.Equal(t, http.StatusOK, get(router, "/edit", admin).Code)

	assert.Equal(t, http.StatusForbidden, get(router, "/admin", editor).Code)
	assert.Equal(t, http.StatusOK, get(router, "/admin", admin).Code)

	// without RequireAuth in front the role check answers 401
	bare := gin.New()
	bare.GET("/admin", RequireAdmin(), whoami)
	assert.Equal(t, http.StatusUnauthorized, get(bare, "/admin", "").Code)
}

func TestActAsMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db, err := database.OpenInMemory()
	require.NoError(t, err)
	users := repository.NewUserRepository(db)

	target := &models.User{Email: "target@example.com", Username: "target", DisplayName: "Target"}
	require.NoError(t, users.CreateUser(context.Background(), target))

	svc := auth.NewMockAuthService()
	admin := svc.AddUser(mockUser("admin", models.RoleAdmin))
	member := svc.AddUser(mockUser("member", models.RoleMember))

	router := gin.New()
	router.GET("/me", RequireAuth(svc), ActAsMiddleware(users), whoami)

	w := get(router, "/me", admin, "X-Act-As-User", "target")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), target.ID)

	assert.Equal(t, http.StatusForbidden, get(router, "/me", member, "X-Act-As-User", "target").Code)
	assert.Equal(t, http.StatusNotFound, get(router, "/me", admin, "X-Act-As-User", "ghost").Code)
	assert.Contains(t, get(router, "/me", admin).Body.String(), `"user_id":"admin"`)
}
