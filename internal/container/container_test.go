package container

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/contentanonymity/backend/internal/handlers"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateReportsMissingRequiredDeps(t *testing.T) {
	err := MinimalMock().Validate()
	require.Error(t, err)

	var initErr *InitializationError
	require.True(t, errors.As(err, &initErr))
	assert.ElementsMatch(t, []string{"database (DB)", "auth service", "gamification service"}, initErr.MissingDeps)
	assert.Contains(t, err.Error(), "auth service")

	_, err = MinimalMock().Handlers()
	assert.Error(t, err)
}

func TestCleanupRunsInReverseOrder(t *testing.T) {
	c := New()
	var order []int
	boom := errors.New("boom")
	c.OnCleanup(func(context.Context) error { order = append(order, 1); return nil })
	c.OnCleanup(func(context.Context) error { order = append(order, 2); return boom })
	c.OnCleanup(func(context.Context) error { order = append(order, 3); return nil })

	err := c.Cleanup(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []int{3, 2, 1}, order)

	// hooks only run once
	require.NoError(t, c.Cleanup(context.Background()))
	assert.Len(t, order, 3)
}

func TestFullMockBuildsWorkingHandlers(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mock, err := FullMock()
	require.NoError(t, err)
	defer mock.Clean(context.Background())

	require.NoError(t, mock.Validate())
	assert.NotNil(t, mock.Uploader())
	assert.NotNil(t, mock.FeedClient())
	assert.Nil(t, mock.SearchClient())

	h, err := mock.Handlers()
	require.NoError(t, err)

	r := gin.New()
	h.RegisterRoutes(r, handlers.RouteConfig{Auth: mock.Auth(), APIRateLimit: 1000, AuthRateLimit: 1000})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/articles", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
