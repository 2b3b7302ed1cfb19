package util

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	apierrors "github.com/contentanonymity/backend/internal/errors"
	"github.com/contentanonymity/backend/internal/models"
	"github.com/contentanonymity/backend/internal/repository"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestSlugify(t *testing.T) {
	tests := map[string]string{
		"Hello, World!":              "hello-world",
		"  Faceless   YouTube 101  ": "faceless-youtube-101",
		"Café Crème":                 "cafe-creme",
		"---":                        "",
		"AI-Generated Voice-overs ✨": "ai-generated-voice-overs",
	}
	for in, want := range tests {
		assert.Equal(t, want, Slugify(in), in)
	}

	long := Slugify("word abcdefghij abcdefghij abcdefghij abcdefghij abcdefghij abcdefghij abcdefghij abcdefghij abcdefghij")
	assert.LessOrEqual(t, len(long), maxSlugLen)
	assert.NotEqual(t, byte('-'), long[len(long)-1])
}

func TestUniqueSlug(t *testing.T) {
	taken := map[string]bool{"guide": true, "guide-2": true}
	slug, err := UniqueSlug(context.Background(), "guide", func(_ context.Context, s string) (bool, error) {
		return taken[s], nil
	})
	require.NoError(t, err)
	assert.Equal(t, "guide-3", slug)

	slug, err = UniqueSlug(context.Background(), "", func(context.Context, string) (bool, error) { return false, nil })
	require.NoError(t, err)
	assert.Equal(t, "untitled", slug)
}

func TestParseHelpers(t *testing.T) {
	assert.Equal(t, 5, ParseInt(" 5 ", 1))
	assert.Equal(t, 1, ParseInt("x", 1))
	assert.Equal(t, 2.5, ParseFloat("2.5", 0))
	assert.Nil(t, ParseBoolPtr(""))
	require.NotNil(t, ParseBoolPtr("true"))
	assert.True(t, *ParseBoolPtr("true"))
	assert.Equal(t, []string{"a", "b"}, ParseList("a, ,b"))
}

func TestValidationHelpers(t *testing.T) {
	assert.True(t, IsValidImageFile("cover.WEBP"))
	assert.False(t, IsValidImageFile("cover.svg"))
	assert.True(t, IsValidUsername("faceless_fred"))
	assert.False(t, IsValidUsername("no spaces"))
	assert.Equal(t, "me@example.com", NormalizeEmail(" Me@Example.com "))
	assert.Equal(t, "", NormalizeEmail("not-an-email"))
	assert.Error(t, ValidateFilename("../etc/passwd"))
}

func TestPageParams(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/?limit=500&offset=-1", nil)

	limit, offset := PageParams(c)
	assert.Equal(t, repository.MaxLimit, limit)
	assert.Equal(t, 0, offset)

	for query, want := range map[string]int{
		"/":           repository.DefaultLimit,
		"/?limit=abc": repository.DefaultLimit,
		"/?limit=0":   1,
		"/?limit=-5":  1,
		"/?limit=1":   1,
		"/?limit=100": repository.MaxLimit,
		"/?limit=101": repository.MaxLimit,
		"/?limit=35":  35,
	} {
		c.Request = httptest.NewRequest(http.MethodGet, query, nil)
		limit, _ = PageParams(c)
		assert.Equal(t, want, limit, query)
	}
}

func TestListResponseNeverNil(t *testing.T) {
	body := ListResponse[models.Tool](nil, 0, 20, 0)
	assert.Equal(t, []models.Tool{}, body["items"])
	assert.Equal(t, 0, body["count"])
}

func TestHandleRepoError(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	assert.False(t, HandleRepoError(c, nil, "article"))
	assert.True(t, HandleRepoError(c, repository.ErrNotFound, "article"))
	assert.Equal(t, http.StatusNotFound, w.Code)

	var body ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, string(apierrors.ErrNotFound), body.Code)
	assert.Equal(t, "article not found", body.Message)
}

func TestInternalDetailsAreNotLeaked(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	RespondWithAPIError(c, apierrors.InternalError("boom").WithDetails("password=hunter2"))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "hunter2")
}

func TestGetUserFromContext(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	_, ok := GetUserFromContext(c)
	assert.False(t, ok)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	c.Set("user", &models.User{Role: models.RoleEditor})
	user, ok := GetUserFromContext(c)
	assert.True(t, ok)
	assert.NotNil(t, user)
	assert.True(t, CanEdit(c))
}
