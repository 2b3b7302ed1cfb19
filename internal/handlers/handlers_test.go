package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/contentanonymity/backend/internal/auth"
	"github.com/contentanonymity/backend/internal/database"
	"github.com/contentanonymity/backend/internal/gamification"
	"github.com/contentanonymity/backend/internal/models"
	"github.com/contentanonymity/backend/internal/repository"
	"github.com/contentanonymity/backend/internal/storage"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"
)

// captureSender records outgoing mail instead of sending it
type captureSender struct {
	mu       sync.Mutex
	resets   map[string]string
	confirms map[string]string
}

func newCaptureSender() *captureSender {
	return &captureSender{resets: map[string]string{}, confirms: map[string]string{}}
}

func (s *captureSender) SendPasswordResetEmail(_ context.Context, to, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resets[to] = token
	return nil
}

func (s *captureSender) SendNewsletterConfirmation(_ context.Context, to, confirmToken, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.confirms[to] = confirmToken
	return nil
}

type HandlersSuite struct {
	suite.Suite
	db      *gorm.DB
	auth    *auth.Service
	h       *Handlers
	router  *gin.Engine
	mail    *captureSender
	uploads *storage.MockUploader
}

func TestHandlersSuite(t *testing.T) {
	suite.Run(t, new(HandlersSuite))
}

func (s *HandlersSuite) SetupTest() {
	gin.SetMode(gin.TestMode)

	db, err := database.OpenInMemory()
	s.Require().NoError(err)
	s.db = db

	users := repository.NewUserRepository(db)
	s.auth = auth.NewService(db, users, auth.Options{JWTSecret: []byte("test-secret")})
	game := gamification.NewService(db, users, nil)

	s.h = NewHandlers(db, s.auth, game)
	s.uploads = storage.NewMockUploader()
	s.h.SetUploader(s.uploads)
	s.mail = newCaptureSender()
	s.h.SetEmailSender(s.mail)

	s.router = gin.New()
	s.h.RegisterRoutes(s.router, RouteConfig{Auth: s.auth, APIRateLimit: 10000, AuthRateLimit: 10000})
}

// createUser inserts a user with the given role and returns a bearer token
func (s *HandlersSuite) createUser(username string, role models.Role) (*models.User, string) {
	user := &models.User{
		Email:       username + "@example.com",
		Username:    username,
		DisplayName: username,
		Role:        role,
	}
	s.Require().NoError(s.db.Create(user).Error)
	resp, err := s.auth.GenerateToken(user)
	s.Require().NoError(err)
	return user, resp.Token
}

func (s *HandlersSuite) do(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		s.Require().NoError(err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

// upload sends one file as a multipart form
func (s *HandlersSuite) upload(path, token, field, filename string, content []byte, fields map[string]string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		s.Require().NoError(mw.WriteField(k, v))
	}
	if field != "" {
		part, err := mw.CreateFormFile(field, filename)
		s.Require().NoError(err)
		_, err = part.Write(content)
		s.Require().NoError(err)
	}
	s.Require().NoError(mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *HandlersSuite) decode(w *httptest.ResponseRecorder) map[string]interface{} {
	var body map[string]interface{}
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &body), w.Body.String())
	return body
}

func (s *HandlersSuite) requireStatus(w *httptest.ResponseRecorder, status int) map[string]interface{} {
	s.Require().Equal(status, w.Code, w.Body.String())
	return s.decode(w)
}

func (s *HandlersSuite) points(userID string) int {
	var user models.User
	s.Require().NoError(s.db.First(&user, "id = ?", userID).Error)
	return user.Points
}

func (s *HandlersSuite) TestHealth() {
	body := s.requireStatus(s.do(http.MethodGet, "/health", "", nil), http.StatusOK)
	s.Equal("contentanonymity-backend", body["service"])
	checks := body["checks"].(map[string]interface{})
	s.Contains(checks, "database")
}

func (s *HandlersSuite) TestRequireAuthRejectsMissingAndBadTokens() {
	w := s.do(http.MethodGet, "/api/v1/me", "", nil)
	s.Equal(http.StatusUnauthorized, w.Code)

	w = s.do(http.MethodGet, "/api/v1/me", "not-a-token", nil)
	s.Equal(http.StatusUnauthorized, w.Code)
}
