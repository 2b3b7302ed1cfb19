package container

import (
	"context"

	"github.com/contentanonymity/backend/internal/auth"
	"github.com/contentanonymity/backend/internal/database"
	"github.com/contentanonymity/backend/internal/email"
	"github.com/contentanonymity/backend/internal/gamification"
	"github.com/contentanonymity/backend/internal/logger"
	"github.com/contentanonymity/backend/internal/repository"
	"github.com/contentanonymity/backend/internal/storage"
	"github.com/contentanonymity/backend/internal/stream"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// MockContainer is a container designed for testing.
// It allows easy overriding of dependencies with test doubles (mocks, stubs, fakes).
type MockContainer struct {
	*Container
	Uploads *storage.MockUploader
	Feed    *stream.MockStreamClient
}

// NewMock creates an empty mock container
func NewMock() *MockContainer {
	return &MockContainer{Container: New()}
}

// WithMockDB sets the database for testing
func (m *MockContainer) WithMockDB(db *gorm.DB) *MockContainer {
	m.SetDB(db)
	return m
}

// WithMockLogger sets a test logger
func (m *MockContainer) WithMockLogger(l *zap.Logger) *MockContainer {
	m.SetLogger(l)
	return m
}

// WithMockUploader installs an in-memory image store
func (m *MockContainer) WithMockUploader() *MockContainer {
	m.Uploads = storage.NewMockUploader()
	m.SetUploader(m.Uploads)
	return m
}

// WithMockFeed installs an in-memory activity feed
func (m *MockContainer) WithMockFeed() *MockContainer {
	m.Feed = stream.NewMockStreamClient()
	m.SetFeedClient(m.Feed)
	return m
}

// WithServices builds auth and gamification on top of the registered database
func (m *MockContainer) WithServices(jwtSecret string) *MockContainer {
	db := m.DB()
	users := repository.NewUserRepository(db)
	m.SetAuthService(auth.NewService(db, users, auth.Options{JWTSecret: []byte(jwtSecret)}))
	m.SetGamification(gamification.NewService(db, users, nil))
	return m
}

// MinimalMock creates a mock container with only the logger set.
// Useful for isolated unit tests
func MinimalMock() *MockContainer {
	mock := NewMock()
	mock.SetLogger(logger.Log)
	return mock
}

// FullMock creates a mock container backed by an in-memory database with
// every external client replaced by a test double.
func FullMock() (*MockContainer, error) {
	db, err := database.OpenInMemory()
	if err != nil {
		return nil, err
	}
	mock := MinimalMock().
		WithMockDB(db).
		WithServices("test-secret").
		WithMockUploader().
		WithMockFeed()
	mock.SetEmailSender(email.LogSender{})
	mock.OnCleanup(func(context.Context) error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	})
	return mock, nil
}

// Clean cleans up test containers after tests complete
func (m *MockContainer) Clean(ctx context.Context) error {
	return m.Cleanup(ctx)
}
