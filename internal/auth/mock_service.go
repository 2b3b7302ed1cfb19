package auth

import (
	"context"
	"sync"
	"time"

	"github.com/contentanonymity/backend/internal/models"
)

// MockCall records a method call for assertion
type MockCall struct {
	Method string
	Args   []interface{}
}

// MockAuthService is an in-memory AuthService for middleware and handler tests.
// Tokens are "token-<user id>" for any user added with AddUser.
type MockAuthService struct {
	mu sync.Mutex

	Calls []MockCall

	// Users keyed by id
	Users map[string]*models.User

	// DefaultError, when set, is returned by every call that can fail
	DefaultError error
}

// NewMockAuthService creates a new mock auth service with sensible defaults
func NewMockAuthService() *MockAuthService {
	return &MockAuthService{
		Calls: make([]MockCall, 0),
		Users: make(map[string]*models.User),
	}
}

func (m *MockAuthService) recordCall(method string, args ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, MockCall{Method: method, Args: args})
}

// CallCount returns how many times method was invoked
func (m *MockAuthService) CallCount(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, call := range m.Calls {
		if call.Method == method {
			n++
		}
	}
	return n
}

// AddUser registers a user and returns the token the mock accepts for it
func (m *MockAuthService) AddUser(user *models.User) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Users[user.ID] = user
	return "token-" + user.ID
}

func (m *MockAuthService) lookup(token string) *models.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, user := range m.Users {
		if token == "token-"+id {
			return user
		}
	}
	return nil
}

func (m *MockAuthService) RegisterNativeUser(ctx context.Context, req RegisterRequest) (*AuthResponse, error) {
	m.recordCall("RegisterNativeUser", req)
	if m.DefaultError != nil {
		return nil, m.DefaultError
	}
	user := &models.User{Email: req.Email, Username: req.Username, DisplayName: req.DisplayName, Role: models.RoleMember}
	user.ID = "mock-" + req.Username
	m.AddUser(user)
	return m.GenerateToken(user)
}

func (m *MockAuthService) LoginNativeUser(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	m.recordCall("LoginNativeUser", req)
	if m.DefaultError != nil {
		return nil, m.DefaultError
	}
	m.mu.Lock()
	var found *models.User
	for _, user := range m.Users {
		if user.Email == req.Email {
			found = user
		}
	}
	m.mu.Unlock()
	if found == nil {
		return nil, ErrInvalidCredentials
	}
	return m.GenerateToken(found)
}

func (m *MockAuthService) GenerateToken(user *models.User) (*AuthResponse, error) {
	return &AuthResponse{Token: "token-" + user.ID, User: user, ExpiresAt: time.Now().Add(DefaultTokenTTL)}, nil
}

func (m *MockAuthService) ValidateToken(ctx context.Context, tokenString string) (*models.User, error) {
	m.recordCall("ValidateToken", tokenString)
	if m.DefaultError != nil {
		return nil, m.DefaultError
	}
	if user := m.lookup(tokenString); user != nil {
		return user, nil
	}
	return nil, ErrInvalidToken
}

func (m *MockAuthService) GoogleOAuthURL(state string) (string, error) {
	m.recordCall("GoogleOAuthURL", state)
	return "https://accounts.google.com/o/oauth2/auth?state=" + state, nil
}

func (m *MockAuthService) HandleGoogleCallback(ctx context.Context, code string) (*AuthResponse, error) {
	m.recordCall("HandleGoogleCallback", code)
	return nil, ErrOAuthDisabled
}

func (m *MockAuthService) RequestPasswordReset(ctx context.Context, email string) (*models.PasswordReset, *models.User, error) {
	m.recordCall("RequestPasswordReset", email)
	return nil, nil, m.DefaultError
}

func (m *MockAuthService) ResetPassword(ctx context.Context, token, newPassword string) error {
	m.recordCall("ResetPassword", token)
	return m.DefaultError
}

func (m *MockAuthService) SetupTOTP(ctx context.Context, user *models.User) (*TOTPSetup, error) {
	m.recordCall("SetupTOTP", user.ID)
	return &TOTPSetup{Secret: "JBSWY3DPEHPK3PXP", URL: "otpauth://totp/ContentAnonymity:" + user.Email}, m.DefaultError
}

func (m *MockAuthService) EnableTOTP(ctx context.Context, user *models.User, code string) error {
	m.recordCall("EnableTOTP", user.ID)
	return m.DefaultError
}

func (m *MockAuthService) DisableTOTP(ctx context.Context, user *models.User, code string) error {
	m.recordCall("DisableTOTP", user.ID)
	return m.DefaultError
}

var _ AuthService = (*MockAuthService)(nil)
