package stream

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MockCall records a method call for assertion
type MockCall struct {
	Method string
	Args   []interface{}
}

// MockStreamClient is an in-memory FeedClient for tests. Published
// activities are kept so feed reads return them newest first.
type MockStreamClient struct {
	mu sync.Mutex

	Calls      []MockCall
	Activities []*Activity

	// Configurable function overrides - set these to customize behavior
	PublishActivityFunc func(ctx context.Context, userID string, activity *Activity) error

	// Default responses for simple cases
	DefaultError error
}

// NewMockStreamClient creates a new mock client with sensible defaults
func NewMockStreamClient() *MockStreamClient {
	return &MockStreamClient{Calls: make([]MockCall, 0)}
}

func (m *MockStreamClient) recordCall(method string, args ...interface{}) {
	m.Calls = append(m.Calls, MockCall{Method: method, Args: args})
}

// CallCount returns how many times method was called
func (m *MockStreamClient) CallCount(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.Calls {
		if c.Method == method {
			n++
		}
	}
	return n
}

// Published returns a copy of the stored activities
func (m *MockStreamClient) Published() []*Activity {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Activity, len(m.Activities))
	copy(out, m.Activities)
	return out
}

func (m *MockStreamClient) PublishActivity(ctx context.Context, userID string, activity *Activity) error {
	m.mu.Lock()
	m.recordCall("PublishActivity", userID, activity)
	fn := m.PublishActivityFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, userID, activity)
	}
	if m.DefaultError != nil {
		return m.DefaultError
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	activity.ID = fmt.Sprintf("mock-%d", len(m.Activities)+1)
	activity.Actor = "user:" + userID
	activity.Time = time.Now().UTC().Format(time.RFC3339)
	m.Activities = append(m.Activities, activity)
	return nil
}

func (m *MockStreamClient) RemoveActivity(ctx context.Context, userID, foreignID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recordCall("RemoveActivity", userID, foreignID)
	if m.DefaultError != nil {
		return m.DefaultError
	}
	kept := m.Activities[:0]
	for _, a := range m.Activities {
		if !(a.Actor == "user:"+userID && a.ForeignID == foreignID) {
			kept = append(kept, a)
		}
	}
	m.Activities = kept
	return nil
}

func (m *MockStreamClient) GetCommunityFeed(ctx context.Context, limit, offset int) ([]*Activity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recordCall("GetCommunityFeed", limit, offset)
	if m.DefaultError != nil {
		return nil, m.DefaultError
	}
	return page(m.Activities, "", limit, offset), nil
}

func (m *MockStreamClient) GetUserFeed(ctx context.Context, userID string, limit, offset int) ([]*Activity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recordCall("GetUserFeed", userID, limit, offset)
	if m.DefaultError != nil {
		return nil, m.DefaultError
	}
	return page(m.Activities, "user:"+userID, limit, offset), nil
}

func (m *MockStreamClient) CreateToken(userID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recordCall("CreateToken", userID)
	if m.DefaultError != nil {
		return "", m.DefaultError
	}
	return "mock-token-" + userID, nil
}

// page returns newest-first activities, optionally for one actor
func page(all []*Activity, actor string, limit, offset int) []*Activity {
	out := []*Activity{}
	for i := len(all) - 1; i >= 0; i-- {
		if actor == "" || all[i].Actor == actor {
			out = append(out, all[i])
		}
	}
	if offset >= len(out) {
		return []*Activity{}
	}
	out = out[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out
}

var _ FeedClient = (*MockStreamClient)(nil)
