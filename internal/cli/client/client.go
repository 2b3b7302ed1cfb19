// Package client holds the shared resty client contentctl talks to the API with.
package client

import (
	"time"

	"github.com/contentanonymity/backend/internal/cli/config"
	"github.com/contentanonymity/backend/internal/cli/logger"
	"github.com/go-resty/resty/v2"
)

// ActAsHeader asks the API to run an admin's request as another user
const ActAsHeader = "X-Act-As-User"

const userAgent = "contentctl/1.0"

var httpClient *resty.Client
var actAsUser string

// Init builds the client from the current config
func Init() {
	httpClient = newClient()
}

func newClient() *resty.Client {
	c := resty.New()
	c.SetBaseURL(config.GetString("api.base_url"))
	c.SetTimeout(time.Duration(config.GetInt("api.timeout")) * time.Second)
	c.SetHeader("User-Agent", userAgent)

	c.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		logger.Debug("HTTP request", "method", req.Method, "url", req.URL)
		if actAsUser != "" {
			req.Header.Set(ActAsHeader, actAsUser)
			logger.Debug("Acting as user", "username", actAsUser)
		}
		return nil
	})
	c.OnAfterResponse(func(_ *resty.Client, resp *resty.Response) error {
		logger.Debug("HTTP response", "status", resp.StatusCode(), "elapsed", resp.Time())
		return nil
	})
	return c
}

// GetClient returns the shared client, building it on first use
func GetClient() *resty.Client {
	if httpClient == nil {
		Init()
	}
	return httpClient
}

// SetAuthToken sends token as a bearer credential on every request
func SetAuthToken(token string) {
	GetClient().SetAuthToken(token)
}

// ClearAuthToken drops the bearer credential
func ClearAuthToken() {
	Init()
}

// SetActAsUser makes every request run as username (admin only)
func SetActAsUser(username string) {
	actAsUser = username
}

// Reset forgets the client and any impersonation, used by tests
func Reset() {
	httpClient = nil
	actAsUser = ""
}
