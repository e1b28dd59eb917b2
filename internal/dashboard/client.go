package dashboard

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

// ErrNilClient is returned when a method is called on a nil *Client.
var ErrNilClient = errors.New("client is nil")

// DataFetcher is the pull side of the data source. It is implemented by
// *Client and faked in tests.
type DataFetcher interface {
	FetchData(ctx context.Context) (DataResponse, error)
}

// Refresher asks the data source to recompute and return a fresh snapshot.
type Refresher interface {
	Refresh(ctx context.Context) (DataResponse, error)
}

var (
	_ DataFetcher = (*Client)(nil)
	_ Refresher   = (*Client)(nil)
)

// Client talks to the dashboard HTTP API.
type Client struct {
	baseURL   *url.URL
	http      *http.Client
	userAgent string
	sessionID string
}

const (
	defaultServerURL = "127.0.0.1:5000"
	defaultUserAgent = "pulse/0.1"
	requestTimeout   = 10 * time.Second

	// SessionHeader carries the per-process session id on every request.
	SessionHeader = "X-Pulse-Session"
)

// NewClient builds a Client for serverURL. A bare host:port is treated as http.
func NewClient(serverURL string) (*Client, error) {
	base, err := parseBaseURL(serverURL)
	if err != nil {
		return nil, err
	}
	return &Client{
		baseURL: base,
		http: &http.Client{
			Timeout: requestTimeout,
		},
		userAgent: defaultUserAgent,
		sessionID: uuid.NewString(),
	}, nil
}

// SessionID returns the id sent in SessionHeader.
func (c *Client) SessionID() string {
	if c == nil {
		return ""
	}
	return c.sessionID
}

// Headers returns the identifying headers the client sends, for reuse by the
// push channel handshake.
func (c *Client) Headers() http.Header {
	h := http.Header{}
	if c == nil {
		return h
	}
	h.Set("User-Agent", c.userAgent)
	h.Set(SessionHeader, c.sessionID)
	return h
}

// FetchData retrieves the current snapshot from /api/data.
func (c *Client) FetchData(ctx context.Context) (DataResponse, error) {
	if c == nil {
		return DataResponse{}, ErrNilClient
	}
	var payload DataResponse
	if err := c.do(ctx, http.MethodGet, "/api/data", &payload); err != nil {
		return DataResponse{}, err
	}
	return payload, nil
}

// Refresh triggers a server-side recompute through /api/refresh.
func (c *Client) Refresh(ctx context.Context) (DataResponse, error) {
	if c == nil {
		return DataResponse{}, ErrNilClient
	}
	var payload DataResponse
	if err := c.do(ctx, http.MethodGet, "/api/refresh", &payload); err != nil {
		return DataResponse{}, err
	}
	return payload, nil
}

// FetchAuthStatus reports which API backend the server uses and whether it is authorized.
func (c *Client) FetchAuthStatus(ctx context.Context) (AuthStatus, error) {
	if c == nil {
		return AuthStatus{}, ErrNilClient
	}
	var payload AuthStatus
	if err := c.do(ctx, http.MethodGet, "/api/auth_status", &payload); err != nil {
		return AuthStatus{}, err
	}
	return payload, nil
}

// AuthURL is the page that starts the external authorization flow.
func (c *Client) AuthURL() string {
	return c.baseURL.ResolveReference(&url.URL{Path: "/auth"}).String()
}

// LiveURL returns the websocket URL of the push channel at path.
func (c *Client) LiveURL(path string) string {
	if strings.TrimSpace(path) == "" {
		path = "/live"
	}
	u := c.baseURL.ResolveReference(&url.URL{Path: path})
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	return u.String()
}

func (c *Client) do(ctx context.Context, method, path string, dest any) error {
	rel := &url.URL{Path: path}
	reqURL := c.baseURL.ResolveReference(rel)
	req, err := http.NewRequestWithContext(ctx, method, reqURL.String(), nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set(SessionHeader, c.sessionID)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("api %s returned status %d", rel.String(), resp.StatusCode)
	}
	if dest == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func parseBaseURL(serverURL string) (*url.URL, error) {
	trimmed := strings.TrimSpace(serverURL)
	if trimmed == "" {
		trimmed = defaultServerURL
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "http://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse server_url %q: %w", serverURL, err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("parse server_url %q: missing host", serverURL)
	}
	u.Path = ""
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}
