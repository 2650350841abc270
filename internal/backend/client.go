// ABOUTME: HTTP client for the collaboration backend.
// ABOUTME: Fetches permission snapshots and channels, creates channels and manages role assignments for a viewer.

package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/2389/teamhub/internal/rbac"
	"github.com/2389/teamhub/plugins/core"
	"github.com/sirupsen/logrus"
)

// ErrNotFound is returned when the backend answers 404
var ErrNotFound = errors.New("not found")

const defaultTimeout = 10 * time.Second

// StatusError is a non-2xx response from a CRUD endpoint
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: backend returned status %d", e.Method, e.Path, e.StatusCode)
}

// Client talks to the backend on behalf of viewers. It is safe for concurrent use.
type Client struct {
	baseURL *url.URL
	http    *http.Client
	log     *logrus.Logger
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTimeout sets the per-request timeout
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithLogger sets the client's logger
func WithLogger(log *logrus.Logger) Option {
	return func(c *Client) {
		if log != nil {
			c.log = log
		}
	}
}

// New creates a client for the backend at baseURL
func New(baseURL string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, errors.New("backend URL is required")
	}
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse backend URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("backend URL must be http or https, got %q", baseURL)
	}

	c := &Client{
		baseURL: u,
		http:    &http.Client{Timeout: defaultTimeout},
		log:     logrus.New(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the backend base URL
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

func (c *Client) endpoint(segments ...string) string {
	escaped := make([]string, len(segments))
	for i, s := range segments {
		escaped[i] = url.PathEscape(s)
	}
	return c.baseURL.String() + "/" + strings.Join(escaped, "/")
}

func (c *Client) newRequest(ctx context.Context, method, target, token string, body any) (*http.Request, error) {
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		r = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, r)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req, nil
}

// FetchSnapshot reads the viewer's permission snapshot for serverID.
// Failures are returned as *rbac.FetchError.
func (c *Client) FetchSnapshot(ctx context.Context, token, serverID string) (rbac.Snapshot, error) {
	req, err := c.newRequest(ctx, http.MethodGet, c.endpoint("servers", serverID, "members", "me"), token, nil)
	if err != nil {
		return rbac.Snapshot{}, &rbac.FetchError{Kind: rbac.KindNetwork, Err: err}
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return rbac.Snapshot{}, &rbac.FetchError{Kind: rbac.KindNetwork, Err: err}
	}
	defer resp.Body.Close()

	c.log.WithFields(logrus.Fields{
		"server_id":   serverID,
		"status":      resp.StatusCode,
		"duration_ms": time.Since(start).Milliseconds(),
	}).Debug("fetched permission snapshot")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return rbac.Snapshot{}, rbac.StatusError(resp.StatusCode)
	}
	return rbac.DecodeSnapshot(resp.Body)
}

// SnapshotFetcher binds FetchSnapshot to a viewer token
func (c *Client) SnapshotFetcher(token string) rbac.Fetcher {
	return rbac.FetcherFunc(func(ctx context.Context, serverID string) (rbac.Snapshot, error) {
		return c.FetchSnapshot(ctx, token, serverID)
	})
}

// do sends a JSON request and decodes a JSON response into out when out is non-nil
func (c *Client) do(ctx context.Context, method, token string, body, out any, segments ...string) error {
	target := c.endpoint(segments...)
	req, err := c.newRequest(ctx, method, target, token, body)
	if err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%s %s: %w", method, req.URL.Path, ErrNotFound)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.log.WithFields(logrus.Fields{
			"status": resp.StatusCode,
			"path":   req.URL.Path,
		}).Warn("backend request failed")
		return &StatusError{Method: method, Path: req.URL.Path, StatusCode: resp.StatusCode}
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", req.URL.Path, err)
	}
	return nil
}

// GetChannel loads one channel descriptor
func (c *Client) GetChannel(ctx context.Context, token, serverID, channelID string) (core.Channel, error) {
	var ch core.Channel
	err := c.do(ctx, http.MethodGet, token, nil, &ch, "servers", serverID, "channels", channelID)
	return ch, err
}

// ListChannels loads the server's channels
func (c *Client) ListChannels(ctx context.Context, token, serverID string) ([]core.Channel, error) {
	var chans []core.Channel
	err := c.do(ctx, http.MethodGet, token, nil, &chans, "servers", serverID, "channels")
	return chans, err
}

// CreateChannel creates a channel from a validated create request
func (c *Client) CreateChannel(ctx context.Context, token, serverID string, req core.CreateRequest) (core.Channel, error) {
	var ch core.Channel
	err := c.do(ctx, http.MethodPost, token, req, &ch, "servers", serverID, "channels")
	return ch, err
}

// ListRoles loads the server's roles
func (c *Client) ListRoles(ctx context.Context, token, serverID string) ([]rbac.Role, error) {
	var roles []rbac.Role
	err := c.do(ctx, http.MethodGet, token, nil, &roles, "servers", serverID, "roles")
	return roles, err
}

// ListMembers loads the server's members with their roles
func (c *Client) ListMembers(ctx context.Context, token, serverID string) ([]rbac.Member, error) {
	var members []rbac.Member
	err := c.do(ctx, http.MethodGet, token, nil, &members, "servers", serverID, "members")
	return members, err
}

// AssignRoles replaces the member's role set
func (c *Client) AssignRoles(ctx context.Context, token, serverID, memberID string, roleIDs []string) (rbac.Member, error) {
	if roleIDs == nil {
		roleIDs = []string{}
	}
	body := struct {
		RoleIDs []string `json:"role_ids"`
	}{roleIDs}

	var m rbac.Member
	err := c.do(ctx, http.MethodPut, token, body, &m, "servers", serverID, "members", memberID, "roles")
	return m, err
}
