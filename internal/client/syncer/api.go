// Package syncer ships the client's queued actions to the server and
// applies the authoritative answer to the local cache.
package syncer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/atinyakov/todosync/internal/client/storage"
	"github.com/atinyakov/todosync/internal/models"
)

// ErrUnauthorized is returned when the server rejects (or the client lacks)
// the session token.
var ErrUnauthorized = errors.New("unauthorized")

// StatusError is a non-2xx answer other than 401.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("server error: %d %s", e.Code, e.Message)
}

// AuthResponse is returned by Register and Login.
type AuthResponse struct {
	Token string      `json:"token"`
	User  models.User `json:"user"`
}

// SyncResponse is the body of a successful reconciliation.
type SyncResponse struct {
	Message string            `json:"message"`
	Tasks   []models.Task     `json:"tasks"`
	IDs     map[string]string `json:"ids"`
}

// Client talks to the task API.
type Client struct {
	baseURL string
	http    *http.Client
	session storage.Session
}

// NewClient returns a Client for baseURL that reads its bearer token from
// session. A nil httpClient gets a default with a 10s timeout.
func NewClient(baseURL string, session storage.Session, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
		session: session,
	}
}

// Health probes connectivity. Any error means offline.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/api/health", false, nil, nil)
}

// Register creates an account.
func (c *Client) Register(ctx context.Context, name, email, password string) (*AuthResponse, error) {
	var out AuthResponse
	body := map[string]string{"name": name, "email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/api/register", false, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Login exchanges credentials for a session token.
func (c *Client) Login(ctx context.Context, email, password string) (*AuthResponse, error) {
	var out AuthResponse
	body := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/api/login", false, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Profile returns the logged in user.
func (c *Client) Profile(ctx context.Context) (*models.User, error) {
	var out models.User
	if err := c.do(ctx, http.MethodGet, "/api/profile", true, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListTasks fetches the active task list.
func (c *Client) ListTasks(ctx context.Context) ([]models.Task, error) {
	var out []models.Task
	if err := c.do(ctx, http.MethodGet, "/api/tasks", true, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Sync submits actions as one reconciliation batch.
func (c *Client) Sync(ctx context.Context, actions []models.SyncAction) (*SyncResponse, error) {
	var out SyncResponse
	body := map[string][]models.SyncAction{"actions": actions}
	if err := c.do(ctx, http.MethodPost, "/api/tasks/sync", true, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, method, path string, authed bool, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if authed {
		token, err := c.session.Token()
		if err != nil {
			return fmt.Errorf("read session: %w", err)
		}
		if token == "" {
			return fmt.Errorf("%w: not logged in", ErrUnauthorized)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := readMessage(resp.Body)
		if resp.StatusCode == http.StatusUnauthorized {
			return fmt.Errorf("%w: %s", ErrUnauthorized, msg)
		}
		return &StatusError{Code: resp.StatusCode, Message: msg}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("invalid response: %w", err)
	}
	return nil
}

// readMessage extracts "message" (and "error" when present) from an error
// body, falling back to the raw text.
func readMessage(r io.Reader) string {
	raw, _ := io.ReadAll(io.LimitReader(r, 64<<10))
	var m struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(raw, &m); err != nil || m.Message == "" {
		return strings.TrimSpace(string(raw))
	}
	if m.Error != "" {
		return m.Message + ": " + m.Error
	}
	return m.Message
}
