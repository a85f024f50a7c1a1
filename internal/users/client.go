package users

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/tokenworks/auth-service/internal/apperrors"
	"github.com/tokenworks/auth-service/internal/config"
	"github.com/tokenworks/auth-service/internal/models"
	"github.com/tokenworks/auth-service/pkg/logger"
)

// Client talks to the user service, the external collaborator that stores
// accounts and verifies passwords. The auth service never sees password
// hashes; it only learns whether a credential pair checked out and what the
// user record looks like.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(cfg config.UserServiceConfig) *Client {
	return &Client{
		baseURL: strings.TrimRight(cfg.URL, "/"),
		http:    &http.Client{Timeout: cfg.Timeout},
	}
}

type validatePasswordResponse struct {
	ID string `json:"id"`
}

// ValidatePassword checks credentials against the user service and returns
// the account id. A 401/403 passes through as an authentication failure;
// any other upstream failure is coerced to an opaque unexpected error so
// internal error shapes never leak to callers.
func (c *Client) ValidatePassword(ctx context.Context, username, password string) (string, error) {
	body := map[string]string{"username": username, "password": password}
	resp, err := c.post(ctx, "/validate-password", body)
	if err != nil {
		logger.Warnf("user service unreachable validating password: %v", err)
		return "", apperrors.UnexpectedError("user service unavailable")
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		var vr validatePasswordResponse
		if err := json.NewDecoder(resp.Body).Decode(&vr); err != nil {
			return "", apperrors.UnexpectedError("invalid response from user service")
		}
		return vr.ID, nil
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return "", apperrors.AuthenticationFailed(resp.StatusCode)
	default:
		b, _ := io.ReadAll(resp.Body)
		logger.Warnf("unexpected response from user service validating password: %d %s", resp.StatusCode, string(b))
		return "", apperrors.UnexpectedError("unexpected error while validating password")
	}
}

type getUsersResponse struct {
	Users      []models.User `json:"users"`
	TotalCount int           `json:"totalCount"`
}

// GetUsers fetches user records matching a mongo-style query, expanded with
// profile data.
func (c *Client) GetUsers(ctx context.Context, query map[string]interface{}) ([]models.User, error) {
	body := map[string]interface{}{"query": query, "expand": "profile"}
	resp, err := c.post(ctx, "/get-users-by-query", body)
	if err != nil {
		logger.Warnf("user service unreachable fetching users: %v", err)
		return nil, apperrors.UnexpectedError("user service unavailable")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		logger.Warnf("unexpected response from user service fetching users: %d %s", resp.StatusCode, string(b))
		return nil, apperrors.UnexpectedError("unexpected error while fetching users")
	}
	var gr getUsersResponse
	if err := json.NewDecoder(resp.Body).Decode(&gr); err != nil {
		return nil, apperrors.UnexpectedError("invalid response from user service")
	}
	return gr.Users, nil
}

// GetUser fetches one user by id; nil when the account no longer exists.
func (c *Client) GetUser(ctx context.Context, id string) (*models.User, error) {
	users, err := c.GetUsers(ctx, map[string]interface{}{"id": id})
	if err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return nil, nil
	}
	return &users[0], nil
}

func (c *Client) post(ctx context.Context, path string, body interface{}) (*http.Response, error) {
	b, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("user service request %s: %w", path, err)
	}
	return resp, nil
}
