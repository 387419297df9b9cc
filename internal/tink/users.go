package tink

import (
	"context"
	"errors"
	"net/http"
)

type createUserRequest struct {
	ExternalUserID string `json:"external_user_id"`
	Market         string `json:"market"`
	Locale         string `json:"locale"`
	RetentionClass string `json:"retention_class"`
}

type createUserResponse struct {
	ExternalUserID string `json:"external_user_id"`
	UserID         string `json:"user_id"`
}

// User is the subset of the Tink user resource ecobud reads
type User struct {
	ID             string `json:"id"`
	ExternalUserID string `json:"externalUserId"`
	Created        string `json:"created"`
}

// CreateUser registers username as a permanent Tink user and returns its Tink id
func (c *Client) CreateUser(ctx context.Context, username string) (string, error) {
	token, err := c.ClientToken(ctx, ScopeUserCreate)
	if err != nil {
		return "", err
	}
	body, err := jsonBody(createUserRequest{
		ExternalUserID: username,
		Market:         c.cfg.Market,
		Locale:         c.cfg.Locale,
		RetentionClass: "permanent",
	})
	if err != nil {
		return "", err
	}

	var resp createUserResponse
	err = c.do(ctx, http.MethodPost, createUserPath, token, "application/json", body, &resp)
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Status == http.StatusConflict {
		return "", ErrUserAlreadyExists
	}
	if err != nil {
		return "", err
	}
	return resp.UserID, nil
}

// GetUser fetches the Tink user behind username
func (c *Client) GetUser(ctx context.Context, username string) (User, error) {
	token, err := c.UserToken(ctx, username, ScopeUserRead)
	if err != nil {
		return User{}, err
	}
	var u User
	if err := c.do(ctx, http.MethodGet, userPath, token, "", nil, &u); err != nil {
		return User{}, err
	}
	return u, nil
}

// DeleteUser removes the Tink user behind username
func (c *Client) DeleteUser(ctx context.Context, username string) error {
	token, err := c.UserToken(ctx, username, ScopeUserDelete)
	if err != nil {
		return err
	}
	return c.do(ctx, http.MethodPost, deleteUserPath, token, "", nil, nil)
}
