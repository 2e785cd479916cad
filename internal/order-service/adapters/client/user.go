package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// UserClient verifies users against the user service.
type UserClient struct {
	base
}

func NewUserClient(cfg Config) *UserClient {
	return &UserClient{base: newBase("user-service", cfg)}
}

// VerifyUser reports whether GET /api/users/{id} returns a user with an id.
func (c *UserClient) VerifyUser(ctx context.Context, userID int64) (bool, error) {
	path := fmt.Sprintf("/api/users/%d", userID)
	status, body, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return false, err
	}

	switch {
	case status == http.StatusNotFound:
		return false, nil
	case !isSuccess(status):
		return false, c.unexpected(http.MethodGet, path, status)
	}

	var user struct {
		ID *int64 `json:"id"`
	}
	if err := json.Unmarshal(body, &user); err != nil {
		return false, fmt.Errorf("%w: user-service: decode user: %w", ErrUnavailable, err)
	}
	return user.ID != nil, nil
}
