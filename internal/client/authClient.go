package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"storefront/internal/config"
	"storefront/internal/model"
)

// AuthClient talks to the hosted GoTrue API. Calls that act on behalf of a
// user take the access token explicitly.
type AuthClient interface {
	SignUp(ctx context.Context, email, password string, metadata map[string]string) (*model.AuthUser, *model.Session, error)
	SignInWithPassword(ctx context.Context, email, password string) (*model.Session, error)
	RefreshSession(ctx context.Context, refreshToken string) (*model.Session, error)
	SignOut(ctx context.Context, accessToken string) error
	GetUser(ctx context.Context, accessToken string) (*model.AuthUser, error)
	ResetPasswordForEmail(ctx context.Context, email, redirectTo string) error
	ResendSignup(ctx context.Context, email string) error
	UpdatePassword(ctx context.Context, accessToken, password string) (*model.AuthUser, error)
}

type authClientImpl struct {
	rest *restClient
	now  func() time.Time
}

func NewAuthClient(cfg *config.Supabase, httpClient *http.Client) AuthClient {
	return &authClientImpl{
		rest: newRestClient(cfg, httpClient),
		now:  time.Now,
	}
}

func (c *authClientImpl) endpoint(path string, query url.Values) string {
	u := strings.TrimRight(c.rest.baseURL, "/") + "/auth/v1/" + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

func (c *authClientImpl) post(ctx context.Context, path string, query url.Values, payload interface{}) ([]byte, error) {
	body, err := jsonBody(payload)
	if err != nil {
		return nil, err
	}
	_, resp, err := c.rest.do(ctx, request{
		method: http.MethodPost,
		url:    c.endpoint(path, query),
		body:   body,
	})
	return resp, err
}

func (c *authClientImpl) SignUp(ctx context.Context, email, password string, metadata map[string]string) (*model.AuthUser, *model.Session, error) {
	payload := map[string]interface{}{
		"email":    email,
		"password": password,
	}
	if len(metadata) > 0 {
		payload["data"] = metadata
	}

	body, err := c.post(ctx, "signup", nil, payload)
	if err != nil {
		return nil, nil, fmt.Errorf("sign up: %w", err)
	}

	// With email confirmation on, GoTrue answers with the bare user.
	if gjson.GetBytes(body, "access_token").Exists() {
		session, err := c.decodeSession(body)
		if err != nil {
			return nil, nil, err
		}
		return &session.User, session, nil
	}

	var user model.AuthUser
	if err := json.Unmarshal(body, &user); err != nil {
		return nil, nil, fmt.Errorf("decode sign up user: %w", err)
	}
	if user.ID == "" {
		return nil, nil, nil
	}
	return &user, nil, nil
}

func (c *authClientImpl) SignInWithPassword(ctx context.Context, email, password string) (*model.Session, error) {
	body, err := c.post(ctx, "token", url.Values{"grant_type": {"password"}}, map[string]string{
		"email":    email,
		"password": password,
	})
	if err != nil {
		return nil, fmt.Errorf("sign in: %w", err)
	}
	return c.decodeSession(body)
}

func (c *authClientImpl) RefreshSession(ctx context.Context, refreshToken string) (*model.Session, error) {
	body, err := c.post(ctx, "token", url.Values{"grant_type": {"refresh_token"}}, map[string]string{
		"refresh_token": refreshToken,
	})
	if err != nil {
		return nil, fmt.Errorf("refresh session: %w", err)
	}
	return c.decodeSession(body)
}

func (c *authClientImpl) SignOut(ctx context.Context, accessToken string) error {
	_, _, err := c.rest.do(WithAccessToken(ctx, accessToken), request{
		method: http.MethodPost,
		url:    c.endpoint("logout", nil),
	})
	if err != nil {
		return fmt.Errorf("sign out: %w", err)
	}
	return nil
}

func (c *authClientImpl) GetUser(ctx context.Context, accessToken string) (*model.AuthUser, error) {
	_, body, err := c.rest.do(WithAccessToken(ctx, accessToken), request{
		method: http.MethodGet,
		url:    c.endpoint("user", nil),
	})
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	var user model.AuthUser
	if err := json.Unmarshal(body, &user); err != nil {
		return nil, fmt.Errorf("decode user: %w", err)
	}
	return &user, nil
}

func (c *authClientImpl) ResetPasswordForEmail(ctx context.Context, email, redirectTo string) error {
	var query url.Values
	if redirectTo != "" {
		query = url.Values{"redirect_to": {redirectTo}}
	}
	if _, err := c.post(ctx, "recover", query, map[string]string{"email": email}); err != nil {
		return fmt.Errorf("reset password for email: %w", err)
	}
	return nil
}

func (c *authClientImpl) ResendSignup(ctx context.Context, email string) error {
	if _, err := c.post(ctx, "resend", nil, map[string]string{"type": "signup", "email": email}); err != nil {
		return fmt.Errorf("resend confirmation: %w", err)
	}
	return nil
}

func (c *authClientImpl) UpdatePassword(ctx context.Context, accessToken, password string) (*model.AuthUser, error) {
	body, err := jsonBody(map[string]string{"password": password})
	if err != nil {
		return nil, err
	}
	_, resp, err := c.rest.do(WithAccessToken(ctx, accessToken), request{
		method: http.MethodPut,
		url:    c.endpoint("user", nil),
		body:   body,
	})
	if err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}
	var user model.AuthUser
	if err := json.Unmarshal(resp, &user); err != nil {
		return nil, fmt.Errorf("decode user: %w", err)
	}
	return &user, nil
}

func (c *authClientImpl) decodeSession(body []byte) (*model.Session, error) {
	var session model.Session
	if err := json.Unmarshal(body, &session); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	if session.AccessToken == "" {
		return nil, fmt.Errorf("decode session: missing access token")
	}
	if session.ExpiresAt == 0 && session.ExpiresIn > 0 {
		session.ExpiresAt = c.now().Unix() + session.ExpiresIn
	}
	return &session, nil
}
