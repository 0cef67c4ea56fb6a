package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"medinauts/internal/platform/tracing"
)

// Token is the credential issued by the auth collaborator.
type Token struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// AuthClient talks to the credential endpoints of the backend.
type AuthClient struct {
	base
}

// NewAuthClient creates a client for {baseURL}/token and {baseURL}/register.
func NewAuthClient(baseURL string, opts ...Option) *AuthClient {
	return &AuthClient{base: newBase(CollaboratorAuth, baseURL, opts)}
}

// Login exchanges a username and password for a bearer token. Bad
// credentials are reported with CategoryAuthentication.
func (c *AuthClient) Login(ctx context.Context, username, password string) (tok Token, err error) {
	ctx, span := c.tracer.Start(ctx, tracing.SpanLogin, tracing.String(tracing.AttrUser, tracing.HashIdentifier(username)))
	defer func() { span.End(err) }()

	form := url.Values{}
	form.Set("username", username)
	form.Set("password", password)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url("/token"), strings.NewReader(form.Encode()))
	if err != nil {
		return Token{}, NewError(CategoryInternal, c.name, 0, "failed to create request", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.do(ctx, req)
	if err != nil {
		return Token{}, err
	}
	if !isSuccess(resp.status) {
		return Token{}, c.statusError(resp)
	}
	if err := json.Unmarshal(resp.body, &tok); err != nil {
		return Token{}, NewError(CategoryContractMismatch, c.name, resp.status, "failed to parse token response", err)
	}
	if tok.AccessToken == "" {
		return Token{}, NewError(CategoryContractMismatch, c.name, resp.status, "token response has no access_token", nil)
	}
	return tok, nil
}

type registerRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Register creates an account. An existing username is CategoryRejected.
func (c *AuthClient) Register(ctx context.Context, username, password string) (err error) {
	ctx, span := c.tracer.Start(ctx, tracing.SpanRegister, tracing.String(tracing.AttrUser, tracing.HashIdentifier(username)))
	defer func() { span.End(err) }()

	payload, err := json.Marshal(registerRequest{Username: username, Password: password})
	if err != nil {
		return NewError(CategoryInternal, c.name, 0, "failed to marshal request", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url("/register"), bytes.NewReader(payload))
	if err != nil {
		return NewError(CategoryInternal, c.name, 0, "failed to create request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.do(ctx, req)
	if err != nil {
		return err
	}
	if !isSuccess(resp.status) {
		return c.statusError(resp)
	}
	return nil
}

// UserCount returns the number of registered users, 0 when the backend
// cannot tell.
func (c *AuthClient) UserCount(ctx context.Context) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url("/user-count"), nil)
	if err != nil {
		return 0, NewError(CategoryInternal, c.name, 0, "failed to create request", err)
	}
	resp, err := c.do(ctx, req)
	if err != nil {
		return 0, err
	}
	if !isSuccess(resp.status) {
		return 0, c.statusError(resp)
	}
	var parsed struct {
		Count int `json:"count"`
	}
	if err := json.Unmarshal(resp.body, &parsed); err != nil {
		return 0, NewError(CategoryContractMismatch, c.name, resp.status, "failed to parse response", err)
	}
	return parsed.Count, nil
}
