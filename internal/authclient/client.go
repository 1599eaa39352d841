package authclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"

	"github.com/AlibekovAA/taskflow/backend/internal/common/logger"
)

const defaultTimeout = 10 * time.Second

type Options struct {
	BaseURL string
	Session *Session
	// Base is the underlying transport; nil means http.DefaultTransport.
	Base             http.RoundTripper
	Timeout          time.Duration
	OnReauthRequired func(error)
	Log              *logger.Logger
}

// Client talks to the auth service. Calls to protected routes go through
// Transport, calls to the session endpoints do not.
type Client struct {
	baseURL string
	session *Session
	authed  *http.Client
	plain   *http.Client
}

func New(opts Options) (*Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}

	session := opts.Session
	if session == nil {
		session = NewSession(nil)
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	base := opts.Base
	if base == nil {
		base = http.DefaultTransport
	}

	c := &Client{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		session: session,
		plain:   &http.Client{Transport: base, Jar: jar, Timeout: timeout},
	}
	c.authed = &http.Client{
		Transport: &Transport{
			Base:             base,
			Session:          session,
			Refresher:        c,
			OnReauthRequired: opts.OnReauthRequired,
			Log:              opts.Log,
		},
		Jar:     jar,
		Timeout: timeout,
	}
	return c, nil
}

func (c *Client) Session() *Session {
	return c.session
}

// HTTPClient returns a client that authenticates with the session and
// refreshes it on demand, for calls to other services behind the same
// access token.
func (c *Client) HTTPClient() *http.Client {
	return c.authed
}

type sessionPayload struct {
	User
	AccessToken string `json:"accessToken"`
}

func (c *Client) Register(ctx context.Context, name, email, password string) (User, error) {
	return c.startSession(ctx, "/api/auth/register", map[string]string{
		"name":     name,
		"email":    email,
		"password": password,
	})
}

func (c *Client) Login(ctx context.Context, email, password string) (User, error) {
	return c.startSession(ctx, "/api/auth/login", map[string]string{
		"email":    email,
		"password": password,
	})
}

func (c *Client) startSession(ctx context.Context, path string, body any) (User, error) {
	var payload sessionPayload
	if err := c.do(ctx, c.plain, http.MethodPost, path, body, &payload); err != nil {
		return User{}, err
	}
	if err := c.session.Set(payload.User, payload.AccessToken); err != nil {
		return User{}, fmt.Errorf("save session: %w", err)
	}
	return payload.User, nil
}

// Logout revokes the refresh cookie on the server and clears the local
// session. The local session is cleared even when the server call fails.
func (c *Client) Logout(ctx context.Context) error {
	err := c.do(ctx, c.plain, http.MethodPost, "/api/auth/logout", nil, nil)
	if clearErr := c.session.Clear(); clearErr != nil && err == nil {
		err = clearErr
	}
	return err
}

func (c *Client) RefreshAccessToken(ctx context.Context) (string, error) {
	var payload struct {
		AccessToken string `json:"accessToken"`
	}
	if err := c.do(ctx, c.plain, http.MethodPost, "/api/auth/refresh", nil, &payload); err != nil {
		return "", err
	}
	return payload.AccessToken, nil
}

func (c *Client) Profile(ctx context.Context) (User, error) {
	var user User
	if err := c.do(ctx, c.authed, http.MethodGet, "/api/auth/profile", nil, &user); err != nil {
		return User{}, err
	}
	if err := c.session.UpdateUser(user); err != nil {
		return User{}, fmt.Errorf("save session: %w", err)
	}
	return user, nil
}

type ProfileUpdate struct {
	Name  *string `json:"name,omitempty"`
	Email *string `json:"email,omitempty"`
}

func (c *Client) UpdateProfile(ctx context.Context, update ProfileUpdate) (User, error) {
	var user User
	if err := c.do(ctx, c.authed, http.MethodPut, "/api/auth/profile", update, &user); err != nil {
		return User{}, err
	}
	if err := c.session.UpdateUser(user); err != nil {
		return User{}, fmt.Errorf("save session: %w", err)
	}
	return user, nil
}

func (c *Client) do(ctx context.Context, hc *http.Client, method, path string, body, out any) error {
	var reader io.Reader = http.NoBody
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := hc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeAPIError(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode}

	var envelope struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		TraceID string `json:"trace_id"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&envelope); err == nil {
		apiErr.Code = envelope.Code
		apiErr.Message = envelope.Message
		apiErr.TraceID = envelope.TraceID
	}
	return apiErr
}
