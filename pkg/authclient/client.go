// Package authclient talks to the IntelligenceHUB backend authentication endpoints and
// turns their answers into session grants and typed session errors.
package authclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"intelligencehub-console/pkg/session"

	"golang.org/x/oauth2"
)

const (
	DefaultLoginPath = "/api/v1/auth/login"
	DefaultMePath    = "/api/v1/auth/me"

	maxBodySize = 1 << 20
)

type Client struct {
	baseURL    string
	loginPath  string
	mePath     string
	httpClient *http.Client
	now        func() time.Time
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func WithPaths(loginPath, mePath string) Option {
	return func(c *Client) {
		if loginPath != "" {
			c.loginPath = loginPath
		}
		if mePath != "" {
			c.mePath = mePath
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		loginPath:  DefaultLoginPath,
		mePath:     DefaultMePath,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// loginResponse accepts both the envelope {success, user, token, error} and the
// FastAPI shape {access_token, token_type, expires_in, user} with {detail} on errors.
type loginResponse struct {
	Success            *bool     `json:"success"`
	Token              string    `json:"token"`
	AccessToken        string    `json:"access_token"`
	TokenType          string    `json:"token_type"`
	ExpiresIn          int64     `json:"expires_in"`
	MustChangePassword bool      `json:"must_change_password"`
	User               *wireUser `json:"user"`
	Error              string    `json:"error"`
	Message            string    `json:"message"`
	Detail             detail    `json:"detail"`
}

func (r loginResponse) reason() string {
	for _, s := range []string{r.Error, string(r.Detail), r.Message} {
		if s = strings.TrimSpace(s); s != "" {
			return s
		}
	}
	return ""
}

type wireUser struct {
	ID                 flexibleID `json:"id"`
	Email              string     `json:"email"`
	Username           string     `json:"username"`
	FirstName          string     `json:"first_name"`
	LastName           string     `json:"last_name"`
	Name               string     `json:"name"`
	Surname            string     `json:"surname"`
	Role               string     `json:"role"`
	MustChangePassword bool       `json:"must_change_password"`
}

func (w wireUser) toUser() session.User {
	u := session.User{
		ID:                 string(w.ID),
		Email:              w.Email,
		Username:           w.Username,
		FirstName:          w.FirstName,
		LastName:           w.LastName,
		Role:               w.Role,
		MustChangePassword: w.MustChangePassword,
	}
	if u.FirstName == "" {
		u.FirstName = w.Name
	}
	if u.LastName == "" {
		u.LastName = w.Surname
	}
	if u.Email == "" && strings.Contains(u.Username, "@") {
		u.Email = u.Username
	}
	return u
}

// flexibleID accepts string and numeric ids.
type flexibleID string

func (f *flexibleID) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexibleID(s)
		return nil
	}
	if string(b) == "null" {
		*f = ""
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = flexibleID(n.String())
	return nil
}

// detail is FastAPI's error field: a string, or a list of validation errors.
type detail string

func (d *detail) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*d = detail(s)
		return nil
	}
	var items []struct {
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(b, &items); err == nil && len(items) > 0 {
		*d = detail(items[0].Msg)
	}
	return nil
}

// Authenticate implements session.Authenticator.
func (c *Client) Authenticate(ctx context.Context, creds session.Credentials) (*session.Grant, error) {
	body, err := json.Marshal(loginRequest{Username: creds.Identifier, Password: creds.Secret})
	if err != nil {
		return nil, session.NetworkFailure(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+c.loginPath, bytes.NewReader(body))
	if err != nil {
		return nil, session.NetworkFailure(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	status, raw, err := c.do(req)
	if err != nil {
		return nil, err
	}

	var res loginResponse
	decodeErr := json.Unmarshal(raw, &res)

	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return nil, session.InvalidCredentials(res.reason())
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		return nil, session.InvalidCredentials(res.reason())
	case status < 200 || status > 299:
		return nil, session.NetworkFailure(fmt.Errorf("login endpoint returned status %d", status))
	}
	if decodeErr != nil {
		return nil, session.NetworkFailure(fmt.Errorf("decode login response: %w", decodeErr))
	}
	if res.Success != nil && !*res.Success {
		return nil, session.InvalidCredentials(res.reason())
	}

	access := res.Token
	if access == "" {
		access = res.AccessToken
	}
	if access == "" || res.User == nil {
		return nil, session.NetworkFailure(errors.New("login response without user or token"))
	}

	user := res.User.toUser()
	if res.MustChangePassword {
		user.MustChangePassword = true
	}
	return &session.Grant{
		User:  user,
		Token: session.NewToken(access, res.TokenType, res.ExpiresIn, c.now()),
	}, nil
}

// Verify implements session.Verifier against the profile endpoint.
func (c *Client) Verify(ctx context.Context, token *oauth2.Token) (*session.User, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+c.mePath, nil)
	if err != nil {
		return nil, session.NetworkFailure(err)
	}
	req.Header.Set("Accept", "application/json")
	token.SetAuthHeader(req)

	status, raw, err := c.do(req)
	if err != nil {
		return nil, err
	}
	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		return nil, session.SessionExpired(fmt.Errorf("profile endpoint returned status %d", status))
	}
	if status < 200 || status > 299 {
		return nil, session.NetworkFailure(fmt.Errorf("profile endpoint returned status %d", status))
	}

	// Accept either a bare profile or {data: profile} / {user: profile}.
	var envelope struct {
		Data *wireUser `json:"data"`
		User *wireUser `json:"user"`
	}
	var bare wireUser
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, session.NetworkFailure(fmt.Errorf("decode profile: %w", err))
	}
	wu := envelope.Data
	if wu == nil {
		wu = envelope.User
	}
	if wu == nil {
		if err := json.Unmarshal(raw, &bare); err != nil {
			return nil, session.NetworkFailure(fmt.Errorf("decode profile: %w", err))
		}
		wu = &bare
	}
	user := wu.toUser()
	if user.ID == "" && user.Email == "" {
		return nil, session.NetworkFailure(errors.New("profile without id or email"))
	}
	return &user, nil
}

func (c *Client) do(req *http.Request) (int, []byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, session.NetworkFailure(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return 0, nil, session.NetworkFailure(fmt.Errorf("read %s response: %w", req.URL.Path, err))
	}
	return resp.StatusCode, raw, nil
}

// StatusError maps a screen's HTTP status to the error it should report to the store:
// 401 becomes SessionExpired, other failures NetworkFailure, success nil.
func StatusError(status int) error {
	switch {
	case status == http.StatusUnauthorized:
		return session.SessionExpired(errors.New("backend answered " + strconv.Itoa(status)))
	case status >= 200 && status < 400:
		return nil
	default:
		return session.NetworkFailure(errors.New("backend answered " + strconv.Itoa(status)))
	}
}
