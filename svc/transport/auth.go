package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"

	"github.com/pkg/errors"

	"oxypaste/pkg/domain"
	"oxypaste/svc/util"
)

// SignUp creates an account. The backend may still require email
// verification before login succeeds; that flow is server-owned.
func (c *Client) SignUp(ctx context.Context, params domain.SignUpParams) error {
	body, err := json.Marshal(params)
	if err != nil {
		return errors.Wrap(err, "marshal signup request")
	}
	req, err := c.newRequest(ctx, http.MethodPost, c.endpoint("api", "user", "create"), bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeError(resp)
	}
	return nil
}

// Login exchanges credentials for a bearer token grant. Persisting the
// grant is the caller's job.
func (c *Client) Login(ctx context.Context, username, password string) (domain.TokenGrant, error) {
	body, err := json.Marshal(map[string]string{
		"username": username,
		"password": password,
	})
	if err != nil {
		return domain.TokenGrant{}, errors.Wrap(err, "marshal login request")
	}
	req, err := c.newRequest(ctx, http.MethodPost, c.endpoint("api", "user", "login"), bytes.NewReader(body))
	if err != nil {
		return domain.TokenGrant{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.do(req)
	if err != nil {
		return domain.TokenGrant{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return domain.TokenGrant{}, decodeError(resp)
	}
	var grant domain.TokenGrant
	if err := decodeJSON(resp, &grant); err != nil {
		return domain.TokenGrant{}, err
	}
	if grant.SessionToken == "" {
		return domain.TokenGrant{}, domain.Transport("login response missing token")
	}
	util.Info().Str("user", username).Msg("logged in")
	return grant, nil
}

// Verify checks the current token against the backend and returns the
// account's username.
func (c *Client) Verify(ctx context.Context) (string, error) {
	if _, ok := c.tokens.Token(ctx); !ok {
		return "", domain.ErrNotLoggedIn
	}
	req, err := c.newRequest(ctx, http.MethodGet, c.endpoint("api", "user", "verify"), nil)
	if err != nil {
		return "", err
	}
	resp, err := c.do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", decodeError(resp)
	}
	var payload struct {
		Username string `json:"username"`
	}
	if err := decodeJSON(resp, &payload); err != nil {
		return "", err
	}
	return payload.Username, nil
}
