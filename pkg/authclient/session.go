package authclient

import (
	"context"
	"errors"
	"net/http"
)

type signupBody struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

type loginBody struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (c *Client) Signup(ctx context.Context, email, name, password string) error {
	req, err := c.newRequest(ctx, http.MethodPost, SignupPath, signupBody{Email: email, Name: name, Password: password})
	if err != nil {
		return err
	}
	resp, err := c.Do(req)
	if err != nil {
		return err
	}
	return decodeEnvelope(resp, nil)
}

// Login stores the access token; the refresh token lands in the cookie jar.
func (c *Client) Login(ctx context.Context, email, password string) error {
	req, err := c.newRequest(markExempt(ctx), http.MethodPost, LoginPath, loginBody{Email: email, Password: password})
	if err != nil {
		return err
	}
	resp, err := c.Do(req)
	if err != nil {
		return err
	}

	var data tokenData
	if err := decodeEnvelope(resp, &data); err != nil {
		return err
	}
	c.adopt(data.AccessToken)
	c.log.WithField("expires_in", data.ExpiresIn).Debug("logged in")
	return nil
}

// Logout discards local credentials even when the server call fails.
func (c *Client) Logout(ctx context.Context) error {
	defer c.dropCredentials()

	req, err := c.newRequest(ctx, http.MethodPost, LogoutPath, nil)
	if err != nil {
		return err
	}
	resp, err := c.Do(req)
	if err != nil {
		return err
	}
	return decodeEnvelope(resp, nil)
}

func (c *Client) dropCredentials() {
	c.tokens.Clear()
	c.http.Jar.SetCookies(c.baseURL, []*http.Cookie{{
		Name:   refreshCookieName,
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	}})
}

// Validate asks the server whether the held access token is good, refreshing
// transparently when it has expired.
func (c *Client) Validate(ctx context.Context) error {
	req, err := c.newRequest(ctx, http.MethodPost, ValidatePath, nil)
	if err != nil {
		return err
	}
	resp, err := c.Do(req)
	if err != nil {
		return err
	}
	return decodeEnvelope(resp, nil)
}

func (c *Client) Me(ctx context.Context) (*Profile, error) {
	req, err := c.newRequest(ctx, http.MethodGet, MePath, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.Do(req)
	if err != nil {
		return nil, err
	}

	var p Profile
	if err := decodeEnvelope(resp, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// Refresh forces a refresh exchange. It joins one already in flight.
func (c *Client) Refresh(ctx context.Context) (string, error) {
	return c.coordinator.Do(ctx, c.refreshExchange)
}

// EnsureAuthenticated is the startup check: with no access token held it
// tries one refresh from the cookie, then validates.
func (c *Client) EnsureAuthenticated(ctx context.Context) error {
	if c.tokens.Get() == "" {
		if _, err := c.Refresh(ctx); err != nil {
			return err
		}
	}

	err := c.Validate(ctx)
	var statusErr *StatusError
	if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusUnauthorized {
		return ErrUnauthenticated
	}
	return err
}
