// Package authclient is an HTTP client for the auth service. It attaches the
// held access token to every request and, when the server answers 401,
// performs a single shared refresh exchange before replaying the request.
package authclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	SignupPath   = "/authenticate/signup"
	LoginPath    = "/authenticate/login"
	LogoutPath   = "/authenticate/logout"
	MePath       = "/authenticate/me"
	ValidatePath = "/tokens/validate"
	RefreshPath  = "/tokens/refresh"

	refreshCookieName = "refreshToken"
)

type Client struct {
	baseURL     *url.URL
	http        *http.Client
	tokens      TokenStore
	coordinator *Coordinator
	log         logrus.FieldLogger

	requestInterceptors  []RequestInterceptor
	responseInterceptors []ResponseInterceptor

	onUnauthenticated func(error)
	unauthMu          sync.Mutex

	failMu  sync.Mutex
	failure *staleFailure

	exchanges atomic.Int64
}

// staleFailure remembers the credential a failed refresh cycle discarded, so
// a 401 for that credential that lands late shares the cycle's outcome.
type staleFailure struct {
	bearer string
	err    error
}

type Option func(*Client)

// WithHTTPClient replaces the transport client. A cookie jar is added when
// it has none, since the refresh token travels as a cookie.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithTokenStore(store TokenStore) Option {
	return func(c *Client) { c.tokens = store }
}

func WithLogger(log logrus.FieldLogger) Option {
	return func(c *Client) { c.log = log }
}

// WithOnUnauthenticated registers a hook fired once per failed refresh cycle.
func WithOnUnauthenticated(fn func(error)) Option {
	return func(c *Client) { c.onUnauthenticated = fn }
}

// WithRequestInterceptor appends an interceptor after AttachCredential.
func WithRequestInterceptor(ic RequestInterceptor) Option {
	return func(c *Client) { c.requestInterceptors = append(c.requestInterceptors, ic) }
}

func WithSessionID(header, sessionID string) Option {
	return WithRequestInterceptor(AttachSessionID(header, sessionID))
}

func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid base url %q: scheme and host required", baseURL)
	}

	discardLogger := logrus.New()
	discardLogger.SetOutput(io.Discard)

	c := &Client{
		baseURL:     u,
		tokens:      NewMemoryTokenStore(),
		coordinator: NewCoordinator(),
		log:         discardLogger,
	}

	for _, opt := range opts {
		opt(c)
	}
	extra := c.requestInterceptors

	if c.http == nil {
		c.http = &http.Client{Timeout: 30 * time.Second}
	}
	if c.http.Jar == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create cookie jar: %w", err)
		}
		c.http.Jar = jar
	}

	c.requestInterceptors = append([]RequestInterceptor{AttachCredential(c.tokens, c.exemptPaths()...)}, extra...)
	c.responseInterceptors = []ResponseInterceptor{RefreshAndRetry(c)}
	return c, nil
}

func (c *Client) exemptPaths() []string {
	return []string{
		c.baseURL.Path + LoginPath,
		c.baseURL.Path + RefreshPath,
	}
}

// Do sends req through the interceptor chain. Request bodies are buffered
// so the request can be replayed after a refresh.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	if err := bufferBody(req); err != nil {
		return nil, err
	}
	return c.send(req)
}

func (c *Client) send(req *http.Request) (*http.Response, error) {
	for _, ic := range c.requestInterceptors {
		if err := ic(req); err != nil {
			return nil, err
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}

	for _, ic := range c.responseInterceptors {
		resp, err = ic(req, resp)
		if err != nil {
			return nil, err
		}
	}
	return resp, nil
}

// replay resends req once, marked so a second 401 fails instead of looping.
func (c *Client) replay(req *http.Request) (*http.Response, error) {
	retry := req.Clone(markRetried(req.Context()))
	if req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return nil, fmt.Errorf("failed to rewind request body: %w", err)
		}
		retry.Body = body
	}
	return c.send(retry)
}

func bufferBody(req *http.Request) error {
	if req.Body == nil || req.Body == http.NoBody || req.GetBody != nil {
		return nil
	}
	data, err := io.ReadAll(req.Body)
	req.Body.Close()
	if err != nil {
		return fmt.Errorf("failed to buffer request body: %w", err)
	}
	req.Body = io.NopCloser(bytes.NewReader(data))
	req.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(data)), nil
	}
	req.ContentLength = int64(len(data))
	return nil
}

// refreshExchange is run by the coordinator's leader only. On failure,
// including a panic in the transport, it drops the access token and fires
// the unauthenticated hook, so both happen once per cycle.
func (c *Client) refreshExchange(ctx context.Context) (token string, err error) {
	defer func() {
		if p := recover(); p != nil {
			c.fail(&RefreshError{Err: fmt.Errorf("%w: %v", errRefreshAborted, p)})
			panic(p)
		}
	}()

	start := time.Now()
	token, err = c.exchangeRefresh(ctx)
	if err != nil {
		rerr := &RefreshError{Err: err}
		c.fail(rerr)
		return "", rerr
	}

	c.adopt(token)
	c.log.WithField("duration", time.Since(start)).Debug("access token refreshed")
	return token, nil
}

// fail ends the current credential set after a refresh cycle failed.
func (c *Client) fail(rerr *RefreshError) {
	c.failMu.Lock()
	c.failure = &staleFailure{bearer: c.tokens.Get(), err: rerr}
	c.tokens.Clear()
	c.failMu.Unlock()

	c.log.WithError(rerr.Err).Warn("refresh exchange failed")
	c.fireUnauthenticated(rerr)
}

func (c *Client) exchangeRefresh(ctx context.Context) (string, error) {
	c.exchanges.Add(1)
	req, err := c.newRequest(markExempt(ctx), http.MethodPost, RefreshPath, nil)
	if err != nil {
		return "", err
	}
	resp, err := c.send(req)
	if err != nil {
		return "", err
	}

	var data tokenData
	if err := decodeEnvelope(resp, &data); err != nil {
		return "", err
	}
	if data.AccessToken == "" {
		return "", fmt.Errorf("refresh response carried no access token")
	}
	return data.AccessToken, nil
}

// adopt installs a freshly issued access token and forgets any failed cycle.
func (c *Client) adopt(token string) {
	c.failMu.Lock()
	c.failure = nil
	c.tokens.Set(token)
	c.failMu.Unlock()
}

// failedWith returns the outcome of the refresh cycle that discarded bearer,
// or nil when no failed cycle did.
func (c *Client) failedWith(bearer string) error {
	c.failMu.Lock()
	defer c.failMu.Unlock()
	if c.failure == nil || bearer == "" || c.failure.bearer != bearer {
		return nil
	}
	return c.failure.err
}

func (c *Client) fireUnauthenticated(err error) {
	if c.onUnauthenticated == nil {
		return
	}
	c.unauthMu.Lock()
	defer c.unauthMu.Unlock()
	c.onUnauthenticated(err)
}

func (c *Client) newRequest(ctx context.Context, method, path string, body interface{}) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.URL(path), reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	return req, nil
}

// URL resolves an API path against the base URL.
func (c *Client) URL(path string) string {
	return c.baseURL.String() + path
}

func (c *Client) Tokens() TokenStore {
	return c.tokens
}

func (c *Client) Coordinator() *Coordinator {
	return c.coordinator
}

// RefreshCount reports how many refresh exchanges reached the server.
func (c *Client) RefreshCount() int64 {
	return c.exchanges.Load()
}

type envelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type tokenData struct {
	AccessToken string `json:"accessToken"`
	ExpiresIn   int    `json:"expiresIn"`
}

// Profile is the authenticated user's public record.
type Profile struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

func decodeEnvelope(resp *http.Response, dst interface{}) error {
	defer resp.Body.Close()

	var env envelope
	decodeErr := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&env)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{StatusCode: resp.StatusCode, Message: env.Message}
	}
	if decodeErr != nil && decodeErr != io.EOF {
		return fmt.Errorf("failed to decode response: %w", decodeErr)
	}
	if dst != nil && len(env.Data) > 0 && string(env.Data) != "null" {
		if err := json.Unmarshal(env.Data, dst); err != nil {
			return fmt.Errorf("failed to decode response data: %w", err)
		}
	}
	return nil
}
