package authclient

import (
	"context"
	"io"
	"net/http"
	"strings"
)

// RequestInterceptor mutates an outbound request before it is sent.
type RequestInterceptor func(req *http.Request) error

// ResponseInterceptor sees every response and may replace it.
type ResponseInterceptor func(req *http.Request, resp *http.Response) (*http.Response, error)

type (
	retriedKey struct{}
	exemptKey  struct{}
)

func markRetried(ctx context.Context) context.Context {
	return context.WithValue(ctx, retriedKey{}, true)
}

func wasRetried(req *http.Request) bool {
	v, _ := req.Context().Value(retriedKey{}).(bool)
	return v
}

// markExempt keeps a request out of credential attachment and out of the
// refresh loop.
func markExempt(ctx context.Context) context.Context {
	return context.WithValue(ctx, exemptKey{}, true)
}

func isExempt(req *http.Request, exemptPaths ...string) bool {
	if v, _ := req.Context().Value(exemptKey{}).(bool); v {
		return true
	}
	for _, p := range exemptPaths {
		if req.URL.Path == p {
			return true
		}
	}
	return false
}

func bearerOf(req *http.Request) string {
	return strings.TrimPrefix(req.Header.Get("Authorization"), "Bearer ")
}

// AttachCredential tags every non-exempt request with the held access token.
func AttachCredential(store TokenStore, exemptPaths ...string) RequestInterceptor {
	return func(req *http.Request) error {
		if isExempt(req, exemptPaths...) {
			req.Header.Del("Authorization")
			return nil
		}
		if token := store.Get(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		} else {
			req.Header.Del("Authorization")
		}
		return nil
	}
}

// AttachSessionID sends a fixed session ID for server-side log correlation.
func AttachSessionID(header, sessionID string) RequestInterceptor {
	return func(req *http.Request) error {
		if req.Header.Get(header) == "" {
			req.Header.Set(header, sessionID)
		}
		return nil
	}
}

// RefreshAndRetry turns a 401 on a protected request into one refresh
// exchange shared by all concurrent callers, then replays the request once.
func RefreshAndRetry(c *Client) ResponseInterceptor {
	return func(req *http.Request, resp *http.Response) (*http.Response, error) {
		if resp.StatusCode != http.StatusUnauthorized || isExempt(req, c.exemptPaths()...) {
			return resp, nil
		}
		discard(resp)

		if wasRetried(req) {
			c.log.WithField("path", req.URL.Path).Debug("retried request still unauthorized")
			return nil, ErrUnauthenticated
		}

		sent := bearerOf(req)
		_, err := c.coordinator.Do(req.Context(), func(ctx context.Context) (string, error) {
			// An earlier cycle settled while this request was on the wire:
			// reuse its token or its failure rather than exchanging again.
			if current := c.tokens.Get(); current != "" && current != sent {
				return current, nil
			}
			if err := c.failedWith(sent); err != nil {
				return "", err
			}
			return c.refreshExchange(ctx)
		})
		if err != nil {
			return nil, err
		}
		return c.replay(req)
	}
}

func discard(resp *http.Response) {
	if resp == nil || resp.Body == nil {
		return
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	resp.Body.Close()
}
