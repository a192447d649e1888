// SPDX-License-Identifier: MPL-2.0

// Package orchestrator is the HTTP client for the remote control plane that
// serves assets and work queues to entrypoints during managed runs.
package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/botvelocity/bv/internal/logging"

	"github.com/charmbracelet/log"
	"github.com/go-playground/validator/v10"
	"github.com/go-resty/resty/v2"
)

// DefaultTimeout bounds one request when Settings.Timeout is zero.
const DefaultTimeout = 20 * time.Second

var (
	// ErrNotAuthenticated is returned for HTTP 401 responses.
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrPermissionDenied is returned for HTTP 403 responses.
	ErrPermissionDenied = errors.New("permission denied")

	validate = validator.New()
)

type (
	// Settings configures a Client.
	Settings struct {
		URL       string        `validate:"required,url"`
		Token     string        `validate:"omitempty,printascii"`
		Timeout   time.Duration `validate:"gte=0"`
		UserAgent string
		Retries   int `validate:"gte=0,lte=10"`
	}

	// Response is a decoded control-plane reply.
	Response struct {
		Status int
		// Data is the decoded JSON body, or nil for an empty body.
		Data any
	}

	// StatusError reports a non-auth HTTP failure with the server's explanation.
	StatusError struct {
		Status  int
		Message string
	}

	// Requester performs control-plane requests.
	Requester interface {
		Request(ctx context.Context, method, path string, query map[string]string, body any) (*Response, error)
	}

	// Client talks to one control plane.
	Client struct {
		http    *resty.Client
		baseURL string
	}
)

// Error implements the error interface.
func (e *StatusError) Error() string {
	return fmt.Sprintf("orchestrator request failed (%d): %s", e.Status, e.Message)
}

// New validates s and builds a client.
func New(s Settings, logger *log.Logger) (*Client, error) {
	if err := validate.Struct(s); err != nil {
		return nil, fmt.Errorf("invalid orchestrator settings: %w", err)
	}
	if logger == nil {
		logger = logging.Discard()
	}
	timeout := s.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	base := strings.TrimRight(s.URL, "/")

	client := resty.New().
		SetTimeout(timeout).
		SetBaseURL(base).
		SetHeader("Accept", "application/json").
		SetHeader("Content-Type", "application/json")
	if s.UserAgent != "" {
		client.SetHeader("User-Agent", s.UserAgent)
	}
	if s.Token != "" {
		client.SetAuthToken(s.Token)
	}

	// Only idempotent reads are retried, and only on transport failures.
	client.
		SetRetryCount(s.Retries).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(3 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil && r != nil && r.Request != nil && r.Request.Method == http.MethodGet
		})

	client.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		logger.Debug("orchestrator request", "method", req.Method, "url", req.URL)
		return nil
	})
	client.OnAfterResponse(func(_ *resty.Client, resp *resty.Response) error {
		logger.Debug("orchestrator response", "status", resp.StatusCode(), "took", resp.Time())
		return nil
	})
	client.OnError(func(req *resty.Request, err error) {
		logger.Debug("orchestrator request failed", "method", req.Method, "url", req.URL, "err", err)
	})

	return &Client{http: client, baseURL: base}, nil
}

// BaseURL returns the normalized control-plane URL.
func (c *Client) BaseURL() string { return c.baseURL }

// Request sends one request and decodes the JSON reply. 401 and 403 map to
// ErrNotAuthenticated and ErrPermissionDenied; any other status >= 400
// becomes a *StatusError carrying the server's detail/message/error text.
func (c *Client) Request(ctx context.Context, method, path string, query map[string]string, body any) (*Response, error) {
	req := c.http.R().SetContext(ctx)
	if len(query) > 0 {
		req.SetQueryParams(query)
	}
	if body != nil {
		req.SetBody(body)
	}

	resp, err := req.Execute(method, "/"+strings.TrimLeft(path, "/"))
	if err != nil {
		return nil, fmt.Errorf("failed to reach orchestrator at %s: %w", c.baseURL, err)
	}

	var data any
	if raw := resp.Body(); len(strings.TrimSpace(string(raw))) > 0 {
		if err := json.Unmarshal(raw, &data); err != nil {
			data = string(raw)
		}
	}

	switch status := resp.StatusCode(); {
	case status == http.StatusUnauthorized:
		return nil, ErrNotAuthenticated
	case status == http.StatusForbidden:
		return nil, ErrPermissionDenied
	case status >= http.StatusBadRequest:
		return nil, &StatusError{Status: status, Message: errorMessage(data, resp.Status())}
	default:
		return &Response{Status: status, Data: data}, nil
	}
}

func errorMessage(data any, fallback string) string {
	if m, ok := data.(map[string]any); ok {
		for _, key := range []string{"detail", "message", "error"} {
			if v, ok := m[key]; ok && v != nil {
				return fmt.Sprint(v)
			}
		}
	}
	if s, ok := data.(string); ok && s != "" {
		return s
	}
	return fallback
}

// ResolveURL normalizes a user-supplied control-plane URL. A missing scheme
// defaults to https. It reports false when raw cannot be made into an
// absolute http(s) URL with a host.
func ResolveURL(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "", false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", false
	}
	u.RawQuery = ""
	u.Fragment = ""
	return strings.TrimRight(u.String(), "/"), true
}
