// Package remote mirrors local state changes to the smartpay HTTP API.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/theirongolddev/smartpay/internal/model"
)

const (
	// DefaultBaseURL is where the API listens in local development.
	DefaultBaseURL        = "http://localhost:9000"
	defaultRequestTimeout = 10 * time.Second
	maxBodySize           = 1 << 20 // 1 MB

	errConnection = "could not reach the server"
	errRequest    = "request failed"
)

// Client is a stateless wrapper over the API. All methods return a Result and never
// panic or return errors.
type Client struct {
	baseURL string
	timeout time.Duration
	http    *http.Client
	log     logrus.FieldLogger
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithLogger sets the logger used for failed requests.
func WithLogger(l logrus.FieldLogger) Option {
	return func(c *Client) { c.log = l }
}

// NewClient creates a client for baseURL. An empty baseURL uses DefaultBaseURL.
func NewClient(baseURL string, opts ...Option) *Client {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL: baseURL,
		timeout: defaultRequestTimeout,
		http:    &http.Client{},
		log:     logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the API root the client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Register creates a remote account.
func (c *Client) Register(ctx context.Context, email, password, fullName string) Result[Account] {
	return do[Account](ctx, c, http.MethodPost, "/auth/register",
		RegisterRequest{Email: email, Password: password, FullName: fullName})
}

// Login checks credentials against the remote service.
func (c *Client) Login(ctx context.Context, email, password string) Result[Account] {
	return do[Account](ctx, c, http.MethodPost, "/auth/login",
		LoginRequest{Email: email, Password: password})
}

// UpdateProfile pushes the full profile.
func (c *Client) UpdateProfile(ctx context.Context, p model.UserProfile) Result[Ack] {
	return do[Ack](ctx, c, http.MethodPost, "/user/profile", p)
}

// AddCard creates a remote card. The returned card carries the server-assigned id.
func (c *Client) AddCard(ctx context.Context, f model.CardFields) Result[Card] {
	return do[Card](ctx, c, http.MethodPost, "/cards", f)
}

// UpdateCard sends a partial card update. Transactions are never sent.
func (c *Client) UpdateCard(ctx context.Context, id string, p model.CardPatch) Result[Ack] {
	return do[Ack](ctx, c, http.MethodPut, "/cards/"+url.PathEscape(id), p.Remote())
}

// DeleteCard removes a remote card.
func (c *Client) DeleteCard(ctx context.Context, id string) Result[Ack] {
	return do[Ack](ctx, c, http.MethodDelete, "/cards/"+url.PathEscape(id), nil)
}

// Analyze asks the service for a payment plan for the named user.
func (c *Client) Analyze(ctx context.Context, fullName string) Result[model.Analysis] {
	return do[model.Analysis](ctx, c, http.MethodPost, "/analysis", AnalysisRequest{FullName: fullName})
}

// do performs one JSON request. Any non-2xx status is a failure whose message is the
// response's "message" field when present.
func do[T any](ctx context.Context, c *Client, method, path string, body any) Result[T] {
	log := c.log.WithFields(logrus.Fields{"method": method, "path": path})

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			log.WithError(err).Error("remote: encoding request")
			return Failed[T](errRequest)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		log.WithError(err).Error("remote: creating request")
		return Failed[T](errRequest)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("User-Agent", "github.com/theirongolddev/smartpay/1.0")

	//nolint:gosec // URL is built from the configured base URL
	resp, err := c.http.Do(req)
	if err != nil {
		log.WithError(err).Warn("remote: request failed")
		return Failed[T](errConnection)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		log.WithError(err).Warn("remote: reading response")
		return Failed[T](errConnection)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := errorMessage(raw)
		if msg == "" {
			msg = fmt.Sprintf("%s (status %d)", errRequest, resp.StatusCode)
		}
		log.WithField("status", resp.StatusCode).Warnf("remote: %s", msg)
		return Failed[T](msg)
	}

	if len(bytes.TrimSpace(raw)) == 0 {
		return Result[T]{Success: true}
	}

	var data T
	if err := json.Unmarshal(raw, &data); err != nil {
		log.WithError(err).Warn("remote: malformed response")
		return Failed[T]("malformed response from server")
	}
	return Result[T]{Success: true, Data: &data}
}

func errorMessage(raw []byte) string {
	var body struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return ""
	}
	return body.Message
}
