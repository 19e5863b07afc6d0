// Package transport implements the HTTP/NDJSON transport for the ATLAS
// platform API: token refresh, request instrumentation and streamed
// response bodies. Higher layers treat it as a request/response black box.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const (
	defaultRateLimit      = 5.0
	defaultRateLimitBurst = 10
	requestIDHeader       = "X-Request-Id"
)

// Config holds transport construction options.
type Config struct {
	BaseURL      string
	RefreshToken string

	// RateLimit caps outbound requests per second; RateLimitBurst the
	// burst size. Zero values fall back to the defaults.
	RateLimit      float64
	RateLimitBurst int

	Logger     *logrus.Logger
	Registerer prometheus.Registerer
	HTTPClient *http.Client
}

// Client is the authenticated HTTP client for the platform API.
type Client struct {
	base    *url.URL
	http    *http.Client
	limiter *rate.Limiter
	logger  *logrus.Logger
	metrics *Metrics

	refreshToken string

	mu          sync.Mutex
	accessToken string
	userID      string
}

// New validates the config and builds a client. No network call is made
// until the first request or an explicit RefreshAccessToken.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("transport: base URL is required")
	}
	if cfg.RefreshToken == "" {
		return nil, fmt.Errorf("transport: refresh token is required")
	}
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("transport: parsing base URL: %w", err)
	}

	limit := cfg.RateLimit
	if limit <= 0 {
		limit = defaultRateLimit
	}
	burst := cfg.RateLimitBurst
	if burst <= 0 {
		burst = defaultRateLimitBurst
	}

	logger := cfg.Logger
	if logger == nil {
		logger = logrus.New()
		logger.SetLevel(logrus.WarnLevel)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}

	return &Client{
		base:         base,
		http:         httpClient,
		limiter:      rate.NewLimiter(rate.Limit(limit), burst),
		logger:       logger,
		metrics:      NewMetrics(cfg.Registerer),
		refreshToken: cfg.RefreshToken,
	}, nil
}

// RefreshAccessToken exchanges the refresh token for an access token and
// the authenticated user's id.
func (c *Client) RefreshAccessToken(ctx context.Context) error {
	body, err := json.Marshal(map[string]string{"refresh_token": c.refreshToken})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.base.JoinPath("/sessions").String(), bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("refreshing access token: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("refreshing access token: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return &HTTPError{
			Method:     http.MethodPost,
			Path:       "/sessions",
			StatusCode: resp.StatusCode,
			Body:       truncate(string(raw)),
		}
	}

	var session struct {
		AccessToken string `json:"access_token"`
		UserID      string `json:"user_id"`
	}
	if err := json.Unmarshal(raw, &session); err != nil {
		return &HTTPError{
			Method:     http.MethodPost,
			Path:       "/sessions",
			StatusCode: resp.StatusCode,
			Body:       fmt.Sprintf("decoding session: %v", err),
		}
	}

	c.mu.Lock()
	c.accessToken = session.AccessToken
	c.userID = session.UserID
	c.mu.Unlock()
	return nil
}

// UserID returns the authenticated user id, refreshing the session first
// if needed.
func (c *Client) UserID(ctx context.Context) (string, error) {
	c.mu.Lock()
	id := c.userID
	c.mu.Unlock()
	if id != "" {
		return id, nil
	}
	if err := c.RefreshAccessToken(ctx); err != nil {
		return "", err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.userID, nil
}

// Get issues a GET and reads the whole body.
func (c *Client) Get(ctx context.Context, path string, query url.Values) (*Response, error) {
	resp, err := c.do(ctx, http.MethodGet, path, query, nil)
	if err != nil {
		return nil, err
	}
	return c.readAll(http.MethodGet, path, resp)
}

// Post issues a JSON POST and reads the whole body.
func (c *Client) Post(ctx context.Context, path string, body interface{}) (*Response, error) {
	resp, err := c.do(ctx, http.MethodPost, path, nil, body)
	if err != nil {
		return nil, err
	}
	return c.readAll(http.MethodPost, path, resp)
}

// Stream issues a JSON POST and hands back the response body as a line
// stream. The caller owns the stream and must close it.
func (c *Client) Stream(ctx context.Context, path string, body interface{}) (*LineStream, error) {
	resp, err := c.do(ctx, http.MethodPost, path, nil, body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		return nil, &HTTPError{
			Method:     http.MethodPost,
			Path:       path,
			StatusCode: resp.StatusCode,
			Body:       truncate(string(raw)),
		}
	}
	return NewLineStream(resp.Body), nil
}

// do sends one request, refreshing the token and replaying once on a 401.
// The caller is responsible for the response body.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body interface{}) (*http.Response, error) {
	resp, err := c.send(ctx, method, path, query, body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusUnauthorized {
		return resp, nil
	}

	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	if err := c.RefreshAccessToken(ctx); err != nil {
		return nil, err
	}
	return c.send(ctx, method, path, query, body)
}

func (c *Client) send(ctx context.Context, method, path string, query url.Values, body interface{}) (*http.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	c.mu.Lock()
	token := c.accessToken
	c.mu.Unlock()
	if token == "" {
		if err := c.RefreshAccessToken(ctx); err != nil {
			return nil, err
		}
		c.mu.Lock()
		token = c.accessToken
		c.mu.Unlock()
	}

	u := c.base.JoinPath(path)
	if query != nil {
		u.RawQuery = query.Encode()
	}

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encoding request body: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return nil, err
	}
	requestID := uuid.NewString()
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set(requestIDHeader, requestID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	elapsed := time.Since(start)

	status := "error"
	if err == nil {
		status = strconv.Itoa(resp.StatusCode)
	}
	c.metrics.observe(method, status, elapsed.Seconds())

	entry := c.logger.WithFields(logrus.Fields{
		"request_id": requestID,
		"method":     method,
		"path":       path,
		"duration":   elapsed.String(),
	})
	if err != nil {
		entry.WithError(err).Debug("request failed")
		return nil, err
	}
	entry.WithField("status", resp.StatusCode).Debug("request complete")
	return resp, nil
}

func (c *Client) readAll(method, path string, resp *http.Response) (*Response, error) {
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &HTTPError{
			Method:     method,
			Path:       path,
			StatusCode: resp.StatusCode,
			Body:       truncate(string(raw)),
		}
	}
	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		method:     method,
		path:       path,
		body:       raw,
	}, nil
}

func truncate(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > 512 {
		return s[:512] + "..."
	}
	return s
}
