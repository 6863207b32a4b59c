package backend

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

	"hotelfront/internal/metrics"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const maxResponseBytes = 10 << 20

// TokenSource yields the bearer token of the current session. An empty token means anonymous.
type TokenSource interface {
	Token() string
}

// StaticToken is a fixed TokenSource.
type StaticToken string

func (t StaticToken) Token() string { return string(t) }

// Client calls the hotel backend REST API. It holds no per-call state; the bearer
// token is read from the bound TokenSource on every request.
type Client struct {
	baseURL     string
	paymentsURL string
	httpClient  *http.Client
	tokens      TokenSource
	logger      *zerolog.Logger

	redis    *redis.Client
	cacheTTL time.Duration
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient = &http.Client{Timeout: d}
		}
	}
}

// WithPaymentsURL sets the payment intent endpoint, which lives outside the API base.
func WithPaymentsURL(u string) Option {
	return func(c *Client) { c.paymentsURL = u }
}

func WithLogger(l *zerolog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewClient constructs a client for the API rooted at baseURL.
func NewClient(baseURL string, opts ...Option) *Client {
	nop := zerolog.Nop()
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     &nop,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.paymentsURL == "" {
		c.paymentsURL = c.baseURL + "/payments/create-payment-intent"
	}
	return c
}

// WithTokenSource returns a copy of the client bound to ts.
func (c *Client) WithTokenSource(ts TokenSource) *Client {
	cp := *c
	cp.tokens = ts
	return &cp
}

// UseRedisCache configures optional Redis caching for the public catalog endpoints.
func (c *Client) UseRedisCache(redisClient *redis.Client, ttl time.Duration) {
	c.redis = redisClient
	c.cacheTTL = ttl
}

// MultipartBody is sent as is, with its own content type.
type MultipartBody struct {
	ContentType string
	Reader      io.Reader
}

// Request describes one outbound call. URL, when set, replaces BaseURL+Path.
type Request struct {
	Method    string
	Path      string
	URL       string
	Query     url.Values
	Body      any
	Multipart *MultipartBody
	// Endpoint labels metrics and logs; it must not carry ids.
	Endpoint string
}

// Do performs req and decodes the JSON payload into out (which may be nil).
// Every failure is an *Error.
func (c *Client) Do(ctx context.Context, req Request, out any) error {
	endpoint := req.Endpoint
	if endpoint == "" {
		endpoint = "other"
	}
	start := time.Now()
	err := c.do(ctx, req, endpoint, out)

	outcome := "ok"
	if err != nil {
		be := err.(*Error)
		outcome = be.outcome()
		c.logger.Warn().
			Str("endpoint", endpoint).
			Str("method", req.Method).
			Int("http_status", be.HTTPStatus).
			Int("status_code", be.StatusCode).
			Bool("transport", be.Transport()).
			Err(be.Err).
			Msg(be.Message)
	}
	metrics.ObserveBackend(endpoint, outcome, time.Since(start))
	return err
}

func (c *Client) do(ctx context.Context, req Request, endpoint string, out any) error {
	fail := func(httpStatus int, msg string, err error) error {
		return &Error{Endpoint: endpoint, HTTPStatus: httpStatus, Message: msg, Err: err}
	}

	target := req.URL
	if target == "" {
		target = c.baseURL + req.Path
	}
	if len(req.Query) > 0 {
		target += "?" + req.Query.Encode()
	}

	var body io.Reader
	contentType := "application/json"
	switch {
	case req.Multipart != nil:
		body = req.Multipart.Reader
		contentType = req.Multipart.ContentType
	case req.Body != nil:
		data, err := json.Marshal(req.Body)
		if err != nil {
			return fail(0, err.Error(), err)
		}
		body = bytes.NewReader(data)
	}

	method := req.Method
	if method == "" {
		method = http.MethodGet
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return fail(0, err.Error(), err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	if c.tokens != nil {
		if token := c.tokens.Token(); token != "" {
			httpReq.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fail(0, err.Error(), err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fail(0, err.Error(), err)
	}
	return decodeResponse(endpoint, resp.StatusCode, data, out)
}

type envelope struct {
	StatusCode *int            `json:"statusCode"`
	Message    json.RawMessage `json:"message"`
}

func (e envelope) message() string {
	if len(e.Message) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(e.Message, &s); err == nil {
		return s
	}
	return string(e.Message)
}

// decodeResponse applies the payload checks in order: embedded status, HTTP status, decode into out.
func decodeResponse(endpoint string, httpStatus int, data []byte, out any) error {
	httpOK := httpStatus >= 200 && httpStatus < 300
	httpFallback := fmt.Sprintf("HTTP error! status: %d", httpStatus)

	if len(bytes.TrimSpace(data)) == 0 {
		if !httpOK {
			return &Error{Endpoint: endpoint, HTTPStatus: httpStatus, Message: httpFallback}
		}
		return nil
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		msg := "invalid response from server"
		if !httpOK {
			msg = httpFallback
		}
		return &Error{Endpoint: endpoint, HTTPStatus: httpStatus, Message: msg, Err: err}
	}

	if env.StatusCode != nil && *env.StatusCode != 0 && *env.StatusCode != http.StatusOK {
		msg := env.message()
		if msg == "" {
			msg = "API Error"
		}
		return &Error{Endpoint: endpoint, HTTPStatus: httpStatus, StatusCode: *env.StatusCode, Message: msg}
	}

	if !httpOK {
		msg := env.message()
		if msg == "" {
			msg = httpFallback
		}
		return &Error{Endpoint: endpoint, HTTPStatus: httpStatus, Message: msg}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &Error{Endpoint: endpoint, HTTPStatus: httpStatus, Message: "invalid response from server", Err: err}
	}
	return nil
}

func (c *Client) readCache(ctx context.Context, key string, out any) bool {
	if c.redis == nil || c.cacheTTL <= 0 {
		return false
	}
	val, err := c.redis.Get(ctx, key).Bytes()
	if err != nil {
		return false
	}
	return json.Unmarshal(val, out) == nil
}

func (c *Client) writeCache(ctx context.Context, key string, val any) {
	if c.redis == nil || c.cacheTTL <= 0 {
		return
	}
	data, err := json.Marshal(val)
	if err != nil {
		return
	}
	_ = c.redis.Set(ctx, key, data, c.cacheTTL).Err()
}

func (c *Client) invalidateCache(ctx context.Context, keys ...string) {
	if c.redis == nil {
		return
	}
	if err := c.redis.Del(ctx, keys...).Err(); err != nil {
		c.logger.Warn().Err(err).Strs("keys", keys).Msg("Failed to invalidate catalog cache")
	}
}
