// Package api is the typed client of the EcoQuest REST API.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"golang.org/x/oauth2"
)

// maxErrorBody caps how much of an error response is read for its detail
const maxErrorBody = 1 << 20

// RequestOptions configures a single API call
type RequestOptions struct {
	Method  string
	Body    interface{}
	Headers map[string]string
}

// Client talks JSON to the EcoQuest API
type Client struct {
	baseURL string
	http    *http.Client
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client (tests, custom transports)
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		c.http = h
	}
}

// New creates a client for baseURL. A non-empty token is sent as a bearer token.
func New(baseURL, token string, timeout time.Duration, opts ...Option) *Client {
	h := &http.Client{}
	if token != "" {
		src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"})
		h = oauth2.NewClient(context.Background(), src)
	}
	if timeout > 0 {
		h.Timeout = timeout
	}

	c := &Client{baseURL: strings.TrimSuffix(baseURL, "/"), http: h}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the API root the client was configured with
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Request performs one call against endpoint (a path starting with /api).
// Non-2xx responses become *APIError, transport failures *NetworkError.
// A 2xx JSON body is decoded into out when out is non-nil; other 2xx bodies are ignored.
func (c *Client) Request(ctx context.Context, endpoint string, opts RequestOptions, out interface{}) error {
	method := opts.Method
	if method == "" {
		method = http.MethodGet
	}
	url := c.baseURL + endpoint

	var body io.Reader
	if opts.Body != nil {
		payload, err := json.Marshal(opts.Body)
		if err != nil {
			return errors.Wrapf(err, "encode request body for %s", endpoint)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return errors.Wrapf(err, "build request for %s", endpoint)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	for k, v := range opts.Headers {
		req.Header.Set(k, v)
	}

	res, err := c.http.Do(req)
	if err != nil {
		return &NetworkError{Method: method, URL: url, Err: err}
	}
	defer res.Body.Close()

	if res.StatusCode/100 != 2 {
		return &APIError{Status: res.StatusCode, Message: readDetail(res.Body)}
	}

	if out == nil || !isJSON(res.Header.Get("Content-Type")) {
		io.Copy(io.Discard, res.Body)
		return nil
	}

	data, err := io.ReadAll(res.Body)
	if err != nil {
		return &NetworkError{Method: method, URL: url, Err: err}
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return errors.Wrapf(err, "decode response from %s", endpoint)
	}
	return nil
}

// readDetail extracts the string "detail" field of an error body
func readDetail(r io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(r, maxErrorBody))
	if err != nil {
		return DefaultErrorMessage
	}

	var payload struct {
		Detail interface{} `json:"detail"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return DefaultErrorMessage
	}
	if detail, ok := payload.Detail.(string); ok && detail != "" {
		return detail
	}
	return DefaultErrorMessage
}

func isJSON(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mediaType == "application/json" || strings.HasSuffix(mediaType, "+json")
}
