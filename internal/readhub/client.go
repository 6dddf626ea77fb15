// Package readhub is a client for the ReadHub content API.
package readhub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Common parameters attached to every request.
const (
	AppVersion = "web-1.0"
	Platform   = "Web"
)

// DefaultTimeout bounds a single request when no http.Client is supplied.
const DefaultTimeout = 15 * time.Second

// HTTPError is returned for a non-2xx upstream status.
type HTTPError struct {
	Status int
	Body   string
}

func (e *HTTPError) Error() string {
	if e.Body != "" {
		return e.Body
	}
	return fmt.Sprintf("请求失败: %d", e.Status)
}

// DecodeError is returned when a response body is not valid JSON. A valid
// body whose shape differs from the target is decoded as far as possible.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string { return "数据解析错误" }
func (e *DecodeError) Unwrap() error { return e.Err }

// Client talks to the API, normally through the local proxy.
type Client struct {
	baseURL string
	http    *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// NewClient creates a client rooted at baseURL, e.g. "http://localhost:8080/api".
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Params are query parameters. Nil and empty-string values are dropped.
type Params map[string]any

// BuildURL joins path onto the base URL and encodes the common parameters
// merged with params. Caller values overwrite common ones by key.
func (c *Client) BuildURL(path string, params Params) string {
	merged := Params{
		"appVersion": AppVersion,
		"platform":   Platform,
	}
	for k, v := range params {
		merged[k] = v
	}

	q := url.Values{}
	for k, v := range merged {
		s, ok := paramString(v)
		if !ok {
			continue
		}
		q.Set(k, s)
	}

	full := c.baseURL + path
	if enc := q.Encode(); enc != "" {
		return full + "?" + enc
	}
	return full
}

func paramString(v any) (string, bool) {
	switch x := v.(type) {
	case nil:
		return "", false
	case string:
		return x, x != ""
	case *string:
		if x == nil || *x == "" {
			return "", false
		}
		return *x, true
	case int:
		return strconv.Itoa(x), true
	case int64:
		return strconv.FormatInt(x, 10), true
	case bool:
		return strconv.FormatBool(x), true
	case fmt.Stringer:
		s := x.String()
		return s, s != ""
	default:
		s := fmt.Sprint(x)
		return s, s != ""
	}
}

// Get performs a GET and decodes the JSON body into out.
func (c *Client) Get(ctx context.Context, path string, params Params, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BuildURL(path, params), nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("get %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &HTTPError{Status: resp.StatusCode, Body: string(body)}
	}
	if !json.Valid(body) {
		return &DecodeError{Err: errors.New("invalid JSON")}
	}
	if err := json.Unmarshal(body, out); err != nil {
		// Fields of an unexpected type keep their zero value.
		var typeErr *json.UnmarshalTypeError
		if !errors.As(err, &typeErr) {
			return &DecodeError{Err: err}
		}
	}
	return nil
}
