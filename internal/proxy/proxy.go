// Package proxy forwards browser requests to the ReadHub API and adds the
// CORS headers the upstream does not send.
package proxy

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// DefaultOrigin is the upstream API origin.
const DefaultOrigin = "https://api.readhub.cn"

const genericErrorMessage = "upstream request failed"

// Config controls the proxy.
type Config struct {
	// Origin is the upstream scheme://host.
	Origin string
	// Prefix is stripped from the request path before forwarding.
	Prefix string
	// ExposeUpstreamErrors puts upstream status and body text in the
	// "message" field of 500 responses. When false a generic message is
	// sent and the detail is only logged.
	ExposeUpstreamErrors bool
	// Timeout bounds one upstream round trip.
	Timeout time.Duration
	// RPS and Burst limit upstream calls across all clients. Zero RPS
	// disables limiting.
	RPS   float64
	Burst int
}

// DefaultConfig returns the settings used by the serve command.
func DefaultConfig() Config {
	return Config{
		Origin:               DefaultOrigin,
		Prefix:               "/api",
		ExposeUpstreamErrors: true,
		Timeout:              15 * time.Second,
		RPS:                  10,
		Burst:                20,
	}
}

// Handler is the proxy http.Handler.
type Handler struct {
	cfg     Config
	client  *http.Client
	limiter *rate.Limiter
	metrics *Metrics
}

// Option configures a Handler.
type Option func(*Handler)

// WithHTTPClient replaces the upstream client.
func WithHTTPClient(hc *http.Client) Option {
	return func(h *Handler) { h.client = hc }
}

// WithMetrics records request counts and latency.
func WithMetrics(m *Metrics) Option {
	return func(h *Handler) { h.metrics = m }
}

// New creates a proxy handler.
func New(cfg Config, opts ...Option) *Handler {
	h := &Handler{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
	if cfg.RPS > 0 {
		burst := cfg.Burst
		if burst < 1 {
			burst = 1
		}
		h.limiter = rate.NewLimiter(rate.Limit(cfg.RPS), burst)
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func setCORS(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	status := h.serve(w, r)
	if h.metrics != nil {
		h.metrics.observe(r.Method, status, time.Since(start))
	}
}

func (h *Handler) serve(w http.ResponseWriter, r *http.Request) int {
	switch r.Method {
	case http.MethodOptions:
		setCORS(w)
		w.WriteHeader(http.StatusNoContent)
		return http.StatusNoContent
	case http.MethodGet:
	default:
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "Method not allowed"})
		return http.StatusMethodNotAllowed
	}

	target, err := h.targetURL(r.URL)
	if err != nil {
		return h.fail(w, err)
	}
	log.Printf("Proxying request to: %s", target)

	body, err := h.fetch(r, target)
	if err != nil {
		return h.fail(w, err)
	}

	setCORS(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(body)
	return http.StatusOK
}

// targetURL maps /api/<path>?<query> onto the upstream origin.
func (h *Handler) targetURL(in *url.URL) (string, error) {
	apiPath := strings.TrimPrefix(in.Path, strings.TrimRight(h.cfg.Prefix, "/"))
	apiPath = "/" + strings.TrimLeft(apiPath, "/")

	target, err := url.Parse(strings.TrimRight(h.cfg.Origin, "/") + apiPath)
	if err != nil {
		return "", fmt.Errorf("build upstream url: %w", err)
	}
	q := target.Query()
	for key, values := range in.Query() {
		// Last value wins, as with repeated URLSearchParams.set.
		q.Set(key, values[len(values)-1])
	}
	target.RawQuery = q.Encode()
	return target.String(), nil
}

type upstreamError struct {
	status int
	body   string
}

func (e *upstreamError) Error() string {
	return fmt.Sprintf("ReadHub API error: %d - %s", e.status, e.body)
}

func (h *Handler) fetch(r *http.Request, target string) ([]byte, error) {
	ctx := r.Context()
	if h.limiter != nil {
		if err := h.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read upstream body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &upstreamError{status: resp.StatusCode, body: string(body)}
	}
	if !json.Valid(body) {
		return nil, errors.New("upstream returned invalid JSON")
	}
	return body, nil
}

func (h *Handler) fail(w http.ResponseWriter, err error) int {
	log.Printf("Proxy error: %v", err)
	msg := genericErrorMessage
	if h.cfg.ExposeUpstreamErrors {
		msg = err.Error()
	}
	if h.metrics != nil {
		var ue *upstreamError
		if errors.As(err, &ue) {
			h.metrics.UpstreamErrors.WithLabelValues(strconv.Itoa(ue.status)).Inc()
		} else {
			h.metrics.UpstreamErrors.WithLabelValues("network").Inc()
		}
	}
	setCORS(w)
	writeJSON(w, http.StatusInternalServerError, map[string]string{
		"error":   "Proxy failed",
		"message": msg,
	})
	return http.StatusInternalServerError
}
