package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/cbcs-registration/pkg/config"
	appErrors "github.com/noah-isme/cbcs-registration/pkg/errors"
	"github.com/noah-isme/cbcs-registration/pkg/middleware/requestid"
	"github.com/noah-isme/cbcs-registration/pkg/session"
)

const maxErrorBody = 4 << 10

// UpstreamObserver records registrar call outcomes.
type UpstreamObserver interface {
	ObserveUpstream(endpoint, outcome string, duration time.Duration)
}

// RegistrarClient performs HTTP+JSON calls against the remote registrar API.
// The token is always taken from the request context's session.
type RegistrarClient struct {
	baseURL string
	scheme  string
	http    *http.Client
	metrics UpstreamObserver
	logger  *zap.Logger
}

// NewRegistrarClient constructs a registrar client. A nil httpClient gets one with the configured timeout.
func NewRegistrarClient(cfg config.RegistrarConfig, httpClient *http.Client, metrics UpstreamObserver, logger *zap.Logger) *RegistrarClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	scheme := strings.TrimSpace(cfg.AuthScheme)
	if scheme == "" {
		scheme = "Token"
	}
	return &RegistrarClient{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		scheme:  scheme,
		http:    httpClient,
		metrics: metrics,
		logger:  logger,
	}
}

// Get issues an authenticated GET and decodes the JSON reply into out.
func (c *RegistrarClient) Get(ctx context.Context, path string, out interface{}) error {
	return c.call(ctx, http.MethodGet, path, nil, out, true)
}

// Post issues an authenticated JSON POST.
func (c *RegistrarClient) Post(ctx context.Context, path string, body, out interface{}) error {
	return c.call(ctx, http.MethodPost, path, body, out, true)
}

// Put issues an authenticated JSON PUT.
func (c *RegistrarClient) Put(ctx context.Context, path string, body, out interface{}) error {
	return c.call(ctx, http.MethodPut, path, body, out, true)
}

// PostAnonymous issues a JSON POST without a token, used for login.
func (c *RegistrarClient) PostAnonymous(ctx context.Context, path string, body, out interface{}) error {
	return c.call(ctx, http.MethodPost, path, body, out, false)
}

func (c *RegistrarClient) call(ctx context.Context, method, path string, body, out interface{}, authenticated bool) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "encode registrar request")
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "build registrar request")
	}
	req.Header.Set("Accept", "application/json")
	if id := requestid.FromContext(ctx); id != "" {
		req.Header.Set(requestid.Header, id)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if authenticated {
		token := session.Token(ctx)
		if token == "" {
			return appErrors.ErrAuth
		}
		req.Header.Set("Authorization", c.scheme+" "+token)
	}

	endpoint := method + " " + path
	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.observe(endpoint, "network_error", start)
		c.logger.Warn("registrar call failed", zap.String("endpoint", endpoint), zap.Error(err))
		return appErrors.Wrap(err, appErrors.ErrNetwork.Code, appErrors.ErrNetwork.Status, appErrors.ErrNetwork.Message)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		c.observe(endpoint, fmt.Sprintf("%dxx", resp.StatusCode/100), start)
		c.logger.Info("registrar rejected call",
			zap.String("endpoint", endpoint),
			zap.Int("status", resp.StatusCode),
		)
		return upstreamError(resp.StatusCode, raw)
	}
	c.observe(endpoint, "ok", start)

	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return appErrors.Wrap(err, appErrors.ErrNetwork.Code, appErrors.ErrNetwork.Status, "unreadable registrar response")
	}
	return nil
}

func (c *RegistrarClient) observe(endpoint, outcome string, start time.Time) {
	if c.metrics != nil {
		c.metrics.ObserveUpstream(endpoint, outcome, time.Since(start))
	}
}

// upstreamError maps a registrar status onto the gateway taxonomy, keeping the registrar's message.
func upstreamError(status int, body []byte) error {
	msg := upstreamMessage(body)
	var base *appErrors.Error
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		base = appErrors.ErrAuth
	case status == http.StatusNotFound:
		base = appErrors.ErrNotFound
	case status == http.StatusConflict:
		base = appErrors.ErrConflict
	case status >= http.StatusInternalServerError:
		base = appErrors.ErrNetwork
	default:
		base = appErrors.ErrValidation
	}
	return appErrors.Clone(base, msg)
}

// upstreamMessage extracts {"error"}, {"detail"} or {"message"}, or the first field error.
func upstreamMessage(body []byte) string {
	if len(bytes.TrimSpace(body)) == 0 {
		return ""
	}
	var payload map[string]interface{}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	for _, key := range []string{"error", "detail", "message"} {
		if s, ok := payload[key].(string); ok && s != "" {
			return s
		}
	}
	for field, v := range payload {
		if list, ok := v.([]interface{}); ok && len(list) > 0 {
			if s, ok := list[0].(string); ok {
				return field + ": " + s
			}
		}
	}
	return ""
}
