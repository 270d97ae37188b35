package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	appErrors "github.com/noah-isme/cbcs-registration/pkg/errors"
)

// envelope mirrors pkg/response.Envelope with a deferred data payload.
type envelope struct {
	Data  json.RawMessage  `json:"data"`
	Error *appErrors.Error `json:"error"`
}

// gatewayClient calls the portal API with the stored session token.
type gatewayClient struct {
	baseURL string
	token   string
	http    *http.Client
}

func newGatewayClient(baseURL, token string) *gatewayClient {
	return &gatewayClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: 60 * time.Second},
	}
}

// do sends a JSON request and decodes the envelope data into out. When the gateway answers with
// an error and data, out is still filled so callers can show the reverted state.
func (c *gatewayClient) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.send(req, out)
}

// upload posts a spreadsheet as multipart form data.
func (c *gatewayClient) upload(ctx context.Context, path, file string, fields map[string]string, out interface{}) error {
	f, err := os.Open(file)
	if err != nil {
		return err
	}
	defer f.Close()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", filepath.Base(file))
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, f); err != nil {
		return err
	}
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return err
		}
	}
	if err := w.Close(); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	return c.send(req, out)
}

func (c *gatewayClient) send(req *http.Request, out interface{}) error {
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrNetwork.Code, appErrors.ErrNetwork.Status, "portal unreachable")
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		return nil
	}
	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("decode %s %s: %w", req.Method, req.URL.Path, err)
	}
	if out != nil && len(env.Data) > 0 && string(env.Data) != "null" {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("decode %s %s data: %w", req.Method, req.URL.Path, err)
		}
	}
	if env.Error != nil {
		return env.Error
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return appErrors.New("HTTP_ERROR", resp.StatusCode, resp.Status)
	}
	return nil
}
