package tickets

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// APIError represents a non-2xx response from the ticket service.
type APIError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string // first 512 bytes
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s %s: HTTP %d: %s", e.Method, e.Path, e.StatusCode, e.Body)
}

// do sends one request and returns the body of a 2xx response.
// No retries: a failed call surfaces as an error-branch reply to the user.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, scheme string, body io.Reader, contentType string) ([]byte, error) {
	fullURL := c.cfg.BaseURL + path
	if len(query) > 0 {
		fullURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", scheme+" "+c.cfg.AccessToken)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s %s: read body: %w", method, path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b := string(raw)
		if len(b) > 512 {
			b = b[:512]
		}
		return nil, &APIError{Method: method, Path: path, StatusCode: resp.StatusCode, Body: b}
	}
	return raw, nil
}

// getJSON issues an authenticated read and decodes the response into dest.
func (c *Client) getJSON(ctx context.Context, path string, query url.Values, dest any) error {
	raw, err := c.do(ctx, http.MethodGet, path, query, c.readScheme(), nil, "")
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return fmt.Errorf("GET %s: decode: %w", path, err)
	}
	return nil
}

// postForm issues an authenticated write with a form-encoded body.
func (c *Client) postForm(ctx context.Context, path string, form url.Values) ([]byte, error) {
	return c.do(ctx, http.MethodPost, path, nil, c.writeScheme(), strings.NewReader(form.Encode()), "application/x-www-form-urlencoded")
}

func (c *Client) delete(ctx context.Context, path string) error {
	_, err := c.do(ctx, http.MethodDelete, path, nil, c.writeScheme(), nil, "")
	return err
}

// Reads and writes authenticate with different header schemes; both are configurable.
func (c *Client) readScheme() string {
	if c.cfg.ReadAuthScheme == "" {
		return "Bearer"
	}
	return c.cfg.ReadAuthScheme
}

func (c *Client) writeScheme() string {
	if c.cfg.WriteAuthScheme == "" {
		return "Zoho-oauthtoken"
	}
	return c.cfg.WriteAuthScheme
}

// pageQuery is the paging every list endpoint expects.
func pageQuery() url.Values {
	return url.Values{
		"action": {"data"},
		"index":  {"1"},
		"range":  {"100"},
	}
}
